// Package main Rent-a-Read API.
//
// @title           Rent-a-Read API
// @version         1.0
// @description     Peer-to-peer book rental marketplace (listings, rental lifecycle, payments, reviews, chat).
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"log/slog"
	"os"

	"rentaread/app/echoServer"
	adminctrl "rentaread/app/echoServer/controller/admin"
	authctrl "rentaread/app/echoServer/controller/auth"
	bookctrl "rentaread/app/echoServer/controller/book"
	messagectrl "rentaread/app/echoServer/controller/message"
	notificationctrl "rentaread/app/echoServer/controller/notification"
	paymentctrl "rentaread/app/echoServer/controller/payment"
	rentalctrl "rentaread/app/echoServer/controller/rental"
	reviewctrl "rentaread/app/echoServer/controller/review"
	userctrl "rentaread/app/echoServer/controller/user"
	"rentaread/app/echoServer/validation"
	"rentaread/app/echoServer/ws"
	"rentaread/config"
	"rentaread/observability/metrics"
	bookrepo "rentaread/repository/book"
	geocoderepo "rentaread/repository/geocode"
	mailerrepo "rentaread/repository/mailer"
	messagerepo "rentaread/repository/message"
	notificationrepo "rentaread/repository/notification"
	paymentrepo "rentaread/repository/payment"
	razorpayrepo "rentaread/repository/razorpay"
	rentalrepo "rentaread/repository/rental"
	reviewrepo "rentaread/repository/review"
	userrepo "rentaread/repository/user"
	authsvc "rentaread/service/auth"
	booksvc "rentaread/service/book"
	messagesvc "rentaread/service/message"
	notificationsvc "rentaread/service/notification"
	paymentsvc "rentaread/service/payment"
	rentalsvc "rentaread/service/rental"
	reviewsvc "rentaread/service/review"
	usersvc "rentaread/service/user"
	"rentaread/util/database"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	echoSwagger "github.com/swaggo/echo-swagger"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	// DB
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// Redis (chat relay)
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Error("redis url invalid", "err", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	// mail
	var mailer mailerrepo.Mailer = mailerrepo.Noop{}
	if cfg.SMTPHost != "" {
		mailer = mailerrepo.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	}

	// repos
	ur := userrepo.New(db.Pool)
	br := bookrepo.New(db.Pool)
	rr := rentalrepo.New(db.Pool)
	pr := paymentrepo.New(db.Pool)
	vr := reviewrepo.New(db.Pool)
	mr := messagerepo.New(db.Pool)
	nr := notificationrepo.New(db.Pool)
	gr := geocoderepo.New(cfg.NominatimEmail)
	rzp := razorpayrepo.NewHTTP(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)

	// services
	chat := ws.NewChatRelay(rdb, log, nil)
	ns := notificationsvc.New(nr, mailer, log)
	as := authsvc.New(ur, mailer, cfg.JWTSecret)
	us := usersvc.New(ur)
	bs := booksvc.New(br, rr, gr)
	rs := rentalsvc.New(db.Pool, rr, br, ur, ns)
	ps := paymentsvc.New(db.Pool, pr, rr, rzp, cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	vs := reviewsvc.New(vr, rr, br, ur, ns)
	ms := messagesvc.New(mr, chat, ns)
	reminder := rentalsvc.NewReminder(rr, mailer, log)

	// controllers
	v := validator.New()
	authC := &authctrl.Controller{Svc: as, V: v, Log: log}
	userC := &userctrl.Controller{Svc: us, V: v, Log: log}
	bookC := &bookctrl.Controller{Svc: bs, V: v, Log: log}
	rentalC := &rentalctrl.Controller{Svc: rs, V: v, Log: log}
	paymentC := &paymentctrl.Controller{Svc: ps, V: v, Log: log}
	reviewC := &reviewctrl.Controller{Svc: vs, V: v, Log: log}
	messageC := &messagectrl.Controller{Svc: ms, V: v, Log: log}
	notificationC := &notificationctrl.Controller{Svc: ns, Log: log}
	adminC := &adminctrl.Controller{Reminder: reminder, Users: us, Payments: ps, Log: log}

	// daily due-date reminders
	cr := cron.New()
	if _, err := cr.AddFunc("0 9 * * *", func() {
		matched, sent, err := reminder.SendDueSoonReminders(context.Background())
		if err != nil {
			metrics.ObserveReminderRun("error")
			log.Error("reminder run failed", "err", err)
			return
		}
		metrics.ObserveReminderRun("ok")
		log.Info("reminder run", "matched", matched, "sent", sent)
	}); err != nil {
		log.Error("cron schedule failed", "err", err)
		os.Exit(1)
	}
	cr.Start()
	defer cr.Stop()

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Auth:         authC,
		User:         userC,
		Book:         bookC,
		Rental:       rentalC,
		Payment:      paymentC,
		Review:       reviewC,
		Message:      messageC,
		Notification: notificationC,
		Admin:        adminC,
		Chat:         chat,

		JWTSecret: cfg.JWTSecret,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	slog.Info("starting server", "port", port, "env", cfg.Env)

	e.Logger.Fatal(e.Start(":" + port))
}
