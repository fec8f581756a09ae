package echoServer

import (
	"rentaread/app/echoServer/controller/admin"
	"rentaread/app/echoServer/controller/auth"
	"rentaread/app/echoServer/controller/book"
	"rentaread/app/echoServer/controller/message"
	"rentaread/app/echoServer/controller/notification"
	"rentaread/app/echoServer/controller/payment"
	"rentaread/app/echoServer/controller/rental"
	"rentaread/app/echoServer/controller/review"
	"rentaread/app/echoServer/controller/user"
	"rentaread/app/echoServer/ws"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

type C struct {
	Auth         *auth.Controller
	User         *user.Controller
	Book         *book.Controller
	Rental       *rental.Controller
	Payment      *payment.Controller
	Review       *review.Controller
	Message      *message.Controller
	Notification *notification.Controller
	Admin        *admin.Controller
	Chat         *ws.ChatRelay
	JWTSecret    string
}

func Register(e *echo.Echo, c C) {
	// Public
	pub := e.Group("/v1")
	pub.POST("/users/register", c.Auth.Register)
	pub.POST("/users/login", c.Auth.Login)
	pub.POST("/users/forgot-password", c.Auth.ForgotPassword)
	pub.POST("/users/reset-password", c.Auth.ResetPassword)
	pub.GET("/books", c.Book.List)
	pub.GET("/books/popular", c.Book.Popular)
	pub.GET("/books/:id", c.Book.Detail)
	pub.GET("/books/:id/reviews", c.Review.BookReviews)
	pub.GET("/users/:id/reviews", c.Review.UserReviews)

	// Auth
	auth := e.Group("/v1")
	auth.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(c.JWTSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
	}))

	// Users
	auth.GET("/users/me", c.User.Me)
	auth.PUT("/users/me", c.User.Update)
	auth.GET("/users/:id", c.User.Detail)

	// Books
	auth.POST("/books", c.Book.Create)
	auth.GET("/books/mine", c.Book.Mine)
	auth.DELETE("/books/:id", c.Book.Delete)

	// Rental lifecycle
	auth.POST("/rentals", c.Rental.Create)
	auth.GET("/rentals", c.Rental.List)
	auth.GET("/rentals/:id", c.Rental.Detail)
	auth.PUT("/rentals/:id", c.Rental.Respond)
	auth.PUT("/rentals/:id/withdraw", c.Rental.Withdraw)
	auth.PUT("/rentals/:id/initiate-return", c.Rental.InitiateReturn)
	auth.PUT("/rentals/:id/extend", c.Rental.Extend)
	auth.PUT("/rentals/:id/confirm-pickup", c.Rental.ConfirmPickup)
	auth.PUT("/rentals/:id/confirm-return", c.Rental.ConfirmReturn)

	// Payments
	auth.POST("/payments/create-order", c.Payment.CreateOrder)
	auth.POST("/payments/verify", c.Payment.Verify)
	auth.GET("/payments", c.Payment.List)

	// Reviews
	auth.POST("/reviews/books", c.Review.CreateBookReview)
	auth.POST("/reviews/users", c.Review.CreateUserReview)

	// Messaging
	auth.POST("/messages", c.Message.Send)
	auth.GET("/messages", c.Message.Conversations)
	auth.GET("/messages/:userId", c.Message.Conversation)
	auth.GET("/ws/chat/:userId", c.Chat.Serve)

	// Notifications
	auth.GET("/notifications", c.Notification.List)
	auth.PUT("/notifications/read-all", c.Notification.MarkAllRead)
	auth.PUT("/notifications/:id/read", c.Notification.MarkRead)

	// Admin
	auth.POST("/admin/reminders/run", c.Admin.RunReminders)
	auth.PUT("/admin/users/:id/suspend", c.Admin.SuspendUser)
	auth.PUT("/admin/payments/:id/status", c.Admin.OverridePaymentStatus)
}
