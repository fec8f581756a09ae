// Package notificationsvc persists in-app notifications and fans out
// transactional email. Both channels are best effort for callers: a
// failed insert or send is logged and never fails the triggering
// operation.
package notificationsvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"rentaread/model"
	mailerrepo "rentaread/repository/mailer"
	notificationrepo "rentaread/repository/notification"
)

var ErrNotFound = errors.New("notification not found")

type Service interface {
	Notify(ctx context.Context, userID int64, typ model.NotificationType, msg string, relatedID int64)
	SendRentalEmail(to, event, bookTitle, bookAuthor string)

	ListForUser(ctx context.Context, userID int64) ([]model.Notification, error)
	MarkRead(ctx context.Context, id, userID int64) error
	MarkAllRead(ctx context.Context, userID int64) error
}

type service struct {
	r      notificationrepo.Repo
	mailer mailerrepo.Mailer
	log    *slog.Logger
}

func New(r notificationrepo.Repo, mailer mailerrepo.Mailer, log *slog.Logger) Service {
	return &service{r: r, mailer: mailer, log: log}
}

func (s *service) Notify(ctx context.Context, userID int64, typ model.NotificationType, msg string, relatedID int64) {
	n := &model.Notification{
		UserID:  userID,
		Type:    typ,
		Message: msg,
	}
	if relatedID != 0 {
		n.RelatedID = &relatedID
	}
	if err := s.r.Insert(ctx, n); err != nil {
		s.log.Error("notification insert failed", "user_id", userID, "type", typ, "error", err)
	}
}

var rentalEmailSubjects = map[string]string{
	"request":         "New rental request",
	"accepted":        "Your rental request was accepted",
	"rejected":        "Your rental request was declined",
	"withdrawn":       "A rental request was withdrawn",
	"picked_up":       "Pickup confirmed",
	"return_started":  "Return started",
	"returned":        "Return confirmed",
	"extended":        "Rental period extended",
	"payment_success": "Payment received",
}

func (s *service) SendRentalEmail(to, event, bookTitle, bookAuthor string) {
	subject, ok := rentalEmailSubjects[event]
	if !ok {
		subject = "Rental update"
	}
	body := fmt.Sprintf(
		"<h2>%s</h2><p>Book: <strong>%s</strong> by %s.</p><p>Open the app for details.</p>",
		subject, bookTitle, bookAuthor)
	go func() {
		if err := s.mailer.Send(to, subject, body); err != nil {
			s.log.Error("rental email send failed", "to", to, "event", event, "error", err)
		}
	}()
}

func (s *service) ListForUser(ctx context.Context, userID int64) ([]model.Notification, error) {
	return s.r.ListForUser(ctx, userID)
}

func (s *service) MarkRead(ctx context.Context, id, userID int64) error {
	ok, err := s.r.MarkRead(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID int64) error {
	return s.r.MarkAllRead(ctx, userID)
}
