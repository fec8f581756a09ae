package rental

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// dueSoonWindow is how far ahead the reminder batch looks.
const dueSoonWindow = 2 * 24 * time.Hour

type Mailer interface {
	Send(to, subject, htmlBody string) error
}

type Reminder interface {
	// SendDueSoonReminders emails every borrower whose LENT_OUT rental
	// is due within two days. Re-invocation may send duplicate emails;
	// it never mutates rental state.
	SendDueSoonReminders(ctx context.Context) (matched, sent int, err error)
}

type reminder struct {
	r   Repo
	m   Mailer
	log *slog.Logger
}

func NewReminder(r Repo, m Mailer, log *slog.Logger) Reminder {
	return &reminder{r: r, m: m, log: log}
}

func (c *reminder) SendDueSoonReminders(ctx context.Context) (int, int, error) {
	now := time.Now().UTC()
	rows, err := c.r.ListDueSoon(ctx, now, now.Add(dueSoonWindow))
	if err != nil {
		return 0, 0, err
	}

	sent := 0
	for _, row := range rows {
		if row.BorrowerEmail == "" {
			continue
		}
		subject := fmt.Sprintf("Reminder: %q is due on %s", row.BookTitle, row.DueDate.Format("Jan 2, 2006"))
		body := fmt.Sprintf(
			"<p>Your rental of <b>%s</b> by %s is due on %s. Please initiate the return in time.</p>",
			row.BookTitle, row.BookAuthor, row.DueDate.Format("January 2, 2006"))
		if err := c.m.Send(row.BorrowerEmail, subject, body); err != nil {
			c.log.Error("due-soon reminder email", "rental_id", row.RentalID, "err", err)
			continue
		}
		sent++
	}
	return len(rows), sent, nil
}
