// Package mailer sends transactional email. Sends are best effort:
// callers log failures and never roll back state on them.
package mailerrepo

import (
	"fmt"
	"net/smtp"
)

type Mailer interface {
	Send(to, subject, htmlBody string) error
}

type smtpMailer struct {
	host string
	port string
	user string
	pass string
}

func NewSMTP(host, port, user, pass string) Mailer {
	return &smtpMailer{host: host, port: port, user: user, pass: pass}
}

func (m *smtpMailer) Send(to, subject, htmlBody string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		m.user, to, subject, htmlBody)
	auth := smtp.PlainAuth("", m.user, m.pass, m.host)
	return smtp.SendMail(m.host+":"+m.port, auth, m.user, []string{to}, []byte(msg))
}

// Noop discards mail; used in dev when SMTP is not configured.
type Noop struct{}

func (Noop) Send(string, string, string) error { return nil }
