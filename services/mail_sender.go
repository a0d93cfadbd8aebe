package services

import (
	"context"

	"github.com/juju/errors"
	"gopkg.in/gomail.v2"
)

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// MailSender delivers messages by SMTP.
type MailSender struct {
	from   string
	dialer mailDialer
}

func NewMailSender(host string, port int, user, password, from string) *MailSender {
	if from == "" {
		from = user
	}
	return &MailSender{
		from:   from,
		dialer: gomail.NewDialer(host, port, user, password),
	}
}

func (s *MailSender) Name() string { return "mail" }

func (s *MailSender) Accepts(msg Message) bool {
	return msg.To != ""
}

func (s *MailSender) Send(_ context.Context, msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return errors.Annotatef(err, "sending mail to %s", msg.To)
	}
	return nil
}
