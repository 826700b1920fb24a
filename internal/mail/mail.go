// Package mail renders and delivers outbound email.
package mail

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
)

var ErrNotConfigured = errors.New("mail sender is not configured")

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	ReplyTo string `json:"reply_to,omitempty"`
}

func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" || strings.TrimSpace(m.Subject) == "" {
		return errors.New("mail message needs a recipient and a subject")
	}
	return nil
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender only logs messages. Used when SMTP is not configured outside production.
type LogSender struct {
	Logger *logrus.Logger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	l := s.Logger
	if l == nil {
		l = logrus.StandardLogger()
	}
	l.WithFields(logrus.Fields{
		"to":       msg.To,
		"subject":  msg.Subject,
		"reply_to": msg.ReplyTo,
	}).Info("mail not sent: log sender")
	l.WithField("to", msg.To).Debug(msg.HTML)
	return nil
}
