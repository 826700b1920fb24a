package services

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/jobsphere/internal/mail"
	"github.com/yoockh/jobsphere/internal/models"
	"github.com/yoockh/jobsphere/internal/utils"
	"golang.org/x/sync/errgroup"
)

const contactRetention = 90 * 24 * time.Hour

type ContactInput struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required,max=5000"`
}

type ContactService interface {
	Submit(ctx context.Context, in ContactInput) error
	List(ctx context.Context, limit int64) ([]models.ContactMessage, error)
}

type contactService struct {
	d   Deps
	to  string
	log *logrus.Logger
}

// NewContactService routes messages to contactTo, falling back to the admin address.
func NewContactService(d Deps, contactTo string) ContactService {
	d = d.withDefaults()
	to := strings.TrimSpace(contactTo)
	if to == "" {
		to = strings.TrimSpace(d.Policy.AdminEmail)
	}
	return &contactService{d: d, to: to, log: d.Logger}
}

func (s *contactService) Submit(ctx context.Context, in ContactInput) error {
	const op = "ContactService.Submit"

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Message = strings.TrimSpace(in.Message)
	if err := utils.Validate(op, in); err != nil {
		return err
	}
	if s.to == "" {
		return utils.E(utils.CodeInternal, op, "contact recipient is not configured", nil)
	}
	if s.d.Sender == nil {
		return utils.E(utils.CodeUnavailable, op, "mail delivery is not configured", mail.ErrNotConfigured)
	}

	notify, err := mail.ContactNotification(s.to, in.Name, in.Email, in.Message)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to render message", err)
	}
	reply, err := mail.ContactAutoReply(in.Email, in.Name)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to render message", err)
	}

	s.archive(ctx, in)

	sendCtx, cancel := context.WithTimeout(ctx, s.d.Policy.MailSendTimeout)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		return s.d.Sender.Send(sendCtx, notify)
	})
	g.Go(func() error {
		if err := s.d.Sender.Send(sendCtx, reply); err != nil {
			s.log.WithError(err).Warn("contact auto-reply failed")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to send message, please try again later", err)
	}
	return nil
}

func (s *contactService) archive(ctx context.Context, in ContactInput) {
	if s.d.Contacts == nil {
		return
	}
	now := s.d.Now().UTC()
	m := &models.ContactMessage{
		Name:      in.Name,
		Email:     in.Email,
		Message:   in.Message,
		CreatedAt: now,
		ExpiresAt: now.Add(contactRetention),
	}
	if err := s.d.Contacts.Insert(ctx, m); err != nil {
		s.log.WithError(err).Warn("contact archive failed")
	}
}

func (s *contactService) List(ctx context.Context, limit int64) ([]models.ContactMessage, error) {
	const op = "ContactService.List"

	if s.d.Contacts == nil {
		return []models.ContactMessage{}, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	msgs, err := s.d.Contacts.List(ctx, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list contact messages", err)
	}
	return msgs, nil
}
