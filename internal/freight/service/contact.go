package service

import (
	"context"
	"strings"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
	"github.com/aussiebroadwan/freightdesk/internal/freight/metrics"
)

// ContactService forwards the public contact form to the support mailbox.
type ContactService struct {
	Notifier     Notifier
	Metrics      *metrics.Metrics
	SupportEmail string
}

type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (s *ContactService) Send(ctx context.Context, in ContactMessage) error {
	in.Email = domain.NormalizeEmail(in.Email)

	var v validator
	v.required(in.Name, "name")
	v.check(validEmail(in.Email), "email", "must be a valid email address")
	v.required(in.Message, "message")
	v.check(len(in.Message) <= 5000, "message", "must be at most 5000 characters")
	if err := v.err(); err != nil {
		return err
	}

	notify(ctx, s.Notifier, s.Metrics, domain.NotifyContactMessage, s.SupportEmail, map[string]any{
		"name":    strings.TrimSpace(in.Name),
		"email":   in.Email,
		"subject": strings.TrimSpace(in.Subject),
		"message": strings.TrimSpace(in.Message),
	})
	return nil
}
