package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
	"github.com/aussiebroadwan/freightdesk/internal/freight/metrics"
	"github.com/aussiebroadwan/freightdesk/internal/freight/store"
	"github.com/aussiebroadwan/freightdesk/pkg/slogx"
)

const customerPageSize = 100

// MailService lets admins write to customers, either a chosen few or all of
// them at once.
type MailService struct {
	Store    store.Store
	Notifier Notifier
	Metrics  *metrics.Metrics
}

type Campaign struct {
	Recipients []string `json:"recipients"`
	SendToAll  bool     `json:"sendToAll"`
	Subject    string   `json:"subject"`
	Message    string   `json:"message"`
}

type Recipient struct {
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}

// CampaignResult counts queued messages. Failed lists the addresses the
// queue refused.
type CampaignResult struct {
	Queued int      `json:"queued"`
	Failed []string `json:"failed,omitempty"`
}

// Customers lists every customer account, newest first.
func (s *MailService) Customers(ctx context.Context, actor Principal) ([]Recipient, error) {
	if err := RequireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}

	var out []Recipient
	for page := 1; ; page++ {
		users, total, err := s.Store.Users().ListUsers(ctx, store.Page{Page: page, Limit: customerPageSize})
		if err != nil {
			return nil, mapStoreErr(err)
		}
		for _, u := range users {
			if u.Role == domain.RoleCustomer {
				out = append(out, Recipient{Email: u.Email, Name: u.FullName, JoinedAt: u.CreatedAt})
			}
		}
		if len(users) == 0 || page*customerPageSize >= total {
			return out, nil
		}
	}
}

// Send queues one message per recipient. Named recipients must all be
// customers; otherwise nothing is sent and the unknown addresses are
// reported. "{{name}}" in the message is replaced by each customer's name.
func (s *MailService) Send(ctx context.Context, actor Principal, in Campaign) (CampaignResult, error) {
	if err := RequireRole(actor, domain.RoleAdmin); err != nil {
		return CampaignResult{}, err
	}

	var v validator
	v.required(in.Subject, "subject")
	v.check(len(in.Subject) <= 200, "subject", "must be at most 200 characters")
	v.required(in.Message, "message")
	v.check(len(in.Message) <= 20000, "message", "must be at most 20000 characters")
	v.check(in.SendToAll || len(in.Recipients) > 0, "recipients", "are required unless sendToAll is set")
	if err := v.err(); err != nil {
		return CampaignResult{}, err
	}

	recipients, err := s.resolve(ctx, actor, in)
	if err != nil {
		return CampaignResult{}, err
	}
	if len(recipients) == 0 {
		return CampaignResult{}, invalid("recipients", "no customers to send to")
	}

	subject := strings.TrimSpace(in.Subject)
	var res CampaignResult
	for _, r := range recipients {
		err := s.Notifier.Notify(ctx, domain.NotifyCustomerMessage, r.Email, map[string]any{
			"name":    r.Name,
			"subject": subject,
			"message": personalise(in.Message, r.Name),
		})
		if err != nil {
			slogx.FromContext(ctx).Warn("campaign message not queued",
				slog.String("to", domain.MaskEmail(r.Email)),
				slog.Any("error", err),
			)
			s.Metrics.Notification(string(domain.NotifyCustomerMessage), "enqueue_failed", 0)
			res.Failed = append(res.Failed, r.Email)
			continue
		}
		res.Queued++
	}

	slogx.FromContext(ctx).Info("campaign queued",
		slog.String("sent_by", actor.UserID),
		slog.Bool("send_to_all", in.SendToAll),
		slog.Int("queued", res.Queued),
		slog.Int("failed", len(res.Failed)),
	)
	return res, nil
}

func (s *MailService) resolve(ctx context.Context, actor Principal, in Campaign) ([]Recipient, error) {
	if in.SendToAll {
		return s.Customers(ctx, actor)
	}

	var (
		out     []Recipient
		unknown []string
		seen    = map[string]bool{}
	)
	for _, raw := range in.Recipients {
		email := domain.NormalizeEmail(raw)
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true

		u, err := s.Store.Users().GetUserByEmail(ctx, email)
		switch {
		case err == nil && u.Role == domain.RoleCustomer:
			out = append(out, Recipient{Email: u.Email, Name: u.FullName, JoinedAt: u.CreatedAt})
		case err == nil, errors.Is(err, store.ErrNotFound):
			unknown = append(unknown, email)
		default:
			return nil, mapStoreErr(err)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return nil, invalid("recipients", fmt.Sprintf("not customers: %s", strings.Join(unknown, ", ")))
	}
	return out, nil
}

func personalise(message, name string) string {
	if name == "" {
		name = "customer"
	}
	return strings.NewReplacer("{{name}}", name, "{{ name }}", name).Replace(strings.TrimSpace(message))
}
