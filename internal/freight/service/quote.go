package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
	"github.com/aussiebroadwan/freightdesk/internal/freight/metrics"
	"github.com/aussiebroadwan/freightdesk/internal/freight/store"
	"github.com/aussiebroadwan/freightdesk/pkg/idx"
	"github.com/aussiebroadwan/freightdesk/pkg/slogx"
)

type QuoteService struct {
	Store    store.Store
	Notifier Notifier
	Metrics  *metrics.Metrics
	Clock    Clock
	Numbers  Numbers

	// Validity is how long a quote stays open. Zero means domain.QuoteValidity.
	Validity time.Duration
}

func (s *QuoteService) validity() time.Duration {
	if s.Validity <= 0 {
		return domain.QuoteValidity
	}
	return s.Validity
}

type QuoteInput struct {
	Customer            domain.Contact     `json:"customer"`
	Origin              domain.Location    `json:"origin"`
	Destination         domain.Location    `json:"destination"`
	Package             domain.Package     `json:"package"`
	ServiceType         domain.ServiceType `json:"serviceType"`
	Urgency             domain.Urgency     `json:"urgency"`
	PreferredDate       *time.Time         `json:"preferredDate"`
	SpecialInstructions string             `json:"specialInstructions"`
}

// QuoteUpdate carries the admin-editable fields; nil leaves a field alone.
type QuoteUpdate struct {
	QuotedPrice       *domain.Money       `json:"quotedPrice"`
	EstimatedDelivery *time.Time          `json:"estimatedDelivery"`
	Status            *domain.QuoteStatus `json:"status"`
	AdminNotes        *string             `json:"adminNotes"`
}

type QuoteFilter struct {
	Status domain.QuoteStatus
	store.Page
}

func validateLocation(v *validator, loc domain.Location, field string) {
	v.required(loc.City, field+".city")
	v.required(loc.Country, field+".country")
}

func (in *QuoteInput) validate() error {
	in.Customer.Email = domain.NormalizeEmail(in.Customer.Email)
	if in.Urgency == "" {
		in.Urgency = domain.UrgencyStandard
	}

	var v validator
	v.required(in.Customer.Name, "customer.name")
	v.check(validEmail(in.Customer.Email), "customer.email", "must be a valid email address")
	validateLocation(&v, in.Origin, "origin")
	validateLocation(&v, in.Destination, "destination")
	v.check(in.Package.Weight > 0, "package.weight", "must be greater than zero")
	v.check(in.Package.DeclaredValue >= 0, "package.declaredValue", "must not be negative")
	v.check(in.ServiceType.Valid(), "serviceType", "must be one of air, ocean, ground, express")
	v.check(in.Urgency.Valid(), "urgency", "must be one of standard, urgent, asap")
	return v.err()
}

// project returns q as callers observe it at now.
func project(q domain.Quote, now time.Time) domain.Quote {
	q.Status = q.EffectiveStatus(now)
	return q
}

// Submit records a customer's quote request as pending.
func (s *QuoteService) Submit(ctx context.Context, in QuoteInput) (domain.Quote, error) {
	if err := in.validate(); err != nil {
		return domain.Quote{}, err
	}

	now := s.Clock.now()
	q := domain.Quote{
		ID:                  idx.NewAt(now).String(),
		Customer:            in.Customer,
		Origin:              in.Origin,
		Destination:         in.Destination,
		Package:             in.Package,
		ServiceType:         in.ServiceType,
		Urgency:             in.Urgency,
		PreferredDate:       in.PreferredDate,
		SpecialInstructions: strings.TrimSpace(in.SpecialInstructions),
		Status:              domain.QuotePending,
		ExpiresAt:           now.Add(s.validity()),
		CreatedAt:           now,
		UpdatedAt:           now,
		Version:             1,
	}

	number, err := s.Numbers.allocate(QuoteNumberPrefix, func(number string) error {
		q.QuoteNumber = number
		return s.Store.Quotes().CreateQuote(ctx, q)
	})
	if err != nil {
		return domain.Quote{}, mapStoreErr(err)
	}
	q.QuoteNumber = number

	slogx.FromContext(ctx).Info("quote submitted",
		slog.String("quote_id", q.ID),
		slog.String("quote_number", q.QuoteNumber),
	)
	s.Metrics.QuoteTransition(string(domain.QuotePending))
	notify(ctx, s.Notifier, s.Metrics, domain.NotifyQuoteReceived, q.Customer.Email, quoteParams(q))
	return q, nil
}

// Price quotes a price and delivery date, moving the quote to quoted.
func (s *QuoteService) Price(
	ctx context.Context,
	actor Principal,
	id string,
	price domain.Money,
	estimatedDelivery *time.Time,
) (domain.Quote, error) {
	status := domain.QuoteQuoted
	return s.Update(ctx, actor, id, QuoteUpdate{
		QuotedPrice:       &price,
		EstimatedDelivery: estimatedDelivery,
		Status:            &status,
	})
}

// Update applies an admin edit under the quote's version check, retrying on
// conflict.
func (s *QuoteService) Update(ctx context.Context, actor Principal, id string, upd QuoteUpdate) (domain.Quote, error) {
	if err := RequireRole(actor, domain.RoleAdmin); err != nil {
		return domain.Quote{}, err
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return domain.Quote{}, invalid("status", "unknown status")
	}
	if upd.QuotedPrice != nil && *upd.QuotedPrice <= 0 {
		return domain.Quote{}, invalid("quotedPrice", "must be greater than zero")
	}

	var (
		q          domain.Quote
		prev, next domain.QuoteStatus
		now        time.Time
	)
	err := retryOnConflict(ctx, func() error {
		var err error
		q, err = s.Store.Quotes().GetQuoteByID(ctx, id)
		if err != nil {
			return mapStoreErr(err)
		}

		now = s.Clock.now()
		prev = q.EffectiveStatus(now)

		if upd.QuotedPrice != nil {
			q.QuotedPrice = *upd.QuotedPrice
		}
		if upd.EstimatedDelivery != nil {
			q.EstimatedDelivery = upd.EstimatedDelivery
		}
		if upd.AdminNotes != nil {
			q.AdminNotes = strings.TrimSpace(*upd.AdminNotes)
		}

		next = ""
		switch {
		case upd.Status != nil:
			next = *upd.Status
		case upd.QuotedPrice != nil && prev == domain.QuotePending:
			next = domain.QuoteQuoted
		}
		if next == domain.QuoteAccepted && q.QuotedPrice <= 0 {
			return invalid("status", "a quote must be priced before it can be accepted")
		}
		if next != "" {
			q.SetStatus(next, actor.UserID, now)
		}
		q.UpdatedAt = now

		if err := s.Store.Quotes().UpdateQuote(ctx, q); err != nil {
			return err
		}
		q.Version++
		return nil
	})
	if err != nil {
		return domain.Quote{}, mapStoreErr(err)
	}

	if next != "" && next != prev {
		s.Metrics.QuoteTransition(string(next))
		slogx.FromContext(ctx).Info("quote status changed",
			slog.String("quote_id", q.ID),
			slog.String("from", string(prev)),
			slog.String("to", string(next)),
			slog.String("actor", actor.UserID),
		)
		if next == domain.QuoteQuoted {
			notify(ctx, s.Notifier, s.Metrics, domain.NotifyQuotePriced, q.Customer.Email, quoteParams(q))
		}
	}
	return project(q, now), nil
}

// Respond records the customer's decision on a priced quote. Knowing the
// quote number is the capability.
func (s *QuoteService) Respond(ctx context.Context, number string, accept bool) (domain.Quote, error) {
	next := domain.QuoteDeclined
	if accept {
		next = domain.QuoteAccepted
	}

	var (
		q   domain.Quote
		now time.Time
	)
	err := retryOnConflict(ctx, func() error {
		var err error
		q, err = s.Store.Quotes().GetQuoteByNumber(ctx, strings.TrimSpace(number))
		if err != nil {
			return mapStoreErr(err)
		}

		now = s.Clock.now()
		switch q.EffectiveStatus(now) {
		case domain.QuoteQuoted:
		case domain.QuoteExpired:
			return ErrQuoteExpired
		default:
			return ErrConflict
		}

		q.Status = next
		q.UpdatedAt = now
		if err := s.Store.Quotes().UpdateQuote(ctx, q); err != nil {
			return err
		}
		q.Version++
		return nil
	})
	if err != nil {
		return domain.Quote{}, mapStoreErr(err)
	}

	s.Metrics.QuoteTransition(string(next))
	slogx.FromContext(ctx).Info("quote answered by customer",
		slog.String("quote_id", q.ID),
		slog.String("status", string(next)),
	)
	notify(ctx, s.Notifier, s.Metrics, domain.NotifyQuoteResponded, q.Customer.Email, quoteParams(q))
	return project(q, now), nil
}

// Lookup is the public view by quote number.
func (s *QuoteService) Lookup(ctx context.Context, number string) (domain.Quote, error) {
	q, err := s.Store.Quotes().GetQuoteByNumber(ctx, strings.TrimSpace(number))
	if err != nil {
		return domain.Quote{}, mapStoreErr(err)
	}
	return project(q, s.Clock.now()), nil
}

func (s *QuoteService) Get(ctx context.Context, actor Principal, id string) (domain.Quote, error) {
	if err := RequireRole(actor, domain.RoleAdmin); err != nil {
		return domain.Quote{}, err
	}
	q, err := s.Store.Quotes().GetQuoteByID(ctx, id)
	if err != nil {
		return domain.Quote{}, mapStoreErr(err)
	}
	return project(q, s.Clock.now()), nil
}

// List pages through quotes; the status filter matches the effective status.
func (s *QuoteService) List(ctx context.Context, actor Principal, f QuoteFilter) ([]domain.Quote, int, error) {
	if err := RequireRole(actor, domain.RoleAdmin); err != nil {
		return nil, 0, err
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, invalid("status", "unknown status")
	}

	now := s.Clock.now()
	quotes, total, err := s.Store.Quotes().ListQuotes(ctx, store.QuoteFilter{Status: f.Status, Now: now, Page: f.Page})
	if err != nil {
		return nil, 0, mapStoreErr(err)
	}
	for i := range quotes {
		quotes[i] = project(quotes[i], now)
	}
	return quotes, total, nil
}

// Delete removes a quote permanently.
func (s *QuoteService) Delete(ctx context.Context, actor Principal, id string) error {
	if err := RequireRole(actor, domain.RoleAdmin); err != nil {
		return err
	}
	if err := s.Store.Quotes().DeleteQuote(ctx, id); err != nil {
		return mapStoreErr(err)
	}
	slogx.FromContext(ctx).Info("quote deleted", slog.String("quote_id", id), slog.String("actor", actor.UserID))
	return nil
}

func (s *QuoteService) Stats(ctx context.Context, actor Principal) (store.QuoteStats, error) {
	if err := RequireRole(actor, domain.RoleAdmin); err != nil {
		return store.QuoteStats{}, err
	}
	now := s.Clock.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	stats, err := s.Store.Quotes().QuoteStats(ctx, now, monthStart)
	return stats, mapStoreErr(err)
}

func quoteParams(q domain.Quote) map[string]any {
	params := map[string]any{
		"name":        q.Customer.Name,
		"quoteNumber": q.QuoteNumber,
		"origin":      q.Origin.City,
		"destination": q.Destination.City,
		"status":      string(q.Status),
		"expiresAt":   q.ExpiresAt.Format("2006-01-02"),
	}
	if q.QuotedPrice > 0 {
		params["price"] = q.QuotedPrice.String()
	}
	if q.EstimatedDelivery != nil {
		params["estimatedDelivery"] = q.EstimatedDelivery.Format("2006-01-02")
	}
	return params
}
