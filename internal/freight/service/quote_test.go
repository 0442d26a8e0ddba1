package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
	"github.com/aussiebroadwan/freightdesk/internal/freight/store"
	"github.com/stretchr/testify/require"
)

func newQuoteService(t *testing.T) (*QuoteService, *recordingNotifier, *fakeClock) {
	t.Helper()
	clk := newClock()
	n := &recordingNotifier{}
	return &QuoteService{Store: newTestStore(t), Notifier: n, Clock: clk.Now}, n, clk
}

func validQuoteInput() QuoteInput {
	return QuoteInput{
		Customer:    domain.Contact{Name: "Ada Lovelace", Email: "Ada@Example.com", Company: "Engines Ltd"},
		Origin:      domain.Location{City: "Newark", State: "NJ", Country: "US"},
		Destination: domain.Location{City: "Austin", State: "TX", Country: "US"},
		Package:     domain.Package{Weight: 120, Dimensions: domain.Dimensions{Length: 100, Width: 80, Height: 60}},
		ServiceType: domain.ServiceGround,
	}
}

func TestQuote_SubmitAndPrice(t *testing.T) {
	ctx := context.Background()
	svc, n, clk := newQuoteService(t)

	q, err := svc.Submit(ctx, validQuoteInput())
	require.NoError(t, err)
	require.Equal(t, domain.QuotePending, q.Status)
	require.Equal(t, "ada@example.com", q.Customer.Email)
	require.Equal(t, domain.UrgencyStandard, q.Urgency)
	require.True(t, q.ExpiresAt.Equal(epoch.Add(7*24*time.Hour)))
	require.Regexp(t, `^QTE[0-9A-Z]{26}$`, q.QuoteNumber)
	require.Equal(t, 1, n.count(domain.NotifyQuoteReceived))

	clk.Advance(time.Hour)
	price, err := domain.ParseMoney("450.00")
	require.NoError(t, err)
	delivery := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	priced, err := svc.Price(ctx, admin, q.ID, price, &delivery)
	require.NoError(t, err)
	require.Equal(t, domain.QuoteQuoted, priced.Status)
	require.Equal(t, "450.00", priced.QuotedPrice.String())
	require.True(t, priced.EstimatedDelivery.Equal(delivery))
	require.Equal(t, admin.UserID, priced.QuotedBy)
	require.NotNil(t, priced.QuotedAt)
	require.True(t, priced.QuotedAt.Equal(epoch.Add(time.Hour)))
	require.Equal(t, 1, n.count(domain.NotifyQuotePriced))

	t.Run("public lookup agrees", func(t *testing.T) {
		got, err := svc.Lookup(ctx, q.QuoteNumber)
		require.NoError(t, err)
		require.Equal(t, domain.QuoteQuoted, got.Status)
		require.Equal(t, admin.UserID, got.QuotedBy)
	})

	t.Run("attribution is stamped once", func(t *testing.T) {
		other := Principal{UserID: "admin-2", IsAdmin: true}
		clk.Advance(time.Hour)

		newPrice := domain.Money(50000)
		repriced, err := svc.Update(ctx, other, q.ID, QuoteUpdate{QuotedPrice: &newPrice})
		require.NoError(t, err)
		require.Equal(t, admin.UserID, repriced.QuotedBy)
		require.True(t, repriced.QuotedAt.Equal(epoch.Add(time.Hour)))
		require.Equal(t, 1, n.count(domain.NotifyQuotePriced))
	})
}

func TestQuote_PriceWithoutStatusMovesPendingToQuoted(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newQuoteService(t)

	q, err := svc.Submit(ctx, validQuoteInput())
	require.NoError(t, err)

	price := domain.Money(1999)
	got, err := svc.Update(ctx, admin, q.ID, QuoteUpdate{QuotedPrice: &price})
	require.NoError(t, err)
	require.Equal(t, domain.QuoteQuoted, got.Status)
	require.Equal(t, admin.UserID, got.QuotedBy)
}

func TestQuote_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newQuoteService(t)

	tests := []struct {
		name  string
		edit  func(*QuoteInput)
		field string
	}{
		{"missing name", func(in *QuoteInput) { in.Customer.Name = "" }, "customer.name"},
		{"bad email", func(in *QuoteInput) { in.Customer.Email = "nope" }, "customer.email"},
		{"missing origin city", func(in *QuoteInput) { in.Origin.City = "" }, "origin.city"},
		{"zero weight", func(in *QuoteInput) { in.Package.Weight = 0 }, "package.weight"},
		{"unknown service", func(in *QuoteInput) { in.ServiceType = "rail" }, "serviceType"},
		{"unknown urgency", func(in *QuoteInput) { in.Urgency = "yesterday" }, "urgency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validQuoteInput()
			tt.edit(&in)
			_, err := svc.Submit(ctx, in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestQuote_AdminOnly(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newQuoteService(t)
	q, err := svc.Submit(ctx, validQuoteInput())
	require.NoError(t, err)

	_, err = svc.Price(ctx, buyer, q.ID, 100, nil)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Get(ctx, Principal{}, q.ID)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.ErrorIs(t, svc.Delete(ctx, buyer, q.ID), ErrForbidden)
}

func TestQuote_AcceptRequiresPrice(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newQuoteService(t)
	q, err := svc.Submit(ctx, validQuoteInput())
	require.NoError(t, err)

	accepted := domain.QuoteAccepted
	_, err = svc.Update(ctx, admin, q.ID, QuoteUpdate{Status: &accepted})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestQuote_Expiry(t *testing.T) {
	ctx := context.Background()
	svc, _, clk := newQuoteService(t)

	q, err := svc.Submit(ctx, validQuoteInput())
	require.NoError(t, err)
	clk.Advance(7*24*time.Hour + time.Minute)

	got, err := svc.Lookup(ctx, q.QuoteNumber)
	require.NoError(t, err)
	require.Equal(t, domain.QuoteExpired, got.Status)

	list, total, err := svc.List(ctx, admin, QuoteFilter{Status: domain.QuoteExpired, Page: store.Page{Page: 1, Limit: 10}})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, domain.QuoteExpired, list[0].Status)

	_, err = svc.Respond(ctx, q.QuoteNumber, true)
	require.ErrorIs(t, err, ErrQuoteExpired)

	t.Run("admin override after expiry is honoured", func(t *testing.T) {
		price := domain.Money(45000)
		status := domain.QuoteQuoted
		got, err := svc.Update(ctx, admin, q.ID, QuoteUpdate{QuotedPrice: &price, Status: &status})
		require.NoError(t, err)
		require.Equal(t, domain.QuoteQuoted, got.Status)
		require.True(t, got.StatusOverride)

		looked, err := svc.Lookup(ctx, q.QuoteNumber)
		require.NoError(t, err)
		require.Equal(t, domain.QuoteQuoted, looked.Status)

		accepted, err := svc.Respond(ctx, q.QuoteNumber, true)
		require.NoError(t, err)
		require.Equal(t, domain.QuoteAccepted, accepted.Status)
	})
}

func TestQuote_Respond(t *testing.T) {
	ctx := context.Background()
	svc, n, _ := newQuoteService(t)
	q, err := svc.Submit(ctx, validQuoteInput())
	require.NoError(t, err)

	_, err = svc.Respond(ctx, q.QuoteNumber, true)
	require.ErrorIs(t, err, ErrConflict, "pending quotes cannot be answered")

	_, err = svc.Price(ctx, admin, q.ID, 45000, nil)
	require.NoError(t, err)

	declined, err := svc.Respond(ctx, q.QuoteNumber, false)
	require.NoError(t, err)
	require.Equal(t, domain.QuoteDeclined, declined.Status)
	require.Equal(t, 1, n.count(domain.NotifyQuoteResponded))

	_, err = svc.Respond(ctx, q.QuoteNumber, true)
	require.ErrorIs(t, err, ErrConflict)

	_, err = svc.Respond(ctx, "QTE-unknown", true)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestQuote_NumberCollisionRetries(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newQuoteService(t)

	numbers := []string{"QTEFIXED", "QTEFIXED", "QTEOTHER"}
	svc.Numbers = func(string) string {
		n := numbers[0]
		numbers = numbers[1:]
		return n
	}

	first, err := svc.Submit(ctx, validQuoteInput())
	require.NoError(t, err)
	second, err := svc.Submit(ctx, validQuoteInput())
	require.NoError(t, err)

	require.Equal(t, "QTEFIXED", first.QuoteNumber)
	require.Equal(t, "QTEOTHER", second.QuoteNumber)
}

func TestQuote_NotificationFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	svc, n, _ := newQuoteService(t)
	n.fail = true

	q, err := svc.Submit(ctx, validQuoteInput())
	require.NoError(t, err)
	_, err = svc.Price(ctx, admin, q.ID, 45000, nil)
	require.NoError(t, err)
}

func TestQuote_StatsAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, _, clk := newQuoteService(t)

	for range 3 {
		_, err := svc.Submit(ctx, validQuoteInput())
		require.NoError(t, err)
	}
	q, err := svc.Submit(ctx, validQuoteInput())
	require.NoError(t, err)
	_, err = svc.Price(ctx, admin, q.ID, 45000, nil)
	require.NoError(t, err)
	clk.Advance(time.Minute)

	stats, err := svc.Stats(ctx, admin)
	require.NoError(t, err)
	require.Equal(t, 4, stats.Total)
	require.Equal(t, 4, stats.ThisMonth)
	require.Equal(t, 3, stats.ByStatus[domain.QuotePending])
	require.Equal(t, 1, stats.ByStatus[domain.QuoteQuoted])

	require.NoError(t, svc.Delete(ctx, admin, q.ID))
	_, err = svc.Get(ctx, admin, q.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
