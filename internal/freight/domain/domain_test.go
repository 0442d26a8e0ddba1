package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
	"github.com/stretchr/testify/require"
)

func TestMaskEmail(t *testing.T) {
	tests := map[string]string{
		"user@x.com":            "us***@x.com",
		"ab@freight.io":         "ab***@freight.io",
		"a@x.com":               "a***@x.com",
		"dispatch.team@acme.co": "di***@acme.co",
		"no-at-sign":            "***",
	}
	for in, want := range tests {
		require.Equal(t, want, domain.MaskEmail(in), in)
	}
}

func TestUserSetName(t *testing.T) {
	var u domain.User
	u.SetName(" Dee ", "Nguyen")
	require.Equal(t, "Dee Nguyen", u.FullName)

	u.SetName("Dee", "")
	require.Equal(t, "Dee", u.FullName)
}

func TestMoneyJSON(t *testing.T) {
	var v struct {
		Price domain.Money `json:"price"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"price":450.00}`), &v))
	require.Equal(t, domain.Money(45000), v.Price)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	require.JSONEq(t, `{"price":450.00}`, string(out))
	require.Contains(t, string(out), "450.00")

	require.NoError(t, json.Unmarshal([]byte(`{"price":"19.99"}`), &v))
	require.Equal(t, domain.Money(1999), v.Price)
	require.Equal(t, "-0.05", domain.Money(-5).String())

	require.Error(t, json.Unmarshal([]byte(`{"price":"abc"}`), &v))
}

func TestQuoteEffectiveStatus(t *testing.T) {
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	q := domain.Quote{Status: domain.QuotePending, CreatedAt: created, ExpiresAt: created.Add(domain.QuoteValidity)}

	require.Equal(t, domain.QuotePending, q.EffectiveStatus(created.Add(time.Hour)))
	require.Equal(t, domain.QuoteExpired, q.EffectiveStatus(q.ExpiresAt))

	q.Status = domain.QuoteAccepted
	require.Equal(t, domain.QuoteExpired, q.EffectiveStatus(q.ExpiresAt.Add(time.Second)))

	q.StatusOverride = true
	require.Equal(t, domain.QuoteAccepted, q.EffectiveStatus(q.ExpiresAt.Add(time.Second)))
}

func TestQuoteSetStatusStampsOnce(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	q := domain.Quote{Status: domain.QuotePending, ExpiresAt: now.Add(domain.QuoteValidity)}

	q.SetStatus(domain.QuoteQuoted, "admin-1", now)
	require.Equal(t, "admin-1", q.QuotedBy)
	require.Equal(t, now, *q.QuotedAt)

	// Re-pricing while quoted keeps the original stamp.
	q.SetStatus(domain.QuoteQuoted, "admin-2", now.Add(time.Hour))
	require.Equal(t, "admin-1", q.QuotedBy)

	// Moving away and back does not re-stamp.
	q.SetStatus(domain.QuoteDeclined, "admin-2", now.Add(2*time.Hour))
	q.SetStatus(domain.QuoteQuoted, "admin-2", now.Add(3*time.Hour))
	require.Equal(t, "admin-1", q.QuotedBy)
	require.Equal(t, now, *q.QuotedAt)
	require.False(t, q.StatusOverride)
}

func TestQuoteSetStatusAfterExpiryOverrides(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	q := domain.Quote{Status: domain.QuotePending, ExpiresAt: now}

	q.SetStatus(domain.QuoteQuoted, "admin-1", now.Add(time.Minute))
	require.True(t, q.StatusOverride)
	require.Equal(t, domain.QuoteQuoted, q.EffectiveStatus(now.Add(time.Hour)))
	require.Equal(t, "admin-1", q.QuotedBy)
}

func TestShipmentAppendProjects(t *testing.T) {
	var s domain.Shipment
	s.Status = domain.ShipmentPending

	s.Append(domain.TrackingEvent{Status: domain.ShipmentPickedUp, Location: "Newark, NJ"})
	s.Append(domain.TrackingEvent{Status: domain.ShipmentDelivered, Location: "Austin, TX"})

	require.Len(t, s.Events, 2)
	require.Equal(t, domain.ShipmentDelivered, s.Status)
	require.Equal(t, "Austin, TX", s.CurrentLocation)
}

func TestShipmentCheckForward(t *testing.T) {
	build := func(statuses ...domain.ShipmentStatus) domain.Shipment {
		s := domain.Shipment{Status: domain.ShipmentPending}
		for _, st := range statuses {
			s.Append(domain.TrackingEvent{Status: st})
		}
		return s
	}

	tests := []struct {
		name    string
		history []domain.ShipmentStatus
		next    domain.ShipmentStatus
		wantErr error
	}{
		{"first pickup", nil, domain.ShipmentPickedUp, nil},
		{"skip ahead", nil, domain.ShipmentInTransit, nil},
		{"repeat in transit", []domain.ShipmentStatus{domain.ShipmentInTransit}, domain.ShipmentInTransit, nil},
		{"backwards", []domain.ShipmentStatus{domain.ShipmentInTransit}, domain.ShipmentPickedUp, domain.ErrShipmentRegress},
		{"delay interleaves", []domain.ShipmentStatus{domain.ShipmentInTransit}, domain.ShipmentDelayed, nil},
		{"resume after delay", []domain.ShipmentStatus{domain.ShipmentInTransit, domain.ShipmentDelayed}, domain.ShipmentInTransit, nil},
		{"regress after delay", []domain.ShipmentStatus{domain.ShipmentOutForDelivery, domain.ShipmentException}, domain.ShipmentPickedUp, domain.ErrShipmentRegress},
		{"delivered is terminal", []domain.ShipmentStatus{domain.ShipmentDelivered}, domain.ShipmentException, domain.ErrShipmentDelivered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := build(tt.history...).CheckForward(tt.next)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestStatusValidation(t *testing.T) {
	require.True(t, domain.ShipmentPickedUp.ValidEvent())
	require.False(t, domain.ShipmentPending.ValidEvent())
	require.False(t, domain.ShipmentStatus("arrived").Valid())
	require.True(t, domain.QuoteExpired.Valid())
	require.False(t, domain.ServiceType("rail").Valid())
	require.True(t, domain.TierOvernight.Valid())
	require.True(t, domain.AccountPending.CanLogin())
	require.False(t, domain.AccountSuspended.CanLogin())
}
