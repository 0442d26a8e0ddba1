package notify

import (
	"testing"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
	"github.com/stretchr/testify/require"
)

func TestTemplates_EveryKindRenders(t *testing.T) {
	tpl := NewTemplates()
	kinds := []domain.NotificationKind{
		domain.NotifyPasswordResetCode, domain.NotifyPasswordResetConfirmation,
		domain.NotifyEmailVerification, domain.NotifyQuoteReceived, domain.NotifyQuotePriced,
		domain.NotifyQuoteResponded, domain.NotifyShipmentCreated, domain.NotifyShipmentStatus,
		domain.NotifyKYCApproved, domain.NotifyKYCRejected, domain.NotifyMFAEnabled,
		domain.NotifyContactMessage, domain.NotifyCustomerMessage,
	}
	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			msg, err := tpl.Render(kind, "ada@example.com", map[string]any{"name": "Ada"})
			require.NoError(t, err)
			require.NotEmpty(t, msg.Subject)
			require.NotEmpty(t, msg.Text)
			require.Contains(t, msg.HTML, "<html>")
		})
	}
}

func TestTemplates_QuotePriced(t *testing.T) {
	msg, err := NewTemplates().Render(domain.NotifyQuotePriced, "ada@example.com", map[string]any{
		"name":              "Ada",
		"quoteNumber":       "QTE123",
		"origin":            "Newark",
		"destination":       "Austin",
		"price":             "450.00",
		"estimatedDelivery": "2024-06-01",
		"expiresAt":         "2024-05-27",
	})
	require.NoError(t, err)
	require.Equal(t, "Your quote QTE123 is ready", msg.Subject)
	require.Contains(t, msg.Text, "will cost 450.00")
	require.Contains(t, msg.Text, "Estimated delivery: 2024-06-01")
}

func TestTemplates_EscapesHTML(t *testing.T) {
	msg, err := NewTemplates().Render(domain.NotifyContactMessage, "support@example.com", map[string]any{
		"name": "Mallory", "email": "m@example.com", "subject": "hi", "message": "<script>x</script>",
	})
	require.NoError(t, err)
	require.Contains(t, msg.Text, "<script>")
	require.NotContains(t, msg.HTML, "<script>")
}

func TestTemplates_CustomerMessage(t *testing.T) {
	msg, err := NewTemplates().Render(domain.NotifyCustomerMessage, "ada@example.com", map[string]any{
		"subject": "Holiday schedule", "message": "Dear Ada,\n\nDepots close on the 25th.",
	})
	require.NoError(t, err)
	require.Equal(t, "Holiday schedule", msg.Subject)
	require.Contains(t, msg.Text, "Depots close on the 25th.")
	require.Contains(t, msg.HTML, "<br")
}

func TestTemplates_Override(t *testing.T) {
	tpl := NewTemplates()
	_, err := tpl.Render(domain.NotifyKYCApproved, "a@example.com", nil)
	require.NoError(t, err)

	require.Error(t, tpl.Override(domain.NotifyKYCApproved, "{% if name %}", "body"))
	require.NoError(t, tpl.Override(domain.NotifyKYCApproved, "Approved, {{ name }}", "ok"))

	msg, err := tpl.Render(domain.NotifyKYCApproved, "a@example.com", map[string]any{"name": "Ada"})
	require.NoError(t, err)
	require.Equal(t, "Approved, Ada", msg.Subject)
}
