package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
	"github.com/aussiebroadwan/freightdesk/internal/freight/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

func newMailService(t *testing.T) (*MailService, *sqlite.Store, *recordingNotifier) {
	t.Helper()
	st := newTestStore(t)
	n := &recordingNotifier{}
	return &MailService{Store: st, Notifier: n}, st, n
}

func TestMail_SendToSelectedCustomers(t *testing.T) {
	ctx := context.Background()
	svc, st, n := newMailService(t)
	seedUser(t, st, "ada@example.com", "ada", "s3cret!")
	seedUser(t, st, "grace@example.com", "grace", "s3cret!")

	res, err := svc.Send(ctx, admin, Campaign{
		Recipients: []string{"ADA@example.com", "ada@example.com"},
		Subject:    " Rate change ",
		Message:    "Dear {{name}},\n\nRates change on the 1st.",
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Queued)
	require.Empty(t, res.Failed)

	msg, ok := n.last(domain.NotifyCustomerMessage)
	require.True(t, ok)
	require.Equal(t, "ada@example.com", msg.To)
	require.Equal(t, "Rate change", msg.Params["subject"])
	require.Equal(t, "Dear Ada Lovelace,\n\nRates change on the 1st.", msg.Params["message"])
	require.Equal(t, 1, n.count(domain.NotifyCustomerMessage))
}

func TestMail_SendToAllSkipsAdmins(t *testing.T) {
	ctx := context.Background()
	svc, st, n := newMailService(t)

	const customers = 130
	for i := range customers {
		seedUser(t, st, fmt.Sprintf("c%03d@example.com", i), fmt.Sprintf("c%03d", i), "s3cret!")
	}
	_, err := (&BootstrapService{Store: st, Email: "ops@example.com", Username: "ops", Password: "correct-horse"}).SeedAdmin(ctx)
	require.NoError(t, err)

	list, err := svc.Customers(ctx, admin)
	require.NoError(t, err)
	require.Len(t, list, customers)

	res, err := svc.Send(ctx, admin, Campaign{SendToAll: true, Subject: "News", Message: "Hello {{ name }}"})
	require.NoError(t, err)
	require.Equal(t, customers, res.Queued)
	require.Equal(t, customers, n.count(domain.NotifyCustomerMessage))
	for _, m := range n.sent {
		require.NotEqual(t, "ops@example.com", m.To)
	}
}

func TestMail_RejectsUnknownRecipients(t *testing.T) {
	ctx := context.Background()
	svc, st, n := newMailService(t)
	seedUser(t, st, "ada@example.com", "ada", "s3cret!")

	_, err := svc.Send(ctx, admin, Campaign{
		Recipients: []string{"ada@example.com", "ghost@example.com"},
		Subject:    "hi",
		Message:    "hi",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields["recipients"], "ghost@example.com")
	require.Zero(t, n.count(domain.NotifyCustomerMessage))
}

func TestMail_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newMailService(t)

	tests := []struct {
		name  string
		in    Campaign
		field string
	}{
		{"subject required", Campaign{SendToAll: true, Message: "hi"}, "subject"},
		{"message required", Campaign{SendToAll: true, Subject: "hi"}, "message"},
		{"recipients required", Campaign{Subject: "hi", Message: "hi"}, "recipients"},
		{"no customers yet", Campaign{SendToAll: true, Subject: "hi", Message: "hi"}, "recipients"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Send(ctx, admin, tt.in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Contains(t, verr.Fields, tt.field)
		})
	}

	_, err := svc.Send(ctx, buyer, Campaign{SendToAll: true, Subject: "hi", Message: "hi"})
	require.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Customers(ctx, Principal{})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestMail_QueueFailuresAreReported(t *testing.T) {
	ctx := context.Background()
	svc, st, n := newMailService(t)
	seedUser(t, st, "ada@example.com", "ada", "s3cret!")
	n.fail = true

	res, err := svc.Send(ctx, admin, Campaign{SendToAll: true, Subject: "hi", Message: "hi"})
	require.NoError(t, err)
	require.Zero(t, res.Queued)
	require.Equal(t, []string{"ada@example.com"}, res.Failed)
}
