package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
	"github.com/aussiebroadwan/freightdesk/internal/freight/store/drivers/sqlite"
	"github.com/aussiebroadwan/freightdesk/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func newIssuer(t *testing.T) (*CodeIssuer, *fakeClock) {
	t.Helper()
	clk := newClock()
	return &CodeIssuer{Store: newTestStore(t), Clock: clk.Now}, clk
}

func TestCodeIssuer_TTLBoundary(t *testing.T) {
	ctx := context.Background()
	const email = "ada@example.com"

	t.Run("verified just inside the window", func(t *testing.T) {
		issuer, clk := newIssuer(t)
		code, err := issuer.Issue(ctx, email, domain.PurposePasswordReset)
		require.NoError(t, err)
		require.Len(t, code, 6)

		clk.Advance(4*time.Minute + 59*time.Second)
		require.NoError(t, issuer.Verify(ctx, email, domain.PurposePasswordReset, code))
	})

	t.Run("rejected just after the window", func(t *testing.T) {
		issuer, clk := newIssuer(t)
		code, err := issuer.Issue(ctx, email, domain.PurposePasswordReset)
		require.NoError(t, err)

		clk.Advance(5*time.Minute + time.Second)
		require.ErrorIs(t, issuer.Verify(ctx, email, domain.PurposePasswordReset, code), ErrInvalidOrExpiredCode)
	})
}

func TestCodeIssuer_SingleUse(t *testing.T) {
	ctx := context.Background()
	issuer, _ := newIssuer(t)

	code, err := issuer.Issue(ctx, "ada@example.com", domain.PurposePasswordReset)
	require.NoError(t, err)
	require.NoError(t, issuer.Verify(ctx, "ada@example.com", domain.PurposePasswordReset, code))
	require.ErrorIs(t, issuer.Verify(ctx, "ada@example.com", domain.PurposePasswordReset, code), ErrInvalidOrExpiredCode)
}

func TestCodeIssuer_CooldownAndSupersede(t *testing.T) {
	ctx := context.Background()
	issuer, clk := newIssuer(t)
	const email = "ada@example.com"

	first, err := issuer.Issue(ctx, email, domain.PurposePasswordReset)
	require.NoError(t, err)

	clk.Advance(30 * time.Second)
	_, err = issuer.Issue(ctx, email, domain.PurposePasswordReset)
	require.ErrorIs(t, err, ErrRateLimited)

	t.Run("purposes are independent", func(t *testing.T) {
		_, err := issuer.Issue(ctx, email, domain.PurposeEmailVerification)
		require.NoError(t, err)
	})

	clk.Advance(31 * time.Second)
	second, err := issuer.Issue(ctx, email, domain.PurposePasswordReset)
	require.NoError(t, err)

	if first != second {
		require.ErrorIs(t, issuer.Verify(ctx, email, domain.PurposePasswordReset, first), ErrInvalidOrExpiredCode)
	}
	require.NoError(t, issuer.Verify(ctx, email, domain.PurposePasswordReset, second))
}

func TestCodeIssuer_AttemptLimit(t *testing.T) {
	ctx := context.Background()
	issuer, _ := newIssuer(t)
	issuer.MaxAttempts = 3
	const email = "ada@example.com"

	code, err := issuer.Issue(ctx, email, domain.PurposePasswordReset)
	require.NoError(t, err)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	for range 3 {
		require.ErrorIs(t, issuer.Verify(ctx, email, domain.PurposePasswordReset, wrong), ErrInvalidOrExpiredCode)
	}
	require.ErrorIs(t, issuer.Verify(ctx, email, domain.PurposePasswordReset, code), ErrInvalidOrExpiredCode)
}

func newPasswordReset(t *testing.T) (*PasswordResetService, *sqlite.Store, *recordingNotifier, *fakeClock) {
	t.Helper()
	st := newTestStore(t)
	clk := newClock()
	n := &recordingNotifier{}
	return &PasswordResetService{
		Store:    st,
		Codes:    &CodeIssuer{Store: st, Clock: clk.Now},
		Notifier: n,
		Clock:    clk.Now,
	}, st, n, clk
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()

	t.Run("full flow", func(t *testing.T) {
		svc, st, n, clk := newPasswordReset(t)
		user := seedUser(t, st, "user@example.com", "user", "old-password")

		masked, err := svc.Forgot(ctx, "User@Example.com")
		require.NoError(t, err)
		require.Equal(t, "us***@example.com", masked)

		msg, ok := n.last(domain.NotifyPasswordResetCode)
		require.True(t, ok)
		require.Equal(t, "user@example.com", msg.To)
		code := msg.Params["code"].(string)

		clk.Advance(2 * time.Minute)
		require.NoError(t, svc.Reset(ctx, "user@example.com", code, "new-password"))

		got, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.NoError(t, cryptox.VerifyPassword("new-password", got.PasswordHash))
		require.Equal(t, 1, n.count(domain.NotifyPasswordResetConfirmation))

		require.ErrorIs(t, svc.Reset(ctx, "user@example.com", code, "another-one"), ErrInvalidOrExpiredCode)
	})

	t.Run("unknown email is indistinguishable", func(t *testing.T) {
		svc, _, n, _ := newPasswordReset(t)

		masked, err := svc.Forgot(ctx, "ghost@example.com")
		require.NoError(t, err)
		require.Equal(t, "gh***@example.com", masked)
		require.Equal(t, 0, n.count(domain.NotifyPasswordResetCode))
	})

	t.Run("resend honours cooldown", func(t *testing.T) {
		svc, st, _, _ := newPasswordReset(t)
		seedUser(t, st, "user@example.com", "user", "old-password")

		_, err := svc.Forgot(ctx, "user@example.com")
		require.NoError(t, err)
		_, err = svc.Resend(ctx, "user@example.com")
		require.ErrorIs(t, err, ErrRateLimited)
	})

	t.Run("weak password does not burn the code", func(t *testing.T) {
		svc, st, n, _ := newPasswordReset(t)
		seedUser(t, st, "user@example.com", "user", "old-password")

		_, err := svc.Forgot(ctx, "user@example.com")
		require.NoError(t, err)
		msg, _ := n.last(domain.NotifyPasswordResetCode)
		code := msg.Params["code"].(string)

		var verr *ValidationError
		require.ErrorAs(t, svc.Reset(ctx, "user@example.com", code, "123"), &verr)
		require.Contains(t, verr.Fields, "newPassword")

		require.NoError(t, svc.Reset(ctx, "user@example.com", code, "long-enough"))
	})

	t.Run("missing fields", func(t *testing.T) {
		svc, _, _, _ := newPasswordReset(t)
		var verr *ValidationError
		require.ErrorAs(t, svc.Reset(ctx, "", "", ""), &verr)
		require.Len(t, verr.Fields, 3)
	})

	t.Run("notification failure does not fail the request", func(t *testing.T) {
		svc, st, n, _ := newPasswordReset(t)
		seedUser(t, st, "user@example.com", "user", "old-password")
		n.fail = true

		_, err := svc.Forgot(ctx, "user@example.com")
		require.NoError(t, err)
	})
}

func TestEmailVerification(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	clk := newClock()
	n := &recordingNotifier{}
	svc := &EmailVerificationService{
		Store:    st,
		Codes:    &CodeIssuer{Store: st, Clock: clk.Now},
		Notifier: n,
		Clock:    clk.Now,
	}
	user := seedUser(t, st, "user@example.com", "user", "password")

	require.NoError(t, svc.Request(ctx, user.ID))
	msg, ok := n.last(domain.NotifyEmailVerification)
	require.True(t, ok)

	require.ErrorIs(t, svc.Confirm(ctx, user.ID, "not-it"), ErrInvalidOrExpiredCode)
	require.NoError(t, svc.Confirm(ctx, user.ID, msg.Params["code"].(string)))

	got, err := st.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, got.EmailVerified)

	require.ErrorIs(t, svc.Request(ctx, user.ID), ErrConflict)
}
