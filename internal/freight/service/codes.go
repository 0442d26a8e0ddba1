package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
	"github.com/aussiebroadwan/freightdesk/internal/freight/metrics"
	"github.com/aussiebroadwan/freightdesk/internal/freight/store"
	"github.com/aussiebroadwan/freightdesk/pkg/cryptox"
	"github.com/aussiebroadwan/freightdesk/pkg/slogx"
)

const (
	DefaultCodeTTL         = 5 * time.Minute
	DefaultCodeCooldown    = 60 * time.Second
	DefaultCodeMaxAttempts = 5

	codeDigits = 6
)

// CodeIssuer mints short numeric one-time codes. At most one code is live
// per (email, purpose); issuing again supersedes the previous code unless it
// is younger than Cooldown.
type CodeIssuer struct {
	Store       store.Store
	Metrics     *metrics.Metrics
	Clock       Clock
	TTL         time.Duration
	Cooldown    time.Duration
	MaxAttempts int
}

func (c *CodeIssuer) ttl() time.Duration {
	if c.TTL <= 0 {
		return DefaultCodeTTL
	}
	return c.TTL
}

func (c *CodeIssuer) cooldown() time.Duration {
	if c.Cooldown < 0 {
		return 0
	}
	if c.Cooldown == 0 {
		return DefaultCodeCooldown
	}
	return c.Cooldown
}

func (c *CodeIssuer) maxAttempts() int {
	if c.MaxAttempts <= 0 {
		return DefaultCodeMaxAttempts
	}
	return c.MaxAttempts
}

// Issue returns a fresh plaintext code. Only its fingerprint is stored.
func (c *CodeIssuer) Issue(ctx context.Context, email string, purpose domain.CodePurpose) (string, error) {
	code, err := cryptox.GenerateNumericCode(codeDigits)
	if err != nil {
		return "", err
	}

	now := c.Clock.now()
	err = c.Store.Codes().IssueCode(ctx, domain.OneTimeCode{
		Email:     email,
		Purpose:   purpose,
		CodeHash:  cryptox.FingerprintToken(code),
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl()),
	}, now.Add(-c.cooldown()))
	if errors.Is(err, store.ErrCooldown) {
		c.Metrics.CodeIssued(string(purpose), "cooldown")
		return "", ErrRateLimited
	}
	if err != nil {
		return "", err
	}

	c.Metrics.CodeIssued(string(purpose), "issued")
	return code, nil
}

// Verify consumes the code for (email, purpose) when it matches and is still
// inside its TTL. Any failure is reported as ErrInvalidOrExpiredCode.
func (c *CodeIssuer) Verify(ctx context.Context, email string, purpose domain.CodePurpose, code string) error {
	now := c.Clock.now()

	stored, err := c.Store.Codes().GetCode(ctx, email, purpose)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidOrExpiredCode
	}
	if err != nil {
		return err
	}
	if !stored.Live(now) {
		return ErrInvalidOrExpiredCode
	}

	if !cryptox.MatchFingerprint(code, stored.CodeHash) {
		if err := c.Store.Codes().RecordFailedAttempt(ctx, email, purpose, c.maxAttempts()); err != nil {
			slogx.FromContext(ctx).Warn("failed to record code attempt", slog.Any("error", err))
		}
		return ErrInvalidOrExpiredCode
	}

	// The conditional delete makes a concurrent second use lose.
	if err := c.Store.Codes().ConsumeCode(ctx, email, purpose, stored.CodeHash, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidOrExpiredCode
		}
		return err
	}
	return nil
}

// PasswordResetService runs the forgot/reset password flow over CodeIssuer.
type PasswordResetService struct {
	Store    store.Store
	Codes    *CodeIssuer
	Notifier Notifier
	Metrics  *metrics.Metrics
	Clock    Clock
}

// Forgot mails a reset code and returns the masked address. Unknown
// addresses get the same answer without a code being issued.
func (s *PasswordResetService) Forgot(ctx context.Context, email string) (string, error) {
	email = domain.NormalizeEmail(email)
	if !validEmail(email) {
		return "", invalid("email", "must be a valid email address")
	}
	masked := domain.MaskEmail(email)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		slogx.FromContext(ctx).Info("password reset for unknown address", slog.String("email", masked))
		return masked, nil
	}
	if err != nil {
		return "", err
	}

	code, err := s.Codes.Issue(ctx, user.Email, domain.PurposePasswordReset)
	if err != nil {
		return "", err
	}

	notify(ctx, s.Notifier, s.Metrics, domain.NotifyPasswordResetCode, user.Email, map[string]any{
		"name":       user.FullName,
		"code":       code,
		"ttlMinutes": int(s.Codes.ttl().Minutes()),
	})
	return masked, nil
}

// Resend behaves exactly like Forgot, cooldown included.
func (s *PasswordResetService) Resend(ctx context.Context, email string) (string, error) {
	return s.Forgot(ctx, email)
}

// Reset sets a new password once the emailed code checks out. The new
// password is validated first so a weak choice does not burn the code.
func (s *PasswordResetService) Reset(ctx context.Context, email, code, newPassword string) error {
	email = domain.NormalizeEmail(email)

	var v validator
	v.required(email, "email")
	v.required(code, "code")
	v.required(newPassword, "newPassword")
	if newPassword != "" {
		v.check(len(newPassword) >= minPasswordLen, "newPassword", "must be at least 6 characters")
	}
	if err := v.err(); err != nil {
		return err
	}

	if err := s.Codes.Verify(ctx, email, domain.PurposePasswordReset, code); err != nil {
		return err
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		return mapStoreErr(err)
	}
	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, user.ID, hash, s.Clock.now()); err != nil {
		return mapStoreErr(err)
	}

	slogx.FromContext(ctx).Info("password reset", slog.String("user_id", user.ID))
	notify(ctx, s.Notifier, s.Metrics, domain.NotifyPasswordResetConfirmation, user.Email, map[string]any{
		"name": user.FullName,
	})
	return nil
}

// EmailVerificationService proves ownership of a user's address.
type EmailVerificationService struct {
	Store    store.Store
	Codes    *CodeIssuer
	Notifier Notifier
	Metrics  *metrics.Metrics
	Clock    Clock
}

func (s *EmailVerificationService) Request(ctx context.Context, userID string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return mapStoreErr(err)
	}
	if user.EmailVerified {
		return ErrConflict
	}

	code, err := s.Codes.Issue(ctx, user.Email, domain.PurposeEmailVerification)
	if err != nil {
		return err
	}
	notify(ctx, s.Notifier, s.Metrics, domain.NotifyEmailVerification, user.Email, map[string]any{
		"name":       user.FullName,
		"code":       code,
		"ttlMinutes": int(s.Codes.ttl().Minutes()),
	})
	return nil
}

func (s *EmailVerificationService) Confirm(ctx context.Context, userID, code string) error {
	if code == "" {
		return invalid("code", "is required")
	}
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return mapStoreErr(err)
	}
	if err := s.Codes.Verify(ctx, user.Email, domain.PurposeEmailVerification, code); err != nil {
		return err
	}

	// The code is spent; the flag write re-reads so a concurrent profile
	// edit is neither lost nor able to clear the flag.
	_, err = updateUser(ctx, s.Store, user.ID, func(u *domain.User) error {
		u.EmailVerified = true
		u.UpdatedAt = s.Clock.now()
		return nil
	})
	return err
}
