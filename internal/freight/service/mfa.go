package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
	"github.com/aussiebroadwan/freightdesk/internal/freight/metrics"
	"github.com/aussiebroadwan/freightdesk/internal/freight/store"
	"github.com/aussiebroadwan/freightdesk/pkg/cryptox"
	"github.com/aussiebroadwan/freightdesk/pkg/slogx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

type MFAService struct {
	Store    store.Store
	Sealer   *cryptox.Sealer
	Issuer   string // shown in authenticator apps, e.g. "Freightdesk"
	Notifier Notifier
	Metrics  *metrics.Metrics
	Clock    Clock
}

// MFAEnrolment is returned once; the secret is never readable again.
type MFAEnrolment struct {
	Secret string `json:"secret"`
	URL    string `json:"otpauthUrl"`
}

// Enrol generates a TOTP secret and stores it sealed. Two-factor stays off
// until Confirm proves the user can produce codes.
func (s *MFAService) Enrol(ctx context.Context, userID string) (MFAEnrolment, error) {
	var key *otp.Key
	_, err := updateUser(ctx, s.Store, userID, func(user *domain.User) error {
		if user.MFAEnabled {
			return ErrConflict
		}

		var err error
		key, err = totp.Generate(totp.GenerateOpts{
			Issuer:      s.Issuer,
			AccountName: user.Email,
			Period:      30,
			Digits:      otp.DigitsSix,
			Algorithm:   otp.AlgorithmSHA1,
		})
		if err != nil {
			return fmt.Errorf("generate totp key: %w", err)
		}

		sealed, err := s.Sealer.Seal([]byte(key.Secret()))
		if err != nil {
			return fmt.Errorf("seal totp secret: %w", err)
		}
		user.MFASecret = &sealed
		user.UpdatedAt = s.Clock.now()
		return nil
	})
	if err != nil {
		return MFAEnrolment{}, err
	}
	return MFAEnrolment{Secret: key.Secret(), URL: key.URL()}, nil
}

// Confirm enables two-factor once code matches the enrolled secret.
func (s *MFAService) Confirm(ctx context.Context, userID, code string) error {
	user, err := updateUser(ctx, s.Store, userID, func(user *domain.User) error {
		if user.MFAEnabled {
			return ErrConflict
		}
		if user.MFASecret == nil {
			return invalid("mfa", "no enrolment in progress")
		}

		ok, err := checkTOTP(s.Sealer, *user, code, s.Clock.now())
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidOrExpiredCode
		}

		user.MFAEnabled = true
		user.UpdatedAt = s.Clock.now()
		return nil
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("two-factor enabled", slog.String("user_id", user.ID))
	notify(ctx, s.Notifier, s.Metrics, domain.NotifyMFAEnabled, user.Email, map[string]any{
		"name": user.FullName,
	})
	return nil
}

// Disable turns two-factor off after re-checking the password.
func (s *MFAService) Disable(ctx context.Context, userID, password string) error {
	_, err := updateUser(ctx, s.Store, userID, func(user *domain.User) error {
		if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
			return ErrWrongCurrentPassword
		}
		user.MFAEnabled = false
		user.MFASecret = nil
		user.UpdatedAt = s.Clock.now()
		return nil
	})
	if err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("two-factor disabled", slog.String("user_id", userID))
	return nil
}

func checkTOTP(sealer *cryptox.Sealer, user domain.User, code string, now time.Time) (bool, error) {
	if user.MFASecret == nil {
		return false, nil
	}
	secret, err := sealer.Open(*user.MFASecret)
	if err != nil {
		return false, fmt.Errorf("open totp secret for %s: %w", user.ID, err)
	}
	ok, err := totp.ValidateCustom(code, string(secret), now, totpOpts)
	if err != nil {
		// Malformed input such as the wrong number of digits.
		return false, nil
	}
	return ok, nil
}
