package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
	"github.com/aussiebroadwan/freightdesk/internal/freight/store"
	"github.com/aussiebroadwan/freightdesk/pkg/cryptox"
	"github.com/aussiebroadwan/freightdesk/pkg/jwtx"
	"github.com/aussiebroadwan/freightdesk/pkg/slogx"
)

type AuthService struct {
	Store    store.Store
	Signer   *jwtx.Signer
	Verifier *jwtx.Verifier
	Sealer   *cryptox.Sealer // opens sealed TOTP secrets
	Issuer   string
	TokenTTL time.Duration
	Clock    Clock
}

// fallbackDummyHash is a well-formed argon2id hash at the default cost. It
// matches no password and stands in when the dummy hash cannot be generated.
const fallbackDummyHash = "$argon2id$v=19$m=19456,t=2,p=1$ZnJlaWdodGRlc2stc2FsdA$3B6wL2E1PLvCGsTJYp0X1Jvg/ZH2NWhgnX8yLsBi5Sw"

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// newDummyHash hashes a throwaway password at the configured cost, falling
// back to fallbackDummyHash so the unknown-user path never skips the work.
func newDummyHash(hash func(string) (string, error), l *slog.Logger) string {
	h, err := hash("freightdesk-dummy-password")
	if err != nil {
		l.Error("dummy password hash failed, using fallback", slog.Any("error", err))
		return fallbackDummyHash
	}
	return h
}

// burnDummyHash spends roughly the same time as a real verification so an
// unknown identifier is not distinguishable by latency.
func burnDummyHash(l *slog.Logger, password string) {
	dummyHashOnce.Do(func() {
		dummyHash = newDummyHash(cryptox.HashPassword, l)
	})
	_ = cryptox.VerifyPassword(password, dummyHash)
}

// Authenticate resolves identifier as an email address or a username and
// verifies the password, then the TOTP code when two-factor is enabled.
func (s *AuthService) Authenticate(ctx context.Context, identifier, password, totpCode string) (domain.User, error) {
	l := slogx.FromContext(ctx)

	var v validator
	v.required(identifier, "identifier")
	v.required(password, "password")
	if err := v.err(); err != nil {
		return domain.User{}, err
	}

	user, err := s.lookup(ctx, identifier)
	if errors.Is(err, store.ErrNotFound) {
		burnDummyHash(l, password)
		return domain.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			l.Error("stored password hash unusable", slog.String("user_id", user.ID), slog.Any("error", err))
		}
		return domain.User{}, ErrInvalidCredentials
	}

	if !user.AccountStatus.CanLogin() {
		l.Info("login refused for disabled account",
			slog.String("user_id", user.ID),
			slog.String("account_status", string(user.AccountStatus)),
		)
		return domain.User{}, ErrAccountDisabled
	}

	if user.MFAEnabled {
		if strings.TrimSpace(totpCode) == "" {
			return domain.User{}, ErrMFARequired
		}
		ok, err := checkTOTP(s.Sealer, user, totpCode, s.Clock.now())
		if err != nil {
			return domain.User{}, err
		}
		if !ok {
			return domain.User{}, ErrInvalidCredentials
		}
	}

	if cryptox.NeedsRehash(user.PasswordHash) {
		s.upgradeHash(ctx, &user, password)
	}

	return user, nil
}

func (s *AuthService) lookup(ctx context.Context, identifier string) (domain.User, error) {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return s.Store.Users().GetUserByEmail(ctx, domain.NormalizeEmail(identifier))
	}
	return s.Store.Users().GetUserByUsername(ctx, identifier)
}

// upgradeHash re-hashes a password stored with legacy or weaker parameters.
// The login already succeeded, so a failure here is only logged.
func (s *AuthService) upgradeHash(ctx context.Context, user *domain.User, password string) {
	l := slogx.FromContext(ctx)

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		l.Warn("password rehash failed", slog.String("user_id", user.ID), slog.Any("error", err))
		return
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, user.ID, hash, s.Clock.now()); err != nil {
		l.Warn("password rehash not stored", slog.String("user_id", user.ID), slog.Any("error", err))
		return
	}
	user.PasswordHash = hash
	l.Info("password hash upgraded", slog.String("user_id", user.ID))
}

// IssueToken signs a session token for user.
func (s *AuthService) IssueToken(_ context.Context, user domain.User) (string, error) {
	claims := jwtx.NewSessionClaims(user.ID, user.Username, user.IsAdmin(), s.Issuer, s.TokenTTL, s.Clock.now())
	token, err := s.Signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

// VerifyToken validates a bearer token and returns its claims.
func (s *AuthService) VerifyToken(token string) (jwtx.Claims, error) {
	return s.Verifier.Verify(token)
}
