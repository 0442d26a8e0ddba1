package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
	"github.com/aussiebroadwan/freightdesk/internal/freight/store"
	"github.com/aussiebroadwan/freightdesk/pkg/cryptox"
	"github.com/aussiebroadwan/freightdesk/pkg/idx"
	"github.com/aussiebroadwan/freightdesk/pkg/slogx"
)

// BootstrapService seeds the first admin account from configuration.
type BootstrapService struct {
	Store    store.Store
	Email    string
	Username string
	Password string
	Clock    Clock
}

// SeedAdmin creates the configured admin unless an account with the same
// email or username already exists. It reports whether an account was created.
func (s *BootstrapService) SeedAdmin(ctx context.Context) (bool, error) {
	l := slogx.FromContext(ctx)

	if s.Email == "" || s.Username == "" || s.Password == "" {
		l.Debug("admin seeding not configured")
		return false, nil
	}

	email := domain.NormalizeEmail(s.Email)
	if _, err := s.Store.Users().GetUserByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}
	if _, err := s.Store.Users().GetUserByUsername(ctx, s.Username); err == nil {
		return false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	if len(s.Password) < minPasswordLen {
		return false, invalid("SEED_ADMIN_PASSWORD", "must be at least 6 characters")
	}
	hash, err := cryptox.HashPassword(s.Password)
	if err != nil {
		return false, err
	}

	now := s.Clock.now()
	admin := domain.User{
		ID:            idx.New().String(),
		Email:         email,
		Username:      s.Username,
		PasswordHash:  hash,
		Role:          domain.RoleAdmin,
		AccountStatus: domain.AccountActive,
		KYCStatus:     domain.KYCNotSubmitted,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	admin.SetName("Administrator", "")

	if err := s.Store.Users().CreateUser(ctx, admin); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// Lost a race with another instance seeding the same account.
			return false, nil
		}
		return false, err
	}

	l.Info("seeded admin account", slog.String("user_id", admin.ID), slog.String("username", admin.Username))
	return true, nil
}
