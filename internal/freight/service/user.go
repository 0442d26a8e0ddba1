package service

import (
	"context"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
	"github.com/aussiebroadwan/freightdesk/internal/freight/metrics"
	"github.com/aussiebroadwan/freightdesk/internal/freight/store"
	"github.com/aussiebroadwan/freightdesk/pkg/cryptox"
	"github.com/aussiebroadwan/freightdesk/pkg/idx"
	"github.com/aussiebroadwan/freightdesk/pkg/slogx"
)

const minPasswordLen = 6

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,20}$`)

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

type UserService struct {
	Store    store.Store
	Notifier Notifier
	Metrics  *metrics.Metrics
	Clock    Clock
}

type UserInput struct {
	Email     string      `json:"email"`
	Username  string      `json:"username"`
	Password  string      `json:"password"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Phone     string      `json:"phone"`
	Role      domain.Role `json:"role"`
}

// ProfileUpdate carries optional fields; nil leaves the stored value alone.
type ProfileUpdate struct {
	FirstName *string          `json:"firstName"`
	LastName  *string          `json:"lastName"`
	Phone     *string          `json:"phone"`
	Address   *domain.Location `json:"address"`
}

// CreateUser provisions an account on behalf of an admin.
func (s *UserService) CreateUser(ctx context.Context, actor Principal, in UserInput) (domain.User, error) {
	if err := RequireRole(actor, domain.RoleAdmin); err != nil {
		return domain.User{}, err
	}

	in.Email = domain.NormalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if in.Role == "" {
		in.Role = domain.RoleCustomer
	}

	var v validator
	v.check(validEmail(in.Email), "email", "must be a valid email address")
	v.check(usernamePattern.MatchString(in.Username), "username", "must be 3-20 letters, digits, '.', '_' or '-'")
	v.check(len(in.Password) >= minPasswordLen, "password", "must be at least 6 characters")
	v.check(in.Role == domain.RoleCustomer || in.Role == domain.RoleAdmin, "role", "must be customer or admin")
	if err := v.err(); err != nil {
		return domain.User{}, err
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, err
	}

	now := s.Clock.now()
	user := domain.User{
		ID:            idx.New().String(),
		Email:         in.Email,
		Username:      in.Username,
		Phone:         strings.TrimSpace(in.Phone),
		PasswordHash:  hash,
		Role:          in.Role,
		AccountStatus: domain.AccountActive,
		KYCStatus:     domain.KYCNotSubmitted,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	user.SetName(in.FirstName, in.LastName)

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		return domain.User{}, mapStoreErr(err)
	}

	slogx.FromContext(ctx).Info("user created",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
		slog.String("created_by", actor.UserID),
	)
	return user, nil
}

// Get returns a user to themselves or to an admin.
func (s *UserService) Get(ctx context.Context, actor Principal, userID string) (domain.User, error) {
	if err := RequireRole(actor, domain.RoleCustomer); err != nil {
		return domain.User{}, err
	}
	if actor.UserID != userID && !actor.IsAdmin {
		return domain.User{}, ErrForbidden
	}
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	return user, mapStoreErr(err)
}

func (s *UserService) List(ctx context.Context, actor Principal, page store.Page) ([]domain.User, int, error) {
	if err := RequireRole(actor, domain.RoleAdmin); err != nil {
		return nil, 0, err
	}
	users, total, err := s.Store.Users().ListUsers(ctx, page)
	return users, total, mapStoreErr(err)
}

// UpdateProfile edits the caller's own contact details.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (domain.User, error) {
	return updateUser(ctx, s.Store, userID, func(user *domain.User) error {
		first, last := user.FirstName, user.LastName
		if in.FirstName != nil {
			first = *in.FirstName
		}
		if in.LastName != nil {
			last = *in.LastName
		}
		user.SetName(first, last)
		if in.Phone != nil {
			user.Phone = strings.TrimSpace(*in.Phone)
		}
		if in.Address != nil {
			user.Address = *in.Address
		}
		user.UpdatedAt = s.Clock.now()
		return nil
	})
}

// ChangePassword replaces the password after verifying the current one.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if len(next) < minPasswordLen {
		return invalid("newPassword", "must be at least 6 characters")
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return mapStoreErr(err)
	}
	if err := cryptox.VerifyPassword(current, user.PasswordHash); err != nil {
		return ErrWrongCurrentPassword
	}

	hash, err := cryptox.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, user.ID, hash, s.Clock.now()); err != nil {
		return mapStoreErr(err)
	}

	slogx.FromContext(ctx).Info("password changed", slog.String("user_id", user.ID))
	return nil
}

func (s *UserService) Delete(ctx context.Context, actor Principal, userID string) error {
	if err := RequireRole(actor, domain.RoleAdmin); err != nil {
		return err
	}
	if err := s.Store.Users().DeleteUser(ctx, userID); err != nil {
		return mapStoreErr(err)
	}
	slogx.FromContext(ctx).Info("user deleted", slog.String("user_id", userID), slog.String("deleted_by", actor.UserID))
	return nil
}

// SetKYCStatus records an identity review decision with its reviewer.
func (s *UserService) SetKYCStatus(ctx context.Context, actor Principal, userID string, status domain.KYCStatus) (domain.User, error) {
	if err := RequireRole(actor, domain.RoleAdmin); err != nil {
		return domain.User{}, err
	}
	if !status.Valid() {
		return domain.User{}, invalid("kycStatus", "unknown status")
	}

	user, err := updateUser(ctx, s.Store, userID, func(user *domain.User) error {
		now := s.Clock.now()
		user.KYCStatus = status
		user.KYCReviewedBy = actor.UserID
		user.KYCReviewedAt = &now
		user.UpdatedAt = now
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}

	params := map[string]any{"name": user.FullName}
	switch status {
	case domain.KYCApproved:
		notify(ctx, s.Notifier, s.Metrics, domain.NotifyKYCApproved, user.Email, params)
	case domain.KYCRejected:
		notify(ctx, s.Notifier, s.Metrics, domain.NotifyKYCRejected, user.Email, params)
	}
	return user, nil
}

func (s *UserService) SetAccountStatus(ctx context.Context, actor Principal, userID string, status domain.AccountStatus) (domain.User, error) {
	if err := RequireRole(actor, domain.RoleAdmin); err != nil {
		return domain.User{}, err
	}
	if !status.Valid() {
		return domain.User{}, invalid("accountStatus", "unknown status")
	}

	user, err := updateUser(ctx, s.Store, userID, func(user *domain.User) error {
		user.AccountStatus = status
		user.UpdatedAt = s.Clock.now()
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}

	slogx.FromContext(ctx).Info("account status changed",
		slog.String("user_id", user.ID),
		slog.String("account_status", string(status)),
		slog.String("changed_by", actor.UserID),
	)
	return user, nil
}

// updateUser re-reads the user and applies mutate under the version check,
// retrying on conflict, so concurrent edits to different fields all survive.
func updateUser(ctx context.Context, st store.Store, userID string, mutate func(*domain.User) error) (domain.User, error) {
	var user domain.User
	err := retryOnConflict(ctx, func() error {
		var err error
		user, err = st.Users().GetUserByID(ctx, userID)
		if err != nil {
			return mapStoreErr(err)
		}
		if err := mutate(&user); err != nil {
			return err
		}
		if err := st.Users().UpdateUser(ctx, user); err != nil {
			return err
		}
		user.Version++
		return nil
	})
	if err != nil {
		return domain.User{}, mapStoreErr(err)
	}
	return user, nil
}
