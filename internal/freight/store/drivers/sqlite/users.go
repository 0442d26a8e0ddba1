package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
	"github.com/aussiebroadwan/freightdesk/internal/freight/store"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, email, username, first_name, last_name, full_name, phone, address,
	password_hash, role, account_status, kyc_status, kyc_reviewed_by, kyc_reviewed_at,
	mfa_enabled, mfa_secret, email_verified, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u             domain.User
		address       string
		kycReviewedAt sql.NullInt64
		mfaSecret     sql.NullString
		mfaEnabled    int
		emailVerified int
		createdAt     int64
		updatedAt     int64
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.FullName, &u.Phone, &address,
		&u.PasswordHash, &u.Role, &u.AccountStatus, &u.KYCStatus, &u.KYCReviewedBy, &kycReviewedAt,
		&mfaEnabled, &mfaSecret, &emailVerified, &createdAt, &updatedAt, &u.Version,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	if err := json.Unmarshal([]byte(address), &u.Address); err != nil {
		return domain.User{}, fmt.Errorf("sqlite: decode user address: %w", err)
	}
	u.KYCReviewedAt = fromNullMillis(kycReviewedAt)
	u.MFASecret = mapNullStringPtr(mfaSecret)
	u.MFAEnabled = mfaEnabled == 1
	u.EmailVerified = emailVerified == 1
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}

func (r *usersRepo) getBy(ctx context.Context, column, value string) (domain.User, error) {
	// column is always one of the fixed names below, never caller input.
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)
	return scanUser(row)
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getBy(ctx, "username", username)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	address, err := json.Marshal(u.Address)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Username, u.FirstName, u.LastName, u.FullName, u.Phone, string(address),
		u.PasswordHash, u.Role, u.AccountStatus, u.KYCStatus, u.KYCReviewedBy, toNullMillis(u.KYCReviewedAt),
		boolInt(u.MFAEnabled), mapOptionalString(u.MFASecret), boolInt(u.EmailVerified),
		toMillis(u.CreatedAt), toMillis(u.UpdatedAt), max(u.Version, 1),
	)
	return mapUnique(err)
}

func (r *usersRepo) UpdateUser(ctx context.Context, u domain.User) error {
	address, err := json.Marshal(u.Address)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE users SET
			email = ?, username = ?, first_name = ?, last_name = ?, full_name = ?, phone = ?, address = ?,
			role = ?, account_status = ?, kyc_status = ?, kyc_reviewed_by = ?, kyc_reviewed_at = ?,
			mfa_enabled = ?, mfa_secret = ?, email_verified = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		u.Email, u.Username, u.FirstName, u.LastName, u.FullName, u.Phone, string(address),
		u.Role, u.AccountStatus, u.KYCStatus, u.KYCReviewedBy, toNullMillis(u.KYCReviewedAt),
		boolInt(u.MFAEnabled), mapOptionalString(u.MFASecret), boolInt(u.EmailVerified), toMillis(u.UpdatedAt),
		u.ID, u.Version,
	)
	return conflictOrMissing(ctx, r.db, "users", u.ID, expectOne(res, mapUnique(err)))
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, hash string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, toMillis(at), userID,
	)
	return expectOne(res, err)
}

func (r *usersRepo) ListUsers(ctx context.Context, p store.Page) ([]domain.User, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		p.Limit, p.Offset(),
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	return expectOne(res, err)
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return false, err
	}
	return n == 0, nil
}
