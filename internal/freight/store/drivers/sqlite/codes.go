package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/freightdesk/internal/freight/domain"
	"github.com/aussiebroadwan/freightdesk/internal/freight/store"
)

type codesRepo struct {
	db dbtx
}

func (r *codesRepo) IssueCode(ctx context.Context, c domain.OneTimeCode, notAfter time.Time) error {
	// The upsert only fires when the existing row is old enough, so the
	// cooldown check and the supersede cannot interleave with another issue.
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO one_time_codes (email, purpose, code_hash, attempts, created_at, expires_at)
		VALUES (?, ?, ?, 0, ?, ?)
		ON CONFLICT (email, purpose) DO UPDATE SET
			code_hash  = excluded.code_hash,
			attempts   = 0,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
		WHERE one_time_codes.created_at <= ?`,
		c.Email, c.Purpose, c.CodeHash, toMillis(c.CreatedAt), toMillis(c.ExpiresAt), toMillis(notAfter),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrCooldown
	}
	return nil
}

func (r *codesRepo) GetCode(ctx context.Context, email string, purpose domain.CodePurpose) (domain.OneTimeCode, error) {
	var (
		c                    domain.OneTimeCode
		createdAt, expiresAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT email, purpose, code_hash, attempts, created_at, expires_at
		FROM one_time_codes WHERE email = ? AND purpose = ?`,
		email, purpose,
	).Scan(&c.Email, &c.Purpose, &c.CodeHash, &c.Attempts, &createdAt, &expiresAt)
	if err != nil {
		return domain.OneTimeCode{}, mapNotFound(err)
	}
	c.CreatedAt = fromMillis(createdAt)
	c.ExpiresAt = fromMillis(expiresAt)
	return c, nil
}

func (r *codesRepo) ConsumeCode(
	ctx context.Context,
	email string,
	purpose domain.CodePurpose,
	codeHash string,
	now time.Time,
) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM one_time_codes
		WHERE email = ? AND purpose = ? AND code_hash = ? AND expires_at > ?`,
		email, purpose, codeHash, toMillis(now),
	)
	return expectOne(res, err)
}

func (r *codesRepo) RecordFailedAttempt(
	ctx context.Context,
	email string,
	purpose domain.CodePurpose,
	maxAttempts int,
) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE one_time_codes SET attempts = attempts + 1 WHERE email = ? AND purpose = ?`,
		email, purpose,
	); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM one_time_codes WHERE email = ? AND purpose = ? AND attempts >= ?`,
		email, purpose, maxAttempts,
	)
	return err
}

func (r *codesRepo) DeleteExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM one_time_codes WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
