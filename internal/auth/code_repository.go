package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"tunishield/internal/errutil"
)

// UpsertCode replaces any outstanding code for the email and resets the
// attempt counter.
func (r *Repository) UpsertCode(ctx context.Context, code OneTimeCode) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO otp_codes (email, code_hash, expires_at, attempts, created_at)
		VALUES ($1, $2, $3, 0, $4)
		ON CONFLICT (email) DO UPDATE
		SET code_hash = EXCLUDED.code_hash,
		    expires_at = EXCLUDED.expires_at,
		    attempts = 0,
		    created_at = EXCLUDED.created_at
	`, code.Email, code.CodeHash, code.ExpiresAt, code.CreatedAt)
	if err != nil {
		return errutil.Internal(err, "upsert code")
	}
	return nil
}

func (r *Repository) FindCode(ctx context.Context, email string) (*OneTimeCode, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT email, code_hash, expires_at, attempts, created_at
		FROM otp_codes
		WHERE email = $1
	`, email)

	var c OneTimeCode
	if err := row.Scan(&c.Email, &c.CodeHash, &c.ExpiresAt, &c.Attempts, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errutil.Internal(err, "find code")
	}
	return &c, nil
}

// IncrementAttempts bumps the counter in a single statement so concurrent
// failed verifications are all counted.
func (r *Repository) IncrementAttempts(ctx context.Context, email string) error {
	if _, err := r.DB.Exec(ctx, `UPDATE otp_codes SET attempts = attempts + 1 WHERE email = $1`, email); err != nil {
		return errutil.Internal(err, "increment attempts")
	}
	return nil
}

func (r *Repository) DeleteCode(ctx context.Context, email string) (bool, error) {
	tag, err := r.DB.Exec(ctx, `DELETE FROM otp_codes WHERE email = $1`, email)
	if err != nil {
		return false, errutil.Internal(err, "delete code")
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) DeleteExpiredCodes(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, `DELETE FROM otp_codes WHERE expires_at < $1`, before)
	if err != nil {
		return 0, errutil.Internal(err, "delete expired codes")
	}
	return tag.RowsAffected(), nil
}
