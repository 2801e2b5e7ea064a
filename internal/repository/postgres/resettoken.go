package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/authline/authline/internal/apperrors"
	"github.com/authline/authline/internal/models"
	"github.com/authline/authline/internal/token"
)

type ResetTokenRepo struct {
	DB DBTX

	// How long an issued reset token stays redeemable
	TTL time.Duration
}

const createResetToken = `-- name: CreateResetToken
INSERT INTO password_reset_tokens (id, user_id, token_hash, created_at, expires_at, last_login_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id
`

// Issue generates a fresh reset token, persists its digest with the user's
// last-login snapshot and returns the raw token. The raw token is never stored.
func (r *ResetTokenRepo) Issue(ctx context.Context, userID uuid.UUID, lastLoginAt *time.Time) (string, error) {
	rawToken, err := token.Generate()
	if err != nil {
		return "", err
	}

	now := time.Now()

	rows, _ := r.DB.Query(ctx, createResetToken,
		uuid.New(), userID, token.Digest(rawToken), now, now.Add(r.TTL), lastLoginAt)
	_, err = pgx.CollectOneRow(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}

	return rawToken, nil
}

const getResetToken = `-- name: GetResetToken
SELECT id, user_id, token_hash, created_at, expires_at, last_login_at
FROM password_reset_tokens
WHERE token_hash = $1 AND expires_at > now()
`

// Get returns a live record by token digest. Expired records are treated
// the same as absent ones. Read-only: looking a token up does not consume it.
func (r *ResetTokenRepo) Get(ctx context.Context, tokenHash string) (models.ResetToken, error) {
	rows, _ := r.DB.Query(ctx, getResetToken, tokenHash)
	record, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (models.ResetToken, error) {
		var t models.ResetToken
		err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.CreatedAt, &t.ExpiresAt, &t.LastLoginAt)
		return t, err
	})

	switch {
	case err == nil:
		return record, nil
	case errors.Is(err, pgx.ErrNoRows):
		return record, apperrors.ErrResetTokenNotFound
	default:
		return record, fmt.Errorf("db error: %w", err)
	}
}

const deleteResetToken = `-- name: DeleteResetToken
DELETE FROM password_reset_tokens
WHERE token_hash = $1
`

func (r *ResetTokenRepo) Delete(ctx context.Context, tokenHash string) error {
	_, err := r.DB.Exec(ctx, deleteResetToken, tokenHash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
