package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/authline/authline/internal/models"
)

// Storage aggregates the persistent repositories and runs them in
// a single transaction when needed
type Storage interface {
	User() UserRepo
	Reset() ResetTokenRepo

	// Run fn with a Storage bound to one transaction.
	// Commit if fn returns nil, rollback otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}

type CreateUserParams struct {
	Username string
	Email    string

	// Plaintext password, hashed by the store before it is persisted
	Password string
}

// UpdateUserParams describes a partial user update.
// Nil fields are left untouched.
type UpdateUserParams struct {
	Username    *string
	Email       *string
	Password    *string // plaintext, re-hashed by the store
	LastLoginAt *time.Time
}

// User repository interface
type UserRepo interface {
	// Create user
	// If username is taken must return apperrors.ErrUsernameTaken,
	// if email is taken must return apperrors.ErrEmailTaken
	CreateUser(ctx context.Context, params CreateUserParams) (models.User, error)

	// Apply partial update and return the updated user
	// If user not found must return apperrors.ErrUserNotFound
	UpdateUser(ctx context.Context, userID uuid.UUID, params UpdateUserParams) (models.User, error)

	// Get user by id, username or email
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
}

// TokenStore keeps session tokens: digest -> user id, plus a per-user set
// of live digests for bulk revocation. Entries never expire on their own,
// revocation is the only removal path.
type TokenStore interface {
	// Generate a token for the user, store its digest and return the raw
	// token. The raw token is shown once and never retrievable again.
	Issue(ctx context.Context, userID uuid.UUID) (string, error)

	// Resolve a raw token to the owning user id
	// If the digest is unknown must return apperrors.ErrAuthTokenNotFound
	Resolve(ctx context.Context, rawToken string) (uuid.UUID, error)

	// Remove a single token. Revoking an absent token is a no-op
	Revoke(ctx context.Context, rawToken string, userID uuid.UUID) error

	// Remove every live token of the user and the tracking set itself
	RevokeAll(ctx context.Context, userID uuid.UUID) error
}

// ResetTokenRepo keeps password reset tokens: digest -> user id,
// last-login snapshot and expiry.
type ResetTokenRepo interface {
	// Generate a reset token for the user, persist its digest together
	// with the last-login snapshot and an absolute expiry, return the raw token
	Issue(ctx context.Context, userID uuid.UUID, lastLoginAt *time.Time) (string, error)

	// Get a live record by token digest. Read-only, does not consume.
	// If the digest is unknown or the record expired must return
	// apperrors.ErrResetTokenNotFound
	Get(ctx context.Context, tokenHash string) (models.ResetToken, error)

	// Delete the record by token digest. Deleting an absent record is a no-op
	Delete(ctx context.Context, tokenHash string) error
}
