package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/authline/authline/internal/apperrors"
	"github.com/authline/authline/internal/models"
	"github.com/authline/authline/internal/repository"
)

// PasswordHasher is the part of the credential hasher the user store needs.
// The store owns password hashing: it accepts plaintext and never persists it.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

type UserRepo struct {
	DB     DBTX
	Hasher PasswordHasher
}

const createUser = `-- name: CreateUser
INSERT INTO users (id, username, email, password_hash)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at, username, email, password_hash, last_login_at
`

func (r *UserRepo) CreateUser(ctx context.Context, params repository.CreateUserParams) (models.User, error) {
	var user models.User

	hash, err := r.Hasher.Hash(params.Password)
	if err != nil {
		return user, fmt.Errorf("can't hash password. Err: %w", err)
	}

	rows, _ := r.DB.Query(ctx, createUser, uuid.New(), params.Username, params.Email, hash)
	user, err = pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			switch pgErr.ConstraintName {
			case "users_email_key":
				return user, apperrors.ErrEmailTaken
			default:
				return user, apperrors.ErrUsernameTaken
			}
		}

		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const updateUser = `-- name: UpdateUser
UPDATE users
SET username      = COALESCE($2, username),
    email         = COALESCE($3, email),
    password_hash = COALESCE($4, password_hash),
    last_login_at = COALESCE($5, last_login_at)
WHERE id = $1
RETURNING id, created_at, username, email, password_hash, last_login_at
`

func (r *UserRepo) UpdateUser(ctx context.Context, userID uuid.UUID, params repository.UpdateUserParams) (models.User, error) {
	var user models.User

	// Re-hash plaintext password if the update carries one
	var hash *string
	if params.Password != nil {
		hashed, err := r.Hasher.Hash(*params.Password)
		if err != nil {
			return user, fmt.Errorf("can't hash password. Err: %w", err)
		}
		hash = &hashed
	}

	rows, _ := r.DB.Query(ctx, updateUser, userID, params.Username, params.Email, hash, params.LastLoginAt)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const getUserByID = `-- name: GetUserByID
SELECT id, created_at, username, email, password_hash, last_login_at
FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, userID)
	return collectUser(rows)
}

const getUserByUsername = `-- name: GetUserByUsername
SELECT id, created_at, username, email, password_hash, last_login_at
FROM users
WHERE username = $1
`

func (r *UserRepo) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByUsername, username)
	return collectUser(rows)
}

const getUserByEmail = `-- name: GetUserByEmail
SELECT id, created_at, username, email, password_hash, last_login_at
FROM users
WHERE email = $1
`

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByEmail, email)
	return collectUser(rows)
}

func collectUser(rows pgx.Rows) (models.User, error) {
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Username, &u.Email, &u.HashedPassword, &u.LastLoginAt)
	return u, err
}
