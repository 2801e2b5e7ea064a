package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/authline/authline/internal/apperrors"
	"github.com/authline/authline/internal/repository"
	"github.com/authline/authline/internal/testutil"
)

// stubHasher marks the input instead of hashing, so tests can see exactly
// what the repo persisted
type stubHasher struct{}

func (stubHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func Test_UserRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Helper to run tests with its own UserRepo in transaction
	// When test end rollback
	withRepo := func(t *testing.T, testFunc func(r *UserRepo)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			testFunc(&UserRepo{DB: tx, Hasher: stubHasher{}})
		})
	}

	newUserParams := repository.CreateUserParams{
		Username: "somebody",
		Email:    "somebody@example.com",
		Password: "pwd12345",
	}

	t.Run("CreateUser", func(t *testing.T) {
		t.Run("ok", func(t *testing.T) {
			withRepo(t, func(r *UserRepo) {
				user, err := r.CreateUser(t.Context(), newUserParams)

				require.NoError(t, err)
				require.NotEqual(t, uuid.Nil, user.ID)
				require.Equal(t, "somebody", user.Username)
				require.Equal(t, "somebody@example.com", user.Email)
				require.Equal(t, "hashed:pwd12345", user.HashedPassword, "password should be stored hashed")
				require.Nil(t, user.LastLoginAt, "fresh user has no last login")
			})
		})

		t.Run("duplicate username fails", func(t *testing.T) {
			withRepo(t, func(r *UserRepo) {
				_, err := r.CreateUser(t.Context(), newUserParams)
				require.NoError(t, err)

				dup := newUserParams
				dup.Email = "unique@example.com"
				_, err = r.CreateUser(t.Context(), dup)

				require.ErrorIs(t, err, apperrors.ErrUsernameTaken)
			})
		})

		t.Run("duplicate email fails", func(t *testing.T) {
			withRepo(t, func(r *UserRepo) {
				_, err := r.CreateUser(t.Context(), newUserParams)
				require.NoError(t, err)

				dup := newUserParams
				dup.Username = "uniquename"
				_, err = r.CreateUser(t.Context(), dup)

				require.ErrorIs(t, err, apperrors.ErrEmailTaken)
			})
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("by id, username and email", func(t *testing.T) {
			withRepo(t, func(r *UserRepo) {
				created, err := r.CreateUser(t.Context(), newUserParams)
				require.NoError(t, err)

				byID, err := r.GetUserByID(t.Context(), created.ID)
				require.NoError(t, err)
				require.Equal(t, created, byID)

				byUsername, err := r.GetUserByUsername(t.Context(), "somebody")
				require.NoError(t, err)
				require.Equal(t, created, byUsername)

				byEmail, err := r.GetUserByEmail(t.Context(), "somebody@example.com")
				require.NoError(t, err)
				require.Equal(t, created, byEmail)
			})
		})

		t.Run("not found", func(t *testing.T) {
			withRepo(t, func(r *UserRepo) {
				_, err := r.GetUserByID(t.Context(), uuid.New())
				require.ErrorIs(t, err, apperrors.ErrUserNotFound)

				_, err = r.GetUserByUsername(t.Context(), "nobody")
				require.ErrorIs(t, err, apperrors.ErrUserNotFound)

				_, err = r.GetUserByEmail(t.Context(), "nobody@example.com")
				require.ErrorIs(t, err, apperrors.ErrUserNotFound)
			})
		})
	})

	t.Run("UpdateUser", func(t *testing.T) {
		t.Run("partial update touches only set fields", func(t *testing.T) {
			withRepo(t, func(r *UserRepo) {
				created, err := r.CreateUser(t.Context(), newUserParams)
				require.NoError(t, err)

				now := time.Now().Truncate(time.Second)
				updated, err := r.UpdateUser(t.Context(), created.ID, repository.UpdateUserParams{LastLoginAt: &now})

				require.NoError(t, err)
				require.Equal(t, created.Username, updated.Username)
				require.Equal(t, created.Email, updated.Email)
				require.Equal(t, created.HashedPassword, updated.HashedPassword)
				require.NotNil(t, updated.LastLoginAt)
				require.WithinDuration(t, now, *updated.LastLoginAt, time.Second)
			})
		})

		t.Run("password update re-hashes", func(t *testing.T) {
			withRepo(t, func(r *UserRepo) {
				created, err := r.CreateUser(t.Context(), newUserParams)
				require.NoError(t, err)

				newPassword := "other-password"
				updated, err := r.UpdateUser(t.Context(), created.ID, repository.UpdateUserParams{Password: &newPassword})

				require.NoError(t, err)
				require.Equal(t, "hashed:other-password", updated.HashedPassword)
			})
		})

		t.Run("unknown user fails", func(t *testing.T) {
			withRepo(t, func(r *UserRepo) {
				username := "whoever"
				_, err := r.UpdateUser(t.Context(), uuid.New(), repository.UpdateUserParams{Username: &username})

				require.ErrorIs(t, err, apperrors.ErrUserNotFound)
			})
		})
	})
}
