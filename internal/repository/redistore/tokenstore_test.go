package redistore

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/authline/authline/internal/apperrors"
	"github.com/authline/authline/internal/testutil"
	"github.com/authline/authline/internal/token"
)

func Test_TokenStore(t *testing.T) {
	t.Parallel()

	rd := testutil.StartRedisContainer(t)
	t.Cleanup(rd.Terminate)

	s := NewTokenStore(rd.Client)

	t.Run("issue and resolve", func(t *testing.T) {
		userID := uuid.New()

		rawToken, err := s.Issue(t.Context(), userID)
		require.NoError(t, err)
		require.Len(t, rawToken, 64, "raw token should be 64 hex chars")

		got, err := s.Resolve(t.Context(), rawToken)

		require.NoError(t, err)
		require.Equal(t, userID, got)
	})

	t.Run("raw token is not stored", func(t *testing.T) {
		userID := uuid.New()

		rawToken, err := s.Issue(t.Context(), userID)
		require.NoError(t, err)

		// Only the digest may appear as a key
		exists, err := rd.Client.Exists(t.Context(), "auth-tokens:"+rawToken).Result()
		require.NoError(t, err)
		require.Zero(t, exists, "raw token must never be a storage key")

		exists, err = rd.Client.Exists(t.Context(), "auth-tokens:"+token.Digest(rawToken)).Result()
		require.NoError(t, err)
		require.EqualValues(t, 1, exists)
	})

	t.Run("resolve unknown token fails", func(t *testing.T) {
		_, err := s.Resolve(t.Context(), "completely-unknown-token")

		require.ErrorIs(t, err, apperrors.ErrAuthTokenNotFound)
	})

	t.Run("revoke is idempotent", func(t *testing.T) {
		userID := uuid.New()

		rawToken, err := s.Issue(t.Context(), userID)
		require.NoError(t, err)

		err = s.Revoke(t.Context(), rawToken, userID)
		require.NoError(t, err)

		_, err = s.Resolve(t.Context(), rawToken)
		require.ErrorIs(t, err, apperrors.ErrAuthTokenNotFound)

		err = s.Revoke(t.Context(), rawToken, userID)
		require.NoError(t, err, "revoking an absent token should be a no-op")
	})

	t.Run("revoke removes set entry", func(t *testing.T) {
		userID := uuid.New()

		rawToken, err := s.Issue(t.Context(), userID)
		require.NoError(t, err)

		err = s.Revoke(t.Context(), rawToken, userID)
		require.NoError(t, err)

		members, err := rd.Client.SMembers(t.Context(), "auth-token-owners:"+userID.String()).Result()
		require.NoError(t, err)
		require.Empty(t, members, "owner set should not keep revoked digests")
	})

	t.Run("revoke all", func(t *testing.T) {
		userID := uuid.New()
		otherID := uuid.New()

		first, err := s.Issue(t.Context(), userID)
		require.NoError(t, err)
		second, err := s.Issue(t.Context(), userID)
		require.NoError(t, err)
		other, err := s.Issue(t.Context(), otherID)
		require.NoError(t, err)

		err = s.RevokeAll(t.Context(), userID)
		require.NoError(t, err)

		_, err = s.Resolve(t.Context(), first)
		require.ErrorIs(t, err, apperrors.ErrAuthTokenNotFound)
		_, err = s.Resolve(t.Context(), second)
		require.ErrorIs(t, err, apperrors.ErrAuthTokenNotFound)

		// Tracking set is gone too
		exists, err := rd.Client.Exists(t.Context(), "auth-token-owners:"+userID.String()).Result()
		require.NoError(t, err)
		require.Zero(t, exists)

		got, err := s.Resolve(t.Context(), other)
		require.NoError(t, err, "other user's token should survive")
		require.Equal(t, otherID, got)
	})

	t.Run("revoke all with no tokens is a no-op", func(t *testing.T) {
		err := s.RevokeAll(t.Context(), uuid.New())

		require.NoError(t, err)
	})

	t.Run("token issued after revoke all stays valid", func(t *testing.T) {
		userID := uuid.New()

		_, err := s.Issue(t.Context(), userID)
		require.NoError(t, err)

		err = s.RevokeAll(t.Context(), userID)
		require.NoError(t, err)

		fresh, err := s.Issue(t.Context(), userID)
		require.NoError(t, err)

		got, err := s.Resolve(t.Context(), fresh)
		require.NoError(t, err)
		require.Equal(t, userID, got)
	})
}
