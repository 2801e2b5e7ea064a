// Package redistore implements the session token store on Redis.
//
// Layout: "auth-tokens:<digest>" holds the owning user id and
// "auth-token-owners:<user id>" is a set of the user's live digests,
// kept so every token of a user can be revoked at once.
package redistore

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/authline/authline/internal/apperrors"
	"github.com/authline/authline/internal/repository"
	"github.com/authline/authline/internal/token"
)

type TokenStore struct {
	client *redis.Client
}

func NewTokenStore(client *redis.Client) repository.TokenStore {
	return &TokenStore{client: client}
}

func tokenKey(tokenHash string) string {
	return "auth-tokens:" + tokenHash
}

func ownerKey(userID uuid.UUID) string {
	return "auth-token-owners:" + userID.String()
}

func (s *TokenStore) Issue(ctx context.Context, userID uuid.UUID) (string, error) {
	rawToken, err := token.Generate()
	if err != nil {
		return "", err
	}
	tokenHash := token.Digest(rawToken)

	// Write mapping and set entry in one transaction so a racing RevokeAll
	// never observes one without the other
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, tokenKey(tokenHash), userID.String(), 0)
		pipe.SAdd(ctx, ownerKey(userID), tokenHash)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("redis error: %w", err)
	}

	return rawToken, nil
}

func (s *TokenStore) Resolve(ctx context.Context, rawToken string) (uuid.UUID, error) {
	value, err := s.client.Get(ctx, tokenKey(token.Digest(rawToken))).Result()

	switch {
	case err == nil:
		// fallthrough to parse
	case errors.Is(err, redis.Nil):
		return uuid.Nil, apperrors.ErrAuthTokenNotFound
	default:
		return uuid.Nil, fmt.Errorf("redis error: %w", err)
	}

	userID, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("corrupt token mapping: %w", err)
	}

	return userID, nil
}

// Revoke removes one token. Revoking an already absent token is a no-op.
func (s *TokenStore) Revoke(ctx context.Context, rawToken string, userID uuid.UUID) error {
	tokenHash := token.Digest(rawToken)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, tokenKey(tokenHash))
		pipe.SRem(ctx, ownerKey(userID), tokenHash)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}

	return nil
}

// RevokeAll sweeps every live token of the user.
// The mapping keys are derived from the set members themselves, so a digest
// listed in the set is always deleted together with its mapping.
func (s *TokenStore) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	hashes, err := s.client.SMembers(ctx, ownerKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}

	keys := make([]string, 0, len(hashes)+1)
	for _, tokenHash := range hashes {
		keys = append(keys, tokenKey(tokenHash))
	}
	keys = append(keys, ownerKey(userID))

	err = s.client.Del(ctx, keys...).Err()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}

	return nil
}
