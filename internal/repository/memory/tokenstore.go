// Package memory implements the session token store on in-process maps.
// Useful for tests and single-node dev runs, same semantics as redistore.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/authline/authline/internal/apperrors"
	"github.com/authline/authline/internal/repository"
	"github.com/authline/authline/internal/token"
)

type TokenStore struct {
	mu     sync.Mutex
	tokens map[string]uuid.UUID          // digest -> owning user
	owners map[uuid.UUID]map[string]bool // user -> set of live digests
}

func NewTokenStore() repository.TokenStore {
	return &TokenStore{
		tokens: make(map[string]uuid.UUID),
		owners: make(map[uuid.UUID]map[string]bool),
	}
}

func (s *TokenStore) Issue(_ context.Context, userID uuid.UUID) (string, error) {
	rawToken, err := token.Generate()
	if err != nil {
		return "", err
	}
	tokenHash := token.Digest(rawToken)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[tokenHash] = userID
	if s.owners[userID] == nil {
		s.owners[userID] = make(map[string]bool)
	}
	s.owners[userID][tokenHash] = true

	return rawToken, nil
}

func (s *TokenStore) Resolve(_ context.Context, rawToken string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID, ok := s.tokens[token.Digest(rawToken)]
	if !ok {
		return uuid.Nil, apperrors.ErrAuthTokenNotFound
	}

	return userID, nil
}

func (s *TokenStore) Revoke(_ context.Context, rawToken string, userID uuid.UUID) error {
	tokenHash := token.Digest(rawToken)

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, tokenHash)
	delete(s.owners[userID], tokenHash)

	return nil
}

func (s *TokenStore) RevokeAll(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for tokenHash := range s.owners[userID] {
		delete(s.tokens, tokenHash)
	}
	delete(s.owners, userID)

	return nil
}
