package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/authline/authline/internal/repository"
)

type Storage struct {
	db       DBTX
	hasher   PasswordHasher
	resetTTL time.Duration
}

func NewStorage(db DBTX, hasher PasswordHasher, resetTTL time.Duration) repository.Storage {
	return &Storage{db: db, hasher: hasher, resetTTL: resetTTL}
}

func (s *Storage) User() repository.UserRepo {
	return &UserRepo{DB: s.db, Hasher: s.hasher}
}

func (s *Storage) Reset() repository.ResetTokenRepo {
	return &ResetTokenRepo{DB: s.db, TTL: s.resetTTL}
}

func (s *Storage) InTx(ctx context.Context, fn func(repository.Storage) error) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("db tx error: %w", err)
	}

	defer func() {
		switch err {
		case nil:
			err = tx.Commit(ctx)
		default:
			_ = tx.Rollback(ctx)
		}
	}()

	err = fn(NewStorage(tx, s.hasher, s.resetTTL))

	return err
}
