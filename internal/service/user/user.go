package user

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/authline/authline/internal/models"
	"github.com/authline/authline/internal/repository"
)

// UserService exposes user reads to callers that already hold a verified
// user id, e.g. after session token verification
type UserService struct {
	userRepo repository.UserRepo
}

func NewService(userRepo repository.UserRepo) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return user, fmt.Errorf("can't find user with id %s: %w", userID, err)
	}

	return user, nil
}
