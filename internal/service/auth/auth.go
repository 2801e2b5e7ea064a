package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/authline/authline/internal/apperrors"
	"github.com/authline/authline/internal/email"
	"github.com/authline/authline/internal/logger"
	"github.com/authline/authline/internal/models"
	"github.com/authline/authline/internal/repository"
	"github.com/authline/authline/internal/token"
)

const (
	resetEmailTemplate = "reset-password"
	resetActionPath    = "/auth/reset-password"

	defaultAppURL        = "http://localhost:8000"
	defaultResetTokenTTL = 30 * time.Minute
)

type Config struct {
	// Base URL the password reset link points at
	AppURL string

	// How long an issued reset token stays redeemable.
	// Must match the TTL the reset token repo was built with
	ResetTokenTTL time.Duration

	// Hasher to verify user passwords with.
	// Argon2Hasher with default params is used if not provided
	Hasher PasswordHasher

	// Logger for internal failures, noop if not set
	Logger logger.Logger
}

// ClientContext carries the requesting client's details for the reset email
type ClientContext struct {
	OperatingSystem string
	Browser         string
}

// Auth service
type Service struct {
	hasher  PasswordHasher
	storage repository.Storage
	tokens  repository.TokenStore
	sender  email.Sender

	validate *validator.Validate
	logger   logger.Logger

	appURL   string
	resetTTL time.Duration
}

func NewService(cfg Config, storage repository.Storage, tokens repository.TokenStore, sender email.Sender) (*Service, error) {
	if storage == nil || tokens == nil || sender == nil {
		return nil, errors.New("storage, token store and email sender must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = NewArgon2Hasher(DefaultArgon2Params, 0)
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	appURL := cfg.AppURL
	if appURL == "" {
		appURL = defaultAppURL
	}

	resetTTL := cfg.ResetTokenTTL
	if resetTTL <= 0 {
		resetTTL = defaultResetTokenTTL
	}

	return &Service{
		hasher:   hasher,
		storage:  storage,
		tokens:   tokens,
		sender:   sender,
		validate: validator.New(),
		logger:   log,
		appURL:   appURL,
		resetTTL: resetTTL,
	}, nil
}

type RegisterParams struct {
	Username string `validate:"required,min=3,max=40,alphanum"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8,max=128"`
}

// Register creates a user and logs it in right away.
// Returned token is the only copy, it can't be recovered later.
func (s *Service) Register(ctx context.Context, params RegisterParams) (models.User, string, error) {
	var user models.User

	if err := s.validate.Struct(params); err != nil {
		return user, "", fmt.Errorf("%w: %s", apperrors.ErrValidation, err)
	}

	// Duplicate checks, email first then username
	_, err := s.storage.User().GetUserByEmail(ctx, params.Email)
	switch {
	case err == nil:
		return user, "", apperrors.ErrEmailTaken
	case errors.Is(err, apperrors.ErrUserNotFound):
		// free to take
	default:
		return user, "", fmt.Errorf("error while checking email. Err: %w", err)
	}

	_, err = s.storage.User().GetUserByUsername(ctx, params.Username)
	switch {
	case err == nil:
		return user, "", apperrors.ErrUsernameTaken
	case errors.Is(err, apperrors.ErrUserNotFound):
		// free to take
	default:
		return user, "", fmt.Errorf("error while checking username. Err: %w", err)
	}

	user, err = s.storage.User().CreateUser(ctx, repository.CreateUserParams{
		Username: params.Username,
		Email:    params.Email,
		Password: params.Password,
	})
	if err != nil {
		return user, "", err
	}

	rawToken, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return user, "", fmt.Errorf("error while issuing token. Err: %w", err)
	}

	return user, rawToken, nil
}

// Login verifies credentials and issues a session token.
// Login with "@" is treated as an email, anything else as a username.
func (s *Service) Login(ctx context.Context, login string, password string) (models.User, string, error) {
	var user models.User
	var err error

	if strings.Contains(login, "@") {
		user, err = s.storage.User().GetUserByEmail(ctx, login)
	} else {
		user, err = s.storage.User().GetUserByUsername(ctx, login)
	}

	switch {
	case err == nil:
		// found
	case errors.Is(err, apperrors.ErrUserNotFound):
		// Same error as a password mismatch, don't leak which half was wrong
		return user, "", apperrors.ErrInvalidCredentials
	default:
		return user, "", fmt.Errorf("error while looking up user. Err: %w", err)
	}

	ok, err := s.hasher.Verify(user.HashedPassword, password)
	if err != nil {
		s.logger.Error("password verification failed", "user_id", user.ID, "error", err.Error())
		return user, "", fmt.Errorf("%w: can't verify password", apperrors.ErrUnexpected)
	}
	if !ok {
		return user, "", apperrors.ErrInvalidCredentials
	}

	// Upgrade the stored hash if it was produced with outdated cost parameters
	if s.hasher.NeedsRehash(user.HashedPassword) {
		user, err = s.storage.User().UpdateUser(ctx, user.ID, repository.UpdateUserParams{Password: &password})
		if err != nil {
			return user, "", fmt.Errorf("error while upgrading password hash. Err: %w", err)
		}
	}

	// Advance last login before the token is handed back: every reset token
	// issued until now becomes stale at this point
	now := time.Now()
	user, err = s.storage.User().UpdateUser(ctx, user.ID, repository.UpdateUserParams{LastLoginAt: &now})
	if err != nil {
		return user, "", fmt.Errorf("error while updating last login. Err: %w", err)
	}

	rawToken, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return user, "", fmt.Errorf("error while issuing token. Err: %w", err)
	}

	return user, rawToken, nil
}

// VerifyToken resolves a session token to the owning user id
func (s *Service) VerifyToken(ctx context.Context, rawToken string) (uuid.UUID, error) {
	userID, err := s.tokens.Resolve(ctx, rawToken)

	switch {
	case err == nil:
		return userID, nil
	case errors.Is(err, apperrors.ErrAuthTokenNotFound):
		return uuid.Nil, apperrors.ErrInvalidAuthToken
	default:
		return uuid.Nil, fmt.Errorf("error while resolving token. Err: %w", err)
	}
}

// Logout revokes a single session token. Idempotent.
func (s *Service) Logout(ctx context.Context, rawToken string, userID uuid.UUID) error {
	return s.tokens.Revoke(ctx, rawToken, userID)
}

// LogoutAll revokes every live session token of the user
func (s *Service) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	return s.tokens.RevokeAll(ctx, userID)
}

// RequestPasswordReset issues a reset token and emails a reset link.
// An unknown email succeeds all the same, so the call can't be used to
// probe which addresses have accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, userEmail string, client ClientContext) error {
	user, err := s.storage.User().GetUserByEmail(ctx, userEmail)
	switch {
	case err == nil:
		// found
	case errors.Is(err, apperrors.ErrUserNotFound):
		return nil
	default:
		return fmt.Errorf("error while looking up user. Err: %w", err)
	}

	rawToken, err := s.storage.Reset().Issue(ctx, user.ID, user.LastLoginAt)
	if err != nil {
		return fmt.Errorf("error while issuing reset token. Err: %w", err)
	}

	query := url.Values{}
	query.Set("email", user.Email)
	query.Set("reset_token", rawToken)
	actionURL := strings.TrimRight(s.appURL, "/") + resetActionPath + "?" + query.Encode()

	err = s.sender.Send(ctx, resetEmailTemplate, user.Email, map[string]string{
		"actionUrl":       actionURL,
		"operatingSystem": client.OperatingSystem,
		"browserName":     client.Browser,
		"username":        user.Username,
		"tokenExpiresIn":  humanDuration(s.resetTTL),
	})
	if err != nil {
		return fmt.Errorf("error while sending reset email. Err: %w", err)
	}

	return nil
}

// ResetPassword redeems a reset token and sets a new password.
// All failure modes share one generic error so the caller can't tell which
// half of the (token, email) pair was wrong.
func (s *Service) ResetPassword(ctx context.Context, rawToken string, userEmail string, newPassword string) error {
	if err := s.validate.Var(newPassword, "required,min=8,max=128"); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrValidation, err)
	}

	tokenHash := token.Digest(rawToken)

	user, userErr := s.storage.User().GetUserByEmail(ctx, userEmail)
	record, recordErr := s.storage.Reset().Get(ctx, tokenHash)

	switch {
	case errors.Is(userErr, apperrors.ErrUserNotFound) || errors.Is(recordErr, apperrors.ErrResetTokenNotFound):
		return apperrors.ErrInvalidResetToken
	case userErr != nil:
		return fmt.Errorf("error while looking up user. Err: %w", userErr)
	case recordErr != nil:
		return fmt.Errorf("error while looking up reset token. Err: %w", recordErr)
	}

	if record.UserID != user.ID {
		return apperrors.ErrInvalidResetToken
	}

	// A login after issuance makes every outstanding reset token stale
	if lastLoginAdvanced(user.LastLoginAt, record.LastLoginAt) {
		return apperrors.ErrInvalidResetToken
	}

	// Change the password and consume the record together, so a redeemed
	// token can't be replayed within the same last-login window
	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		if _, err := st.User().UpdateUser(ctx, user.ID, repository.UpdateUserParams{Password: &newPassword}); err != nil {
			return err
		}
		return st.Reset().Delete(ctx, tokenHash)
	})
	if err != nil {
		return fmt.Errorf("error while resetting password. Err: %w", err)
	}

	return nil
}

// lastLoginAdvanced reports whether the user's last login moved strictly
// past the snapshot taken when the reset token was issued
func lastLoginAdvanced(current *time.Time, snapshot *time.Time) bool {
	if current == nil {
		return false
	}
	if snapshot == nil {
		// Token issued before the first ever login, any login is newer
		return true
	}
	return current.After(*snapshot)
}

func humanDuration(d time.Duration) string {
	value, unit := int64(d/time.Second), "second"
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		value, unit = int64(d/time.Hour), "hour"
	case d >= time.Minute && d%time.Minute == 0:
		value, unit = int64(d/time.Minute), "minute"
	}

	if value == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", value, unit)
}
