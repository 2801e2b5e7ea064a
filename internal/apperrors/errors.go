package apperrors

import (
	"errors"
)

// Invalid input: safe to show to the end user as-is.
// Login and reset failures deliberately share one generic message each,
// so callers can't probe which half was wrong.
var (
	ErrEmailTaken         = errors.New("user with that email already exists")
	ErrUsernameTaken      = errors.New("user with that username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials provided")
	ErrInvalidResetToken  = errors.New("invalid password reset token or email provided")
	ErrValidation         = errors.New("invalid input provided")
)

// Unauthenticated: presented session token did not resolve.
var ErrInvalidAuthToken = errors.New("invalid authentication token provided")

// Not found: referenced entity absent, used by read-by-id paths.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrAuthTokenNotFound  = errors.New("authentication token not found")
	ErrResetTokenNotFound = errors.New("password reset token not found")
)

// Unexpected: infrastructure or hash-library failure.
// Opaque to the user, details stay in logs.
var ErrUnexpected = errors.New("unexpected internal error")
