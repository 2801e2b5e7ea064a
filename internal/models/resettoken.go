package models

import (
	"time"

	"github.com/google/uuid"
)

// ResetToken is a stored password reset token record.
// Only the digest of the issued token is kept, never the token itself.
type ResetToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time

	// Snapshot of the user's last login taken when the token was issued.
	// Any later login makes the token stale.
	LastLoginAt *time.Time
}
