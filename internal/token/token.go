// Package token generates opaque authentication tokens and their storage
// digests. A token is handed to the client exactly once; everything stored
// server side is keyed by the SHA-256 digest.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const tokenBytesLen = 32

// Generate returns a new random 256-bit token as a hex string.
func Generate() (string, error) {
	b := make([]byte, tokenBytesLen)

	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("error while generating token. Err: %w", err)
	}

	return hex.EncodeToString(b), nil
}

// Digest returns the hex-encoded SHA-256 digest of a raw token.
// It is pure: the same token always yields the same digest.
func Digest(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}
