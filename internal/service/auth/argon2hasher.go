package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password.
	// A mismatch is (false, nil); an error means the stored digest is
	// malformed or corrupt
	Verify(hashedPassword string, password string) (bool, error)

	// Report whether the digest was produced with outdated cost parameters
	// and should be regenerated on the next successful verification
	NeedsRehash(hashedPassword string) bool
}

// Argon2Params are the argon2id cost parameters baked into every digest
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

var DefaultArgon2Params = Argon2Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// Argon2Hasher is a memory-hard password hasher.
// Hashing is CPU and memory heavy, so the number of concurrent hash
// computations is capped: extra callers wait instead of piling up and
// starving unrelated requests.
type Argon2Hasher struct {
	params Argon2Params
	sem    chan struct{}
}

func NewArgon2Hasher(params Argon2Params, maxConcurrent int) *Argon2Hasher {
	if maxConcurrent <= 0 {
		maxConcurrent = runtime.GOMAXPROCS(0)
	}

	return &Argon2Hasher{
		params: params,
		sem:    make(chan struct{}, maxConcurrent),
	}
}

// Hash produces a PHC-format digest:
// $argon2id$v=19$m=<memory>,t=<iterations>,p=<parallelism>$<salt>$<hash>
func (h *Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("error while generating salt. Err: %w", err)
	}

	h.sem <- struct{}{}
	hash := argon2.IDKey([]byte(password), salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)
	<-h.sem

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.Memory, h.params.Iterations, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)

	return encoded, nil
}

func (h *Argon2Hasher) Verify(hashedPassword string, password string) (bool, error) {
	params, salt, hash, err := decodeDigest(hashedPassword)
	if err != nil {
		return false, err
	}

	// Recompute with the parameters stored in the digest, not the current
	// config, so older hashes still verify
	h.sem <- struct{}{}
	comparison := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, uint32(len(hash)))
	<-h.sem

	return subtle.ConstantTimeCompare(hash, comparison) == 1, nil
}

func (h *Argon2Hasher) NeedsRehash(hashedPassword string) bool {
	params, _, hash, err := decodeDigest(hashedPassword)
	if err != nil {
		// Malformed digests are the Verify error path, nothing to upgrade
		return false
	}

	return params.Memory != h.params.Memory ||
		params.Iterations != h.params.Iterations ||
		params.Parallelism != h.params.Parallelism ||
		uint32(len(hash)) != h.params.KeyLength
}

func decodeDigest(encoded string) (Argon2Params, []byte, []byte, error) {
	var params Argon2Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return params, nil, nil, errors.New("invalid hash format: wrong number of parts")
	}
	if parts[1] != "argon2id" {
		return params, nil, nil, errors.New("invalid hash format: not argon2id")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return params, nil, nil, errors.New("invalid hash format: unsupported version")
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return params, nil, nil, fmt.Errorf("invalid hash format: malformed params: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, fmt.Errorf("invalid hash format: can't decode salt: %w", err)
	}

	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return params, nil, nil, fmt.Errorf("invalid hash format: can't decode hash: %w", err)
	}

	params.SaltLength = uint32(len(salt))
	params.KeyLength = uint32(len(hash))

	return params, salt, hash, nil
}
