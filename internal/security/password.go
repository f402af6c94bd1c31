// internal/security/password.go

package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"

	"connectr/internal/domain/identity"
)

// Argon2idParams defines the tuning parameters for Argon2id hashing
type Argon2idParams struct {
	Time       uint32
	Memory     uint32
	Threads    uint8
	KeyLength  uint32
	SaltLength uint32
}

// DefaultParams are used for passwords and reset tokens
var DefaultParams = Argon2idParams{
	Time:       1,
	Memory:     64 * 1024,
	Threads:    4,
	KeyLength:  32,
	SaltLength: 16,
}

var errMalformedHash = errors.New("malformed argon2id hash")

// Argon2Hasher implements identity.PasswordHasher
type Argon2Hasher struct {
	params Argon2idParams
}

// NewArgon2Hasher creates a hasher, filling zero params from DefaultParams
func NewArgon2Hasher(params Argon2idParams) *Argon2Hasher {
	if params.Time == 0 {
		params.Time = DefaultParams.Time
	}
	if params.Memory == 0 {
		params.Memory = DefaultParams.Memory
	}
	if params.Threads == 0 {
		params.Threads = DefaultParams.Threads
	}
	if params.KeyLength == 0 {
		params.KeyLength = DefaultParams.KeyLength
	}
	if params.SaltLength == 0 {
		params.SaltLength = DefaultParams.SaltLength
	}
	return &Argon2Hasher{params: params}
}

// Hash encodes secret as argon2id$time$memory$threads$salt$hash
func (h *Argon2Hasher) Hash(secret string) (string, error) {
	p := h.params

	salt := make([]byte, int(p.SaltLength))
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(secret), salt, p.Time, p.Memory, p.Threads, p.KeyLength)

	return fmt.Sprintf("argon2id$%d$%d$%d$%s$%s",
		p.Time, p.Memory, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify compares secret against an encoded hash in constant time
func (h *Argon2Hasher) Verify(secret, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "argon2id" {
		return false, errMalformedHash
	}

	timeCost, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return false, fmt.Errorf("%w: time: %v", errMalformedHash, err)
	}
	memory, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return false, fmt.Errorf("%w: memory: %v", errMalformedHash, err)
	}
	threads, err := strconv.ParseUint(parts[3], 10, 8)
	if err != nil {
		return false, fmt.Errorf("%w: threads: %v", errMalformedHash, err)
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("%w: salt: %v", errMalformedHash, err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("%w: hash: %v", errMalformedHash, err)
	}

	got := argon2.IDKey([]byte(secret), salt, uint32(timeCost), uint32(memory), uint8(threads), uint32(len(want)))

	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

var _ identity.PasswordHasher = (*Argon2Hasher)(nil)
