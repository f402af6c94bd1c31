// internal/security/encryption.go

package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// scrypt cost parameters for deriving the data key
const (
	scryptN      = 1 << 14
	scryptR      = 8
	scryptP      = 1
	dataKeyBytes = 32
)

var (
	// ErrEncryptionFailed is returned when a value cannot be sealed
	ErrEncryptionFailed = errors.New("encryption failed")

	// ErrDecryptionFailed is returned when a value cannot be opened
	ErrDecryptionFailed = errors.New("decryption failed")
)

// Sealed is an encrypted payload with its nonce, both hex encoded
type Sealed struct {
	IV      string `json:"iv"`
	Content string `json:"content"`
}

// Encryptor seals and opens values with AES-256-GCM.
// Build one with NewEncryptor and pass it to whatever needs it.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor derives the data key from secret and salt
func NewEncryptor(secret, salt string) (*Encryptor, error) {
	if secret == "" {
		return nil, errors.New("encryption secret must not be empty")
	}

	key, err := scrypt.Key([]byte(secret), []byte(salt), scryptN, scryptR, scryptP, dataKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	return &Encryptor{aead: aead}, nil
}

// Encrypt JSON encodes v and seals it under a fresh nonce
func (e *Encryptor) Encrypt(v interface{}) (Sealed, error) {
	plain, err := json.Marshal(v)
	if err != nil {
		return Sealed{}, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	nonce := make([]byte, e.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return Sealed{}, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	return Sealed{
		IV:      hex.EncodeToString(nonce),
		Content: hex.EncodeToString(e.aead.Seal(nil, nonce, plain, nil)),
	}, nil
}

// Decrypt opens a sealed payload and JSON decodes it into out
func (e *Encryptor) Decrypt(sealed Sealed, out interface{}) error {
	nonce, err := hex.DecodeString(sealed.IV)
	if err != nil || len(nonce) != e.aead.NonceSize() {
		return fmt.Errorf("%w: bad iv", ErrDecryptionFailed)
	}

	content, err := hex.DecodeString(sealed.Content)
	if err != nil {
		return fmt.Errorf("%w: bad content", ErrDecryptionFailed)
	}

	plain, err := e.aead.Open(nil, nonce, content, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	if err := json.Unmarshal(plain, out); err != nil {
		return fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	return nil
}

// EncryptString seals s into the single-column form "iv:content"
func (e *Encryptor) EncryptString(s string) (string, error) {
	sealed, err := e.Encrypt(s)
	if err != nil {
		return "", err
	}
	return sealed.IV + ":" + sealed.Content, nil
}

// DecryptString opens a value produced by EncryptString
func (e *Encryptor) DecryptString(s string) (string, error) {
	iv, content, ok := strings.Cut(s, ":")
	if !ok {
		return "", fmt.Errorf("%w: malformed value", ErrDecryptionFailed)
	}

	var plain string
	if err := e.Decrypt(Sealed{IV: iv, Content: content}, &plain); err != nil {
		return "", err
	}
	return plain, nil
}

// GenerateSecureToken returns n random bytes hex encoded
func GenerateSecureToken(n int) (string, error) {
	if n <= 0 {
		n = 32
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
