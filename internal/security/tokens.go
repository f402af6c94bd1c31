// internal/security/tokens.go

package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"connectr/internal/domain/identity"
)

// JWTConfig configures access token issuance
type JWTConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTTokenManager issues HS256 access tokens and tracks revoked token IDs
type JWTTokenManager struct {
	secret  []byte
	issuer  string
	ttl     time.Duration
	revoked *expirable.LRU[string, struct{}]
	now     func() time.Time
}

// NewJWTTokenManager creates a new token manager
func NewJWTTokenManager(cfg JWTConfig) (*JWTTokenManager, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret not configured")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}

	return &JWTTokenManager{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		// Size 0 disables LRU eviction; an entry leaves only once the token it revokes has expired
		revoked: expirable.NewLRU[string, struct{}](0, nil, cfg.TTL),
		now:     time.Now,
	}, nil
}

// Generate implements identity.TokenManager
func (m *JWTTokenManager) Generate(user identity.User) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)

	claims := accessClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// Validate implements identity.TokenManager
func (m *JWTTokenManager) Validate(token string) (identity.Claims, error) {
	claims, err := m.parse(token)
	if err != nil {
		return identity.Claims{}, err
	}

	if m.revoked.Contains(claims.ID) {
		return identity.Claims{}, fmt.Errorf("%w: revoked", identity.ErrInvalidToken)
	}

	return identity.Claims{
		Subject:   claims.Subject,
		Email:     claims.Email,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Revoke implements identity.TokenManager
func (m *JWTTokenManager) Revoke(token string) error {
	claims, err := m.parse(token)
	if err != nil {
		return err
	}
	m.revoked.Add(claims.ID, struct{}{})
	return nil
}

func (m *JWTTokenManager) parse(token string) (*accessClaims, error) {
	claims := &accessClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", identity.ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, identity.ErrInvalidToken
	}

	return claims, nil
}

var _ identity.TokenManager = (*JWTTokenManager)(nil)
