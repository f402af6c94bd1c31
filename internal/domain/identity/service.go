// internal/domain/identity/service.go

package identity

import (
	"context"
	"errors"
	"time"

	"connectr/internal/domain/geo"
)

// LocationSharingLevel defines how precisely a user's location is shared
type LocationSharingLevel string

const (
	LocationSharingDisabled     LocationSharingLevel = "disabled"
	LocationSharingApproximate  LocationSharingLevel = "approximate" // City level
	LocationSharingNeighborhood LocationSharingLevel = "neighborhood"
	LocationSharingPrecise      LocationSharingLevel = "precise"
)

// Valid reports whether the level is one of the known sharing levels
func (l LocationSharingLevel) Valid() bool {
	switch l {
	case LocationSharingDisabled, LocationSharingApproximate, LocationSharingNeighborhood, LocationSharingPrecise:
		return true
	}
	return false
}

// Common errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrForbidden          = errors.New("forbidden")
	ErrResetTokenInvalid  = errors.New("password reset token is invalid or expired")
	ErrLocationUnknown    = errors.New("user location unknown")
	ErrInvalidSharing     = errors.New("invalid location sharing level")
)

// User represents a registered user
type User struct {
	ID                string               `json:"id"`
	Email             string               `json:"email"`
	Name              string               `json:"name"`
	PhotoURL          string               `json:"photo_url,omitempty"`
	PasswordHash      string               `json:"-"`
	Location          *geo.Coordinate      `json:"location,omitempty"`
	LocationUpdatedAt *time.Time           `json:"location_updated_at,omitempty"`
	LocationSharing   LocationSharingLevel `json:"location_sharing"`
	ResetTokenHash    string               `json:"-"`
	ResetExpiresAt    *time.Time           `json:"-"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// Claims are the authenticated facts carried by an access token
type Claims struct {
	Subject   string
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

type claimsKey struct{}

// WithClaims returns a copy of ctx carrying the caller's claims
func WithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the caller's claims, if any
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(Claims)
	return claims, ok
}

// Authorize checks that the caller in ctx acts on their own account
func Authorize(ctx context.Context, userID string) error {
	claims, ok := ClaimsFromContext(ctx)
	if !ok || claims.Subject == "" {
		return ErrInvalidToken
	}
	if claims.Subject != userID {
		return ErrForbidden
	}
	return nil
}

// TokenManager handles authentication tokens
type TokenManager interface {
	// Generate issues an access token for a user
	Generate(user User) (string, time.Time, error)

	// Validate validates a token and returns its claims
	Validate(token string) (Claims, error)

	// Revoke revokes a token until it would have expired
	Revoke(token string) error
}

// PasswordHasher hashes and verifies secrets
type PasswordHasher interface {
	Hash(secret string) (string, error)
	Verify(secret, encoded string) (bool, error)
}
