// internal/service/identity/service.go

package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"connectr/internal/domain/events"
	"connectr/internal/domain/identity"
	"connectr/internal/security"
	"connectr/internal/validation"
)

// UserStore defines the storage interface for users
type UserStore interface {
	CreateUser(ctx context.Context, user identity.User) error
	GetUser(ctx context.Context, id string) (*identity.User, error)
	GetUserByEmail(ctx context.Context, email string) (*identity.User, error)
	UpdateUser(ctx context.Context, user identity.User) error
	DeleteUser(ctx context.Context, id string) error
}

// EntryRemover deletes a user's journal when the account goes away
type EntryRemover interface {
	DeleteForUser(ctx context.Context, userID string) error
}

// Config contains configuration for the identity service
type Config struct {
	ResetTokenExpiry       time.Duration
	DefaultLocationSharing identity.LocationSharingLevel
	EventsTopic            string
}

// Service handles accounts, sessions and profiles
type Service struct {
	store     UserStore
	entries   EntryRemover
	tokens    identity.TokenManager
	hasher    identity.PasswordHasher
	publisher events.Publisher
	config    Config
	log       zerolog.Logger
	now       func() time.Time
}

// NewService creates a new identity service
func NewService(
	store UserStore,
	entries EntryRemover,
	tokens identity.TokenManager,
	hasher identity.PasswordHasher,
	publisher events.Publisher,
	config Config,
	log zerolog.Logger,
) *Service {
	if !config.DefaultLocationSharing.Valid() {
		config.DefaultLocationSharing = identity.LocationSharingNeighborhood
	}
	return &Service{
		store:     store,
		entries:   entries,
		tokens:    tokens,
		hasher:    hasher,
		publisher: publisher,
		config:    config,
		log:       log.With().Str("component", "identity_service").Logger(),
		now:       time.Now,
	}
}

// RegisterRequest holds the fields needed to create an account
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Session is an issued access token
type Session struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      *identity.User `json:"user"`
}

// Register creates a new account
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*identity.User, error) {
	email := normalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)

	if err := validation.ValidateRegistration(email, req.Password, name); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	now := s.now().UTC()
	user := identity.User{
		ID:              uuid.New().String(),
		Email:           email,
		Name:            validation.SanitizeInput(name),
		PasswordHash:    hash,
		LocationSharing: s.config.DefaultLocationSharing,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("User registered")
	return &user, nil
}

// Login verifies credentials and issues an access token
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, identity.ErrUserNotFound) {
		return nil, identity.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, identity.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Generate(*user)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Logout revokes an access token
func (s *Service) Logout(_ context.Context, token string) error {
	return s.tokens.Revoke(token)
}

// RequestPasswordReset issues a one-time reset token and hands it to subscribers for delivery.
// Unknown addresses succeed silently.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, identity.ErrUserNotFound) {
		s.log.Debug().Msg("Password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("error getting user: %w", err)
	}

	token, err := security.GenerateSecureToken(32)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(token)
	if err != nil {
		return fmt.Errorf("error hashing reset token: %w", err)
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.config.ResetTokenExpiry)
	user.ResetTokenHash = hash
	user.ResetExpiresAt = &expiresAt
	user.UpdatedAt = now

	if err := s.store.UpdateUser(ctx, *user); err != nil {
		return fmt.Errorf("error storing reset token: %w", err)
	}

	event := events.Event{
		Type:   events.TypePasswordResetRequested,
		UserID: user.ID,
		Time:   now,
		Data: map[string]interface{}{
			"email":      user.Email,
			"token":      token,
			"expires_at": expiresAt,
		},
	}
	if err := s.publisher.Publish(events.Subject(s.config.EventsTopic, user.ID, events.TypePasswordResetRequested), event); err != nil {
		return fmt.Errorf("error publishing reset request: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("Password reset requested")
	return nil
}

// ConfirmPasswordReset sets a new password when token matches an unexpired reset request
func (s *Service) ConfirmPasswordReset(ctx context.Context, email, token, newPassword string) error {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, identity.ErrUserNotFound) {
		return identity.ErrResetTokenInvalid
	}
	if err != nil {
		return fmt.Errorf("error getting user: %w", err)
	}

	now := s.now().UTC()
	if user.ResetTokenHash == "" || user.ResetExpiresAt == nil || now.After(*user.ResetExpiresAt) {
		return identity.ErrResetTokenInvalid
	}

	ok, err := s.hasher.Verify(token, user.ResetTokenHash)
	if err != nil || !ok {
		return identity.ErrResetTokenInvalid
	}

	if !validation.ValidatePassword(newPassword) {
		errs := &validation.Errors{}
		errs.Add(validation.MsgPasswordWeak)
		return errs
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	user.PasswordHash = hash
	user.ResetTokenHash = ""
	user.ResetExpiresAt = nil
	user.UpdatedAt = now

	if err := s.store.UpdateUser(ctx, *user); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("Password reset completed")
	return nil
}

// GetUser retrieves a user by ID
func (s *Service) GetUser(ctx context.Context, id string) (*identity.User, error) {
	return s.store.GetUser(ctx, id)
}

// UpdateProfileRequest holds the editable profile fields
type UpdateProfileRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photo_url"`
}

// UpdateUser changes the caller's own profile
func (s *Service) UpdateUser(ctx context.Context, id string, req UpdateProfileRequest) (*identity.User, error) {
	if err := identity.Authorize(ctx, id); err != nil {
		return nil, err
	}

	email := normalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)

	errs := &validation.Errors{}
	if !validation.ValidateEmail(email) {
		errs.Add(validation.MsgEmailInvalid)
	}
	if !validation.ValidateName(name) {
		errs.Add(validation.MsgNameInvalid)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	user.Name = validation.SanitizeInput(name)
	user.Email = email
	user.PhotoURL = strings.TrimSpace(req.PhotoURL)
	user.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateUser(ctx, *user); err != nil {
		return nil, fmt.Errorf("error updating user: %w", err)
	}

	return user, nil
}

// DeleteUser removes the caller's account and journal
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if err := identity.Authorize(ctx, id); err != nil {
		return err
	}

	if err := s.store.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("error deleting user: %w", err)
	}

	// Postgres cascades entries with the user row; this clears stores that do not
	if err := s.entries.DeleteForUser(ctx, id); err != nil {
		s.log.Error().Err(err).Str("user_id", id).Msg("Failed to delete journal of deleted user")
	}

	event := events.Event{Type: events.TypeUserDeleted, UserID: id, Time: s.now().UTC()}
	if err := s.publisher.Publish(events.Subject(s.config.EventsTopic, id, events.TypeUserDeleted), event); err != nil {
		s.log.Warn().Err(err).Str("user_id", id).Msg("Failed to publish user deletion")
	}

	s.log.Info().Str("user_id", id).Msg("User deleted")
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
