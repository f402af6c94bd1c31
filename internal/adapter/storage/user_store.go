// internal/adapter/storage/user_store.go

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"connectr/internal/domain/geo"
	"connectr/internal/domain/identity"
)

const userColumns = `
	id, email, name, photo_url, password_hash,
	latitude, longitude, location_updated_at, location_sharing,
	reset_token_hash, reset_expires_at, created_at, updated_at
`

// UserStore implements storage for users and their locations
type UserStore struct {
	db *pgxpool.Pool
}

// NewUserStore creates a new user store
func NewUserStore(db *pgxpool.Pool) *UserStore {
	return &UserStore{
		db: db,
	}
}

// CreateUser inserts a new user
func (s *UserStore) CreateUser(ctx context.Context, u identity.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	lat, lng := splitLocation(u.Location)

	_, err := s.db.Exec(
		ctx,
		query,
		u.ID,
		u.Email,
		u.Name,
		u.PhotoURL,
		u.PasswordHash,
		lat,
		lng,
		u.LocationUpdatedAt,
		string(u.LocationSharing),
		u.ResetTokenHash,
		u.ResetExpiresAt,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return identity.ErrEmailTaken
		}
		return fmt.Errorf("error inserting user: %w", err)
	}

	return nil
}

// GetUser retrieves a user by ID
func (s *UserStore) GetUser(ctx context.Context, id string) (*identity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.scanUser(s.db.QueryRow(ctx, query, id))
}

// GetUserByEmail retrieves a user by email address
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*identity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return s.scanUser(s.db.QueryRow(ctx, query, email))
}

// UpdateUser saves profile, credential and reset fields. Location has its own update.
func (s *UserStore) UpdateUser(ctx context.Context, u identity.User) error {
	query := `
		UPDATE users
		SET
			email = $2,
			name = $3,
			photo_url = $4,
			password_hash = $5,
			location_sharing = $6,
			reset_token_hash = $7,
			reset_expires_at = $8,
			updated_at = $9
		WHERE id = $1
	`

	tag, err := s.db.Exec(
		ctx,
		query,
		u.ID,
		u.Email,
		u.Name,
		u.PhotoURL,
		u.PasswordHash,
		string(u.LocationSharing),
		u.ResetTokenHash,
		u.ResetExpiresAt,
		u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return identity.ErrEmailTaken
		}
		return fmt.Errorf("error updating user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}

	return nil
}

// DeleteUser deletes a user; mood entries go with it via ON DELETE CASCADE
func (s *UserStore) DeleteUser(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if isMalformedID(err) {
		return identity.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("error deleting user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

// UpdateLocation sets a user's last known location
func (s *UserStore) UpdateLocation(ctx context.Context, userID string, location geo.Coordinate, at time.Time) error {
	query := `
		UPDATE users
		SET latitude = $2, longitude = $3, location_updated_at = $4, updated_at = $4
		WHERE id = $1
	`

	tag, err := s.db.Exec(ctx, query, userID, location.Latitude, location.Longitude, at)
	if err != nil {
		return fmt.Errorf("error updating location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

// UpdateSharing sets a user's location sharing level
func (s *UserStore) UpdateSharing(ctx context.Context, userID string, level identity.LocationSharingLevel) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET location_sharing = $2 WHERE id = $1`, userID, string(level))
	if err != nil {
		return fmt.Errorf("error updating location sharing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

// ListLocatedUsers returns users whose location was updated at or after since
func (s *UserStore) ListLocatedUsers(ctx context.Context, since time.Time) ([]identity.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE location_updated_at >= $1
		  AND latitude IS NOT NULL
		  AND longitude IS NOT NULL
		ORDER BY id
	`

	rows, err := s.db.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var users []identity.User
	for rows.Next() {
		u, err := s.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return users, nil
}

// ClearLocationsBefore forgets locations last updated before the cutoff
func (s *UserStore) ClearLocationsBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `
		UPDATE users
		SET latitude = NULL, longitude = NULL, location_updated_at = NULL
		WHERE location_updated_at < $1
	`

	tag, err := s.db.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("error clearing locations: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *UserStore) scanUser(row pgx.Row) (*identity.User, error) {
	var u identity.User
	var lat, lng *float64
	var sharing string

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PhotoURL,
		&u.PasswordHash,
		&lat,
		&lng,
		&u.LocationUpdatedAt,
		&sharing,
		&u.ResetTokenHash,
		&u.ResetExpiresAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isMalformedID(err) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan error: %w", err)
	}

	if lat != nil && lng != nil {
		u.Location = &geo.Coordinate{Latitude: *lat, Longitude: *lng}
	}
	u.LocationSharing = identity.LocationSharingLevel(sharing)

	return &u, nil
}

func splitLocation(c *geo.Coordinate) (lat, lng *float64) {
	if c == nil {
		return nil, nil
	}
	return &c.Latitude, &c.Longitude
}
