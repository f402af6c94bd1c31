// internal/adapter/storage/memory/store.go

package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"connectr/internal/domain/geo"
	"connectr/internal/domain/identity"
	"connectr/internal/domain/mood"
)

// Store keeps users and mood entries in process memory.
// It backs STORAGE_DRIVER=memory and the service tests.
type Store struct {
	mu      sync.RWMutex
	users   map[string]identity.User
	byEmail map[string]string
	entries map[string][]mood.Entry
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users:   make(map[string]identity.User),
		byEmail: make(map[string]string),
		entries: make(map[string][]mood.Entry),
	}
}

// CreateUser stores a new user
func (s *Store) CreateUser(_ context.Context, user identity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[user.Email]; exists {
		return identity.ErrEmailTaken
	}

	s.users[user.ID] = cloneUser(user)
	s.byEmail[user.Email] = user.ID
	return nil
}

// GetUser retrieves a user by ID
func (s *Store) GetUser(_ context.Context, id string) (*identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	u := cloneUser(user)
	return &u, nil
}

// GetUserByEmail retrieves a user by email address
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*identity.User, error) {
	s.mu.RLock()
	id, ok := s.byEmail[email]
	s.mu.RUnlock()

	if !ok {
		return nil, identity.ErrUserNotFound
	}
	return s.GetUser(ctx, id)
}

// UpdateUser saves profile, credential and reset fields. Location has its own update.
func (s *Store) UpdateUser(_ context.Context, user identity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return identity.ErrUserNotFound
	}

	if user.Email != existing.Email {
		if _, taken := s.byEmail[user.Email]; taken {
			return identity.ErrEmailTaken
		}
		delete(s.byEmail, existing.Email)
		s.byEmail[user.Email] = user.ID
	}

	updated := cloneUser(user)
	updated.Location = existing.Location
	updated.LocationUpdatedAt = existing.LocationUpdatedAt
	updated.CreatedAt = existing.CreatedAt
	s.users[user.ID] = updated
	return nil
}

// DeleteUser removes a user
func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return identity.ErrUserNotFound
	}

	delete(s.users, id)
	delete(s.byEmail, user.Email)
	return nil
}

// UpdateLocation sets a user's last known location
func (s *Store) UpdateLocation(_ context.Context, userID string, location geo.Coordinate, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return identity.ErrUserNotFound
	}

	loc := location
	updated := at
	user.Location = &loc
	user.LocationUpdatedAt = &updated
	user.UpdatedAt = at
	s.users[userID] = user
	return nil
}

// UpdateSharing sets a user's location sharing level
func (s *Store) UpdateSharing(_ context.Context, userID string, level identity.LocationSharingLevel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return identity.ErrUserNotFound
	}

	user.LocationSharing = level
	s.users[userID] = user
	return nil
}

// ListLocatedUsers returns users whose location was updated at or after since
func (s *Store) ListLocatedUsers(_ context.Context, since time.Time) ([]identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []identity.User
	for _, user := range s.users {
		if user.Location == nil || user.LocationUpdatedAt == nil || user.LocationUpdatedAt.Before(since) {
			continue
		}
		users = append(users, cloneUser(user))
	}

	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// ClearLocationsBefore forgets locations last updated before the cutoff
func (s *Store) ClearLocationsBefore(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cleared int64
	for id, user := range s.users {
		if user.LocationUpdatedAt != nil && user.LocationUpdatedAt.Before(before) {
			user.Location = nil
			user.LocationUpdatedAt = nil
			s.users[id] = user
			cleared++
		}
	}
	return cleared, nil
}

// SaveEntry appends a mood entry
func (s *Store) SaveEntry(_ context.Context, entry mood.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.Activities = append([]string(nil), entry.Activities...)
	s.entries[entry.UserID] = append(s.entries[entry.UserID], entry)
	return nil
}

// ListEntries returns a user's entries with from <= timestamp <= to, newest first
func (s *Store) ListEntries(_ context.Context, userID string, from, to time.Time) ([]mood.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []mood.Entry
	for _, e := range s.entries[userID] {
		if e.Timestamp.Before(from) || e.Timestamp.After(to) {
			continue
		}
		e.Activities = append([]string(nil), e.Activities...)
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// DeleteEntriesForUser removes all of a user's entries
func (s *Store) DeleteEntriesForUser(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.entries[userID]))
	delete(s.entries, userID)
	return n, nil
}

func cloneUser(u identity.User) identity.User {
	if u.Location != nil {
		loc := *u.Location
		u.Location = &loc
	}
	if u.LocationUpdatedAt != nil {
		t := *u.LocationUpdatedAt
		u.LocationUpdatedAt = &t
	}
	if u.ResetExpiresAt != nil {
		t := *u.ResetExpiresAt
		u.ResetExpiresAt = &t
	}
	return u
}
