// internal/service/mood/service.go

package mood

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"connectr/internal/domain/events"
	"connectr/internal/domain/mood"
	"connectr/internal/validation"
)

var (
	// ErrInvalidEntry is returned for entries that break the journal limits
	ErrInvalidEntry = errors.New("invalid mood entry")

	// ErrInvalidWindow is returned for a non-positive or oversized day window
	ErrInvalidWindow = errors.New("invalid window")
)

// EntryStore defines the storage interface for mood entries
type EntryStore interface {
	// SaveEntry stores a new entry
	SaveEntry(ctx context.Context, entry mood.Entry) error

	// ListEntries returns a user's entries inside [from, to], newest first
	ListEntries(ctx context.Context, userID string, from, to time.Time) ([]mood.Entry, error)

	// DeleteEntriesForUser removes all of a user's entries
	DeleteEntriesForUser(ctx context.Context, userID string) (int64, error)
}

// NotesCipher seals notes before they reach storage
type NotesCipher interface {
	EncryptString(s string) (string, error)
	DecryptString(s string) (string, error)
}

// Config contains configuration for the mood service
type Config struct {
	DefaultWindowDays int
	MaxWindowDays     int
	MaxNotesLength    int
	MaxActivities     int
	EventsTopic       string
}

// Service records mood entries and derives statistics and insights from them
type Service struct {
	store     EntryStore
	cipher    NotesCipher
	publisher events.Publisher
	config    Config
	log       zerolog.Logger
	now       func() time.Time
}

// NewService creates a new mood service
func NewService(
	store EntryStore,
	cipher NotesCipher,
	publisher events.Publisher,
	config Config,
	log zerolog.Logger,
) *Service {
	return &Service{
		store:     store,
		cipher:    cipher,
		publisher: publisher,
		config:    config,
		log:       log.With().Str("component", "mood_service").Logger(),
		now:       time.Now,
	}
}

// RecordRequest is a new journal entry as submitted by a user
type RecordRequest struct {
	Mood       mood.Mood `json:"mood"`
	Activities []string  `json:"activities"`
	Notes      string    `json:"notes"`
}

// RecordMood stores a new entry for userID
func (s *Service) RecordMood(ctx context.Context, userID string, req RecordRequest) (*mood.Entry, error) {
	if !req.Mood.Valid() {
		return nil, mood.ErrUnknownMood
	}

	activities, err := s.cleanActivities(req.Activities)
	if err != nil {
		return nil, err
	}

	notes := strings.TrimSpace(req.Notes)
	if len([]rune(notes)) > s.config.MaxNotesLength {
		return nil, fmt.Errorf("%w: notes longer than %d characters", ErrInvalidEntry, s.config.MaxNotesLength)
	}

	entry := mood.Entry{
		ID:         uuid.New().String(),
		UserID:     userID,
		Mood:       req.Mood,
		Activities: activities,
		Notes:      notes,
		Timestamp:  s.now().UTC(),
	}

	stored := entry
	if notes != "" {
		sealed, err := s.cipher.EncryptString(notes)
		if err != nil {
			return nil, fmt.Errorf("error encrypting notes: %w", err)
		}
		stored.Notes = sealed
	}

	if err := s.store.SaveEntry(ctx, stored); err != nil {
		return nil, fmt.Errorf("error saving mood entry: %w", err)
	}

	// Subscribers only need the mood, not the private notes
	event := events.Event{
		Type:   events.TypeMoodRecorded,
		UserID: userID,
		Time:   entry.Timestamp,
		Data: map[string]interface{}{
			"id":         entry.ID,
			"mood":       entry.Mood,
			"activities": entry.Activities,
		},
	}
	if err := s.publisher.Publish(events.Subject(s.config.EventsTopic, userID, events.TypeMoodRecorded), event); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to publish mood event")
	}

	return &entry, nil
}

// History returns the user's entries for the last days days, newest first, with notes decrypted
func (s *Service) History(ctx context.Context, userID string, days int) ([]mood.Entry, mood.Window, error) {
	window, err := s.window(days)
	if err != nil {
		return nil, mood.Window{}, err
	}

	entries, err := s.store.ListEntries(ctx, userID, window.From, window.To)
	if err != nil {
		return nil, mood.Window{}, fmt.Errorf("error listing mood entries: %w", err)
	}

	for i := range entries {
		if entries[i].Notes == "" {
			continue
		}
		plain, err := s.cipher.DecryptString(entries[i].Notes)
		if err != nil {
			return nil, mood.Window{}, fmt.Errorf("entry %s: %w", entries[i].ID, err)
		}
		entries[i].Notes = plain
	}

	if entries == nil {
		entries = []mood.Entry{}
	}

	return entries, window, nil
}

// Statistics aggregates the user's entries for the last days days
func (s *Service) Statistics(ctx context.Context, userID string, days int) (mood.Statistics, error) {
	window, err := s.window(days)
	if err != nil {
		return mood.Statistics{}, err
	}

	// Aggregation never looks at notes, so skip decrypting them
	entries, err := s.store.ListEntries(ctx, userID, window.From, window.To)
	if err != nil {
		return mood.Statistics{}, fmt.Errorf("error listing mood entries: %w", err)
	}

	return mood.Aggregate(entries)
}

// Insights summarises the user's last days days in words
func (s *Service) Insights(ctx context.Context, userID string, days int) (mood.Insight, error) {
	if days == 0 {
		days = s.config.DefaultWindowDays
	}

	stats, err := s.Statistics(ctx, userID, days)
	if err != nil {
		return mood.Insight{}, err
	}

	return mood.GenerateInsight(stats, days)
}

// DeleteForUser removes every entry belonging to the user
func (s *Service) DeleteForUser(ctx context.Context, userID string) error {
	n, err := s.store.DeleteEntriesForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("error deleting mood entries: %w", err)
	}

	s.log.Info().Str("user_id", userID).Int64("entries", n).Msg("Deleted mood entries")
	return nil
}

// window resolves a day count, 0 meaning the configured default
func (s *Service) window(days int) (mood.Window, error) {
	if days == 0 {
		days = s.config.DefaultWindowDays
	}
	if days < 0 || days > s.config.MaxWindowDays {
		return mood.Window{}, fmt.Errorf("%w: days must be between 1 and %d", ErrInvalidWindow, s.config.MaxWindowDays)
	}
	return mood.LastDays(s.now().UTC(), days), nil
}

func (s *Service) cleanActivities(in []string) ([]string, error) {
	if len(in) > s.config.MaxActivities {
		return nil, fmt.Errorf("%w: at most %d activities", ErrInvalidEntry, s.config.MaxActivities)
	}

	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, a := range in {
		a = validation.SanitizeInput(a)
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out, nil
}
