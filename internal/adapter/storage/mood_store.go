// internal/adapter/storage/mood_store.go

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"connectr/internal/domain/mood"
)

// MoodStore implements storage for mood entries
type MoodStore struct {
	db *pgxpool.Pool
}

// NewMoodStore creates a new mood store
func NewMoodStore(db *pgxpool.Pool) *MoodStore {
	return &MoodStore{
		db: db,
	}
}

// SaveEntry inserts a mood entry. Entries are immutable, so there is no update path.
func (s *MoodStore) SaveEntry(ctx context.Context, e mood.Entry) error {
	query := `
		INSERT INTO mood_entries (id, user_id, mood, activities, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	activities := e.Activities
	if activities == nil {
		activities = []string{}
	}

	_, err := s.db.Exec(ctx, query, e.ID, e.UserID, e.Mood.String(), activities, e.Notes, e.Timestamp)
	if err != nil {
		return fmt.Errorf("error inserting mood entry: %w", err)
	}

	return nil
}

// ListEntries returns a user's entries with from <= timestamp <= to, newest first
func (s *MoodStore) ListEntries(ctx context.Context, userID string, from, to time.Time) ([]mood.Entry, error) {
	query := `
		SELECT id, user_id, mood, activities, notes, created_at
		FROM mood_entries
		WHERE user_id = $1 AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at DESC
	`

	rows, err := s.db.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var entries []mood.Entry
	for rows.Next() {
		var e mood.Entry
		var moodName string

		if err := rows.Scan(&e.ID, &e.UserID, &moodName, &e.Activities, &e.Notes, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}

		m, err := mood.ParseMood(moodName)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.ID, err)
		}
		e.Mood = m

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return entries, nil
}

// DeleteEntriesForUser removes all of a user's entries
func (s *MoodStore) DeleteEntriesForUser(ctx context.Context, userID string) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM mood_entries WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("error deleting mood entries: %w", err)
	}
	return tag.RowsAffected(), nil
}
