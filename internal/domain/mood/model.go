// internal/domain/mood/model.go

package mood

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Mood is a self-reported emotional state
type Mood int

// The declaration order is significant: it breaks ties for the most frequent mood.
const (
	Excited Mood = iota + 1
	Happy
	Calm
	Neutral
	Stressed
	Sad
	Angry
	Anxious
)

var (
	// ErrUnknownMood is returned for a mood outside the fixed set
	ErrUnknownMood = errors.New("unknown mood")

	// ErrEmptyWindow is returned when insights are requested for a window with no entries
	ErrEmptyWindow = errors.New("no mood entries in window")
)

var moodNames = map[Mood]string{
	Excited:  "Excited",
	Happy:    "Happy",
	Calm:     "Calm",
	Neutral:  "Neutral",
	Stressed: "Stressed",
	Sad:      "Sad",
	Angry:    "Angry",
	Anxious:  "Anxious",
}

// All returns every mood in declaration order
func All() []Mood {
	return []Mood{Excited, Happy, Calm, Neutral, Stressed, Sad, Angry, Anxious}
}

// ParseMood converts a display name into a Mood
func ParseMood(s string) (Mood, error) {
	name := strings.TrimSpace(s)
	for _, m := range All() {
		if strings.EqualFold(moodNames[m], name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMood, s)
}

// Valid reports whether m is one of the fixed moods
func (m Mood) Valid() bool {
	return m >= Excited && m <= Anxious
}

// String returns the display name, or an empty string for an invalid mood
func (m Mood) String() string {
	return moodNames[m]
}

// MarshalText encodes the mood by display name, which also covers JSON map keys
func (m Mood) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMood, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText decodes a display name
func (m *Mood) UnmarshalText(text []byte) error {
	parsed, err := ParseMood(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Entry is a single mood journal record
type Entry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Mood       Mood      `json:"mood"`
	Activities []string  `json:"activities"`
	Notes      string    `json:"notes"`
	Timestamp  time.Time `json:"timestamp"`
}

// Statistics summarises the entries of one window.
// MoodCounts and MoodPercentages only contain moods that occurred.
type Statistics struct {
	TotalEntries     int          `json:"total_entries"`
	MoodCounts       map[Mood]int `json:"mood_counts"`
	MoodPercentages  map[Mood]int `json:"mood_percentages"`
	MostFrequentMood Mood         `json:"-"`
}

// HasMostFrequent reports whether a most frequent mood is defined
func (s Statistics) HasMostFrequent() bool {
	return s.MostFrequentMood.Valid()
}

// Insight is the human readable form of Statistics
type Insight struct {
	Summary         string `json:"summary"`
	PredominantMood string `json:"predominant_mood"`
	Recommendation  string `json:"recommendation"`
}

// Window is the time range entries are aggregated over
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
	Days int       `json:"days"`
}

// LastDays returns the window ending at now and covering the given number of days
func LastDays(now time.Time, days int) Window {
	return Window{
		From: now.AddDate(0, 0, -days),
		To:   now,
		Days: days,
	}
}

// Contains reports whether t falls inside the window, both ends inclusive
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}
