// internal/domain/events/events.go

package events

import (
	"strings"
	"time"
)

// Event types
const (
	TypeMoodRecorded           = "recorded"
	TypeLocationUpdated        = "updated"
	TypePasswordResetRequested = "password_reset_requested"
	TypeUserDeleted            = "deleted"
)

// LocationTopic is the subject prefix for location events
const LocationTopic = "location"

// Event is published to the event bus whenever user data changes
type Event struct {
	Type   string      `json:"type"`
	UserID string      `json:"user_id"`
	Time   time.Time   `json:"time"`
	Data   interface{} `json:"data,omitempty"`
}

// Publisher publishes events to subscribers
type Publisher interface {
	Publish(subject string, event Event) error
}

// Subject builds "<topic>.<userID>.<eventType>"
func Subject(topic, userID, eventType string) string {
	return strings.Join([]string{topic, userID, eventType}, ".")
}

// UserSubjects returns the wildcard subjects carrying a user's own activity
func UserSubjects(userID string, topics ...string) []string {
	subjects := make([]string, 0, len(topics))
	for _, topic := range topics {
		subjects = append(subjects, topic+"."+userID+".>")
	}
	return subjects
}
