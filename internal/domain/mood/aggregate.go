// internal/domain/mood/aggregate.go

package mood

import (
	"encoding/json"
	"fmt"
)

// Aggregate computes Statistics for a set of entries.
// An empty set yields the zero state with empty maps and no most frequent mood.
func Aggregate(entries []Entry) (Statistics, error) {
	stats := Statistics{
		TotalEntries:    len(entries),
		MoodCounts:      make(map[Mood]int),
		MoodPercentages: make(map[Mood]int),
	}

	for _, e := range entries {
		if !e.Mood.Valid() {
			return Statistics{}, fmt.Errorf("entry %s: %w: %d", e.ID, ErrUnknownMood, int(e.Mood))
		}
		stats.MoodCounts[e.Mood]++
	}

	if stats.TotalEntries == 0 {
		return stats, nil
	}

	for m, count := range stats.MoodCounts {
		stats.MoodPercentages[m] = percentage(count, stats.TotalEntries)
	}

	stats.MostFrequentMood = mostFrequent(stats.MoodCounts)

	return stats, nil
}

// percentage rounds count/total*100 half-up using integer arithmetic
func percentage(count, total int) int {
	return (count*200 + total) / (2 * total)
}

// mostFrequent walks moods in declaration order so the earliest declared wins a tie
func mostFrequent(counts map[Mood]int) Mood {
	var best Mood
	bestCount := 0
	for _, m := range All() {
		if counts[m] > bestCount {
			best = m
			bestCount = counts[m]
		}
	}
	return best
}

// MarshalJSON adds most_frequent_mood, null when undefined
func (s Statistics) MarshalJSON() ([]byte, error) {
	type alias Statistics
	var most *string
	if s.HasMostFrequent() {
		name := s.MostFrequentMood.String()
		most = &name
	}
	return json.Marshal(struct {
		alias
		MostFrequentMood *string `json:"most_frequent_mood"`
	}{
		alias:            alias(s),
		MostFrequentMood: most,
	})
}
