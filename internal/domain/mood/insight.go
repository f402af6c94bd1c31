// internal/domain/mood/insight.go

package mood

import "fmt"

const defaultRecommendation = "Take care of yourself."

// GenerateInsight turns statistics for a window of windowDays into display strings
func GenerateInsight(stats Statistics, windowDays int) (Insight, error) {
	if stats.TotalEntries == 0 || !stats.HasMostFrequent() {
		return Insight{}, ErrEmptyWindow
	}

	return Insight{
		Summary:         fmt.Sprintf("Over the %s, you've logged %d moods.", describeWindow(windowDays), stats.TotalEntries),
		PredominantMood: fmt.Sprintf("Your most frequent mood was %s.", stats.MostFrequentMood),
		Recommendation:  Recommendation(stats.MostFrequentMood),
	}, nil
}

func describeWindow(days int) string {
	switch days {
	case 1:
		return "past day"
	case 7:
		return "past week"
	default:
		return fmt.Sprintf("past %d days", days)
	}
}

// Recommendation returns the fixed suggestion for a mood
func Recommendation(m Mood) string {
	switch m {
	case Excited:
		return "Great energy! Channel it into productive activities."
	case Happy:
		return "Maintain your positive mindset and spread joy."
	case Calm:
		return "Continue practicing mindfulness and self-care."
	case Neutral:
		return "Explore activities that might boost your mood."
	case Stressed:
		return "Consider meditation, exercise, or talking to a friend."
	case Sad:
		return "Reach out to loved ones or consider professional support."
	case Angry:
		return "Practice deep breathing and find healthy outlets."
	case Anxious:
		return "Try grounding techniques and limit stressors."
	default:
		return defaultRecommendation
	}
}
