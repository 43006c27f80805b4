package sentiment

import (
	"strings"

	"github.com/zhouzirui/companionbot/backend/internal/model/chat"
)

// MaxInputRunes bounds how much of a message is considered for sentiment.
const MaxInputRunes = 512

const (
	// DecisiveScore is reported when one keyword bucket outweighs the other.
	DecisiveScore = 0.7
	// NeutralScore is reported for ties, empty input and model failures.
	NeutralScore = 0.5
)

// Decision is a sentiment label and its confidence.
type Decision struct {
	Label chat.SentimentLabel
	Score float64
}

var keywordBuckets = map[chat.SentimentLabel][]string{
	chat.Negative: {"sad", "depressed", "anxious", "worried", "scared", "lonely", "hurt", "angry", "stressed"},
	chat.Positive: {"happy", "good", "great", "fine", "better", "excited", "joyful", "grateful"},
}

// Analyze scores text against the negative and positive keyword buckets.
// Each keyword counts at most once and matches anywhere in the lowercased text.
func Analyze(text string) Decision {
	normalized := strings.ToLower(Truncate(text))

	negative := countMatches(normalized, keywordBuckets[chat.Negative])
	positive := countMatches(normalized, keywordBuckets[chat.Positive])

	switch {
	case negative > positive:
		return Decision{Label: chat.Negative, Score: DecisiveScore}
	case positive > negative:
		return Decision{Label: chat.Positive, Score: DecisiveScore}
	default:
		return Decision{Label: chat.Neutral, Score: NeutralScore}
	}
}

// Truncate cuts text to MaxInputRunes runes.
func Truncate(text string) string {
	count := 0
	for idx := range text {
		if count == MaxInputRunes {
			return text[:idx]
		}
		count++
	}
	return text
}

func countMatches(normalized string, keywords []string) int {
	if normalized == "" {
		return 0
	}
	matches := 0
	for _, word := range keywords {
		if strings.Contains(normalized, word) {
			matches++
		}
	}
	return matches
}
