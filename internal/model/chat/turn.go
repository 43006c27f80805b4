package chat

import (
	"strings"
	"time"
)

// SentimentLabel is the coarse emotional classification of a user message.
type SentimentLabel string

const (
	Positive SentimentLabel = "POSITIVE"
	Negative SentimentLabel = "NEGATIVE"
	Neutral  SentimentLabel = "NEUTRAL"
)

// Valid reports whether the label belongs to the closed set.
func (l SentimentLabel) Valid() bool {
	switch l {
	case Positive, Negative, Neutral:
		return true
	default:
		return false
	}
}

// ParseSentimentLabel maps arbitrary casing onto the closed set.
func ParseSentimentLabel(raw string) (SentimentLabel, bool) {
	label := SentimentLabel(strings.ToUpper(strings.TrimSpace(raw)))
	if !label.Valid() {
		return Neutral, false
	}
	return label, true
}

// Turn is one user message and the bot reply to it. A persisted turn is never updated.
type Turn struct {
	ID             string         `json:"id"`
	Username       string         `json:"-"`
	UserMessage    string         `json:"user_message"`
	BotResponse    string         `json:"bot_response"`
	Sentiment      SentimentLabel `json:"sentiment"`
	SentimentScore float64        `json:"sentiment_score"`
	Timestamp      time.Time      `json:"timestamp"`
	// Seq is assigned by the store on append and breaks timestamp ties.
	Seq int64 `json:"-"`
}

// Before orders turns by timestamp, then by store sequence.
func (t Turn) Before(other Turn) bool {
	if t.Timestamp.Equal(other.Timestamp) {
		return t.Seq < other.Seq
	}
	return t.Timestamp.Before(other.Timestamp)
}
