package sentiment

import (
	"strings"
	"testing"

	"github.com/zhouzirui/companionbot/backend/internal/model/chat"
)

func TestAnalyzeTieIsNeutral(t *testing.T) {
	decision := Analyze("I was sad this morning but happy now")
	if decision.Label != chat.Neutral {
		t.Fatalf("expected NEUTRAL, got %s", decision.Label)
	}
	if decision.Score != 0.5 {
		t.Fatalf("expected score 0.5, got %f", decision.Score)
	}
}

func TestAnalyzeAnxiousIsNegative(t *testing.T) {
	decision := Analyze("I feel so anxious today")
	if decision.Label != chat.Negative || decision.Score != 0.7 {
		t.Fatalf("expected NEGATIVE/0.7, got %s/%f", decision.Label, decision.Score)
	}
}

func TestAnalyzeGratefulIsPositive(t *testing.T) {
	decision := Analyze("I am grateful for my friends")
	if decision.Label != chat.Positive || decision.Score != 0.7 {
		t.Fatalf("expected POSITIVE/0.7, got %s/%f", decision.Label, decision.Score)
	}
}

func TestAnalyzeEmptyIsNeutral(t *testing.T) {
	decision := Analyze("")
	if decision.Label != chat.Neutral || decision.Score != 0.5 {
		t.Fatalf("expected NEUTRAL/0.5, got %s/%f", decision.Label, decision.Score)
	}
}

func TestAnalyzeIsCaseInsensitive(t *testing.T) {
	decision := Analyze("LONELY and SCARED")
	if decision.Label != chat.Negative {
		t.Fatalf("expected NEGATIVE, got %s", decision.Label)
	}
}

func TestAnalyzeCountsEachKeywordOnce(t *testing.T) {
	// "sad" three times still loses to two distinct positive words.
	decision := Analyze("sad sad sad, but happy and grateful")
	if decision.Label != chat.Positive {
		t.Fatalf("expected POSITIVE, got %s", decision.Label)
	}
}

func TestAnalyzeIgnoresTextBeyondLimit(t *testing.T) {
	text := strings.Repeat("x", MaxInputRunes) + " anxious"
	decision := Analyze(text)
	if decision.Label != chat.Neutral {
		t.Fatalf("expected keywords past the limit to be ignored, got %s", decision.Label)
	}
}

func TestTruncateCountsRunes(t *testing.T) {
	text := strings.Repeat("é", MaxInputRunes+10)
	got := Truncate(text)
	if n := len([]rune(got)); n != MaxInputRunes {
		t.Fatalf("expected %d runes, got %d", MaxInputRunes, n)
	}
	if short := Truncate("hello"); short != "hello" {
		t.Fatalf("short text changed: %q", short)
	}
}
