package sentiment

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	analysis "github.com/zhouzirui/companionbot/backend/internal/analysis/sentiment"
	"github.com/zhouzirui/companionbot/backend/internal/model/chat"
)

type fakeModel struct {
	mu         sync.Mutex
	prediction Prediction
	err        error
	panicMsg   string
	seen       []string
}

func (f *fakeModel) Predict(_ context.Context, text string) (Prediction, error) {
	f.mu.Lock()
	f.seen = append(f.seen, text)
	f.mu.Unlock()
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.prediction, f.err
}

func countingLoader(model Model, err error, calls *atomic.Int32) Loader {
	return func(context.Context) (Model, error) {
		calls.Add(1)
		if err != nil {
			return nil, err
		}
		return model, nil
	}
}

func TestClassifyWithoutModelUsesHeuristic(t *testing.T) {
	c := NewClassifier(nil, Config{})
	ctx := context.Background()

	cases := []struct {
		text  string
		label chat.SentimentLabel
		score float64
	}{
		{"I feel sad but also happy", chat.Neutral, 0.5},
		{"I am anxious about tomorrow", chat.Negative, 0.7},
		{"I am grateful for today", chat.Positive, 0.7},
		{"", chat.Neutral, 0.5},
	}
	for _, tc := range cases {
		got := c.Classify(ctx, tc.text)
		if got.Label != tc.label || got.Score != tc.score {
			t.Fatalf("Classify(%q) = %s/%f, want %s/%f", tc.text, got.Label, got.Score, tc.label, tc.score)
		}
		if got.Strategy != chat.Fallback {
			t.Fatalf("expected fallback strategy, got %s", got.Strategy)
		}
	}
	if c.Mode() != "heuristic" {
		t.Fatalf("expected heuristic mode, got %s", c.Mode())
	}
}

func TestClassifyUsesModelAndNormalizes(t *testing.T) {
	var calls atomic.Int32
	model := &fakeModel{prediction: Prediction{Label: "LABEL_1", Score: 0.98}}
	c := NewClassifier(countingLoader(model, nil, &calls), Config{})

	got := c.Classify(context.Background(), "what a day")
	if got.Label != chat.Positive || got.Score != 0.98 || got.Strategy != chat.Primary {
		t.Fatalf("unexpected result: %+v", got)
	}
	if c.Mode() != "model" {
		t.Fatalf("expected model mode, got %s", c.Mode())
	}
}

func TestClassifyLoadsModelOnceUnderConcurrency(t *testing.T) {
	var calls atomic.Int32
	model := &fakeModel{prediction: Prediction{Label: "NEGATIVE", Score: 0.9}}
	c := NewClassifier(countingLoader(model, nil, &calls), Config{})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Classify(context.Background(), "rough day")
		}()
	}
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("expected loader to run once, ran %d times", n)
	}
}

func TestClassifyLoadFailureIsPermanent(t *testing.T) {
	var calls atomic.Int32
	c := NewClassifier(countingLoader(nil, errors.New("weights missing"), &calls), Config{})

	for i := 0; i < 3; i++ {
		got := c.Classify(context.Background(), "I feel so anxious today")
		if got.Label != chat.Negative || got.Score != 0.7 {
			t.Fatalf("expected heuristic NEGATIVE/0.7, got %+v", got)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected no retry of initialisation, loader ran %d times", n)
	}
	if c.Mode() != "heuristic" {
		t.Fatalf("expected heuristic mode, got %s", c.Mode())
	}
}

func TestClassifyLoaderPanicFallsBack(t *testing.T) {
	loader := func(context.Context) (Model, error) { panic("boom") }
	c := NewClassifier(loader, Config{})

	got := c.Classify(context.Background(), "I am grateful")
	if got.Label != chat.Positive {
		t.Fatalf("expected heuristic POSITIVE, got %+v", got)
	}
}

func TestClassifyPredictErrorIsNeutral(t *testing.T) {
	var calls atomic.Int32
	model := &fakeModel{err: errors.New("inference failed")}
	c := NewClassifier(countingLoader(model, nil, &calls), Config{})

	// Model errors do not fall through to keywords.
	got := c.Classify(context.Background(), "I feel so anxious today")
	if got.Label != chat.Neutral || got.Score != 0.5 {
		t.Fatalf("expected NEUTRAL/0.5, got %+v", got)
	}
}

func TestClassifyPredictPanicIsNeutral(t *testing.T) {
	var calls atomic.Int32
	model := &fakeModel{panicMsg: "tensor shape"}
	c := NewClassifier(countingLoader(model, nil, &calls), Config{})

	got := c.Classify(context.Background(), "hello")
	if got.Label != chat.Neutral || got.Score != 0.5 {
		t.Fatalf("expected NEUTRAL/0.5, got %+v", got)
	}
}

func TestClassifyTruncatesModelInput(t *testing.T) {
	var calls atomic.Int32
	model := &fakeModel{prediction: Prediction{Label: "NEUTRAL", Score: 0.6}}
	c := NewClassifier(countingLoader(model, nil, &calls), Config{})

	c.Classify(context.Background(), strings.Repeat("a", 2000))

	if len(model.seen) != 1 {
		t.Fatalf("expected one prediction, got %d", len(model.seen))
	}
	if n := len([]rune(model.seen[0])); n != analysis.MaxInputRunes {
		t.Fatalf("expected %d runes sent to model, got %d", analysis.MaxInputRunes, n)
	}
}

func TestClassifyAlwaysInRange(t *testing.T) {
	var calls atomic.Int32
	inputs := []Prediction{
		{Label: "weird", Score: 3},
		{Label: "neg", Score: -1},
		{Label: "Positive", Score: math.NaN()},
	}
	for _, p := range inputs {
		model := &fakeModel{prediction: p}
		c := NewClassifier(countingLoader(model, nil, &calls), Config{})
		got := c.Classify(context.Background(), "text")
		if !got.Label.Valid() {
			t.Fatalf("label outside closed set: %s", got.Label)
		}
		if got.Score < 0 || got.Score > 1 {
			t.Fatalf("score out of range: %f", got.Score)
		}
	}
}

func TestNormalizeLabel(t *testing.T) {
	cases := map[string]chat.SentimentLabel{
		"POSITIVE": chat.Positive,
		"positive": chat.Positive,
		"LABEL_1":  chat.Positive,
		"NEGATIVE": chat.Negative,
		"neg":      chat.Negative,
		"LABEL_0":  chat.Negative,
		"NEUTRAL":  chat.Neutral,
		"mixed":    chat.Neutral,
		"":         chat.Neutral,
	}
	for raw, want := range cases {
		if got := NormalizeLabel(raw); got != want {
			t.Fatalf("NormalizeLabel(%q) = %s, want %s", raw, got, want)
		}
	}
}
