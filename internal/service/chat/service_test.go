package chat_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	modelchat "github.com/zhouzirui/companionbot/backend/internal/model/chat"
	"github.com/zhouzirui/companionbot/backend/internal/repository"
	"github.com/zhouzirui/companionbot/backend/internal/service/ai"
	chat "github.com/zhouzirui/companionbot/backend/internal/service/chat"
	"github.com/zhouzirui/companionbot/backend/internal/service/sentiment"
)

func newOfflineService(store repository.TurnStore) *chat.Service {
	classifier := sentiment.NewClassifier(nil, sentiment.Config{})
	generator := ai.NewGenerator(nil, ai.GeneratorConfig{})
	return chat.NewService(classifier, generator, store, chat.Config{})
}

func TestSubmitOfflineEndToEnd(t *testing.T) {
	store := repository.NewMemoryTurnStore()
	svc := newOfflineService(store)
	ctx := context.Background()

	turn, err := svc.Submit(ctx, "alice", "I feel so anxious today")
	if err != nil {
		t.Fatalf("Submit err: %v", err)
	}
	if turn.Sentiment != modelchat.Negative || turn.SentimentScore != 0.7 {
		t.Fatalf("unexpected sentiment: %s %.2f", turn.Sentiment, turn.SentimentScore)
	}
	if turn.BotResponse != ai.FallbackReply {
		t.Fatalf("expected fallback reply, got %q", turn.BotResponse)
	}
	if turn.ID == "" || turn.Timestamp.IsZero() {
		t.Fatalf("turn missing id or timestamp: %+v", turn)
	}

	history, err := svc.History(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("History err: %v", err)
	}
	if len(history) != 1 || history[0].ID != turn.ID || history[0].UserMessage != "I feel so anxious today" {
		t.Fatalf("turn not retrievable: %+v", history)
	}
}

func TestSubmitOrdersTurnsChronologically(t *testing.T) {
	svc := newOfflineService(repository.NewMemoryTurnStore())
	ctx := context.Background()

	for _, msg := range []string{"first", "second", "third"} {
		if _, err := svc.Submit(ctx, "alice", msg); err != nil {
			t.Fatalf("Submit err: %v", err)
		}
	}
	history, _ := svc.History(ctx, "alice", 10)
	if len(history) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(history))
	}
	for i, want := range []string{"first", "second", "third"} {
		if history[i].UserMessage != want {
			t.Fatalf("position %d: got %q want %q", i, history[i].UserMessage, want)
		}
		if i > 0 && history[i].Timestamp.Before(history[i-1].Timestamp) {
			t.Fatalf("timestamps decrease at %d", i)
		}
	}
}

func TestSubmitValidation(t *testing.T) {
	svc := chat.NewService(
		sentiment.NewClassifier(nil, sentiment.Config{}),
		ai.NewGenerator(nil, ai.GeneratorConfig{}),
		repository.NewMemoryTurnStore(),
		chat.Config{MaxMessageLength: 5},
	)
	ctx := context.Background()

	cases := []struct {
		name     string
		username string
		message  string
		want     error
	}{
		{"no identity", "", "hello", chat.ErrIdentityRequired},
		{"empty message", "alice", "", chat.ErrMessageRequired},
		{"blank message", "alice", "  \n\t", chat.ErrMessageRequired},
		{"too long", "alice", "ééééééé", chat.ErrMessageTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Submit(ctx, tc.username, tc.message); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if _, err := svc.Submit(ctx, "alice", "ééééé"); err != nil {
		t.Fatalf("message at the rune limit should pass: %v", err)
	}
}

type failingStore struct {
	repository.TurnStore
	appendErr error
}

func (s failingStore) Append(context.Context, modelchat.Turn) error { return s.appendErr }

func TestSubmitStoreFailureReportsTurnFailed(t *testing.T) {
	cause := errors.New("connection reset")
	inner := repository.NewMemoryTurnStore()
	svc := newOfflineService(failingStore{TurnStore: inner, appendErr: cause})

	_, err := svc.Submit(context.Background(), "alice", "hello")
	if !errors.Is(err, chat.ErrTurnFailed) || !errors.Is(err, cause) {
		t.Fatalf("expected ErrTurnFailed wrapping cause, got %v", err)
	}
	if history, _ := inner.History(context.Background(), "alice", 10); len(history) != 0 {
		t.Fatalf("partial turn persisted: %+v", history)
	}
}

type panickingGenerator struct{}

func (panickingGenerator) Generate(context.Context, string, modelchat.SentimentLabel, string) ai.Reply {
	panic("generator exploded")
}

func TestSubmitRecoversPipelinePanic(t *testing.T) {
	store := repository.NewMemoryTurnStore()
	svc := chat.NewService(sentiment.NewClassifier(nil, sentiment.Config{}), panickingGenerator{}, store, chat.Config{})

	_, err := svc.Submit(context.Background(), "alice", "hello")
	if !errors.Is(err, chat.ErrTurnFailed) {
		t.Fatalf("expected ErrTurnFailed, got %v", err)
	}
	if history, _ := store.History(context.Background(), "alice", 10); len(history) != 0 {
		t.Fatal("turn persisted after panic")
	}
}

type recordingGenerator struct {
	label    modelchat.SentimentLabel
	identity string
}

func (g *recordingGenerator) Generate(_ context.Context, _ string, label modelchat.SentimentLabel, identity string) ai.Reply {
	g.label, g.identity = label, identity
	return ai.Reply{Text: "Congratulations!", Strategy: modelchat.Primary}
}

func TestComposeDoesNotPersist(t *testing.T) {
	store := repository.NewMemoryTurnStore()
	gen := &recordingGenerator{}
	svc := chat.NewService(sentiment.NewClassifier(nil, sentiment.Config{}), gen, store, chat.Config{})

	turn, err := svc.Compose(context.Background(), "bob", "I got the job, I'm so happy")
	if err != nil {
		t.Fatalf("Compose err: %v", err)
	}
	if gen.label != modelchat.Positive || gen.identity != "bob" {
		t.Fatalf("generator got label=%s identity=%s", gen.label, gen.identity)
	}
	if turn.BotResponse != "Congratulations!" {
		t.Fatalf("unexpected reply %q", turn.BotResponse)
	}
	if history, _ := store.History(context.Background(), "bob", 10); len(history) != 0 {
		t.Fatal("Compose must not persist")
	}
}

func TestClearAndIsolation(t *testing.T) {
	svc := newOfflineService(repository.NewMemoryTurnStore())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = svc.Submit(ctx, "alice", strings.Repeat("a", i+1))
	}
	_, _ = svc.Submit(ctx, "bob", "hi")

	n, err := svc.Clear(ctx, "alice")
	if err != nil || n != 3 {
		t.Fatalf("Clear: n=%d err=%v", n, err)
	}
	if history, _ := svc.History(ctx, "alice", 0); len(history) != 0 {
		t.Fatalf("alice history not empty: %d", len(history))
	}
	if history, _ := svc.History(ctx, "bob", 0); len(history) != 1 {
		t.Fatalf("bob history affected: %d", len(history))
	}
	if _, err := svc.Clear(ctx, ""); !errors.Is(err, chat.ErrIdentityRequired) {
		t.Fatalf("expected ErrIdentityRequired, got %v", err)
	}
}

func TestClockNeverGoesBackwards(t *testing.T) {
	clock := chat.NewClock()
	prev := clock.Now()
	for i := 0; i < 1000; i++ {
		now := clock.Now()
		if now.Before(prev) {
			t.Fatalf("clock went backwards: %v < %v", now, prev)
		}
		if now.Location() != time.UTC {
			t.Fatalf("clock not in UTC: %v", now.Location())
		}
		prev = now
	}
}
