package bootstrap

import (
	"context"
	"testing"

	"github.com/zhouzirui/companionbot/backend/internal/config"
)

func TestOpenMemoryStores(t *testing.T) {
	stores, err := OpenStores(context.Background(), config.StoreConfig{Driver: config.DriverMemory})
	if err != nil {
		t.Fatalf("OpenStores err: %v", err)
	}
	defer stores.Close()

	if stores.Turns == nil || stores.Users == nil || stores.Driver != config.DriverMemory {
		t.Fatalf("unexpected stores %+v", stores)
	}
}

func TestOpenStoresRejectsUnknownDriver(t *testing.T) {
	if _, err := OpenStores(context.Background(), config.StoreConfig{Driver: "cassandra"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestNewResponderUnconfigured(t *testing.T) {
	if r := NewResponder(context.Background(), config.AIConfig{Provider: config.ProviderArk}); r != nil {
		t.Fatalf("expected nil responder, got %T", r)
	}
}

func TestNewClassifierDefaultsToHeuristic(t *testing.T) {
	c := NewClassifier(&config.Config{Sentiment: config.SentimentConfig{Model: config.SentimentNone}})
	c.Warm(context.Background())
	if mode := c.Mode(); mode != "heuristic" {
		t.Fatalf("expected heuristic mode, got %s", mode)
	}
}
