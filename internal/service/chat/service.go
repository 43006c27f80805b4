package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/zhouzirui/companionbot/backend/internal/model/chat"
	"github.com/zhouzirui/companionbot/backend/internal/repository"
	"github.com/zhouzirui/companionbot/backend/internal/service/ai"
	"github.com/zhouzirui/companionbot/backend/internal/service/sentiment"
)

var (
	ErrIdentityRequired = errors.New("username is required")
	ErrMessageRequired  = errors.New("message is required")
	ErrMessageTooLong   = errors.New("message is too long")
	ErrTurnFailed       = errors.New("failed to process message")
)

// DefaultMaxMessageLength bounds a single user message in runes.
const DefaultMaxMessageLength = 4000

// SentimentClassifier labels a user message.
type SentimentClassifier interface {
	Classify(ctx context.Context, text string) sentiment.Result
}

// ReplyGenerator produces the bot reply for a classified message.
type ReplyGenerator interface {
	Generate(ctx context.Context, userText string, label chat.SentimentLabel, identity string) ai.Reply
}

// Config tunes validation and history defaults.
type Config struct {
	MaxMessageLength int
	HistoryLimit     int
}

// Service runs chat turns: classify, generate, persist.
type Service struct {
	classifier SentimentClassifier
	generator  ReplyGenerator
	store      repository.TurnStore
	clock      *Clock
	newID      func() string

	maxMessageLength int
	historyLimit     int
}

// NewService wires the turn pipeline.
func NewService(classifier SentimentClassifier, generator ReplyGenerator, store repository.TurnStore, cfg Config) *Service {
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = DefaultMaxMessageLength
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = repository.DefaultHistoryLimit
	}
	return &Service{
		classifier:       classifier,
		generator:        generator,
		store:            store,
		clock:            NewClock(),
		newID:            uuid.NewString,
		maxMessageLength: cfg.MaxMessageLength,
		historyLimit:     cfg.HistoryLimit,
	}
}

// Submit runs one full turn and persists it. Nothing is stored when any stage fails.
func (s *Service) Submit(ctx context.Context, username, message string) (chat.Turn, error) {
	turn, err := s.Compose(ctx, username, message)
	if err != nil {
		return chat.Turn{}, err
	}

	if err := s.store.Append(ctx, turn); err != nil {
		log.Printf("[chat] persist turn failed for user=%s: %v", username, err)
		return chat.Turn{}, fmt.Errorf("%w: %w", ErrTurnFailed, err)
	}

	log.Printf("[chat] turn %s stored for user=%s, sentiment=%s", turn.ID, username, turn.Sentiment)
	return turn, nil
}

// Compose classifies message and generates the reply without persisting anything.
func (s *Service) Compose(ctx context.Context, username, message string) (turn chat.Turn, err error) {
	if err := s.validate(username, message); err != nil {
		return chat.Turn{}, err
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[chat] turn pipeline panic for user=%s: %v", username, r)
			turn, err = chat.Turn{}, fmt.Errorf("%w: panic: %v", ErrTurnFailed, r)
		}
	}()

	result := s.classifier.Classify(ctx, message)
	reply := s.generator.Generate(ctx, message, result.Label, username)

	return chat.Turn{
		ID:             s.newID(),
		Username:       username,
		UserMessage:    message,
		BotResponse:    reply.Text,
		Sentiment:      result.Label,
		SentimentScore: result.Score,
		Timestamp:      s.clock.Now(),
	}, nil
}

// History returns up to limit most recent turns, oldest first. limit <= 0 uses the default.
func (s *Service) History(ctx context.Context, username string, limit int) ([]chat.Turn, error) {
	if username == "" {
		return nil, ErrIdentityRequired
	}
	if limit <= 0 {
		limit = s.historyLimit
	}
	turns, err := s.store.History(ctx, username, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return turns, nil
}

// Clear deletes all turns of username and returns how many were removed.
func (s *Service) Clear(ctx context.Context, username string) (int64, error) {
	if username == "" {
		return 0, ErrIdentityRequired
	}
	n, err := s.store.Clear(ctx, username)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	log.Printf("[chat] cleared %d turns for user=%s", n, username)
	return n, nil
}

func (s *Service) validate(username, message string) error {
	if username == "" {
		return ErrIdentityRequired
	}
	if strings.TrimSpace(message) == "" {
		return ErrMessageRequired
	}
	if utf8.RuneCountInString(message) > s.maxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}
