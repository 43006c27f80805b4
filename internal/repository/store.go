package repository

import (
	"context"
	"errors"

	"github.com/zhouzirui/companionbot/backend/internal/model/chat"
	"github.com/zhouzirui/companionbot/backend/internal/model/user"
)

// DefaultHistoryLimit is used when a caller asks for a non-positive number of turns.
const DefaultHistoryLimit = 50

var (
	ErrUsernameRequired = errors.New("username is required")
	ErrUserExists       = errors.New("username already exists")
	ErrUserNotFound     = errors.New("user not found")
)

// TurnStore persists chat turns per user.
//
// History returns at most limit turns, the most recent ones, ordered oldest first by
// (Timestamp, Seq). Append never deduplicates or merges. Clear reports the exact number
// of turns removed.
type TurnStore interface {
	Append(ctx context.Context, turn chat.Turn) error
	History(ctx context.Context, username string, limit int) ([]chat.Turn, error)
	Clear(ctx context.Context, username string) (int64, error)
}

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, u user.User) error
	FindByUsername(ctx context.Context, username string) (user.User, error)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return limit
}

// reverseTurns flips a newest-first selection into chronological order.
func reverseTurns(turns []chat.Turn) {
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
}
