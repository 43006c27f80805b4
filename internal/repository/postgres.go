package repository

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zhouzirui/companionbot/backend/internal/model/chat"
	"github.com/zhouzirui/companionbot/backend/internal/model/user"
)

const pgUniqueViolation = "23505"

// PostgresTurnStore stores turns in the chat_turns table. seq is a BIGSERIAL.
type PostgresTurnStore struct {
	pool *pgxpool.Pool
}

func NewPostgresTurnStore(pool *pgxpool.Pool) *PostgresTurnStore {
	return &PostgresTurnStore{pool: pool}
}

// Append inserts a single turn.
func (r *PostgresTurnStore) Append(ctx context.Context, turn chat.Turn) error {
	if turn.Username == "" {
		return ErrUsernameRequired
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO chat_turns (id, username, user_message, bot_response, sentiment, sentiment_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, turn.ID, turn.Username, turn.UserMessage, turn.BotResponse, string(turn.Sentiment), turn.SentimentScore, turn.Timestamp)
	if err != nil {
		return fmt.Errorf("insert chat turn: %w", err)
	}
	return nil
}

// History selects the newest limit rows DESC, then reverses for chronological order.
func (r *PostgresTurnStore) History(ctx context.Context, username string, limit int) ([]chat.Turn, error) {
	limit = normalizeLimit(limit)

	rows, err := r.pool.Query(ctx, `
		SELECT seq, id, username, user_message, bot_response, sentiment, sentiment_score, created_at
		FROM chat_turns
		WHERE username = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2
	`, username, limit)
	if err != nil {
		log.Printf("[store] history query error for user=%s: %v", username, err)
		return nil, err
	}
	defer rows.Close()

	turns := make([]chat.Turn, 0, limit)
	for rows.Next() {
		var (
			t         chat.Turn
			sentiment string
		)
		if err := rows.Scan(&t.Seq, &t.ID, &t.Username, &t.UserMessage, &t.BotResponse, &sentiment, &t.SentimentScore, &t.Timestamp); err != nil {
			return nil, err
		}
		t.Sentiment = chat.SentimentLabel(sentiment)
		t.Timestamp = t.Timestamp.UTC()
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	reverseTurns(turns)
	return turns, nil
}

// Clear deletes all turns of username and returns the affected row count.
func (r *PostgresTurnStore) Clear(ctx context.Context, username string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM chat_turns WHERE username = $1`, username)
	if err != nil {
		return 0, fmt.Errorf("clear chat turns: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PostgresUserStore stores accounts in the users table.
type PostgresUserStore struct {
	pool *pgxpool.Pool
}

func NewPostgresUserStore(pool *pgxpool.Pool) *PostgresUserStore {
	return &PostgresUserStore{pool: pool}
}

func (r *PostgresUserStore) Create(ctx context.Context, u user.User) error {
	if u.Username == "" {
		return ErrUsernameRequired
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (username, password_hash) VALUES ($1, $2)
	`, u.Username, u.PasswordHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *PostgresUserStore) FindByUsername(ctx context.Context, username string) (user.User, error) {
	var u user.User
	err := r.pool.QueryRow(ctx, `
		SELECT username, password_hash, created_at FROM users WHERE username = $1
	`, username).Scan(&u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return user.User{}, ErrUserNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}
