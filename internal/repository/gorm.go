package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/zhouzirui/companionbot/backend/internal/model/chat"
	"github.com/zhouzirui/companionbot/backend/internal/model/user"
)

// turnRecord is the GORM mapping of chat_turns. The auto-increment key doubles as seq.
type turnRecord struct {
	Seq            int64     `gorm:"primaryKey;autoIncrement"`
	ID             string    `gorm:"uniqueIndex;size:36;not null"`
	Username       string    `gorm:"index:idx_turn_user_time,priority:1;size:80;not null"`
	UserMessage    string    `gorm:"type:text;not null"`
	BotResponse    string    `gorm:"type:text;not null"`
	Sentiment      string    `gorm:"size:16;not null"`
	SentimentScore float64   `gorm:"not null"`
	Timestamp      time.Time `gorm:"index:idx_turn_user_time,priority:2;precision:6;not null"`
}

func (turnRecord) TableName() string { return "chat_turns" }

func toTurnRecord(t chat.Turn) turnRecord {
	return turnRecord{
		ID:             t.ID,
		Username:       t.Username,
		UserMessage:    t.UserMessage,
		BotResponse:    t.BotResponse,
		Sentiment:      string(t.Sentiment),
		SentimentScore: t.SentimentScore,
		Timestamp:      t.Timestamp,
	}
}

func (r turnRecord) turn() chat.Turn {
	return chat.Turn{
		ID:             r.ID,
		Seq:            r.Seq,
		Username:       r.Username,
		UserMessage:    r.UserMessage,
		BotResponse:    r.BotResponse,
		Sentiment:      chat.SentimentLabel(r.Sentiment),
		SentimentScore: r.SentimentScore,
		Timestamp:      r.Timestamp.UTC(),
	}
}

type userRecord struct {
	Username     string    `gorm:"primaryKey;size:80"`
	PasswordHash string    `gorm:"size:255;not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (userRecord) TableName() string { return "users" }

// AutoMigrateGorm creates or updates the tables used by the GORM stores.
func AutoMigrateGorm(db *gorm.DB) error {
	if err := db.AutoMigrate(&userRecord{}, &turnRecord{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// GormTurnStore stores turns through GORM (MySQL in production).
type GormTurnStore struct {
	db *gorm.DB
}

func NewGormTurnStore(db *gorm.DB) *GormTurnStore {
	return &GormTurnStore{db: db}
}

func (r *GormTurnStore) Append(ctx context.Context, turn chat.Turn) error {
	if turn.Username == "" {
		return ErrUsernameRequired
	}
	record := toTurnRecord(turn)
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("insert chat turn: %w", err)
	}
	return nil
}

func (r *GormTurnStore) History(ctx context.Context, username string, limit int) ([]chat.Turn, error) {
	limit = normalizeLimit(limit)

	var records []turnRecord
	if err := historyQuery(r.db.WithContext(ctx), username, limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("find chat turns: %w", err)
	}

	turns := make([]chat.Turn, 0, len(records))
	for _, rec := range records {
		turns = append(turns, rec.turn())
	}
	reverseTurns(turns)
	return turns, nil
}

// historyQuery selects the newest limit turns of username, newest first.
func historyQuery(db *gorm.DB, username string, limit int) *gorm.DB {
	return db.Model(&turnRecord{}).
		Where("username = ?", username).
		Order("timestamp DESC").Order("seq DESC").
		Limit(limit)
}

func (r *GormTurnStore) Clear(ctx context.Context, username string) (int64, error) {
	res := r.db.WithContext(ctx).Where("username = ?", username).Delete(&turnRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("clear chat turns: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// GormUserStore stores accounts through GORM. The DB must be opened with TranslateError.
type GormUserStore struct {
	db *gorm.DB
}

func NewGormUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

func (r *GormUserStore) Create(ctx context.Context, u user.User) error {
	if u.Username == "" {
		return ErrUsernameRequired
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	record := userRecord{Username: u.Username, PasswordHash: u.PasswordHash, CreatedAt: u.CreatedAt}
	err := r.db.WithContext(ctx).Create(&record).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *GormUserStore) FindByUsername(ctx context.Context, username string) (user.User, error) {
	var record userRecord
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return user.User{}, ErrUserNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("find user: %w", err)
	}
	return user.User{Username: record.Username, PasswordHash: record.PasswordHash, CreatedAt: record.CreatedAt.UTC()}, nil
}
