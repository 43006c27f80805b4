package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zhouzirui/companionbot/backend/internal/model/chat"
	"github.com/zhouzirui/companionbot/backend/internal/model/user"
)

const (
	mongoTurnCollection    = "chat_history"
	mongoUserCollection    = "users"
	mongoCounterCollection = "counters"
)

// turnDocument is the stored shape of a chat turn.
type turnDocument struct {
	ID             string    `bson:"id"`
	Seq            int64     `bson:"seq"`
	Username       string    `bson:"username"`
	UserMessage    string    `bson:"user_message"`
	BotResponse    string    `bson:"bot_response"`
	Sentiment      string    `bson:"sentiment"`
	SentimentScore float64   `bson:"sentiment_score"`
	Timestamp      time.Time `bson:"timestamp"`
}

func toTurnDocument(t chat.Turn) turnDocument {
	return turnDocument{
		ID:             t.ID,
		Seq:            t.Seq,
		Username:       t.Username,
		UserMessage:    t.UserMessage,
		BotResponse:    t.BotResponse,
		Sentiment:      string(t.Sentiment),
		SentimentScore: t.SentimentScore,
		Timestamp:      t.Timestamp,
	}
}

func (d turnDocument) turn() chat.Turn {
	return chat.Turn{
		ID:             d.ID,
		Seq:            d.Seq,
		Username:       d.Username,
		UserMessage:    d.UserMessage,
		BotResponse:    d.BotResponse,
		Sentiment:      chat.SentimentLabel(d.Sentiment),
		SentimentScore: d.SentimentScore,
		Timestamp:      d.Timestamp.UTC(),
	}
}

type userDocument struct {
	Username     string    `bson:"username"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
}

// MongoTurnStore stores turns in the chat_history collection. Sequence numbers come from
// an atomically incremented counter document.
type MongoTurnStore struct {
	turns    *mongo.Collection
	counters *mongo.Collection
}

func NewMongoTurnStore(db *mongo.Database) *MongoTurnStore {
	return &MongoTurnStore{
		turns:    db.Collection(mongoTurnCollection),
		counters: db.Collection(mongoCounterCollection),
	}
}

// EnsureIndexes creates the history lookup index.
func (r *MongoTurnStore) EnsureIndexes(ctx context.Context) error {
	_, err := r.turns.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "username", Value: 1}, {Key: "timestamp", Value: -1}, {Key: "seq", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create chat_history index: %w", err)
	}
	return nil
}

func (r *MongoTurnStore) nextSeq(ctx context.Context) (int64, error) {
	var counter struct {
		Value int64 `bson:"value"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": mongoTurnCollection},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("increment turn sequence: %w", err)
	}
	return counter.Value, nil
}

func (r *MongoTurnStore) Append(ctx context.Context, turn chat.Turn) error {
	if turn.Username == "" {
		return ErrUsernameRequired
	}
	seq, err := r.nextSeq(ctx)
	if err != nil {
		return err
	}
	turn.Seq = seq
	if _, err := r.turns.InsertOne(ctx, toTurnDocument(turn)); err != nil {
		return fmt.Errorf("insert chat turn: %w", err)
	}
	return nil
}

func (r *MongoTurnStore) History(ctx context.Context, username string, limit int) ([]chat.Turn, error) {
	limit = normalizeLimit(limit)

	cursor, err := r.turns.Find(ctx, bson.M{"username": username}, historyFindOptions(limit))
	if err != nil {
		return nil, fmt.Errorf("find chat turns: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []turnDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode chat turns: %w", err)
	}

	turns := make([]chat.Turn, 0, len(docs))
	for _, d := range docs {
		turns = append(turns, d.turn())
	}
	reverseTurns(turns)
	return turns, nil
}

// historyFindOptions sorts newest first; seq breaks ties between equal millisecond timestamps.
func historyFindOptions(limit int) *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "seq", Value: -1}}).
		SetLimit(int64(limit))
}

func (r *MongoTurnStore) Clear(ctx context.Context, username string) (int64, error) {
	res, err := r.turns.DeleteMany(ctx, bson.M{"username": username})
	if err != nil {
		return 0, fmt.Errorf("clear chat turns: %w", err)
	}
	return res.DeletedCount, nil
}

// MongoUserStore stores accounts in the users collection.
type MongoUserStore struct {
	users *mongo.Collection
}

func NewMongoUserStore(db *mongo.Database) *MongoUserStore {
	return &MongoUserStore{users: db.Collection(mongoUserCollection)}
}

// EnsureIndexes makes usernames unique.
func (r *MongoUserStore) EnsureIndexes(ctx context.Context) error {
	_, err := r.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create users index: %w", err)
	}
	return nil
}

func (r *MongoUserStore) Create(ctx context.Context, u user.User) error {
	if u.Username == "" {
		return ErrUsernameRequired
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := r.users.InsertOne(ctx, userDocument{
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *MongoUserStore) FindByUsername(ctx context.Context, username string) (user.User, error) {
	var doc userDocument
	err := r.users.FindOne(ctx, bson.M{"username": username}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return user.User{}, ErrUserNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("find user: %w", err)
	}
	return user.User{Username: doc.Username, PasswordHash: doc.PasswordHash, CreatedAt: doc.CreatedAt.UTC()}, nil
}
