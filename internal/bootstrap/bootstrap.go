// Package bootstrap builds the runtime components from configuration. Shared by the API
// server and the command line tools.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/zhouzirui/companionbot/backend/internal/config"
	"github.com/zhouzirui/companionbot/backend/internal/database"
	oaiprovider "github.com/zhouzirui/companionbot/backend/internal/provider/openai"
	"github.com/zhouzirui/companionbot/backend/internal/repository"
	"github.com/zhouzirui/companionbot/backend/internal/service/ai"
	"github.com/zhouzirui/companionbot/backend/internal/service/sentiment"
)

// Stores bundles the persistence backends and a function releasing their connections.
type Stores struct {
	Turns  repository.TurnStore
	Users  repository.UserStore
	Driver string
	Close  func()
}

// OpenStores connects the configured store driver.
func OpenStores(ctx context.Context, cfg config.StoreConfig) (*Stores, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := database.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if err := database.RunMigrations(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return &Stores{
			Turns:  repository.NewPostgresTurnStore(pool),
			Users:  repository.NewPostgresUserStore(pool),
			Driver: cfg.Driver,
			Close:  pool.Close,
		}, nil

	case config.DriverMongo:
		client, db, err := database.NewMongo(ctx, cfg.MongoURL, cfg.DBName)
		if err != nil {
			return nil, err
		}
		turns := repository.NewMongoTurnStore(db)
		users := repository.NewMongoUserStore(db)
		if cfg.Migrate {
			if err := turns.EnsureIndexes(ctx); err != nil {
				_ = client.Disconnect(context.Background())
				return nil, err
			}
			if err := users.EnsureIndexes(ctx); err != nil {
				_ = client.Disconnect(context.Background())
				return nil, err
			}
		}
		return &Stores{
			Turns:  turns,
			Users:  users,
			Driver: cfg.Driver,
			Close: func() {
				if err := client.Disconnect(context.Background()); err != nil {
					log.Printf("[store] mongo disconnect: %v", err)
				}
			},
		}, nil

	case config.DriverMySQL:
		db, err := database.NewMySQL(cfg.MySQLDSN)
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if err := repository.AutoMigrateGorm(db); err != nil {
				_ = database.CloseGorm(db)
				return nil, err
			}
		}
		return &Stores{
			Turns:  repository.NewGormTurnStore(db),
			Users:  repository.NewGormUserStore(db),
			Driver: cfg.Driver,
			Close: func() {
				if err := database.CloseGorm(db); err != nil {
					log.Printf("[store] mysql close: %v", err)
				}
			},
		}, nil

	case config.DriverMemory, "":
		log.Println("[store] using in-memory store, history is lost on restart")
		return &Stores{
			Turns:  repository.NewMemoryTurnStore(),
			Users:  repository.NewMemoryUserStore(),
			Driver: config.DriverMemory,
			Close:  func() {},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

// NewResponder builds the language model client for the configured provider.
// It returns nil when no provider is configured; replies then use the fallback text.
func NewResponder(ctx context.Context, cfg config.AIConfig) ai.Responder {
	if !cfg.Enabled() {
		log.Printf("[ai] provider %s not configured, replies will use the fallback text", cfg.Provider)
		return nil
	}

	switch cfg.Provider {
	case config.ProviderOpenAI:
		responder, err := ai.NewOpenAIResponder(oaiprovider.Config{APIKey: cfg.OpenAIAPIKey, BaseURL: cfg.OpenAIBaseURL}, cfg.OpenAIModel, 0)
		if err != nil {
			log.Printf("[ai] failed to initialise OpenAI responder: %v", err)
			return nil
		}
		log.Printf("[ai] using OpenAI model %s", cfg.OpenAIModel)
		return responder

	default:
		chatModel, err := cfg.NewChatModel(ctx)
		if err != nil {
			log.Printf("[ai] failed to create Ark chat model: %v", err)
			return nil
		}
		responder, err := ai.NewChainResponder(ctx, chatModel)
		if err != nil {
			log.Printf("[ai] failed to build chat chain: %v", err)
			return nil
		}
		log.Printf("[ai] using Ark model %s", cfg.Model)
		return responder
	}
}

// NewClassifier builds the sentiment classifier. The model itself loads lazily on first use.
func NewClassifier(cfg *config.Config) *sentiment.Classifier {
	classifierCfg := sentiment.Config{PredictTimeout: cfg.Sentiment.Timeout}

	var loader sentiment.Loader
	switch cfg.Sentiment.Model {
	case config.SentimentHF:
		loader = sentiment.NewHFLoader(sentiment.HFConfig{URL: cfg.Sentiment.HFURL, Token: cfg.Sentiment.HFToken}, &http.Client{Timeout: cfg.Sentiment.Timeout})
	case config.SentimentLLM:
		loader = sentiment.NewLLMLoader(cfg.AI.NewChatModel)
	case config.SentimentOpenAI:
		loader = sentiment.NewOpenAILoader(sentiment.OpenAIConfig{
			Client: oaiprovider.Config{APIKey: cfg.AI.OpenAIAPIKey, BaseURL: cfg.AI.OpenAIBaseURL},
			Model:  cfg.Sentiment.OpenAIModel,
		})
	}
	return sentiment.NewClassifier(loader, classifierCfg)
}
