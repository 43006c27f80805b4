package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/companionbot/backend/internal/bootstrap"
	"github.com/zhouzirui/companionbot/backend/internal/config"
	"github.com/zhouzirui/companionbot/backend/internal/handler"
	"github.com/zhouzirui/companionbot/backend/internal/middleware"
	"github.com/zhouzirui/companionbot/backend/internal/model/wellness"
	"github.com/zhouzirui/companionbot/backend/internal/service/ai"
	"github.com/zhouzirui/companionbot/backend/internal/service/auth"
	"github.com/zhouzirui/companionbot/backend/internal/service/chat"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	stores, err := bootstrap.OpenStores(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.Store.Driver, err)
	}
	defer stores.Close()

	// Sentiment model loads lazily; warm it in the background so the first turn is not delayed.
	classifier := bootstrap.NewClassifier(cfg)
	go classifier.Warm(ctx)

	generator := ai.NewGenerator(bootstrap.NewResponder(ctx, cfg.AI), ai.GeneratorConfig{Timeout: cfg.AI.GenerationTimeout})
	if !generator.Available() {
		log.Println("AI provider unavailable, continuing with fallback replies - 请检查模型相关环境变量")
	}

	chatService := chat.NewService(classifier, generator, stores.Turns, chat.Config{
		MaxMessageLength: cfg.Chat.MaxMessageLength,
		HistoryLimit:     cfg.Chat.HistoryDefaultLimit,
	})
	authService := auth.NewService(stores.Users, auth.Config{
		Secret:     cfg.Auth.JWTSecret,
		Expiration: cfg.Auth.Expiration,
	})
	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Window:      cfg.Chat.RateLimitWindow,
		Capacity:    cfg.Chat.RateLimitCapacity,
		Concurrency: cfg.Chat.UserConcurrency,
	})
	go limiter.RunJanitor(ctx, time.Minute)

	router := handler.NewRouter(handler.Dependencies{
		Chat:            chatService,
		Auth:            authService,
		Activities:      wellness.NewMemoryStore(wellness.Seed()),
		Limiter:         limiter,
		CORSOrigins:     cfg.Server.CORSOrigins,
		HistoryMaxLimit: cfg.Chat.HistoryMaxLimit,
		Status: func() map[string]string {
			llm := "fallback"
			if generator.Available() {
				llm = cfg.AI.Provider
			}
			return map[string]string{
				"store":     stores.Driver,
				"sentiment": classifier.Mode(),
				"llm":       llm,
			}
		},
	})

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("CompanionBot backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Printf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
