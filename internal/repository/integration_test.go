//go:build integration

// Run with a live database, e.g.
//
//	TEST_DATABASE_URL=postgres://... TEST_MONGO_URL=mongodb://... TEST_MYSQL_DSN=user:pass@tcp(...)/db?parseTime=true \
//	  go test -tags integration ./internal/repository/
//
// Backends without a configured URL are skipped.
package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/zhouzirui/companionbot/backend/internal/database"
)

func integrationContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)
	return ctx
}

func TestPostgresStoresContract(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := integrationContext(t)

	pool, err := database.NewPool(ctx, url)
	if err != nil {
		t.Fatalf("NewPool err: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := database.RunMigrations(ctx, pool); err != nil {
		t.Fatalf("RunMigrations err: %v", err)
	}
	reset := func() {
		if _, err := pool.Exec(ctx, `TRUNCATE chat_turns, users`); err != nil {
			t.Fatalf("truncate err: %v", err)
		}
	}

	runTurnStoreContract(t, func() TurnStore {
		reset()
		return NewPostgresTurnStore(pool)
	})
	runUserStoreContract(t, func() UserStore {
		reset()
		return NewPostgresUserStore(pool)
	})
}

func TestMongoStoresContract(t *testing.T) {
	url := os.Getenv("TEST_MONGO_URL")
	if url == "" {
		t.Skip("TEST_MONGO_URL not set")
	}
	ctx := integrationContext(t)

	client, db, err := database.NewMongo(ctx, url, "companionbot_test")
	if err != nil {
		t.Fatalf("NewMongo err: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	newDB := func() {
		if err := db.Drop(ctx); err != nil {
			t.Fatalf("drop err: %v", err)
		}
	}

	runTurnStoreContract(t, func() TurnStore {
		newDB()
		store := NewMongoTurnStore(db)
		if err := store.EnsureIndexes(ctx); err != nil {
			t.Fatalf("EnsureIndexes err: %v", err)
		}
		return store
	})
	runUserStoreContract(t, func() UserStore {
		newDB()
		store := NewMongoUserStore(db)
		if err := store.EnsureIndexes(ctx); err != nil {
			t.Fatalf("EnsureIndexes err: %v", err)
		}
		return store
	})
}

func TestGormStoresContract(t *testing.T) {
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}

	db, err := database.NewMySQL(dsn)
	if err != nil {
		t.Fatalf("NewMySQL err: %v", err)
	}
	t.Cleanup(func() { _ = database.CloseGorm(db) })
	if err := AutoMigrateGorm(db); err != nil {
		t.Fatalf("AutoMigrateGorm err: %v", err)
	}
	reset := func() {
		for _, table := range []string{"chat_turns", "users"} {
			if err := db.Exec("DELETE FROM " + table).Error; err != nil {
				t.Fatalf("reset %s err: %v", table, err)
			}
		}
	}

	runTurnStoreContract(t, func() TurnStore {
		reset()
		return NewGormTurnStore(db)
	})
	runUserStoreContract(t, func() UserStore {
		reset()
		return NewGormUserStore(db)
	})
}
