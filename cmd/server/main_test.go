package main

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"tpvrestaurante/internal/config"
)

func TestServeReturnsExitCodeOnStartupFailure(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("MONGO_URI", "")
	t.Setenv("RABBITMQ_URL", "")

	if code := serve(); code != 1 {
		t.Fatalf("serve() = %d, want 1", code)
	}
}

func TestRunStopsCleanlyOnCancel(t *testing.T) {
	cfg := config.Config{
		Addr:            "127.0.0.1:0",
		DBDriver:        "sqlite",
		SQLitePath:      ":memory:",
		CloseGuardTTL:   time.Second,
		NotifyQueueSize: 8,
		Location:        time.UTC,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if err := run(ctx, cfg, zap.NewNop()); err != nil {
		t.Fatalf("run: %v", err)
	}
}
