// Package main implements the entry point for the cramdeck API server, which
// serves the flashcard catalog, per-user study sessions and essay grading.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/cramdeck/internal/config"
	"github.com/phrazzld/cramdeck/internal/platform/logger"
	"github.com/phrazzld/cramdeck/internal/platform/postgres"
	"github.com/phrazzld/cramdeck/internal/platform/redis"
	"github.com/phrazzld/cramdeck/internal/redact"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("cramdeck server: %s", redact.Error(err))
	}
}

// run loads configuration, connects to backing services, applies pending
// migrations and serves until ctx is canceled.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	l := logger.Setup(logger.LoggerConfig{Level: cfg.Server.LogLevel, Output: os.Stdout})
	l.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.Bool("grading_enabled", cfg.LLM.GradingEnabled()))

	db, err := postgres.Open(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	l.Info("database connection established")

	if err := postgres.Migrate(ctx, db, "up", l); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.URL, l)
	if err != nil {
		_ = db.Close()
		return err
	}

	app, err := newApplication(ctx, cfg, l, db, rdb)
	if err != nil {
		_ = rdb.Close()
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}
