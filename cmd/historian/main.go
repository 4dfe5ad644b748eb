// cmd/historian/main.go drains the match journal from Redis into Postgres.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/belatro/internal/cache"
	"github.com/jason-s-yu/belatro/internal/config"
	"github.com/jason-s-yu/belatro/internal/database"
	"github.com/jason-s-yu/belatro/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	logger := config.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	pool, err := database.Connect(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.Fatalf("schema: %v", err)
	}

	svc := historian.NewService(
		cache.NewJournal(rdb, cfg.JournalQueue),
		historian.PoolSink{Pool: pool},
		historian.Options{
			BatchSize:  cfg.HistorianBatchSize,
			FlushDelay: cfg.HistorianFlush,
			IdleAfter:  cfg.HistorianIdle,
		},
		nil,
		logger,
	)
	logger.WithField("queue", cfg.JournalQueue).Info("draining match journal")
	svc.Run(ctx)
}
