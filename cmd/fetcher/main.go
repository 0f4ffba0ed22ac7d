package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/mathieupelo/alpha-crucible-data-news/db"
	"github.com/mathieupelo/alpha-crucible-data-news/internal/config"
	"github.com/mathieupelo/alpha-crucible-data-news/internal/ingest"
	"github.com/mathieupelo/alpha-crucible-data-news/internal/normalize"
	"github.com/mathieupelo/alpha-crucible-data-news/internal/repository"
	"github.com/mathieupelo/alpha-crucible-data-news/pkg/news"
)

func main() {
	godotenv.Load()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

// run keeps all resource acquisition behind defers so both database handles
// (and Redis, when configured) are released on every exit path.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg == nil {
		// Help was shown.
		return nil
	}

	start, end, err := cfg.DateRange(time.Now())
	if err != nil {
		return err
	}

	mainDB, err := db.Open(cfg.MainDatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to main database: %w", err)
	}
	defer mainDB.Close()

	oreDB, err := db.Open(cfg.OreDatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to ORE database: %w", err)
	}
	defer oreDB.Close()

	version, dirty, err := repository.RunMigrations(oreDB)
	if err != nil {
		return fmt.Errorf("migrating news schema: %w", err)
	}
	slog.Info("news schema ready", "version", version, "dirty", dirty)

	var client news.Client
	switch cfg.Provider {
	case "finnhub":
		client = news.NewFinnhubClient(cfg.FinnhubAPIKey, cfg.BackfillLookbackDays)
	default:
		client = news.NewYahooClient(cfg.NewsCount)
	}
	slog.Info("using news provider", "provider", client.Name())

	fetcher := news.NewFetcher(client, cfg.MaxRetries, cfg.BaseRetryDelay())

	orchestrator := ingest.NewOrchestrator(
		repository.NewTickerRepository(mainDB),
		repository.NewNewsRepository(oreDB),
		fetcher,
		normalize.New(),
		ingest.Filter{Backfill: cfg.BackfillMode, LookbackDays: cfg.BackfillLookbackDays},
		cfg.RequestDelay(),
	)

	if cfg.RedisURL != "" {
		queue, err := db.OpenQueue(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to Redis: %w", err)
		}
		defer queue.Close()
		orchestrator.WithNotifier(queue)
	}

	stats, err := orchestrator.Run(context.Background(), start, end)
	slog.Info("run summary",
		"processed", stats.Processed,
		"skipped", stats.Skipped,
		"errored", stats.Errored,
		"inserted", stats.Inserted)
	return err
}
