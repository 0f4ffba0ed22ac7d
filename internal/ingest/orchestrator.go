package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mathieupelo/alpha-crucible-data-news/internal/model"
	"github.com/mathieupelo/alpha-crucible-data-news/internal/normalize"
	"github.com/mathieupelo/alpha-crucible-data-news/pkg/news"
)

// TickerSource yields the universe of active symbols to ingest news for.
type TickerSource interface {
	ActiveTickers(ctx context.Context) ([]string, error)
}

// NewsStore is the persistence side of the loop: completion checks and
// batched conflict-ignoring writes.
type NewsStore interface {
	CountForDate(ctx context.Context, ticker string, day time.Time) (int, error)
	InsertBatch(ctx context.Context, records []model.NewsRecord) (int, error)
}

// Fetcher is the retrying fetch client; it absorbs provider failures and
// reports them in the result status.
type Fetcher interface {
	Fetch(ctx context.Context, ticker string) news.Result
}

// Notifier tells downstream consumers a day's batch was committed.
// Delivery is at-least-once; failures are logged, never fatal.
type Notifier interface {
	PublishIngested(ctx context.Context, day time.Time, inserted int) error
}

// Orchestrator drives the ingestion loop: for each date in the run's range,
// skip tickers already satisfied, fetch-normalize-filter the rest, and write
// the whole day's buffer in one call. Re-running over the same range is safe
// and strictly additive.
type Orchestrator struct {
	tickers      TickerSource
	store        NewsStore
	fetcher      Fetcher
	normalizer   *normalize.Normalizer
	filter       Filter
	notifier     Notifier
	requestDelay time.Duration
	sleep        func(time.Duration)
}

func NewOrchestrator(tickers TickerSource, store NewsStore, fetcher Fetcher,
	normalizer *normalize.Normalizer, filter Filter, requestDelay time.Duration) *Orchestrator {
	return &Orchestrator{
		tickers:      tickers,
		store:        store,
		fetcher:      fetcher,
		normalizer:   normalizer,
		filter:       filter,
		requestDelay: requestDelay,
		sleep:        time.Sleep,
	}
}

// WithNotifier attaches an optional downstream notifier.
func (o *Orchestrator) WithNotifier(n Notifier) *Orchestrator {
	o.notifier = n
	return o
}

// Run processes every date in [start, end] ascending. Per-ticker failures are
// counted and absorbed; a batch write failure aborts the run (prior dates
// stay committed, there is no cross-date transaction).
func (o *Orchestrator) Run(ctx context.Context, start, end time.Time) (model.RunStats, error) {
	var stats model.RunStats

	universe, err := o.tickers.ActiveTickers(ctx)
	if err != nil {
		return stats, fmt.Errorf("loading ticker universe: %w", err)
	}
	slog.Info("starting ingestion run",
		"tickers", len(universe),
		"start", start.Format("2006-01-02"),
		"end", end.Format("2006-01-02"),
		"backfill", o.filter.Backfill)

	for day := calendarDate(start); !day.After(calendarDate(end)); day = day.AddDate(0, 0, 1) {
		if err := o.runDate(ctx, day, universe, &stats); err != nil {
			return stats, err
		}
	}

	slog.Info("ingestion run complete",
		"processed", stats.Processed,
		"skipped", stats.Skipped,
		"errored", stats.Errored,
		"inserted", stats.Inserted)
	return stats, nil
}

func (o *Orchestrator) runDate(ctx context.Context, day time.Time, universe []string, stats *model.RunStats) error {
	date := day.Format("2006-01-02")

	// Completion is derived from row existence; a read error fails open to
	// "not done" so a transient problem never silently skips real work.
	var remaining []string
	for _, ticker := range universe {
		count, err := o.store.CountForDate(ctx, ticker, day)
		if err != nil {
			slog.Warn("completion check failed, treating ticker as unprocessed",
				"ticker", ticker, "date", date, "error", err)
			remaining = append(remaining, ticker)
			continue
		}
		if count > 0 {
			stats.Skipped++
			continue
		}
		remaining = append(remaining, ticker)
	}

	if len(remaining) == 0 {
		slog.Info("date already complete", "date", date)
		return nil
	}
	slog.Info("processing date", "date", date,
		"remaining", len(remaining), "skipped", len(universe)-len(remaining))

	var batch []model.NewsRecord
	onDate := 0
	for i, ticker := range remaining {
		if i > 0 {
			o.sleep(o.requestDelay)
		}

		res := o.fetcher.Fetch(ctx, ticker)
		switch res.Status {
		case news.StatusTransientFailure, news.StatusPermanentFailure:
			stats.Errored++
			slog.Error("ticker failed", "ticker", ticker, "date", date,
				"status", res.Status.String(), "error", res.Err)
			continue
		}
		stats.Processed++

		for _, item := range res.Items {
			rec, ok := o.normalizer.Normalize(ticker, item)
			if !ok {
				continue
			}
			if !o.filter.Belongs(rec, day) {
				continue
			}
			if o.filter.OnDate(rec, day) {
				onDate++
			}
			batch = append(batch, rec)
		}
	}

	inserted, err := o.store.InsertBatch(ctx, batch)
	if err != nil {
		return fmt.Errorf("writing batch for %s: %w", date, err)
	}
	stats.Inserted += inserted

	if o.filter.Backfill {
		slog.Info("date ingested", "date", date, "collected", len(batch),
			"inserted", inserted, "on_date", onDate, "nearby", len(batch)-onDate)
	} else {
		slog.Info("date ingested", "date", date, "collected", len(batch), "inserted", inserted)
	}

	if o.notifier != nil && inserted > 0 {
		if err := o.notifier.PublishIngested(ctx, day, inserted); err != nil {
			slog.Error("downstream notify failed", "date", date, "error", err)
		}
	}
	return nil
}
