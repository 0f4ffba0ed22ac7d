package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/mathieupelo/alpha-crucible-data-news/internal/model"
)

// NewsRepository owns the news table: completion counts and batched,
// conflict-ignoring inserts keyed on (ticker, link, published_date).
type NewsRepository struct {
	db *sql.DB
}

func NewNewsRepository(db *sql.DB) *NewsRepository {
	return &NewsRepository{db: db}
}

// CountForDate returns how many records are stored for a ticker on a
// calendar date. A positive count is the completion marker for that pair.
func (r *NewsRepository) CountForDate(ctx context.Context, ticker string, day time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM news
		WHERE ticker = $1 AND date(published_date) = $2
	`, ticker, day.Format("2006-01-02")).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting news for %s on %s: %w", ticker, day.Format("2006-01-02"), err)
	}
	return count, nil
}

// InsertBatch bulk-inserts one day's records in a single statement inside a
// transaction. Duplicates on the natural key are silently excluded; the
// return value counts rows actually inserted. Any failure rolls the whole
// batch back.
func (r *NewsRepository) InsertBatch(ctx context.Context, records []model.NewsRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tickers := make([]string, len(records))
	titles := make([]string, len(records))
	summaries := make([]string, len(records))
	publishers := make([]string, len(records))
	links := make([]string, len(records))
	published := make([]time.Time, len(records))
	images := make([]string, len(records))
	for i, rec := range records {
		tickers[i] = rec.Ticker
		titles[i] = rec.Title
		summaries[i] = rec.Summary
		publishers[i] = rec.Publisher
		links[i] = rec.Link
		published[i] = rec.PublishedAt.UTC()
		images[i] = rec.ImageURL
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning insert transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO news (ticker, title, summary, publisher, link, published_date, image_url)
		SELECT * FROM unnest(
			$1::text[], $2::text[], $3::text[], $4::text[],
			$5::text[], $6::timestamp[], $7::text[]
		)
		ON CONFLICT (ticker, link, published_date) DO NOTHING
	`, pq.Array(tickers), pq.Array(titles), pq.Array(summaries), pq.Array(publishers),
		pq.Array(links), pq.Array(published), pq.Array(images))
	if err != nil {
		return 0, fmt.Errorf("inserting news batch: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading inserted row count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing news batch: %w", err)
	}

	return int(inserted), nil
}
