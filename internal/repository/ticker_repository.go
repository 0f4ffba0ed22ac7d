package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// TickerRepository reads the ticker universe from the reference database.
// The table is maintained elsewhere; this side is read-only.
type TickerRepository struct {
	db *sql.DB
}

func NewTickerRepository(db *sql.DB) *TickerRepository {
	return &TickerRepository{db: db}
}

// ActiveTickers returns the distinct set of active symbols, preferring the
// provider-specific symbol and falling back to the primary one when unset.
func (r *TickerRepository) ActiveTickers(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT COALESCE(NULLIF(yahoo_symbol, ''), symbol) AS sym
		FROM tickers
		ORDER BY sym
	`)
	if err != nil {
		return nil, fmt.Errorf("querying tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("scanning ticker row: %w", err)
		}
		tickers = append(tickers, symbol)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ticker rows: %w", err)
	}

	return tickers, nil
}
