package config

import (
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Config is the resolved run configuration. Every rate-limit and backfill
// parameter flows in here once at startup; nothing is read from the
// environment mid-run.
type Config struct {
	MainDatabaseURL string `long:"main-db-url" env:"MAIN_DATABASE_URL" required:"true" description:"Reference database DSN (ticker universe, read-only)"`
	OreDatabaseURL  string `long:"ore-db-url" env:"ORE_DATABASE_URL" required:"true" description:"ORE news database DSN (completion reads and batch writes)"`
	RedisURL        string `long:"redis-url" env:"REDIS_URL" description:"Optional Redis URL for downstream ingest notifications"`

	Provider      string `long:"provider" env:"NEWS_PROVIDER" default:"yahoo" choice:"yahoo" choice:"finnhub" description:"News provider backend"`
	FinnhubAPIKey string `long:"finnhub-api-key" env:"FINNHUB_API_KEY" description:"API key, required when provider is finnhub"`
	NewsCount     int    `long:"news-count" env:"NEWS_COUNT" default:"20" description:"Items requested per ticker"`

	StartDate string `long:"start-date" env:"START_DATE" description:"First date to ingest (YYYY-MM-DD, default today)"`
	EndDate   string `long:"end-date" env:"END_DATE" description:"Last date to ingest (YYYY-MM-DD, default today)"`

	RequestDelaySeconds   float64 `long:"request-delay" env:"REQUEST_DELAY_SECONDS" default:"1" description:"Fixed delay between successive ticker fetches"`
	MaxRetries            int     `long:"max-retries" env:"MAX_RETRIES" default:"3" description:"Fetch attempts per ticker before giving up"`
	BaseRetryDelaySeconds float64 `long:"base-retry-delay" env:"BASE_RETRY_DELAY_SECONDS" default:"2" description:"Base backoff delay between retries"`

	BackfillMode         bool `long:"backfill" env:"BACKFILL_MODE" description:"Accept any record within the lookback window instead of exact-date matches"`
	BackfillLookbackDays int  `long:"backfill-lookback-days" env:"BACKFILL_LOOKBACK_DAYS" default:"14" description:"Backfill acceptance window in days"`
}

// Load parses configuration from environment variables and command-line
// flags. It returns (nil, nil) when help was requested.
func Load() (*Config, error) {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	if cfg.Provider == "finnhub" && cfg.FinnhubAPIKey == "" {
		return nil, fmt.Errorf("FINNHUB_API_KEY is required when NEWS_PROVIDER is finnhub")
	}
	return &cfg, nil
}

// DateRange resolves the inclusive [start, end] calendar range. Unset dates
// default to today; a malformed date is a configuration error naming the
// offending field.
func (c *Config) DateRange(now time.Time) (time.Time, time.Time, error) {
	today := now.UTC().Truncate(24 * time.Hour)

	start, err := resolveDate(c.StartDate, today, "START_DATE")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := resolveDate(c.EndDate, today, "END_DATE")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("START_DATE %s is after END_DATE %s",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return start, end, nil
}

func resolveDate(value string, fallback time.Time, field string) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed %s %q: expected YYYY-MM-DD", field, value)
	}
	return t, nil
}

// RequestDelay is the fixed inter-request delay between successive tickers.
func (c *Config) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelaySeconds * float64(time.Second))
}

// BaseRetryDelay is the base unit for both backoff schedules.
func (c *Config) BaseRetryDelay() time.Duration {
	return time.Duration(c.BaseRetryDelaySeconds * float64(time.Second))
}
