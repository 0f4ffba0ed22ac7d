package news

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Status tells callers why a fetch produced the items it did, so "no news"
// is never confused with "the provider was down".
type Status int

const (
	StatusOK Status = iota
	StatusNoItems
	StatusTransientFailure
	StatusPermanentFailure
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoItems:
		return "no_items"
	case StatusTransientFailure:
		return "transient_failure"
	case StatusPermanentFailure:
		return "permanent_failure"
	default:
		return "unknown"
	}
}

// Result is the outcome of one retried fetch. Err holds the last failure
// when Status is a failure status.
type Result struct {
	Status Status
	Items  []RawItem
	Err    error
}

// Fetcher wraps a provider Client with bounded retries. Rate-limit rejections
// back off exponentially (base * 2^attempt); other transient errors back off
// linearly (base * (attempt+1)). Permanent errors are not retried.
type Fetcher struct {
	client     Client
	maxRetries int
	baseDelay  time.Duration
	sleep      func(time.Duration)
}

func NewFetcher(client Client, maxRetries int, baseDelay time.Duration) *Fetcher {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Fetcher{
		client:     client,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		sleep:      time.Sleep,
	}
}

// Fetch never returns an error; it exhausts retries internally and reports
// the outcome in the Result. An empty item list with a nil provider error is
// a valid success (StatusNoItems).
func (f *Fetcher) Fetch(ctx context.Context, ticker string) Result {
	var lastErr error

	for attempt := 0; attempt < f.maxRetries; attempt++ {
		items, err := f.client.Fetch(ctx, ticker)
		if err == nil {
			if len(items) == 0 {
				return Result{Status: StatusNoItems}
			}
			return Result{Status: StatusOK, Items: items}
		}
		lastErr = err

		var perm *PermanentError
		if errors.As(err, &perm) {
			slog.Error("provider returned permanent error",
				"provider", f.client.Name(), "ticker", ticker, "error", err)
			return Result{Status: StatusPermanentFailure, Err: err}
		}

		if attempt == f.maxRetries-1 {
			break
		}

		var wait time.Duration
		if errors.Is(err, ErrRateLimited) {
			wait = f.baseDelay * time.Duration(1<<attempt)
		} else {
			wait = f.baseDelay * time.Duration(attempt+1)
		}
		slog.Warn("fetch failed, retrying",
			"provider", f.client.Name(), "ticker", ticker,
			"attempt", attempt+1, "wait", wait.String(), "error", err)
		f.sleep(wait)
	}

	slog.Error("fetch failed after all retries",
		"provider", f.client.Name(), "ticker", ticker,
		"retries", f.maxRetries, "error", lastErr)
	return Result{Status: StatusTransientFailure, Err: lastErr}
}
