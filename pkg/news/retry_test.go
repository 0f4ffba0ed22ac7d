package news

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

// scriptedClient returns the scripted errors in order, then succeeds with
// the configured items.
type scriptedClient struct {
	errs  []error
	items []RawItem
	calls int
}

func (c *scriptedClient) Fetch(ctx context.Context, ticker string) ([]RawItem, error) {
	defer func() { c.calls++ }()
	if c.calls < len(c.errs) && c.errs[c.calls] != nil {
		return nil, c.errs[c.calls]
	}
	return c.items, nil
}

func (c *scriptedClient) Name() string {
	return "scripted"
}

func newRecordedFetcher(client Client, maxRetries int, base time.Duration) (*Fetcher, *[]time.Duration) {
	var sleeps []time.Duration
	f := NewFetcher(client, maxRetries, base)
	f.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return f, &sleeps
}

func TestFetchSuccessFirstAttempt(t *testing.T) {
	client := &scriptedClient{items: []RawItem{{"title": "x"}}}
	f, sleeps := newRecordedFetcher(client, 3, 2*time.Second)

	res := f.Fetch(context.Background(), "AAPL")

	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, 1, len(res.Items))
	assert.Equal(t, 0, len(*sleeps))
}

func TestFetchEmptyIsNoItems(t *testing.T) {
	client := &scriptedClient{}
	f, _ := newRecordedFetcher(client, 3, 2*time.Second)

	res := f.Fetch(context.Background(), "AAPL")

	assert.Equal(t, StatusNoItems, res.Status)
	assert.Equal(t, nil, res.Err)
}

func TestFetchRateLimitBackoffDoubles(t *testing.T) {
	rl := ErrRateLimited
	client := &scriptedClient{
		errs:  []error{rl, rl, rl},
		items: []RawItem{{"title": "x"}},
	}
	f, sleeps := newRecordedFetcher(client, 4, 3*time.Second)

	res := f.Fetch(context.Background(), "AAPL")

	assert.Equal(t, StatusOK, res.Status)
	// base * 2^attempt: strictly doubling.
	assert.Equal(t, []time.Duration{3 * time.Second, 6 * time.Second, 12 * time.Second}, *sleeps)
}

func TestFetchTransientBackoffIsLinear(t *testing.T) {
	transient := errors.New("connection timeout")
	client := &scriptedClient{
		errs:  []error{transient, transient, transient},
		items: []RawItem{{"title": "x"}},
	}
	f, sleeps := newRecordedFetcher(client, 4, 3*time.Second)

	res := f.Fetch(context.Background(), "AAPL")

	assert.Equal(t, StatusOK, res.Status)
	// base * (attempt+1): linear, not exponential.
	assert.Equal(t, []time.Duration{3 * time.Second, 6 * time.Second, 9 * time.Second}, *sleeps)
}

func TestFetchGivesUpAfterMaxRetries(t *testing.T) {
	client := &scriptedClient{
		errs: []error{ErrRateLimited, ErrRateLimited, ErrRateLimited},
	}
	f, sleeps := newRecordedFetcher(client, 3, 2*time.Second)

	res := f.Fetch(context.Background(), "AAPL")

	assert.Equal(t, StatusTransientFailure, res.Status)
	assert.Equal(t, true, errors.Is(res.Err, ErrRateLimited))
	// No wait after the final attempt.
	assert.Equal(t, 2, len(*sleeps))
	assert.Equal(t, 3, client.calls)
}

func TestFetchPermanentErrorShortCircuits(t *testing.T) {
	client := &scriptedClient{
		errs: []error{&PermanentError{Err: errors.New("bad payload")}},
	}
	f, sleeps := newRecordedFetcher(client, 5, 2*time.Second)

	res := f.Fetch(context.Background(), "AAPL")

	assert.Equal(t, StatusPermanentFailure, res.Status)
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, 0, len(*sleeps))
}
