package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/mathieupelo/alpha-crucible-data-news/internal/model"
	"github.com/mathieupelo/alpha-crucible-data-news/internal/normalize"
	"github.com/mathieupelo/alpha-crucible-data-news/pkg/news"
)

type fakeTickers struct {
	symbols []string
	err     error
}

func (f *fakeTickers) ActiveTickers(ctx context.Context) ([]string, error) {
	return f.symbols, f.err
}

// fakeStore mimics the real store's conflict-ignore semantics: rows are
// keyed on (ticker, link, published_at) and duplicates are dropped silently.
type fakeStore struct {
	rows      []model.NewsRecord
	seen      map[string]bool
	batches   [][]model.NewsRecord
	countErrs map[string]error
	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{seen: map[string]bool{}, countErrs: map[string]error{}}
}

func naturalKey(rec model.NewsRecord) string {
	return fmt.Sprintf("%s|%s|%d", rec.Ticker, rec.Link, rec.PublishedAt.Unix())
}

func (s *fakeStore) CountForDate(ctx context.Context, ticker string, day time.Time) (int, error) {
	if err, ok := s.countErrs[ticker]; ok {
		return 0, err
	}
	count := 0
	for _, rec := range s.rows {
		if rec.Ticker == ticker && calendarDate(rec.PublishedAt).Equal(calendarDate(day)) {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) InsertBatch(ctx context.Context, records []model.NewsRecord) (int, error) {
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	if len(records) == 0 {
		return 0, nil
	}
	s.batches = append(s.batches, records)
	inserted := 0
	for _, rec := range records {
		key := naturalKey(rec)
		if s.seen[key] {
			continue
		}
		s.seen[key] = true
		s.rows = append(s.rows, rec)
		inserted++
	}
	return inserted, nil
}

type fakeFetcher struct {
	results map[string]news.Result
	calls   []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, ticker string) news.Result {
	f.calls = append(f.calls, ticker)
	return f.results[ticker]
}

var testDay = time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)

func rawItemFor(ticker string, day time.Time) news.RawItem {
	return news.RawItem{
		"title":               ticker + " headline",
		"link":                "https://example.com/" + ticker,
		"publisher":           "Reuters",
		"providerPublishTime": float64(day.Add(13 * time.Hour).Unix()),
	}
}

func newTestOrchestrator(tickers *fakeTickers, store *fakeStore, fetcher *fakeFetcher) (*Orchestrator, *[]time.Duration) {
	var sleeps []time.Duration
	o := NewOrchestrator(tickers, store, fetcher, normalize.New(), Filter{}, 750*time.Millisecond)
	o.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return o, &sleeps
}

func TestRunInsertsAndIsIdempotent(t *testing.T) {
	tickers := &fakeTickers{symbols: []string{"AAPL", "MSFT"}}
	store := newFakeStore()
	fetcher := &fakeFetcher{results: map[string]news.Result{
		"AAPL": {Status: news.StatusOK, Items: []news.RawItem{rawItemFor("AAPL", testDay)}},
		"MSFT": {Status: news.StatusOK, Items: []news.RawItem{rawItemFor("MSFT", testDay)}},
	}}

	o, _ := newTestOrchestrator(tickers, store, fetcher)
	stats, err := o.Run(context.Background(), testDay, testDay)

	assert.Equal(t, nil, err)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 2, stats.Inserted)
	assert.Equal(t, 0, stats.Skipped)
	assert.Equal(t, 2, len(fetcher.calls))

	// Second run over the same range: everything is detected complete,
	// nothing is fetched, nothing is inserted.
	stats, err = o.Run(context.Background(), testDay, testDay)

	assert.Equal(t, nil, err)
	assert.Equal(t, 0, stats.Processed)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 0, stats.Inserted)
	assert.Equal(t, 2, len(fetcher.calls))
	assert.Equal(t, 2, len(store.rows))
}

func TestRunFailsOpenOnCompletionCheckError(t *testing.T) {
	tickers := &fakeTickers{symbols: []string{"XYZ"}}
	store := newFakeStore()
	store.countErrs["XYZ"] = errors.New("connection reset")
	fetcher := &fakeFetcher{results: map[string]news.Result{
		"XYZ": {Status: news.StatusOK, Items: []news.RawItem{rawItemFor("XYZ", testDay)}},
	}}

	o, _ := newTestOrchestrator(tickers, store, fetcher)
	stats, err := o.Run(context.Background(), testDay, testDay)

	assert.Equal(t, nil, err)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 0, stats.Skipped)
	assert.Equal(t, []string{"XYZ"}, fetcher.calls)
}

func TestRunOneWritePerDate(t *testing.T) {
	tickers := &fakeTickers{symbols: []string{"A", "B", "C"}}
	store := newFakeStore()
	fetcher := &fakeFetcher{results: map[string]news.Result{
		"A": {Status: news.StatusOK, Items: []news.RawItem{rawItemFor("A", testDay)}},
		"B": {Status: news.StatusOK, Items: []news.RawItem{rawItemFor("B", testDay)}},
		"C": {Status: news.StatusNoItems},
	}}

	o, _ := newTestOrchestrator(tickers, store, fetcher)
	_, err := o.Run(context.Background(), testDay, testDay)

	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(store.batches))
	assert.Equal(t, 2, len(store.batches[0]))
}

func TestRunInterRequestDelayBetweenTickersOnly(t *testing.T) {
	tickers := &fakeTickers{symbols: []string{"A", "B", "C"}}
	store := newFakeStore()
	fetcher := &fakeFetcher{results: map[string]news.Result{
		"A": {Status: news.StatusNoItems},
		"B": {Status: news.StatusNoItems},
		"C": {Status: news.StatusNoItems},
	}}

	o, sleeps := newTestOrchestrator(tickers, store, fetcher)
	_, err := o.Run(context.Background(), testDay, testDay)

	assert.Equal(t, nil, err)
	// Two delays for three tickers: none before the first.
	assert.Equal(t, 2, len(*sleeps))
	assert.Equal(t, 750*time.Millisecond, (*sleeps)[0])
}

func TestRunCountsFetchFailures(t *testing.T) {
	tickers := &fakeTickers{symbols: []string{"GOOD", "DOWN"}}
	store := newFakeStore()
	fetcher := &fakeFetcher{results: map[string]news.Result{
		"GOOD": {Status: news.StatusOK, Items: []news.RawItem{rawItemFor("GOOD", testDay)}},
		"DOWN": {Status: news.StatusTransientFailure, Err: errors.New("timeout")},
	}}

	o, _ := newTestOrchestrator(tickers, store, fetcher)
	stats, err := o.Run(context.Background(), testDay, testDay)

	assert.Equal(t, nil, err)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.Errored)
	assert.Equal(t, 1, stats.Inserted)
}

func TestRunWriteErrorAbortsRun(t *testing.T) {
	tickers := &fakeTickers{symbols: []string{"A"}}
	store := newFakeStore()
	store.insertErr = errors.New("disk full")
	fetcher := &fakeFetcher{results: map[string]news.Result{
		"A": {Status: news.StatusOK, Items: []news.RawItem{rawItemFor("A", testDay)}},
	}}

	o, _ := newTestOrchestrator(tickers, store, fetcher)
	_, err := o.Run(context.Background(), testDay, testDay)

	assert.NotEqual(t, nil, err)
	assert.Equal(t, 0, len(store.rows))
}

func TestRunFiltersOffDateRecords(t *testing.T) {
	otherDay := testDay.AddDate(0, 0, -3)
	tickers := &fakeTickers{symbols: []string{"A"}}
	store := newFakeStore()
	fetcher := &fakeFetcher{results: map[string]news.Result{
		"A": {Status: news.StatusOK, Items: []news.RawItem{
			rawItemFor("A", testDay),
			rawItemFor("A", otherDay),
		}},
	}}

	o, _ := newTestOrchestrator(tickers, store, fetcher)
	stats, err := o.Run(context.Background(), testDay, testDay)

	assert.Equal(t, nil, err)
	assert.Equal(t, 1, stats.Inserted)
	assert.Equal(t, 1, len(store.rows))
}

func TestRunTickerUniverseErrorIsFatal(t *testing.T) {
	tickers := &fakeTickers{err: errors.New("reference db down")}
	o, _ := newTestOrchestrator(tickers, newFakeStore(), &fakeFetcher{})

	_, err := o.Run(context.Background(), testDay, testDay)

	assert.NotEqual(t, nil, err)
}

func TestRunMultipleDatesAscending(t *testing.T) {
	day2 := testDay.AddDate(0, 0, 1)
	tickers := &fakeTickers{symbols: []string{"A"}}
	store := newFakeStore()
	fetcher := &fakeFetcher{results: map[string]news.Result{
		"A": {Status: news.StatusNoItems},
	}}

	o, _ := newTestOrchestrator(tickers, store, fetcher)
	stats, err := o.Run(context.Background(), testDay, day2)

	assert.Equal(t, nil, err)
	// One fetch per date: content is never cached across dates.
	assert.Equal(t, 2, len(fetcher.calls))
	assert.Equal(t, 2, stats.Processed)
}
