package model

import "time"

// UnknownPublisher is stored when no publisher field can be resolved
// from the provider payload.
const UnknownPublisher = "Unknown"

// NewsRecord is the canonical unit of ingestion. Rows are immutable once
// written; duplicates are suppressed at the store on the natural key
// (Ticker, Link, PublishedAt).
type NewsRecord struct {
	Ticker      string
	Title       string
	Summary     string
	Publisher   string
	Link        string
	PublishedAt time.Time
	ImageURL    string
}

// HasContent reports whether the record carries any informational value.
// Records failing this check are discarded before they reach storage.
func (r NewsRecord) HasContent() bool {
	return r.Title != "" || r.Summary != ""
}

// RunStats holds per-execution counters. They are never persisted.
type RunStats struct {
	Processed int
	Skipped   int
	Errored   int
	Inserted  int
}
