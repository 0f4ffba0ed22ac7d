package ingest

import (
	"time"

	"github.com/mathieupelo/alpha-crucible-data-news/internal/model"
)

// Filter decides whether a normalized record belongs to a processing date.
//
// In normal mode a record belongs iff its UTC calendar date equals the target
// date. In backfill mode acceptance widens to "any record within LookbackDays
// of today", independent of the target date: the provider only exposes a
// short rolling window of recent items, so exact historical-date matching is
// unreliable there.
type Filter struct {
	Backfill     bool
	LookbackDays int
	Now          func() time.Time
}

func (f Filter) Belongs(rec model.NewsRecord, targetDate time.Time) bool {
	if !f.Backfill {
		return f.OnDate(rec, targetDate)
	}
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	days := int(calendarDate(now()).Sub(calendarDate(rec.PublishedAt)).Hours() / 24)
	return days >= 0 && days <= f.LookbackDays
}

// OnDate reports an exact calendar-date match. Under backfill the
// orchestrator uses it to tell "on-date" hits from "nearby" ones in logs.
func (f Filter) OnDate(rec model.NewsRecord, targetDate time.Time) bool {
	return calendarDate(rec.PublishedAt).Equal(calendarDate(targetDate))
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
