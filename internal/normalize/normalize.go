package normalize

import (
	"fmt"
	"time"

	"github.com/mathieupelo/alpha-crucible-data-news/internal/model"
	"github.com/mathieupelo/alpha-crucible-data-news/pkg/news"
)

// Extraction is rule-driven: each field has an ordered list of paths to try,
// and every path is probed under the "content" wrapper before the flat legacy
// form. One field's shape says nothing about another's, so fields resolve
// independently.
type rule []string

var (
	titleRules   = []rule{{"title"}}
	summaryRules = []rule{{"summary"}}

	// Publisher: display-name-like field, then name-like field, then a
	// stringified scalar under either key.
	publisherRules = []rule{
		{"provider", "displayName"},
		{"provider", "name"},
		{"provider"},
		{"publisher"},
	}

	// Link: canonical URL object, click-through object, generic URL object,
	// flat legacy link field. Objects yield their inner "url"; scalars
	// stringify directly.
	linkRules = []rule{
		{"canonicalUrl"},
		{"clickThroughUrl"},
		{"url"},
		{"link"},
	}

	imageRules = []rule{
		{"thumbnail"},
		{"image"},
		{"image_url"},
	}

	timestampRules = []rule{
		{"pubDate"},
		{"providerPublishTime"},
		{"publishedAt"},
	}
)

// Normalizer maps raw provider payloads into canonical news records.
// Now supplies the ingestion time substituted for missing or unparseable
// timestamps; it is injectable for tests.
type Normalizer struct {
	Now func() time.Time
}

func New() *Normalizer {
	return &Normalizer{Now: time.Now}
}

// Normalize returns the canonical record for one raw item. The second return
// is false when the item should be skipped: a record with both title and
// summary empty carries no informational value and never reaches storage.
func (n *Normalizer) Normalize(ticker string, item news.RawItem) (model.NewsRecord, bool) {
	rec := model.NewsRecord{
		Ticker:      ticker,
		Title:       extractString(item, titleRules),
		Summary:     extractString(item, summaryRules),
		Publisher:   extractString(item, publisherRules),
		Link:        extractURL(item, linkRules),
		ImageURL:    extractURL(item, imageRules),
		PublishedAt: n.extractTimestamp(item),
	}
	if rec.Publisher == "" {
		rec.Publisher = model.UnknownPublisher
	}
	if !rec.HasContent() {
		return model.NewsRecord{}, false
	}
	return rec, true
}

// probe looks a path up under the "content" wrapper first, then flat.
func probe(item news.RawItem, path rule) (any, bool) {
	if v, ok := lookup(map[string]any(item), append(rule{"content"}, path...)); ok {
		return v, true
	}
	return lookup(map[string]any(item), path)
}

func lookup(m map[string]any, path rule) (any, bool) {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// extractString resolves the first rule yielding a non-empty scalar string.
func extractString(item news.RawItem, rules []rule) string {
	for _, r := range rules {
		v, ok := probe(item, r)
		if !ok {
			continue
		}
		if s := asScalarString(v); s != "" {
			return s
		}
	}
	return ""
}

// extractURL resolves the first rule yielding a URL: a structured object
// yields its inner "url" string, a scalar is stringified directly.
func extractURL(item news.RawItem, rules []rule) string {
	for _, r := range rules {
		v, ok := probe(item, r)
		if !ok {
			continue
		}
		if obj, ok := v.(map[string]any); ok {
			if s := asScalarString(obj["url"]); s != "" {
				return s
			}
			continue
		}
		if s := asScalarString(v); s != "" {
			return s
		}
	}
	return ""
}

// extractTimestamp resolves the first timestamp rule that parses. Numeric
// values are Unix epoch seconds; strings are ISO-8601 (trailing Z accepted).
// Absence or a parse failure substitutes the current ingestion time.
func (n *Normalizer) extractTimestamp(item news.RawItem) time.Time {
	for _, r := range timestampRules {
		v, ok := probe(item, r)
		if !ok {
			continue
		}
		if ts, ok := parseTimestamp(v); ok {
			return ts
		}
	}
	return n.Now().UTC()
}

func parseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case float64:
		return time.Unix(int64(t), 0).UTC(), true
	case int64:
		return time.Unix(t, 0).UTC(), true
	case int:
		return time.Unix(int64(t), 0).UTC(), true
	case string:
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			return ts.UTC(), true
		}
		if ts, err := time.Parse("2006-01-02T15:04:05", t); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func asScalarString(v any) string {
	switch s := v.(type) {
	case nil, map[string]any, []any:
		return ""
	case string:
		return s
	default:
		return fmt.Sprintf("%v", s)
	}
}
