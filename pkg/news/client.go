package news

import (
	"context"
	"errors"
	"fmt"
)

// RawItem is one loosely-structured news item as returned by a provider.
// Providers have shipped at least two historical shapes (fields nested under
// a "content" wrapper, or flat at the top level); normalization is the
// caller's job.
type RawItem map[string]any

// Client fetches the raw news items a provider currently exposes for one
// ticker. An empty result with a nil error is a valid success ("no news").
type Client interface {
	Fetch(ctx context.Context, ticker string) ([]RawItem, error)
	Name() string
}

// ErrRateLimited signals the provider rejected the call with an HTTP 429
// equivalent. Callers back off exponentially before retrying.
var ErrRateLimited = errors.New("rate limited by provider")

// PermanentError marks a failure that will not succeed on retry, such as a
// malformed response body or a client-side request error.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent provider error: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}
