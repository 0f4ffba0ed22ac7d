package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const yahooSearchURL = "https://query1.finance.yahoo.com/v1/finance/search"

// YahooClient fetches per-ticker news from the Yahoo Finance search endpoint.
// Items are returned raw: the endpoint has shipped both a nested "content"
// payload and a flat legacy one, and the shape can differ item by item.
type YahooClient struct {
	newsCount  int
	httpClient *http.Client
}

func NewYahooClient(newsCount int) *YahooClient {
	return &YahooClient{
		newsCount:  newsCount,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *YahooClient) Name() string {
	return "Yahoo"
}

func (c *YahooClient) Fetch(ctx context.Context, ticker string) ([]RawItem, error) {
	endpoint := fmt.Sprintf("%s?q=%s&newsCount=%d&quotesCount=0",
		yahooSearchURL, url.QueryEscape(ticker), c.newsCount)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &PermanentError{Err: fmt.Errorf("yahoo request for %s: %w", ticker, err)}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("yahoo fetch %s: %w", ticker, ErrRateLimited)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("yahoo fetch %s: server error %d", ticker, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, &PermanentError{Err: fmt.Errorf("yahoo fetch %s: status %d", ticker, resp.StatusCode)}
	}

	var raw yahooSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, &PermanentError{Err: fmt.Errorf("yahoo decode %s: %w", ticker, err)}
	}

	return raw.News, nil
}

type yahooSearchResponse struct {
	News []RawItem `json:"news"`
}
