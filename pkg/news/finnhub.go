package news

import (
	"context"
	"fmt"
	"net/http"
	"time"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"
)

// FinnhubClient fetches company news through the official Finnhub SDK.
// The SDK returns typed structs; they are re-emitted as flat-form RawItems
// so the one normalizer serves every provider.
type FinnhubClient struct {
	client     *finnhub.DefaultApiService
	windowDays int
}

// NewFinnhubClient fetches company news covering the last windowDays days;
// Finnhub requires an explicit from/to range per call.
func NewFinnhubClient(apiKey string, windowDays int) *FinnhubClient {
	cfg := finnhub.NewConfiguration()
	cfg.AddDefaultHeader("X-Finnhub-Token", apiKey)
	client := finnhub.NewAPIClient(cfg).DefaultApi
	return &FinnhubClient{client: client, windowDays: windowDays}
}

func (c *FinnhubClient) Name() string {
	return "Finnhub"
}

func (c *FinnhubClient) Fetch(ctx context.Context, ticker string) ([]RawItem, error) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -c.windowDays)

	res, httpResp, err := c.client.CompanyNews(ctx).
		Symbol(ticker).
		From(from.Format("2006-01-02")).
		To(to.Format("2006-01-02")).
		Execute()
	if err != nil {
		if httpResp != nil && httpResp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("finnhub fetch %s: %w", ticker, ErrRateLimited)
		}
		return nil, fmt.Errorf("finnhub fetch %s: %w", ticker, err)
	}

	items := make([]RawItem, 0, len(res))
	for _, n := range res {
		item := RawItem{}
		if n.Headline != nil {
			item["title"] = *n.Headline
		}
		if n.Summary != nil {
			item["summary"] = *n.Summary
		}
		if n.Source != nil {
			item["publisher"] = *n.Source
		}
		if n.Url != nil {
			item["link"] = *n.Url
		}
		if n.Image != nil {
			item["image_url"] = *n.Image
		}
		if n.Datetime != nil {
			item["providerPublishTime"] = *n.Datetime
		}
		items = append(items, item)
	}

	return items, nil
}
