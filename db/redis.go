package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// IngestQueueKey is the Redis list downstream consumers watch for committed
// batches. Delivery is at-least-once.
const IngestQueueKey = "crucible:queue:news-ingested"

type Queue struct {
	client *redis.Client
}

// OpenQueue connects to Redis. The URL form is preferred; a bare host:port
// is accepted as a fallback.
func OpenQueue(redisURL string) (*Queue, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}

	client := redis.NewClient(opt)
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		client.Close()
		return nil, err
	}

	return &Queue{client: client}, nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}

type ingestedMessage struct {
	Date     string `json:"date"`
	Inserted int    `json:"inserted"`
}

// PublishIngested pushes a marker for one committed day's batch.
func (q *Queue) PublishIngested(ctx context.Context, day time.Time, inserted int) error {
	payload, err := json.Marshal(ingestedMessage{
		Date:     day.Format("2006-01-02"),
		Inserted: inserted,
	})
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, IngestQueueKey, payload).Err()
}
