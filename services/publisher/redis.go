package publisher

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher implements Publisher on a Redis stream
type RedisPublisher struct {
	client    *redis.Client
	stream    string
	maxLength int64
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(addr string, db int, stream string, maxLength int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisPublisher{
		client:    client,
		stream:    stream,
		maxLength: int64(maxLength),
	}
}

// PublishEvent appends one event to the stream. The stream is trimmed
// to its maximum length on every append, so it never needs a separate
// maintenance pass.
func (p *RedisPublisher) PublishEvent(ctx context.Context, event ListingEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLength,
		Approx: true,
		Values: map[string]interface{}{
			"event": string(payload),
		},
	}).Err()
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
