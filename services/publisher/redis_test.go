package publisher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPublisher(t *testing.T) {
	ctx := context.Background()
	pub := NewRedisPublisher("localhost:6379", 0, "test_listing_events", 100)
	defer pub.Close()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   0,
	})
	defer client.Close()

	// Test if Redis is available
	if _, err := client.Ping(ctx).Result(); err != nil {
		t.Skip("Redis is not available, skipping test")
	}
	defer client.Del(ctx, "test_listing_events")

	price := 250000.0
	oldPrice := 235000.0
	err := pub.PublishEvent(ctx, ListingEvent{
		Type:       EventPriceChanged,
		AdID:       "31871394",
		Price:      &price,
		OldPrice:   &oldPrice,
		OccurredAt: time.Now(),
	})
	require.NoError(t, err)

	messages, err := client.XRange(ctx, "test_listing_events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, messages, 1)

	var event ListingEvent
	err = json.Unmarshal([]byte(messages[0].Values["event"].(string)), &event)
	require.NoError(t, err)

	assert.Equal(t, EventPriceChanged, event.Type)
	assert.Equal(t, "31871394", event.AdID)
	assert.Equal(t, 250000.0, *event.Price)
	assert.Equal(t, 235000.0, *event.OldPrice)
}
