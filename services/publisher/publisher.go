package publisher

import (
	"context"
	"time"
)

// Event types carried on the listing event stream.
const (
	EventNewListing   = "new"
	EventPriceChanged = "price_changed"
	EventRemoved      = "removed"
)

// ListingEvent is one observation worth telling downstream consumers
// about: a listing appeared, changed price, or went away.
type ListingEvent struct {
	Type       string    `json:"type"`
	AdID       string    `json:"adId"`
	URL        string    `json:"url,omitempty"`
	Title      string    `json:"title,omitempty"`
	Price      *float64  `json:"price,omitempty"`
	OldPrice   *float64  `json:"oldPrice,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher represents a service for publishing listing events
type Publisher interface {
	// PublishEvent appends one event to the stream
	PublishEvent(ctx context.Context, event ListingEvent) error

	// Close closes the publisher connection
	Close() error
}
