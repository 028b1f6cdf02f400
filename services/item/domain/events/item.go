package events

import (
	"time"

	"github.com/google/uuid"
)

// Watermill topics for item lifecycle events. Delivery is best-effort and
// asynchronous: publication happens after the store commit and never blocks
// or fails the triggering operation.
const (
	TopicItemCreated = "item.created"
	TopicItemUpdated = "item.updated"
	TopicItemDeleted = "item.deleted"
)

// ItemSnapshot is the denormalized item state carried in event payloads.
type ItemSnapshot struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Code     string    `json:"code"`
	Category string    `json:"category,omitempty"`
	Price    string    `json:"price"`
	Stock    int       `json:"stock"`
	Status   string    `json:"status"`
	Version  int64     `json:"version"`
	Deleted  bool      `json:"deleted"`
}

// ItemEvent is the common envelope for created/updated/deleted events.
// Consumers subscribe via EventBus.Subscribe(ctx, events.TopicItem*).
type ItemEvent struct {
	EventID    uuid.UUID    `json:"event_id"` // unique publish-time identifier for deduplication
	Version    int          `json:"version"`  // schema version; increment on breaking changes
	ItemID     uuid.UUID    `json:"item_id"`
	Actor      string       `json:"actor"`
	OccurredAt time.Time    `json:"occurred_at"`
	Item       ItemSnapshot `json:"item"`
}
