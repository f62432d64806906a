package events

import (
	"context"
	"time"

	"auction/internal/models"

	"github.com/google/uuid"
)

// Type names an auction state transition
type Type string

const (
	TypeAuctionCreated Type = "auction.created"
	TypeBidPlaced      Type = "bid.placed"
	TypeAuctionClosed  Type = "auction.closed"
)

// Event is emitted once a unit of work has committed
type Event struct {
	ID        uuid.UUID       `json:"event_id"`
	Type      Type            `json:"type"`
	AuctionID uuid.UUID       `json:"auction_id"`
	Actor     models.Identity `json:"actor"` // seller or bidder that triggered it
	Price     uint64          `json:"price"`

	// Bid fields
	BidID         *uuid.UUID `json:"bid_id,omitempty"`
	PreviousPrice uint64     `json:"previous_price,omitempty"`
	Refunded      bool       `json:"refunded,omitempty"`

	// Close fields
	Winner          models.Identity `json:"winner,omitempty"`
	CurrencySkipped bool            `json:"currency_skipped,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// Sink receives committed events
type Sink interface {
	// Handle delivers a single event
	// Errors are logged by the dispatcher and never undo the committed state
	Handle(ctx context.Context, event *Event) error

	// Name returns the sink name for logging
	Name() string
}

// Publisher is what the engine depends on
type Publisher interface {
	Publish(ctx context.Context, event *Event)
}
