package models

import (
	"time"

	"github.com/google/uuid"
)

// Bid is the immutable receipt of one accepted bid
type Bid struct {
	ID        uuid.UUID `json:"id"`
	AuctionID uuid.UUID `json:"auction_id"`
	Bidder    Identity  `json:"bidder"`
	Price     uint64    `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}
