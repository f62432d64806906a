package models

import (
	"time"

	"github.com/google/uuid"
)

// Auction is the live state of a single-item English auction
type Auction struct {
	// Identification
	ID uuid.UUID `json:"id"`

	// Lifecycle
	Ongoing bool `json:"ongoing"`

	// Parties and custody (immutable after creation)
	Seller         Identity `json:"seller"`
	ItemHolder     Identity `json:"item_holder"`
	CurrencyHolder Identity `json:"currency_holder"`

	// Current highest bid. Bidder equals Seller until the first bid lands.
	Bidder         Identity  `json:"bidder"`
	RefundReceiver *Identity `json:"refund_receiver,omitempty"` // nil: nothing to refund
	Price          uint64    `json:"price"`

	// Metadata
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// HasBid reports whether at least one bid has been accepted
func (a *Auction) HasBid() bool {
	return a.RefundReceiver != nil
}

// Clone returns a deep copy so stores never share pointer fields with callers
func (a *Auction) Clone() *Auction {
	c := *a
	if a.RefundReceiver != nil {
		r := *a.RefundReceiver
		c.RefundReceiver = &r
	}
	if a.ClosedAt != nil {
		t := *a.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}
