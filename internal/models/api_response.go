package models

import (
	"time"
)

// AuctionResponse represents an auction with its current state for API responses
type AuctionResponse struct {
	AuctionID string `json:"auction_id"`
	Ongoing   bool   `json:"ongoing"`
	Status    string `json:"status"` // open, bidding, closed

	// Participants
	Seller         string  `json:"seller"`
	Bidder         string  `json:"bidder"` // seller until the first bid
	RefundReceiver *string `json:"refund_receiver"`

	// Custody
	Authority      string `json:"authority"`
	ItemHolder     string `json:"item_holder"`
	CurrencyHolder string `json:"currency_holder"`

	// Financials (raw units and formatted)
	Price        uint64 `json:"price"`
	PriceDisplay string `json:"price_display"`

	// Metadata
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// BidResponse represents an accepted bid
type BidResponse struct {
	BidID        string    `json:"bid_id"`
	AuctionID    string    `json:"auction_id"`
	Bidder       string    `json:"bidder"`
	Price        uint64    `json:"price"`
	PriceDisplay string    `json:"price_display"`
	CreatedAt    time.Time `json:"created_at"`
}

// SettlementResponse reports the transfers made when an auction closed
type SettlementResponse struct {
	AuctionID           string `json:"auction_id"`
	Winner              string `json:"winner"`
	ItemAmount          uint64 `json:"item_amount"`
	CurrencyPaid        uint64 `json:"currency_paid"`
	CurrencyPaidDisplay string `json:"currency_paid_display"`
	CurrencySkipped     bool   `json:"currency_skipped"`
}

// AccountResponse represents a token account balance
type AccountResponse struct {
	Address       string `json:"address"`
	Mint          string `json:"mint"`
	Owner         string `json:"owner"`
	Amount        uint64 `json:"amount"`
	AmountDisplay string `json:"amount_display"`
}

// AuthorityResponse represents the custodial authority derived for a seller
type AuthorityResponse struct {
	Seller    string `json:"seller"`
	ProgramID string `json:"program_id"`
	Authority string `json:"authority"`
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Code    int    `json:"code"`
}
