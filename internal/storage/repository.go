package storage

import (
	"context"
	"errors"

	"auction/internal/models"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record or account does not exist
	ErrNotFound = errors.New("not found")

	// ErrHolderInUse is returned when an account already backs an auction
	ErrHolderInUse = errors.New("holder account already backs an auction")
)

// Store runs units of work against persistent auction state
type Store interface {
	// WithTx runs fn inside a single unit of work.
	// Every write made through tx is committed only if fn returns nil;
	// otherwise all of them are discarded. Units touching the same
	// auction or account never interleave.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Health & Maintenance
	Ping(ctx context.Context) error
	Close() error
}

// Tx is the view of the store inside a unit of work
type Tx interface {
	// Auctions
	GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error)
	InsertAuction(ctx context.Context, auction *models.Auction) error
	UpdateAuction(ctx context.Context, auction *models.Auction) error
	// AuctionByHolder finds the auction, open or closed, that records
	// address as its item or currency holder
	AuctionByHolder(ctx context.Context, address models.Identity) (*models.Auction, error)

	// Bids (append-only)
	InsertBid(ctx context.Context, bid *models.Bid) error
	GetBid(ctx context.Context, id uuid.UUID) (*models.Bid, error)

	// Token accounts
	GetTokenAccount(ctx context.Context, address models.Identity) (*models.TokenAccount, error)
	InsertTokenAccount(ctx context.Context, account *models.TokenAccount) error
	SetTokenBalance(ctx context.Context, address models.Identity, amount uint64) error
}
