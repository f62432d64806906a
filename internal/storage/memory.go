package storage

import (
	"context"
	"fmt"
	"sync"

	"auction/internal/models"

	"github.com/google/uuid"
)

// MemoryStore keeps all state in process.
// Units of work are fully serialised and stage their writes until commit.
type MemoryStore struct {
	mu       sync.Mutex
	auctions map[uuid.UUID]*models.Auction
	bids     map[uuid.UUID]models.Bid
	accounts map[models.Identity]models.TokenAccount
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		auctions: make(map[uuid.UUID]*models.Auction),
		bids:     make(map[uuid.UUID]models.Bid),
		accounts: make(map[models.Identity]models.TokenAccount),
	}
}

// WithTx runs fn with exclusive access to the store
func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{
		store:    s,
		auctions: make(map[uuid.UUID]*models.Auction),
		bids:     make(map[uuid.UUID]models.Bid),
		accounts: make(map[models.Identity]models.TokenAccount),
	}

	if err := fn(tx); err != nil {
		return err
	}

	tx.commit()
	return nil
}

// Ping always succeeds
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}

// memoryTx stages writes on top of the committed maps
type memoryTx struct {
	store    *MemoryStore
	auctions map[uuid.UUID]*models.Auction
	bids     map[uuid.UUID]models.Bid
	accounts map[models.Identity]models.TokenAccount
}

func (t *memoryTx) commit() {
	for id, auction := range t.auctions {
		t.store.auctions[id] = auction
	}
	for id, bid := range t.bids {
		t.store.bids[id] = bid
	}
	for addr, account := range t.accounts {
		t.store.accounts[addr] = account
	}
}

func (t *memoryTx) GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	if auction, ok := t.auctions[id]; ok {
		return auction.Clone(), nil
	}
	if auction, ok := t.store.auctions[id]; ok {
		return auction.Clone(), nil
	}
	return nil, fmt.Errorf("auction %s: %w", id, ErrNotFound)
}

func (t *memoryTx) InsertAuction(ctx context.Context, auction *models.Auction) error {
	if _, err := t.GetAuction(ctx, auction.ID); err == nil {
		return fmt.Errorf("auction %s already exists", auction.ID)
	}
	for _, holder := range []models.Identity{auction.ItemHolder, auction.CurrencyHolder} {
		if existing, err := t.AuctionByHolder(ctx, holder); err == nil {
			return fmt.Errorf("%s backs auction %s: %w", holder, existing.ID, ErrHolderInUse)
		}
	}
	t.auctions[auction.ID] = auction.Clone()
	return nil
}

func (t *memoryTx) UpdateAuction(ctx context.Context, auction *models.Auction) error {
	if _, err := t.GetAuction(ctx, auction.ID); err != nil {
		return err
	}
	t.auctions[auction.ID] = auction.Clone()
	return nil
}

func (t *memoryTx) AuctionByHolder(ctx context.Context, address models.Identity) (*models.Auction, error) {
	holds := func(a *models.Auction) bool {
		return a.ItemHolder == address || a.CurrencyHolder == address
	}
	for _, auction := range t.auctions {
		if holds(auction) {
			return auction.Clone(), nil
		}
	}
	for _, auction := range t.store.auctions {
		if holds(auction) {
			return auction.Clone(), nil
		}
	}
	return nil, fmt.Errorf("auction holding %s: %w", address, ErrNotFound)
}

func (t *memoryTx) InsertBid(ctx context.Context, bid *models.Bid) error {
	if _, err := t.GetBid(ctx, bid.ID); err == nil {
		return fmt.Errorf("bid %s already exists", bid.ID)
	}
	t.bids[bid.ID] = *bid
	return nil
}

func (t *memoryTx) GetBid(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	if bid, ok := t.bids[id]; ok {
		return &bid, nil
	}
	if bid, ok := t.store.bids[id]; ok {
		return &bid, nil
	}
	return nil, fmt.Errorf("bid %s: %w", id, ErrNotFound)
}

func (t *memoryTx) GetTokenAccount(ctx context.Context, address models.Identity) (*models.TokenAccount, error) {
	if account, ok := t.accounts[address]; ok {
		return &account, nil
	}
	if account, ok := t.store.accounts[address]; ok {
		return &account, nil
	}
	return nil, fmt.Errorf("token account %s: %w", address, ErrNotFound)
}

func (t *memoryTx) InsertTokenAccount(ctx context.Context, account *models.TokenAccount) error {
	if _, err := t.GetTokenAccount(ctx, account.Address); err == nil {
		return fmt.Errorf("token account %s already exists", account.Address)
	}
	t.accounts[account.Address] = *account
	return nil
}

func (t *memoryTx) SetTokenBalance(ctx context.Context, address models.Identity, amount uint64) error {
	account, err := t.GetTokenAccount(ctx, address)
	if err != nil {
		return err
	}
	account.Amount = amount
	t.accounts[address] = *account
	return nil
}
