package auction

import (
	"context"
	"errors"

	"auction/internal/models"
	"auction/internal/storage"

	"github.com/google/uuid"
)

// GetAuction returns the current state of an auction
func (e *Engine) GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	var auction *models.Auction
	err := e.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		auction, err = e.loadAuction(ctx, tx, "get_auction", id)
		return err
	})
	return auction, err
}

// GetBid returns an accepted bid
func (e *Engine) GetBid(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	var bid *models.Bid
	err := e.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		bid, err = tx.GetBid(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return wrapError(KindNotFound, "get_bid", err, "bid %s", id)
		}
		return err
	})
	return bid, err
}

// GetAccount returns a token account and its balance
func (e *Engine) GetAccount(ctx context.Context, address models.Identity) (*models.TokenAccount, error) {
	var account *models.TokenAccount
	err := e.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		account, err = e.loadAccount(ctx, tx, "get_account", "token account", address)
		return err
	})
	return account, err
}
