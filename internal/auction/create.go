package auction

import (
	"context"
	"errors"
	"log/slog"

	"auction/internal/auth"
	"auction/internal/events"
	"auction/internal/metrics"
	"auction/internal/models"
	"auction/internal/storage"
)

// CreateAuctionInput are the arguments of CreateAuction
type CreateAuctionInput struct {
	Seller         models.Identity
	ItemHolder     models.Identity
	CurrencyHolder models.Identity
	StartPrice     uint64
	Signers        auth.SignerSet
}

// CreateAuction opens an auction over two holder accounts owned by the
// seller's custodial authority. No value moves.
func (e *Engine) CreateAuction(ctx context.Context, in CreateAuctionInput) (*models.Auction, error) {
	const op = "create_auction"

	if !in.Signers.Has(in.Seller) {
		return nil, newError(KindAuthorization, op, "seller %s did not sign", in.Seller)
	}
	if in.ItemHolder == in.CurrencyHolder {
		return nil, newError(KindCustody, op, "item holder and currency holder must be distinct accounts")
	}

	authority, err := e.authority(op, in.Seller)
	if err != nil {
		return nil, err
	}

	var auction *models.Auction
	err = e.run(ctx, op, func(tx storage.Tx) error {
		if _, err := e.loadHolder(ctx, tx, op, "item holder", in.ItemHolder, authority); err != nil {
			return err
		}
		if _, err := e.loadHolder(ctx, tx, op, "currency holder", in.CurrencyHolder, authority); err != nil {
			return err
		}

		// Escrow balances are only meaningful if each holder backs one auction
		for _, holder := range []models.Identity{in.ItemHolder, in.CurrencyHolder} {
			existing, err := tx.AuctionByHolder(ctx, holder)
			switch {
			case err == nil:
				return newError(KindCustody, op, "holder %s already backs auction %s", holder, existing.ID)
			case !errors.Is(err, storage.ErrNotFound):
				return err
			}
		}

		now := e.now()
		auction = &models.Auction{
			ID:             e.newID(),
			Ongoing:        true,
			Seller:         in.Seller,
			ItemHolder:     in.ItemHolder,
			CurrencyHolder: in.CurrencyHolder,
			Bidder:         in.Seller,
			RefundReceiver: nil,
			Price:          in.StartPrice,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		if err := tx.InsertAuction(ctx, auction); err != nil {
			if errors.Is(err, storage.ErrHolderInUse) {
				return wrapError(KindCustody, op, err, "holder account already backs an auction")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.AuctionsCreated.Inc()
	slog.Info("Auction created",
		"auction_id", auction.ID,
		"seller", auction.Seller,
		"start_price", auction.Price,
	)

	e.publisher.Publish(ctx, &events.Event{
		ID:        e.newID(),
		Type:      events.TypeAuctionCreated,
		AuctionID: auction.ID,
		Actor:     auction.Seller,
		Price:     auction.Price,
		Timestamp: auction.CreatedAt,
	})

	return auction, nil
}
