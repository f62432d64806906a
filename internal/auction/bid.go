package auction

import (
	"context"
	"log/slog"

	"auction/internal/auth"
	"auction/internal/events"
	"auction/internal/ledger"
	"auction/internal/metrics"
	"auction/internal/models"
	"auction/internal/storage"

	"github.com/google/uuid"
)

// PlaceBidInput are the arguments of PlaceBid
type PlaceBidInput struct {
	AuctionID uuid.UUID
	Bidder    models.Identity
	Source    models.Identity // bidder's currency account

	// RefundTarget must be nil or the auction's current refund receiver.
	// It is required once a bid has been accepted.
	RefundTarget *models.Identity

	Price   uint64
	Signers auth.SignerSet
}

// PlaceBid accepts a strictly higher bid. The previous highest bid, if any,
// is refunded from escrow before the new amount is deposited.
func (e *Engine) PlaceBid(ctx context.Context, in PlaceBidInput) (*models.Bid, error) {
	const op = "bid"

	var (
		bid      *models.Bid
		previous uint64
		refunded bool
	)

	err := e.run(ctx, op, func(tx storage.Tx) error {
		auction, err := e.loadAuction(ctx, tx, op, in.AuctionID)
		if err != nil {
			return err
		}
		if !auction.Ongoing {
			return newError(KindNotOngoing, op, "auction %s is closed", auction.ID)
		}

		if !in.Signers.Has(in.Bidder) {
			return newError(KindAuthorization, op, "bidder %s did not sign", in.Bidder)
		}

		authority, err := e.authority(op, auction.Seller)
		if err != nil {
			return err
		}
		holder, err := e.loadHolder(ctx, tx, op, "currency holder", auction.CurrencyHolder, authority)
		if err != nil {
			return err
		}

		source, err := e.loadAccount(ctx, tx, op, "source account", in.Source)
		if err != nil {
			return err
		}
		if source.Mint != holder.Mint {
			return newError(KindDenominationMismatch, op, "source holds %s, auction settles in %s", source.Mint, holder.Mint)
		}
		if source.Owner != in.Bidder {
			return newError(KindAuthorization, op, "source account %s is not owned by bidder %s", source.Address, in.Bidder)
		}

		if err := checkRefundTarget(op, auction, in.RefundTarget); err != nil {
			return err
		}

		if in.Price <= auction.Price {
			return newError(KindBidTooLow, op, "bid %d does not exceed current price %d", in.Price, auction.Price)
		}

		previous = auction.Price

		// Refund first so escrow never owes two bidders at once
		if auction.HasBid() {
			err := e.transfer(ctx, tx, op, "refund of previous bid", ledger.Instruction{
				From:      holder.Address,
				To:        *in.RefundTarget,
				Authority: authority,
				Amount:    auction.Price,
			})
			if err != nil {
				return err
			}
			refunded = true
		}

		err = e.transfer(ctx, tx, op, "escrow deposit", ledger.Instruction{
			From:      source.Address,
			To:        holder.Address,
			Authority: in.Signers.Signer(in.Bidder),
			Amount:    in.Price,
		})
		if err != nil {
			return err
		}

		now := e.now()
		auction.Bidder = in.Bidder
		auction.RefundReceiver = models.OptionalIdentity(source.Address)
		auction.Price = in.Price
		auction.UpdatedAt = now
		if err := tx.UpdateAuction(ctx, auction); err != nil {
			return err
		}

		bid = &models.Bid{
			ID:        e.newID(),
			AuctionID: auction.ID,
			Bidder:    in.Bidder,
			Price:     in.Price,
			CreatedAt: now,
		}
		return tx.InsertBid(ctx, bid)
	})
	if err != nil {
		return nil, err
	}

	metrics.BidsAccepted.Inc()
	metrics.Transfers.WithLabelValues("escrow").Inc()
	if refunded {
		metrics.Transfers.WithLabelValues("refund").Inc()
	}

	slog.Info("Bid accepted",
		"auction_id", bid.AuctionID,
		"bid_id", bid.ID,
		"bidder", bid.Bidder,
		"price", bid.Price,
		"previous_price", previous,
		"refunded", refunded,
	)

	bidID := bid.ID
	e.publisher.Publish(ctx, &events.Event{
		ID:            e.newID(),
		Type:          events.TypeBidPlaced,
		AuctionID:     bid.AuctionID,
		Actor:         bid.Bidder,
		Price:         bid.Price,
		BidID:         &bidID,
		PreviousPrice: previous,
		Refunded:      refunded,
		Timestamp:     bid.CreatedAt,
	})

	return bid, nil
}

// checkRefundTarget keeps a bidder from redirecting someone else's refund
func checkRefundTarget(op string, auction *models.Auction, target *models.Identity) error {
	switch {
	case target == nil && auction.HasBid():
		return newError(KindRefundTargetMismatch, op, "refund target required, expected %s", *auction.RefundReceiver)
	case target == nil:
		return nil
	case !auction.HasBid():
		return newError(KindRefundTargetMismatch, op, "refund target %s given but nothing is owed", *target)
	case *target != *auction.RefundReceiver:
		return newError(KindRefundTargetMismatch, op, "refund target %s does not match %s", *target, *auction.RefundReceiver)
	}
	return nil
}
