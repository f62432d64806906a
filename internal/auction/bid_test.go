package auction_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"auction/internal/auction"
	"auction/internal/auth"
	"auction/internal/events"
	"auction/internal/ledger"
	"auction/internal/models"
	"auction/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceBid_FirstBid(t *testing.T) {
	f := newFixture(t)
	a := f.create(100)
	alice := f.newBidder(1000)

	bid := f.bid(a.ID, alice, 150)

	assert.Equal(t, a.ID, bid.AuctionID)
	assert.Equal(t, alice.id, bid.Bidder)
	assert.Equal(t, uint64(150), bid.Price)

	got := f.auction(a.ID)
	assert.True(t, got.Ongoing)
	assert.Equal(t, alice.id, got.Bidder)
	require.NotNil(t, got.RefundReceiver)
	assert.Equal(t, alice.currency, *got.RefundReceiver)
	assert.Equal(t, uint64(150), got.Price)

	assert.Equal(t, uint64(850), f.balance(alice.currency))
	assert.Equal(t, uint64(150), f.balance(f.currencyHolder))

	stored, err := f.engine.GetBid(f.ctx, bid.ID)
	require.NoError(t, err)
	assert.Equal(t, bid, stored)

	published := f.published.all()
	require.Len(t, published, 2)
	ev := published[1]
	assert.Equal(t, events.TypeBidPlaced, ev.Type)
	assert.Equal(t, alice.id, ev.Actor)
	assert.Equal(t, uint64(150), ev.Price)
	assert.Equal(t, uint64(100), ev.PreviousPrice)
	assert.False(t, ev.Refunded)
	require.NotNil(t, ev.BidID)
	assert.Equal(t, bid.ID, *ev.BidID)
}

func TestPlaceBid_OutbidRefundsPreviousBidder(t *testing.T) {
	f := newFixture(t)
	a := f.create(100)
	alice := f.newBidder(1000)
	bob := f.newBidder(1000)

	f.bid(a.ID, alice, 150)
	f.bid(a.ID, bob, 200)

	got := f.auction(a.ID)
	assert.Equal(t, bob.id, got.Bidder)
	assert.Equal(t, bob.currency, *got.RefundReceiver)
	assert.Equal(t, uint64(200), got.Price)

	assert.Equal(t, uint64(1000), f.balance(alice.currency), "alice is made whole")
	assert.Equal(t, uint64(800), f.balance(bob.currency))
	assert.Equal(t, uint64(200), f.balance(f.currencyHolder))

	published := f.published.all()
	require.Len(t, published, 3)
	assert.True(t, published[2].Refunded)
	assert.Equal(t, uint64(150), published[2].PreviousPrice)
}

func TestPlaceBid_SameBidderRaises(t *testing.T) {
	f := newFixture(t)
	a := f.create(100)
	alice := f.newBidder(1000)

	f.bid(a.ID, alice, 150)
	f.bid(a.ID, alice, 300)

	assert.Equal(t, uint64(700), f.balance(alice.currency))
	assert.Equal(t, uint64(300), f.balance(f.currencyHolder))
}

func TestPlaceBid_EscrowTracksPrice(t *testing.T) {
	f := newFixture(t)
	a := f.create(10)

	bidders := []bidder{f.newBidder(500), f.newBidder(500), f.newBidder(500)}
	prices := []uint64{11, 50, 51, 200, 499}

	var last uint64 = 10
	for i, price := range prices {
		b := bidders[i%len(bidders)]
		f.bid(a.ID, b, price)

		got := f.auction(a.ID)
		require.Greater(t, got.Price, last, "price strictly increases")
		require.Equal(t, got.Price, f.balance(f.currencyHolder), "escrow equals highest bid")
		last = got.Price
	}

	var total uint64
	for _, b := range bidders {
		total += f.balance(b.currency)
	}
	assert.Equal(t, uint64(1500), total+f.balance(f.currencyHolder), "currency is conserved")
}

func TestPlaceBid_Rejections(t *testing.T) {
	f := newFixture(t)
	a := f.create(100)
	alice := f.newBidder(1000)
	bob := f.newBidder(1000)
	poor := f.newBidder(10)
	f.bid(a.ID, alice, 150)

	// Source holding a different denomination
	wrongMint := f.openAccount(bob.id, newContractID(t), 1000)
	// Source owned by someone else
	stolen := f.openAccount(alice.id, f.currencyMint, 1000)

	current := f.auction(a.ID)
	target := *current.RefundReceiver
	wrongTarget := bob.currency

	tests := []struct {
		name    string
		mutate  func(in *auction.PlaceBidInput)
		wantErr error
	}{
		{"equal to current price", func(in *auction.PlaceBidInput) { in.Price = 150 }, auction.ErrBidTooLow},
		{"below current price", func(in *auction.PlaceBidInput) { in.Price = 120 }, auction.ErrBidTooLow},
		{"bidder did not sign", func(in *auction.PlaceBidInput) { in.Signers = auth.NewSignerSet(alice.id) }, auction.ErrAuthorization},
		{"source in other denomination", func(in *auction.PlaceBidInput) { in.Source = wrongMint }, auction.ErrDenominationMismatch},
		{"source not owned by bidder", func(in *auction.PlaceBidInput) { in.Source = stolen }, auction.ErrAuthorization},
		{"refund redirected", func(in *auction.PlaceBidInput) { in.RefundTarget = &wrongTarget }, auction.ErrRefundTargetMismatch},
		{"refund target missing", func(in *auction.PlaceBidInput) { in.RefundTarget = nil }, auction.ErrRefundTargetMismatch},
		{"source account missing", func(in *auction.PlaceBidInput) { in.Source = newContractID(t) }, auction.ErrNotFound},
		{"auction missing", func(in *auction.PlaceBidInput) { in.AuctionID = [16]byte{1} }, auction.ErrNotFound},
		{"insufficient funds", func(in *auction.PlaceBidInput) {
			in.Bidder = poor.id
			in.Source = poor.currency
			in.Signers = auth.NewSignerSet(poor.id)
		}, auction.ErrTransfer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := f.snapshot(a.ID, alice.currency, bob.currency, poor.currency, f.currencyHolder, wrongMint, stolen)
			published := len(f.published.all())

			in := auction.PlaceBidInput{
				AuctionID:    a.ID,
				Bidder:       bob.id,
				Source:       bob.currency,
				RefundTarget: &target,
				Price:        200,
				Signers:      auth.NewSignerSet(bob.id),
			}
			tt.mutate(&in)

			bid, err := f.engine.PlaceBid(f.ctx, in)
			require.Error(t, err)
			assert.Nil(t, bid)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)

			f.requireUnchanged(before)
			assert.Len(t, f.published.all(), published, "refused bids publish nothing")
		})
	}
}

func TestPlaceBid_RefundTargetBeforeFirstBid(t *testing.T) {
	f := newFixture(t)
	a := f.create(100)
	alice := f.newBidder(1000)

	target := alice.currency
	in := f.bidInput(a, alice, 150)
	in.RefundTarget = &target

	_, err := f.engine.PlaceBid(f.ctx, in)
	require.ErrorIs(t, err, auction.ErrRefundTargetMismatch)
	assert.Equal(t, uint64(1000), f.balance(alice.currency))
}

func TestPlaceBid_RollsBackRefundWhenEscrowFails(t *testing.T) {
	f := newFixture(t)
	a := f.create(100)
	alice := f.newBidder(1000)
	f.bid(a.ID, alice, 150)

	// Bob can cover the refund check but not the deposit
	bob := f.newBidder(180)
	before := f.snapshot(a.ID, alice.currency, bob.currency, f.currencyHolder)

	_, err := f.engine.PlaceBid(f.ctx, f.bidInput(f.auction(a.ID), bob, 200))
	require.ErrorIs(t, err, auction.ErrTransfer)

	var transferErr *ledger.TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.Equal(t, bob.currency, transferErr.From)

	f.requireUnchanged(before)
	assert.Equal(t, uint64(850), f.balance(alice.currency), "refund was not kept")
}

// failingLedger fails the n-th transfer it is asked to make
type failingLedger struct {
	inner  *ledger.TokenLedger
	failAt int
	calls  int
}

func (l *failingLedger) Transfer(ctx context.Context, tx storage.Tx, in ledger.Instruction) error {
	l.calls++
	if l.calls == l.failAt {
		return errors.New("ledger unavailable")
	}
	return l.inner.Transfer(ctx, tx, in)
}

func TestPlaceBid_LedgerFailureAfterRefund(t *testing.T) {
	var fl *failingLedger
	f := newFixtureWithLedger(t, func(inner *ledger.TokenLedger) auction.Ledger {
		fl = &failingLedger{inner: inner}
		return fl
	})
	a := f.create(100)
	alice := f.newBidder(1000)
	bob := f.newBidder(1000)
	f.bid(a.ID, alice, 150)

	// Second bid: call 2 is the refund, call 3 the deposit
	fl.failAt = fl.calls + 2
	before := f.snapshot(a.ID, alice.currency, bob.currency, f.currencyHolder)

	_, err := f.engine.PlaceBid(f.ctx, f.bidInput(f.auction(a.ID), bob, 200))
	require.ErrorIs(t, err, auction.ErrTransfer)

	f.requireUnchanged(before)
}

func TestPlaceBid_ClosedAuction(t *testing.T) {
	f := newFixture(t)
	a := f.create(100)
	alice := f.newBidder(1000)
	f.bid(a.ID, alice, 150)

	_, err := f.engine.CloseAuction(f.ctx, f.closeInput(f.auction(a.ID), alice.item))
	require.NoError(t, err)

	bob := f.newBidder(1000)
	before := f.snapshot(a.ID, bob.currency, f.currencyHolder, f.sellerCurrency)

	_, err = f.engine.PlaceBid(f.ctx, f.bidInput(f.auction(a.ID), bob, 500))
	require.ErrorIs(t, err, auction.ErrNotOngoing)
	f.requireUnchanged(before)
}

func TestPlaceBid_Concurrent(t *testing.T) {
	f := newFixture(t)
	a := f.create(0)

	const n = 8
	bidders := make([]bidder, n)
	for i := range bidders {
		bidders[i] = f.newBidder(10_000)
	}

	var wg sync.WaitGroup
	for i, b := range bidders {
		wg.Add(1)
		go func(b bidder, price uint64) {
			defer wg.Done()
			for {
				current, err := f.engine.GetAuction(f.ctx, a.ID)
				if err != nil {
					t.Error(err)
					return
				}
				_, err = f.engine.PlaceBid(f.ctx, auction.PlaceBidInput{
					AuctionID:    a.ID,
					Bidder:       b.id,
					Source:       b.currency,
					RefundTarget: current.RefundReceiver,
					Price:        price,
					Signers:      auth.NewSignerSet(b.id),
				})
				// A stale refund target means someone else got in first; read again
				if errors.Is(err, auction.ErrRefundTargetMismatch) {
					continue
				}
				if err != nil && !errors.Is(err, auction.ErrBidTooLow) {
					t.Error(err)
				}
				return
			}
		}(b, uint64(100*(i+1)))
	}
	wg.Wait()

	got := f.auction(a.ID)
	assert.Equal(t, uint64(100*n), got.Price)
	assert.Equal(t, bidders[n-1].id, got.Bidder)
	assert.Equal(t, got.Price, f.balance(f.currencyHolder))

	var total uint64
	for _, b := range bidders {
		total += f.balance(b.currency)
	}
	assert.Equal(t, uint64(n*10_000), total+f.balance(f.currencyHolder))
}

func TestGetters_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.GetAuction(f.ctx, [16]byte{9})
	assert.ErrorIs(t, err, auction.ErrNotFound)

	_, err = f.engine.GetBid(f.ctx, [16]byte{9})
	assert.ErrorIs(t, err, auction.ErrNotFound)

	_, err = f.engine.GetAccount(f.ctx, models.Identity(newContractID(t)))
	assert.ErrorIs(t, err, auction.ErrNotFound)
}
