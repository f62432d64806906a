package auction_test

import (
	"context"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"auction/internal/auction"
	"auction/internal/auth"
	"auction/internal/custody"
	"auction/internal/events"
	"auction/internal/ledger"
	"auction/internal/models"
	"auction/internal/storage"

	"github.com/google/uuid"
	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newContractID(t testing.TB) models.Identity {
	t.Helper()
	payload := make([]byte, 32)
	_, err := rand.Read(payload)
	require.NoError(t, err)
	id, err := models.NewContractIdentity(payload)
	require.NoError(t, err)
	return id
}

func newUser(t testing.TB) models.Identity {
	t.Helper()
	return models.Identity(keypair.MustRandom().Address())
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event *events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *event)
}

func (p *recordingPublisher) all() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

// fixture is a seller with an item escrowed in a freshly derived custody
type fixture struct {
	t         *testing.T
	ctx       context.Context
	store     *storage.MemoryStore
	ledger    *ledger.TokenLedger
	engine    *auction.Engine
	published *recordingPublisher

	programID    models.Identity
	seller       models.Identity
	authority    custody.Authority
	itemMint     models.Identity
	currencyMint models.Identity

	itemHolder     models.Identity
	currencyHolder models.Identity
	sellerItem     models.Identity // seller's item receiver
	sellerCurrency models.Identity // seller's currency receiver
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithLedger(t, nil)
}

func newFixtureWithLedger(t *testing.T, wrap func(*ledger.TokenLedger) auction.Ledger) *fixture {
	t.Helper()

	f := &fixture{
		t:            t,
		ctx:          context.Background(),
		store:        storage.NewMemoryStore(),
		ledger:       ledger.NewTokenLedger(),
		published:    &recordingPublisher{},
		programID:    newContractID(t),
		seller:       newUser(t),
		itemMint:     newContractID(t),
		currencyMint: newContractID(t),
	}

	var l auction.Ledger = f.ledger
	if wrap != nil {
		l = wrap(f.ledger)
	}
	f.engine = auction.NewEngine(f.store, l, f.programID,
		auction.WithPublisher(f.published),
		auction.WithClock(func() time.Time { return testTime }),
	)

	authority, err := f.engine.Authority(f.seller)
	require.NoError(t, err)
	f.authority = authority

	f.itemHolder = f.openAccount(authority.Address, f.itemMint, 1)
	f.currencyHolder = f.openAccount(authority.Address, f.currencyMint, 0)
	f.sellerItem = f.openAccount(f.seller, f.itemMint, 0)
	f.sellerCurrency = f.openAccount(f.seller, f.currencyMint, 0)

	return f
}

func (f *fixture) openAccount(owner, mint models.Identity, amount uint64) models.Identity {
	f.t.Helper()
	address := newContractID(f.t)
	err := f.store.WithTx(f.ctx, func(tx storage.Tx) error {
		return f.ledger.OpenAccount(f.ctx, tx, models.TokenAccount{
			Address: address,
			Mint:    mint,
			Owner:   owner,
			Amount:  amount,
		})
	})
	require.NoError(f.t, err)
	return address
}

func (f *fixture) setBalance(address models.Identity, amount uint64) {
	f.t.Helper()
	err := f.store.WithTx(f.ctx, func(tx storage.Tx) error {
		return tx.SetTokenBalance(f.ctx, address, amount)
	})
	require.NoError(f.t, err)
}

func (f *fixture) balance(address models.Identity) uint64 {
	f.t.Helper()
	account, err := f.engine.GetAccount(f.ctx, address)
	require.NoError(f.t, err)
	return account.Amount
}

func (f *fixture) auction(id uuid.UUID) *models.Auction {
	f.t.Helper()
	a, err := f.engine.GetAuction(f.ctx, id)
	require.NoError(f.t, err)
	return a
}

func (f *fixture) create(startPrice uint64) *models.Auction {
	f.t.Helper()
	a, err := f.engine.CreateAuction(f.ctx, auction.CreateAuctionInput{
		Seller:         f.seller,
		ItemHolder:     f.itemHolder,
		CurrencyHolder: f.currencyHolder,
		StartPrice:     startPrice,
		Signers:        auth.NewSignerSet(f.seller),
	})
	require.NoError(f.t, err)
	return a
}

// bidder is a user with a funded currency account and an empty item account
type bidder struct {
	id       models.Identity
	currency models.Identity
	item     models.Identity
}

func (f *fixture) newBidder(funds uint64) bidder {
	f.t.Helper()
	id := newUser(f.t)
	return bidder{
		id:       id,
		currency: f.openAccount(id, f.currencyMint, funds),
		item:     f.openAccount(id, f.itemMint, 0),
	}
}

func (f *fixture) bidInput(a *models.Auction, b bidder, price uint64) auction.PlaceBidInput {
	return auction.PlaceBidInput{
		AuctionID:    a.ID,
		Bidder:       b.id,
		Source:       b.currency,
		RefundTarget: a.RefundReceiver,
		Price:        price,
		Signers:      auth.NewSignerSet(b.id),
	}
}

// bid places a bid using the auction's current refund receiver
func (f *fixture) bid(id uuid.UUID, b bidder, price uint64) *models.Bid {
	f.t.Helper()
	bid, err := f.engine.PlaceBid(f.ctx, f.bidInput(f.auction(id), b, price))
	require.NoError(f.t, err)
	return bid
}

func (f *fixture) closeInput(a *models.Auction, itemReceiver models.Identity) auction.CloseAuctionInput {
	return auction.CloseAuctionInput{
		AuctionID:        a.ID,
		Seller:           f.seller,
		ItemHolder:       f.itemHolder,
		ItemReceiver:     itemReceiver,
		CurrencyHolder:   f.currencyHolder,
		CurrencyReceiver: f.sellerCurrency,
		Signers:          auth.NewSignerSet(f.seller),
	}
}

// snapshot captures everything an operation could change
type snapshot struct {
	auction  models.Auction
	balances map[models.Identity]uint64
}

func (f *fixture) snapshot(id uuid.UUID, accounts ...models.Identity) snapshot {
	f.t.Helper()
	s := snapshot{
		auction:  *f.auction(id).Clone(),
		balances: make(map[models.Identity]uint64, len(accounts)),
	}
	for _, address := range accounts {
		s.balances[address] = f.balance(address)
	}
	return s
}

func (f *fixture) requireUnchanged(before snapshot) {
	f.t.Helper()
	after := f.snapshot(before.auction.ID)
	require.Equal(f.t, before.auction, after.auction)
	for address, amount := range before.balances {
		require.Equal(f.t, amount, f.balance(address), "balance of %s changed", address)
	}
}
