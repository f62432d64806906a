package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"auction/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuction() *models.Auction {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	id := uuid.New()
	return &models.Auction{
		ID:             id,
		Ongoing:        true,
		Seller:         "GSELLER",
		ItemHolder:     models.Identity("CITEM" + id.String()),
		CurrencyHolder: models.Identity("CCURRENCY" + id.String()),
		Bidder:         "GSELLER",
		Price:          100,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestMemoryStore_CommitAndRead(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	a := testAuction()

	err := store.WithTx(ctx, func(tx Tx) error {
		if err := tx.InsertAuction(ctx, a); err != nil {
			return err
		}
		if err := tx.InsertTokenAccount(ctx, &models.TokenAccount{Address: "CACC", Mint: "CMINT", Owner: "GOWNER", Amount: 5}); err != nil {
			return err
		}
		return tx.InsertBid(ctx, &models.Bid{ID: uuid.New(), AuctionID: a.ID, Bidder: "GBIDDER", Price: 150})
	})
	require.NoError(t, err)

	err = store.WithTx(ctx, func(tx Tx) error {
		got, err := tx.GetAuction(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a, got)

		account, err := tx.GetTokenAccount(ctx, "CACC")
		require.NoError(t, err)
		assert.Equal(t, uint64(5), account.Amount)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStore_RollbackDiscardsEverything(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.WithTx(ctx, func(tx Tx) error {
		return tx.InsertTokenAccount(ctx, &models.TokenAccount{Address: "CACC", Mint: "CMINT", Owner: "GOWNER", Amount: 5})
	}))

	a := testAuction()
	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx Tx) error {
		require.NoError(t, tx.InsertAuction(ctx, a))
		require.NoError(t, tx.SetTokenBalance(ctx, "CACC", 0))

		// Staged writes are visible inside the unit of work
		account, err := tx.GetTokenAccount(ctx, "CACC")
		require.NoError(t, err)
		assert.Equal(t, uint64(0), account.Amount)
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, store.WithTx(ctx, func(tx Tx) error {
		_, err := tx.GetAuction(ctx, a.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		account, err := tx.GetTokenAccount(ctx, "CACC")
		require.NoError(t, err)
		assert.Equal(t, uint64(5), account.Amount)
		return nil
	}))
}

func TestMemoryStore_ReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	a := testAuction()
	require.NoError(t, store.WithTx(ctx, func(tx Tx) error { return tx.InsertAuction(ctx, a) }))

	// Mutating without UpdateAuction must not leak into the store
	require.NoError(t, store.WithTx(ctx, func(tx Tx) error {
		got, err := tx.GetAuction(ctx, a.ID)
		require.NoError(t, err)
		got.Price = 999
		return nil
	}))

	a.Price = 888
	require.NoError(t, store.WithTx(ctx, func(tx Tx) error {
		got, err := tx.GetAuction(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, uint64(100), got.Price)
		return nil
	}))
}

func TestMemoryStore_Errors(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	a := testAuction()

	err := store.WithTx(ctx, func(tx Tx) error {
		require.NoError(t, tx.InsertAuction(ctx, a))
		assert.Error(t, tx.InsertAuction(ctx, a), "duplicate auction")

		assert.ErrorIs(t, tx.UpdateAuction(ctx, testAuction()), ErrNotFound)
		assert.ErrorIs(t, tx.SetTokenBalance(ctx, "CMISSING", 1), ErrNotFound)

		_, err := tx.GetBid(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = tx.GetTokenAccount(ctx, "CMISSING")
		assert.ErrorIs(t, err, ErrNotFound)
		return nil
	})
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	err = store.WithTx(cancelled, func(tx Tx) error {
		t.Fatal("unit of work must not run on a cancelled context")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore_AuctionByHolder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	a := testAuction()

	require.NoError(t, store.WithTx(ctx, func(tx Tx) error {
		// Staged inserts are visible inside the same unit of work
		require.NoError(t, tx.InsertAuction(ctx, a))
		got, err := tx.AuctionByHolder(ctx, a.CurrencyHolder)
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)
		return nil
	}))

	require.NoError(t, store.WithTx(ctx, func(tx Tx) error {
		got, err := tx.AuctionByHolder(ctx, a.ItemHolder)
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)

		_, err = tx.AuctionByHolder(ctx, "CUNUSED")
		assert.ErrorIs(t, err, ErrNotFound)

		// Either holder, in either role, blocks another auction
		reuse := testAuction()
		reuse.CurrencyHolder = a.ItemHolder
		assert.ErrorIs(t, tx.InsertAuction(ctx, reuse), ErrHolderInUse)
		return nil
	}))
}

func TestMemoryStore_SerialisesUnitsOfWork(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.WithTx(ctx, func(tx Tx) error {
		return tx.InsertTokenAccount(ctx, &models.TokenAccount{Address: "CACC", Mint: "CMINT", Owner: "GOWNER"})
	}))

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.WithTx(ctx, func(tx Tx) error {
				account, err := tx.GetTokenAccount(ctx, "CACC")
				if err != nil {
					return err
				}
				return tx.SetTokenBalance(ctx, "CACC", account.Amount+1)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.NoError(t, store.WithTx(ctx, func(tx Tx) error {
		account, err := tx.GetTokenAccount(ctx, "CACC")
		require.NoError(t, err)
		assert.Equal(t, uint64(n), account.Amount, "no lost updates")
		return nil
	}))
}
