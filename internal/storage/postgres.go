package storage

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math"

	"auction/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// SQLSTATE raised by the holder indexes on auctions
const uniqueViolation = "23505"

// PostgresStore implements Store on top of a pgx connection pool
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{
		pool: pool,
	}, nil
}

// Migrate creates the tables if they do not exist yet
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// WithTx runs fn inside a database transaction.
// Rows read through the transaction are locked until it ends.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&postgresTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Ping checks if the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the database connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

type postgresTx struct {
	tx pgx.Tx
}

const auctionColumns = `
	id, ongoing, seller, item_holder, currency_holder,
	bidder, refund_receiver, price, created_at, updated_at, closed_at
`

func scanAuction(row pgx.Row) (*models.Auction, error) {
	var (
		auction                                    models.Auction
		seller, itemHolder, currencyHolder, bidder string
		refundReceiver                             *string
		price                                      int64
	)

	err := row.Scan(
		&auction.ID,
		&auction.Ongoing,
		&seller,
		&itemHolder,
		&currencyHolder,
		&bidder,
		&refundReceiver,
		&price,
		&auction.CreatedAt,
		&auction.UpdatedAt,
		&auction.ClosedAt,
	)
	if err != nil {
		return nil, err
	}

	auction.Seller = models.Identity(seller)
	auction.ItemHolder = models.Identity(itemHolder)
	auction.CurrencyHolder = models.Identity(currencyHolder)
	auction.Bidder = models.Identity(bidder)
	if refundReceiver != nil {
		auction.RefundReceiver = models.OptionalIdentity(models.Identity(*refundReceiver))
	}
	auction.Price = uint64(price)

	return &auction, nil
}

func (t *postgresTx) GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	query := `SELECT` + auctionColumns + `FROM auctions WHERE id = $1 FOR UPDATE`

	auction, err := scanAuction(t.tx.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("auction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}

	return auction, nil
}

// AuctionByHolder relies on the caller holding the account's row lock,
// so a concurrent create on the same holder sees this one once it commits
func (t *postgresTx) AuctionByHolder(ctx context.Context, address models.Identity) (*models.Auction, error) {
	query := `SELECT` + auctionColumns + `FROM auctions
		WHERE item_holder = $1 OR currency_holder = $1
		LIMIT 1`

	auction, err := scanAuction(t.tx.QueryRow(ctx, query, address.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("auction holding %s: %w", address, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find auction by holder: %w", err)
	}

	return auction, nil
}

func (t *postgresTx) InsertAuction(ctx context.Context, auction *models.Auction) error {
	price, err := toBigint(auction.Price)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO auctions (
			id, ongoing, seller, item_holder, currency_holder,
			bidder, refund_receiver, price, created_at, updated_at, closed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = t.tx.Exec(ctx, query,
		auction.ID,
		auction.Ongoing,
		auction.Seller.String(),
		auction.ItemHolder.String(),
		auction.CurrencyHolder.String(),
		auction.Bidder.String(),
		nullableIdentity(auction.RefundReceiver),
		price,
		auction.CreatedAt,
		auction.UpdatedAt,
		auction.ClosedAt,
	)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("auction %s: %w", auction.ID, ErrHolderInUse)
	}
	if err != nil {
		return fmt.Errorf("failed to save auction: %w", err)
	}

	return nil
}

// UpdateAuction writes the mutable fields only; parties and holders never change
func (t *postgresTx) UpdateAuction(ctx context.Context, auction *models.Auction) error {
	price, err := toBigint(auction.Price)
	if err != nil {
		return err
	}

	query := `
		UPDATE auctions
		SET ongoing = $2, bidder = $3, refund_receiver = $4, price = $5,
			updated_at = $6, closed_at = $7
		WHERE id = $1
	`

	tag, err := t.tx.Exec(ctx, query,
		auction.ID,
		auction.Ongoing,
		auction.Bidder.String(),
		nullableIdentity(auction.RefundReceiver),
		price,
		auction.UpdatedAt,
		auction.ClosedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update auction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("auction %s: %w", auction.ID, ErrNotFound)
	}

	return nil
}

func (t *postgresTx) InsertBid(ctx context.Context, bid *models.Bid) error {
	price, err := toBigint(bid.Price)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO bids (id, auction_id, bidder, price, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = t.tx.Exec(ctx, query,
		bid.ID,
		bid.AuctionID,
		bid.Bidder.String(),
		price,
		bid.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save bid: %w", err)
	}

	return nil
}

func (t *postgresTx) GetBid(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	query := `SELECT id, auction_id, bidder, price, created_at FROM bids WHERE id = $1`

	var (
		bid    models.Bid
		bidder string
		price  int64
	)

	err := t.tx.QueryRow(ctx, query, id).Scan(
		&bid.ID,
		&bid.AuctionID,
		&bidder,
		&price,
		&bid.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("bid %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bid: %w", err)
	}

	bid.Bidder = models.Identity(bidder)
	bid.Price = uint64(price)

	return &bid, nil
}

func (t *postgresTx) GetTokenAccount(ctx context.Context, address models.Identity) (*models.TokenAccount, error) {
	query := `
		SELECT address, mint, owner, amount
		FROM token_accounts
		WHERE address = $1
		FOR UPDATE
	`

	var (
		addr, mint, owner string
		amount            int64
	)

	err := t.tx.QueryRow(ctx, query, address.String()).Scan(&addr, &mint, &owner, &amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("token account %s: %w", address, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token account: %w", err)
	}

	return &models.TokenAccount{
		Address: models.Identity(addr),
		Mint:    models.Identity(mint),
		Owner:   models.Identity(owner),
		Amount:  uint64(amount),
	}, nil
}

func (t *postgresTx) InsertTokenAccount(ctx context.Context, account *models.TokenAccount) error {
	amount, err := toBigint(account.Amount)
	if err != nil {
		return err
	}

	query := `INSERT INTO token_accounts (address, mint, owner, amount) VALUES ($1, $2, $3, $4)`

	_, err = t.tx.Exec(ctx, query,
		account.Address.String(),
		account.Mint.String(),
		account.Owner.String(),
		amount,
	)

	if err != nil {
		return fmt.Errorf("failed to save token account: %w", err)
	}

	return nil
}

func (t *postgresTx) SetTokenBalance(ctx context.Context, address models.Identity, amount uint64) error {
	value, err := toBigint(amount)
	if err != nil {
		return err
	}

	tag, err := t.tx.Exec(ctx, `UPDATE token_accounts SET amount = $2 WHERE address = $1`, address.String(), value)
	if err != nil {
		return fmt.Errorf("failed to update token balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("token account %s: %w", address, ErrNotFound)
	}

	return nil
}

// toBigint rejects amounts that do not fit a signed BIGINT column
func toBigint(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("amount %d exceeds storable maximum %d", v, int64(math.MaxInt64))
	}
	return int64(v), nil
}

func nullableIdentity(id *models.Identity) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
