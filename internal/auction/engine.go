// Package auction implements the custodial single-item English auction:
// creating an auction over escrowed holder accounts, accepting strictly
// increasing bids with automatic refunds, and settling on close.
//
// Every operation is one unit of work. Transfers and record writes made
// inside it are committed together or not at all.
package auction

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"auction/internal/custody"
	"auction/internal/events"
	"auction/internal/ledger"
	"auction/internal/metrics"
	"auction/internal/models"
	"auction/internal/storage"

	"github.com/google/uuid"
)

// Ledger moves value between token accounts inside a unit of work
type Ledger interface {
	Transfer(ctx context.Context, tx storage.Tx, in ledger.Instruction) error
}

// Engine runs auction operations against a store and a ledger
type Engine struct {
	store     storage.Store
	ledger    Ledger
	programID models.Identity
	publisher events.Publisher
	now       func() time.Time
	newID     func() uuid.UUID
}

// Option configures an Engine
type Option func(*Engine)

// WithPublisher sets where committed events go
func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) {
		e.publisher = p
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a new Engine.
// programID seeds every custodial authority the engine derives.
func NewEngine(store storage.Store, l Ledger, programID models.Identity, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		ledger:    l,
		programID: programID,
		publisher: events.Nop{},
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.New,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProgramID returns the identity custodial authorities are derived under
func (e *Engine) ProgramID() models.Identity {
	return e.programID
}

// Authority returns the custodial authority for a seller's auctions
func (e *Engine) Authority(seller models.Identity) (custody.Authority, error) {
	return custody.Derive(e.programID, seller)
}

// run executes fn as one unit of work and records its outcome
func (e *Engine) run(ctx context.Context, op string, fn func(tx storage.Tx) error) error {
	start := time.Now()
	err := e.store.WithTx(ctx, fn)
	metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err == nil {
		return nil
	}

	if kind := KindOf(err); kind != "" {
		metrics.Rejections.WithLabelValues(op, string(kind)).Inc()
		slog.Info("Operation rejected", "operation", op, "kind", kind, "error", err)
	} else {
		metrics.ErrorsTotal.WithLabelValues(op).Inc()
		slog.Error("Operation failed", "operation", op, "error", err)
	}

	return err
}

func (e *Engine) authority(op string, seller models.Identity) (custody.Authority, error) {
	authority, err := e.Authority(seller)
	if err != nil {
		return custody.Authority{}, wrapError(KindInvalidInput, op, err, "cannot derive custodial authority")
	}
	return authority, nil
}

func (e *Engine) loadAuction(ctx context.Context, tx storage.Tx, op string, id uuid.UUID) (*models.Auction, error) {
	auction, err := tx.GetAuction(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, wrapError(KindNotFound, op, err, "auction %s", id)
	}
	if err != nil {
		return nil, err
	}
	return auction, nil
}

func (e *Engine) loadAccount(ctx context.Context, tx storage.Tx, op, role string, address models.Identity) (*models.TokenAccount, error) {
	account, err := tx.GetTokenAccount(ctx, address)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, wrapError(KindNotFound, op, err, "%s %s", role, address)
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

// loadHolder loads a custodial holder and checks the authority owns it
func (e *Engine) loadHolder(ctx context.Context, tx storage.Tx, op, role string, address models.Identity, authority custody.Authority) (*models.TokenAccount, error) {
	account, err := tx.GetTokenAccount(ctx, address)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, wrapError(KindCustody, op, err, "%s %s does not exist", role, address)
	}
	if err != nil {
		return nil, err
	}
	if account.Owner != authority.Address {
		return nil, newError(KindCustody, op, "%s %s is owned by %s, expected custodial authority %s",
			role, address, account.Owner, authority.Address)
	}
	return account, nil
}

func (e *Engine) transfer(ctx context.Context, tx storage.Tx, op, what string, in ledger.Instruction) error {
	if err := e.ledger.Transfer(ctx, tx, in); err != nil {
		return wrapError(KindTransfer, op, err, "%s", what)
	}
	return nil
}
