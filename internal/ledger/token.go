package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"auction/internal/models"
	"auction/internal/storage"
)

// Authorizer proves control over the owner of a source account
type Authorizer interface {
	Identity() models.Identity
	Prove() error
}

// Instruction moves Amount from one token account to another
type Instruction struct {
	From      models.Identity
	To        models.Identity
	Authority Authorizer
	Amount    uint64
}

// TransferError describes why the ledger refused an instruction
type TransferError struct {
	Reason string
	From   models.Identity
	To     models.Identity
	Amount uint64
	Err    error
}

func (e *TransferError) Error() string {
	msg := fmt.Sprintf("transfer of %d from %s to %s failed: %s", e.Amount, e.From, e.To, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// TokenLedger applies transfers to token accounts held in a storage.Tx.
// It keeps no state of its own; atomicity comes from the surrounding unit of work.
type TokenLedger struct{}

// NewTokenLedger creates a new TokenLedger
func NewTokenLedger() *TokenLedger {
	return &TokenLedger{}
}

// Transfer validates and applies in
func (l *TokenLedger) Transfer(ctx context.Context, tx storage.Tx, in Instruction) error {
	fail := func(reason string, err error) error {
		return &TransferError{Reason: reason, From: in.From, To: in.To, Amount: in.Amount, Err: err}
	}

	if in.Authority == nil {
		return fail("missing authority", nil)
	}

	from, err := tx.GetTokenAccount(ctx, in.From)
	if err != nil {
		return fail("source account unavailable", err)
	}
	to, err := tx.GetTokenAccount(ctx, in.To)
	if err != nil {
		return fail("destination account unavailable", err)
	}

	if from.Mint != to.Mint {
		return fail(fmt.Sprintf("mint mismatch (%s != %s)", from.Mint, to.Mint), nil)
	}
	if in.Authority.Identity() != from.Owner {
		return fail(fmt.Sprintf("authority %s does not own source account", in.Authority.Identity()), nil)
	}
	if err := in.Authority.Prove(); err != nil {
		return fail("authority not proven", err)
	}
	if from.Amount < in.Amount {
		return fail(fmt.Sprintf("insufficient funds (balance %d)", from.Amount), nil)
	}

	// Self-transfers are valid no-ops
	if from.Address == to.Address {
		return nil
	}

	if to.Amount > math.MaxUint64-in.Amount {
		return fail("destination balance overflow", nil)
	}

	if err := tx.SetTokenBalance(ctx, from.Address, from.Amount-in.Amount); err != nil {
		return fail("debit failed", err)
	}
	if err := tx.SetTokenBalance(ctx, to.Address, to.Amount+in.Amount); err != nil {
		return fail("credit failed", err)
	}

	slog.Debug("Ledger transfer applied",
		"from", in.From,
		"to", in.To,
		"amount", in.Amount,
		"authority", in.Authority.Identity(),
	)

	return nil
}

// Balance returns the amount held by address
func (l *TokenLedger) Balance(ctx context.Context, tx storage.Tx, address models.Identity) (uint64, error) {
	account, err := tx.GetTokenAccount(ctx, address)
	if err != nil {
		return 0, err
	}
	return account.Amount, nil
}

// OpenAccount allocates a token account with an initial balance
func (l *TokenLedger) OpenAccount(ctx context.Context, tx storage.Tx, account models.TokenAccount) error {
	if account.Address == "" || account.Mint == "" || account.Owner == "" {
		return errors.New("token account requires address, mint and owner")
	}
	if err := tx.InsertTokenAccount(ctx, &account); err != nil {
		return fmt.Errorf("failed to open token account %s: %w", account.Address, err)
	}
	return nil
}
