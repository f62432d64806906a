// Package custody derives the signing authority that owns escrow holder
// accounts. The authority is a C... address computed from the program
// identity and a seed (the seller); nobody holds a private key for it, so
// the only way to act as it is to present a derivation that re-computes.
package custody

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"auction/internal/models"
)

const derivationTag = "auction/custodial-authority/v1"

// ErrDerivationMismatch means the claimed address is not derived from the seed
var ErrDerivationMismatch = errors.New("custodial authority does not match its derivation")

// Authority is a program-derived signing authority for one seed
type Authority struct {
	ProgramID models.Identity
	Seed      models.Identity
	Address   models.Identity
}

// Derive computes the custodial authority of seed under programID
func Derive(programID, seed models.Identity) (Authority, error) {
	address, err := deriveAddress(programID, seed)
	if err != nil {
		return Authority{}, err
	}

	return Authority{
		ProgramID: programID,
		Seed:      seed,
		Address:   address,
	}, nil
}

// Identity returns the derived address
func (a Authority) Identity() models.Identity {
	return a.Address
}

// Prove re-derives the address from ProgramID and Seed
func (a Authority) Prove() error {
	address, err := deriveAddress(a.ProgramID, a.Seed)
	if err != nil {
		return err
	}
	if address != a.Address {
		return fmt.Errorf("%w: have %s, derived %s", ErrDerivationMismatch, a.Address, address)
	}
	return nil
}

func deriveAddress(programID, seed models.Identity) (models.Identity, error) {
	program, err := programID.Raw()
	if err != nil {
		return "", fmt.Errorf("invalid program id: %w", err)
	}
	seedRaw, err := seed.Raw()
	if err != nil {
		return "", fmt.Errorf("invalid seed: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(derivationTag))
	h.Write(program)
	h.Write(seedRaw)

	return models.NewContractIdentity(h.Sum(nil))
}
