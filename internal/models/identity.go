package models

import (
	"fmt"

	"github.com/stellar/go/strkey"
)

// Identity is a strkey-encoded address.
// User accounts are G... (ed25519 public keys); token accounts, mints, the
// program and custodial authorities are C... addresses.
type Identity string

// ParseIdentity validates the strkey checksum and version byte of s
func ParseIdentity(s string) (Identity, error) {
	version, _, err := strkey.DecodeAny(s)
	if err != nil {
		return "", fmt.Errorf("invalid identity %q: %w", s, err)
	}

	switch version {
	case strkey.VersionByteAccountID, strkey.VersionByteContract:
		return Identity(s), nil
	default:
		return "", fmt.Errorf("invalid identity %q: unsupported version byte %d", s, version)
	}
}

// MustParseIdentity is like ParseIdentity but panics on error
func MustParseIdentity(s string) Identity {
	id, err := ParseIdentity(s)
	if err != nil {
		panic(err)
	}
	return id
}

// NewContractIdentity encodes a 32 byte payload as a C... address
func NewContractIdentity(payload []byte) (Identity, error) {
	encoded, err := strkey.Encode(strkey.VersionByteContract, payload)
	if err != nil {
		return "", fmt.Errorf("error encoding contract identity: %w", err)
	}
	return Identity(encoded), nil
}

// Raw returns the decoded key bytes
func (id Identity) Raw() ([]byte, error) {
	_, raw, err := strkey.DecodeAny(string(id))
	if err != nil {
		return nil, fmt.Errorf("invalid identity %q: %w", string(id), err)
	}
	return raw, nil
}

// IsAccount reports whether id is a user account (G...) address
func (id Identity) IsAccount() bool {
	return strkey.IsValidEd25519PublicKey(string(id))
}

func (id Identity) String() string {
	return string(id)
}

// OptionalIdentity returns a copy of id as a pointer, or nil for the zero value
func OptionalIdentity(id Identity) *Identity {
	if id == "" {
		return nil
	}
	return &id
}
