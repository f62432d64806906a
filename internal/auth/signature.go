package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"auction/internal/models"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
)

// ErrNotSigned is returned when an identity did not sign the call
var ErrNotSigned = errors.New("identity did not sign the request")

// Signature is one ed25519 signature over an envelope's digest
type Signature struct {
	Signer    string `json:"signer"`    // G... address
	Signature []byte `json:"signature"` // base64 in JSON
}

// Envelope carries a request payload together with its signatures
type Envelope struct {
	Payload    []byte      `json:"payload"` // base64 in JSON
	Signatures []Signature `json:"signatures"`
}

// Digest binds a payload to a network so signatures cannot be replayed across networks
func Digest(networkPassphrase string, payload []byte) [32]byte {
	id := network.ID(networkPassphrase)

	h := sha256.New()
	h.Write(id[:])
	h.Write(payload)

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Sign produces a signature over payload for the given network
func Sign(networkPassphrase string, payload []byte, kp *keypair.Full) (Signature, error) {
	digest := Digest(networkPassphrase, payload)

	sig, err := kp.Sign(digest[:])
	if err != nil {
		return Signature{}, fmt.Errorf("failed to sign payload: %w", err)
	}

	return Signature{
		Signer:    kp.Address(),
		Signature: sig,
	}, nil
}

// Verifier checks envelopes signed for one network
type Verifier struct {
	networkPassphrase string
}

// NewVerifier creates a verifier for the given network passphrase
func NewVerifier(networkPassphrase string) *Verifier {
	return &Verifier{networkPassphrase: networkPassphrase}
}

// Verify checks every signature in env and returns the set of proven signers.
// A single bad signature rejects the whole envelope.
func (v *Verifier) Verify(env Envelope) (SignerSet, error) {
	digest := Digest(v.networkPassphrase, env.Payload)
	signers := make(SignerSet, len(env.Signatures))

	for i, sig := range env.Signatures {
		kp, err := keypair.ParseAddress(sig.Signer)
		if err != nil {
			return nil, fmt.Errorf("signature %d: invalid signer %q: %w", i, sig.Signer, err)
		}
		if err := kp.Verify(digest[:], sig.Signature); err != nil {
			return nil, fmt.Errorf("signature %d: signer %s: %w", i, sig.Signer, err)
		}
		signers[models.Identity(kp.Address())] = struct{}{}
	}

	return signers, nil
}

// SignerSet holds identities proven to have signed the current call
type SignerSet map[models.Identity]struct{}

// NewSignerSet builds a set from already-authenticated identities
func NewSignerSet(ids ...models.Identity) SignerSet {
	set := make(SignerSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Has reports whether id signed the call
func (s SignerSet) Has(id models.Identity) bool {
	_, ok := s[id]
	return ok
}

// Signer returns an authority backed by id's signature on this call
func (s SignerSet) Signer(id models.Identity) Signer {
	return Signer{id: id, signers: s}
}

// Signer authorises ledger transfers on behalf of an end-user identity
type Signer struct {
	id      models.Identity
	signers SignerSet
}

// Identity returns the signing identity
func (s Signer) Identity() models.Identity {
	return s.id
}

// Prove fails unless the identity signed the call
func (s Signer) Prove() error {
	if !s.signers.Has(s.id) {
		return fmt.Errorf("%s: %w", s.id, ErrNotSigned)
	}
	return nil
}
