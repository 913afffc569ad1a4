// Package sign provides the ed25519 streaming signer used for both the
// long-term identity key and the per-run ephemeral key. It is adapted
// from the teacher's internal/receipts.SessionSigner: same
// generate/close/public-key shape, generalised to support the
// accumulate-then-finalize signing pattern the Roughtime protocol's
// delegation and response certificates require.
package sign

import (
	"crypto/ed25519"
	cryptorand "crypto/rand"
	"errors"
	"fmt"
)

// Domain-separation strings prepended to every signed payload. These
// values come from the Roughtime protocol itself, not from this
// implementation, and must match what clients verify against.
const (
	CertificateContext    = "RoughTime v1 delegation signature--\x00"
	SignedResponseContext = "RoughTime v1 response signature\x00"
)

// Signer wraps an ed25519 keypair with a streaming accumulator: Update
// may be called any number of times, and Sign finalizes and resets the
// accumulator so the same Signer can sign another message.
type Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
	acc  []byte
}

// NewFromSeed derives a keypair deterministically from a 32-byte seed,
// as used for the server's long-term identity.
func NewFromSeed(seed [32]byte) *Signer {
	priv := ed25519.NewKeyFromSeed(seed[:])
	return &Signer{
		priv: priv,
		pub:  priv.Public().(ed25519.PublicKey),
	}
}

// NewEphemeral generates a fresh keypair from 32 bytes of cryptographic
// randomness. It is never persisted.
func NewEphemeral() (*Signer, error) {
	var seed [32]byte
	if _, err := cryptorand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("sign: generate ephemeral seed: %w", err)
	}
	return NewFromSeed(seed), nil
}

// Update appends bytes to the pending message. Callers prepend the
// appropriate domain-separation context before the payload.
func (s *Signer) Update(b []byte) {
	s.acc = append(s.acc, b...)
}

// Sign finalizes the accumulated message, returns its 64-byte ed25519
// signature, and resets the accumulator for reuse.
func (s *Signer) Sign() [64]byte {
	sig := ed25519.Sign(s.priv, s.acc)
	s.acc = s.acc[:0]
	var out [64]byte
	copy(out[:], sig)
	return out
}

// PublicKeyBytes returns the raw 32-byte public key.
func (s *Signer) PublicKeyBytes() [32]byte {
	var out [32]byte
	copy(out[:], s.pub)
	return out
}

// Close wipes the private key material in place. The Signer must not be
// used afterward.
func (s *Signer) Close() {
	for i := range s.priv {
		s.priv[i] = 0
	}
	s.priv = nil
	s.pub = nil
	s.acc = nil
}

// Verify checks sig against msg under pub. Exposed for tests; the
// server itself never verifies its own signatures.
func Verify(pub [32]byte, msg []byte, sig [64]byte) error {
	if !ed25519.Verify(ed25519.PublicKey(pub[:]), msg, sig[:]) {
		return errors.New("sign: signature verification failed")
	}
	return nil
}
