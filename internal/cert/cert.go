// Package cert builds the DELE/CERT delegation certificate that binds
// a short-lived ephemeral Ed25519 key to the server's long-term key
// (see SPEC_FULL.md §4.6). A Certificate is computed once per
// process lifetime and reused for every response signed by the
// ephemeral key it delegates to.
package cert

import (
	"fmt"
	"math"

	"github.com/slowdrip-network/roughtimed/internal/sign"
	"github.com/slowdrip-network/roughtimed/internal/wire"
)

// MinValidityStart and MaxValidityEnd are the MINT/MAXT bounds used for
// the delegation window. roughtimed issues a single certificate valid
// for the entire process lifetime rather than rotating it, so MINT is
// pinned to zero and MAXT to the largest representable timestamp.
const (
	MinValidityStart uint64 = 0
	MaxValidityEnd    uint64 = math.MaxUint64
)

// Certificate bundles the ephemeral signer with the encoded CERT bytes
// that accompany every response.
type Certificate struct {
	Ephemeral *sign.Signer
	Bytes     []byte
}

// Build derives a fresh ephemeral key, delegates to it from
// longTerm by signing the DELE message under
// sign.CertificateContext, and assembles the CERT message
// ({DELE, SIG}) sent with every response.
//
// longTerm is not retained; callers should call Close on the returned
// Certificate's Ephemeral key, and wipe longTerm themselves once Build
// returns since the long-term key is only needed at startup.
func Build(longTerm *sign.Signer) (*Certificate, error) {
	ephemeral, err := sign.NewEphemeral()
	if err != nil {
		return nil, fmt.Errorf("cert: generate ephemeral key: %w", err)
	}

	pub := ephemeral.PublicKeyBytes()
	deleBytes, err := wire.Encode([]wire.Field{
		{Tag: wire.PUBK, Value: pub[:]},
		{Tag: wire.MINT, Value: uint64LE(MinValidityStart)},
		{Tag: wire.MAXT, Value: uint64LE(MaxValidityEnd)},
	})
	if err != nil {
		ephemeral.Close()
		return nil, fmt.Errorf("cert: encode DELE: %w", err)
	}

	longTerm.Update([]byte(sign.CertificateContext))
	longTerm.Update(deleBytes)
	sig := longTerm.Sign()

	certBytes, err := wire.Encode([]wire.Field{
		{Tag: wire.SIG, Value: sig[:]},
		{Tag: wire.DELE, Value: deleBytes},
	})
	if err != nil {
		ephemeral.Close()
		return nil, fmt.Errorf("cert: encode CERT: %w", err)
	}

	return &Certificate{Ephemeral: ephemeral, Bytes: certBytes}, nil
}

func uint64LE(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}
