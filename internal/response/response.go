// Package response builds the per-batch SREP and per-client response
// messages described in SPEC_FULL.md §4.6/§4.7: a single signed,
// Merkle-rooted assertion about the current time shared by every
// request in a batch, individualized per client by an inclusion path.
package response

import (
	"fmt"
	"time"

	"github.com/slowdrip-network/roughtimed/internal/cert"
	"github.com/slowdrip-network/roughtimed/internal/merkle"
	"github.com/slowdrip-network/roughtimed/internal/sign"
	"github.com/slowdrip-network/roughtimed/internal/wire"
)

// RadiusMicros is the fixed uncertainty radius advertised in every
// response, recovered from the original implementation's hardcoded
// 1,000,000 microsecond (1 second) RADI value.
const RadiusMicros uint32 = 1_000_000

// Midpoint computes the MIDP value for now, offset by secondsOffset
// seconds (signed, so a negative value simulates a server whose clock
// runs behind true time). The formula preserves the original
// implementation's microsecond truncation bit-for-bit:
// (sec+offset)*1_000_000 + nsec/1_000.
func Midpoint(now time.Time, secondsOffset int64) uint64 {
	sec := now.Unix() + secondsOffset
	nsec := int64(now.Nanosecond())
	return uint64(sec*1_000_000 + nsec/1_000)
}

// BuildSREP signs the batch's Merkle root together with the radius and
// midpoint under the ephemeral key, producing the shared SREP value and
// its signature. Every response in the batch embeds the same srepBytes
// and sig; only PATH and INDX vary per client.
func BuildSREP(ephemeral *sign.Signer, root []byte, now time.Time, secondsOffset int64) (srepBytes []byte, sig [64]byte, err error) {
	midp := Midpoint(now, secondsOffset)

	srepBytes, err = wire.Encode([]wire.Field{
		{Tag: wire.RADI, Value: uint32LE(RadiusMicros)},
		{Tag: wire.MIDP, Value: uint64LE(midp)},
		{Tag: wire.ROOT, Value: root},
	})
	if err != nil {
		return nil, sig, fmt.Errorf("response: encode SREP: %w", err)
	}

	ephemeral.Update([]byte(sign.SignedResponseContext))
	ephemeral.Update(srepBytes)
	sig = ephemeral.Sign()
	return srepBytes, sig, nil
}

// BuildForClient assembles the final response message sent back to one
// client: {SIG, PATH, SREP, CERT, INDX}. path and index identify this
// client's leaf in the batch's Merkle tree.
func BuildForClient(srepBytes []byte, sig [64]byte, certificate *cert.Certificate, path []byte, index uint32) ([]byte, error) {
	out, err := wire.Encode([]wire.Field{
		{Tag: wire.SIG, Value: sig[:]},
		{Tag: wire.PATH, Value: path},
		{Tag: wire.SREP, Value: srepBytes},
		{Tag: wire.CERT, Value: certificate.Bytes},
		{Tag: wire.INDX, Value: uint32LE(index)},
	})
	if err != nil {
		return nil, fmt.Errorf("response: encode response: %w", err)
	}
	return out, nil
}

// Builder batches nonces into a Merkle tree and produces the response
// set for a single batch flush.
type Builder struct {
	tree *merkle.Tree
}

// NewBuilder returns a Builder with a reusable, zeroed Merkle tree.
func NewBuilder() *Builder {
	return &Builder{tree: merkle.New()}
}

// AddNonce stages nonce for inclusion in the next BuildBatch call and
// returns its leaf index.
func (b *Builder) AddNonce(nonce []byte) int {
	b.tree.PushLeaf(nonce)
	return b.tree.Len() - 1
}

// Len reports how many nonces are currently staged.
func (b *Builder) Len() int { return b.tree.Len() }

// BuildBatch computes the Merkle root over every staged nonce, signs
// the resulting SREP under ephemeral, and returns one fully-formed
// response per staged client in staging order. It resets the Builder
// for the next batch before returning.
func (b *Builder) BuildBatch(ephemeral *sign.Signer, certificate *cert.Certificate, now time.Time, secondsOffset int64) ([][]byte, error) {
	n := b.tree.Len()
	if n == 0 {
		return nil, nil
	}

	root := b.tree.ComputeRoot()
	srepBytes, sig, err := BuildSREP(ephemeral, root, now, secondsOffset)
	if err != nil {
		b.tree.Reset()
		return nil, err
	}

	responses := make([][]byte, n)
	for i := 0; i < n; i++ {
		path := b.tree.Paths(i)
		resp, err := BuildForClient(srepBytes, sig, certificate, path, uint32(i))
		if err != nil {
			b.tree.Reset()
			return nil, err
		}
		responses[i] = resp
	}

	b.tree.Reset()
	return responses, nil
}

func uint32LE(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func uint64LE(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}
