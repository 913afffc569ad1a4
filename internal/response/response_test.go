package response

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowdrip-network/roughtimed/internal/cert"
	"github.com/slowdrip-network/roughtimed/internal/merkle"
	"github.com/slowdrip-network/roughtimed/internal/sign"
	"github.com/slowdrip-network/roughtimed/internal/wire"
)

func nonceOf(b byte) []byte {
	n := make([]byte, 64)
	for i := range n {
		n[i] = b
	}
	return n
}

func TestMidpointFormula(t *testing.T) {
	now := time.Unix(1_700_000_000, 123_456_000)
	got := Midpoint(now, 0)
	want := uint64(1_700_000_000*1_000_000 + 123_456)
	assert.Equal(t, want, got)
}

func TestMidpointAppliesSignedOffset(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	got := Midpoint(now, -5)
	want := uint64((1_700_000_000 - 5) * 1_000_000)
	assert.Equal(t, want, got)
}

func TestBuildBatchProducesVerifiableResponses(t *testing.T) {
	var longTermSeed [32]byte
	for i := range longTermSeed {
		longTermSeed[i] = byte(i + 1)
	}
	longTerm := sign.NewFromSeed(longTermSeed)
	certificate, err := cert.Build(longTerm)
	require.NoError(t, err)
	defer certificate.Ephemeral.Close()

	builder := NewBuilder()
	nonces := make([][]byte, 5)
	for i := range nonces {
		nonces[i] = nonceOf(byte(i))
		idx := builder.AddNonce(nonces[i])
		assert.Equal(t, i, idx)
	}

	responses, err := builder.BuildBatch(certificate.Ephemeral, certificate, time.Unix(1_700_000_000, 0), 0)
	require.NoError(t, err)
	require.Len(t, responses, 5)
	assert.Equal(t, 0, builder.Len())

	tr := merkle.New()
	for _, n := range nonces {
		tr.PushLeaf(n)
	}
	root := tr.ComputeRoot()

	for i, resp := range responses {
		msg, err := wire.Decode(resp)
		require.NoError(t, err)

		sigBytes, ok := msg.Get(wire.SIG)
		require.True(t, ok)
		srepBytes, ok := msg.Get(wire.SREP)
		require.True(t, ok)
		pathBytes, ok := msg.Get(wire.PATH)
		require.True(t, ok)
		certBytes, ok := msg.Get(wire.CERT)
		require.True(t, ok)
		indxBytes, ok := msg.Get(wire.INDX)
		require.True(t, ok)

		assert.Equal(t, certificate.Bytes, certBytes)
		assert.Equal(t, []byte{byte(i), 0, 0, 0}, indxBytes)

		var sig [64]byte
		copy(sig[:], sigBytes)
		epPub := certificate.Ephemeral.PublicKeyBytes()
		msgToVerify := append([]byte(sign.SignedResponseContext), srepBytes...)
		require.NoError(t, sign.Verify(epPub, msgToVerify, sig))

		got, ok := merkle.VerifyPath(nonces[i], i, len(nonces), pathBytes)
		require.True(t, ok)
		assert.Equal(t, root, got)

		srepMsg, err := wire.Decode(srepBytes)
		require.NoError(t, err)
		rootField, ok := srepMsg.Get(wire.ROOT)
		require.True(t, ok)
		assert.Equal(t, root, rootField)
	}
}

func TestBuildBatchEmptyReturnsNil(t *testing.T) {
	builder := NewBuilder()
	responses, err := builder.BuildBatch(nil, nil, time.Now(), 0)
	require.NoError(t, err)
	assert.Nil(t, responses)
}
