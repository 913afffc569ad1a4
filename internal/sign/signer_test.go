package sign

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignDeterministic(t *testing.T) {
	var seed [32]byte
	for i := range seed {
		seed[i] = byte(i)
	}

	s1 := NewFromSeed(seed)
	s1.Update([]byte(CertificateContext))
	s1.Update([]byte("hello"))
	sig1 := s1.Sign()

	s2 := NewFromSeed(seed)
	s2.Update([]byte(CertificateContext))
	s2.Update([]byte("hello"))
	sig2 := s2.Sign()

	assert.Equal(t, sig1, sig2)
}

func TestSignResetsAccumulator(t *testing.T) {
	var seed [32]byte
	s := NewFromSeed(seed)

	s.Update([]byte("a"))
	sigA := s.Sign()

	s.Update([]byte("b"))
	sigB := s.Sign()

	assert.NotEqual(t, sigA, sigB)

	// Re-signing "a" after the accumulator reset must reproduce sigA.
	s.Update([]byte("a"))
	require.Equal(t, sigA, s.Sign())
}

func TestVerifyRoundTrip(t *testing.T) {
	var seed [32]byte
	s := NewFromSeed(seed)
	msg := []byte("payload")
	s.Update(msg)
	sig := s.Sign()

	require.NoError(t, Verify(s.PublicKeyBytes(), msg, sig))

	sig[0] ^= 0xff
	require.Error(t, Verify(s.PublicKeyBytes(), msg, sig))
}

func TestNewEphemeralGeneratesDistinctKeys(t *testing.T) {
	s1, err := NewEphemeral()
	require.NoError(t, err)
	s2, err := NewEphemeral()
	require.NoError(t, err)

	assert.NotEqual(t, s1.PublicKeyBytes(), s2.PublicKeyBytes())
}
