package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Message{
		{{Tag: NONC, Value: make([]byte, 64)}},
		{
			{Tag: SIG, Value: make([]byte, 64)},
			{Tag: PATH, Value: []byte{}},
			{Tag: SREP, Value: make([]byte, 24)},
			{Tag: CERT, Value: make([]byte, 96)},
			{Tag: INDX, Value: []byte{0, 0, 0, 0}},
		},
		{
			{Tag: NONC, Value: make([]byte, 64)},
			{Tag: PAD, Value: make([]byte, 944)},
		},
	}

	for _, m := range cases {
		b, err := Encode(m)
		require.NoError(t, err)

		got, err := Decode(b)
		require.NoError(t, err)
		require.Len(t, got, len(m))
		for i := range m {
			assert.Equal(t, m[i].Tag, got[i].Tag)
			assert.Equal(t, m[i].Value, []byte(got[i].Value))
		}
	}
}

func TestEncodeRejectsUnsortedTags(t *testing.T) {
	_, err := Encode([]Field{
		{Tag: PATH, Value: make([]byte, 4)},
		{Tag: NONC, Value: make([]byte, 64)},
	})
	require.Error(t, err)
}

func TestEncodeRejectsDuplicateTags(t *testing.T) {
	_, err := Encode([]Field{
		{Tag: NONC, Value: make([]byte, 4)},
		{Tag: NONC, Value: make([]byte, 4)},
	})
	require.Error(t, err)
}

func TestEncodeRejectsMisalignedNonFinalValue(t *testing.T) {
	_, err := Encode([]Field{
		{Tag: NONC, Value: make([]byte, 3)},
		{Tag: PATH, Value: make([]byte, 4)},
	})
	require.Error(t, err)
}

func TestDecodeRejectsUnsortedTags(t *testing.T) {
	b, err := Encode([]Field{
		{Tag: NONC, Value: make([]byte, 4)},
		{Tag: PATH, Value: make([]byte, 4)},
	})
	require.NoError(t, err)

	// Swap the two tag entries in the header to desynchronise ordering.
	corrupt := append([]byte(nil), b...)
	copy(corrupt[8:12], b[12:16])
	copy(corrupt[12:16], b[8:12])

	_, err = Decode(corrupt)
	require.Error(t, err)
}

func TestDecodeRejectsShortMessage(t *testing.T) {
	_, err := Decode([]byte{1, 0, 0})
	require.Error(t, err)
}

func TestDecodeRejectsZeroTags(t *testing.T) {
	_, err := Decode([]byte{0, 0, 0, 0})
	require.Error(t, err)
}

func TestDecodeRejectsBadOffset(t *testing.T) {
	b, err := Encode([]Field{
		{Tag: NONC, Value: make([]byte, 4)},
		{Tag: PATH, Value: make([]byte, 4)},
	})
	require.NoError(t, err)

	corrupt := append([]byte(nil), b...)
	// Offset for the second value now points past the value region.
	corrupt[4] = 0xff
	corrupt[5] = 0xff

	_, err = Decode(corrupt)
	require.Error(t, err)
}

func TestMessageGet(t *testing.T) {
	m := Message{{Tag: NONC, Value: []byte("x")}}
	v, ok := m.Get(NONC)
	require.True(t, ok)
	assert.Equal(t, []byte("x"), v)

	_, ok = m.Get(PAD)
	require.False(t, ok)
}
