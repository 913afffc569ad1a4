package merkle

import (
	"crypto/sha512"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nonceOf(b byte) []byte {
	n := make([]byte, 64)
	for i := range n {
		n[i] = b
	}
	return n
}

func TestSingleLeafRoot(t *testing.T) {
	tr := New()
	tr.Reset()
	n := nonceOf(0)
	tr.PushLeaf(n)
	root := tr.ComputeRoot()

	h := sha512.New()
	h.Write([]byte{0x00})
	h.Write(n)
	want := h.Sum(nil)

	assert.Equal(t, want, root)
	assert.Empty(t, tr.Paths(0))
}

func TestBatchCompletenessAndPathVerification(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5, 7, 8, 64} {
		tr := New()
		tr.Reset()
		nonces := make([][]byte, n)
		for i := 0; i < n; i++ {
			nonces[i] = nonceOf(byte(i))
			tr.PushLeaf(nonces[i])
		}
		root := tr.ComputeRoot()

		for i := 0; i < n; i++ {
			path := tr.Paths(i)
			got, ok := VerifyPath(nonces[i], i, n, path)
			require.True(t, ok, "n=%d i=%d", n, i)
			assert.Equal(t, root, got, "n=%d i=%d", n, i)
		}
	}
}

func TestThreeLeafPathLength(t *testing.T) {
	tr := New()
	tr.Reset()
	for i := 0; i < 3; i++ {
		tr.PushLeaf(nonceOf(byte(i)))
	}
	tr.ComputeRoot()

	// ceil(log2(3)) == 2 levels of real siblings for the non-promoted leaves.
	assert.Len(t, tr.Paths(0), 2*HashSize)
	assert.Len(t, tr.Paths(1), 2*HashSize)
}

func TestResetReusesBackingArray(t *testing.T) {
	tr := New()
	tr.PushLeaf(nonceOf(1))
	tr.PushLeaf(nonceOf(2))
	require.Equal(t, 2, tr.Len())

	tr.Reset()
	require.Equal(t, 0, tr.Len())
	require.GreaterOrEqual(t, cap(tr.leaves), 2)

	tr.PushLeaf(nonceOf(3))
	require.Equal(t, 1, tr.Len())
}
