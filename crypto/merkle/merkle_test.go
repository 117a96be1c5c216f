package merkle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func addr(fill byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = fill
	}
	return a
}

func TestProofsVerifyForEveryLeaf(t *testing.T) {
	for size := 1; size <= 7; size++ {
		addrs := make([][20]byte, size)
		for i := range addrs {
			addrs[i] = addr(byte(i + 1))
		}
		tree, err := NewTree(addrs)
		require.NoError(t, err)
		for _, a := range addrs {
			proof, ok := tree.Proof(a)
			require.True(t, ok)
			require.True(t, Verify(tree.Root(), a, proof), "size %d leaf %x", size, a[0])
		}
		require.False(t, Verify(tree.Root(), addr(0xEE), nil))
	}
}

func TestSingleLeafRootIsLeaf(t *testing.T) {
	tree, err := NewTree([][20]byte{addr(0x01)})
	require.NoError(t, err)
	require.Equal(t, Leaf(addr(0x01)), tree.Root())
	proof, ok := tree.Proof(addr(0x01))
	require.True(t, ok)
	require.Empty(t, proof)
}

func TestProofRejectsOtherAccount(t *testing.T) {
	tree, err := NewTree([][20]byte{addr(1), addr(2), addr(3), addr(4)})
	require.NoError(t, err)
	proof, ok := tree.Proof(addr(2))
	require.True(t, ok)
	require.False(t, Verify(tree.Root(), addr(3), proof))
	_, ok = tree.Proof(addr(9))
	require.False(t, ok)

	_, err = NewTree(nil)
	require.ErrorIs(t, err, ErrEmptyTree)
}
