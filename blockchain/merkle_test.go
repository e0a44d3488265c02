package blockchain

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMerkleTreeSingleLeaf(t *testing.T) {
	tree := NewMerkleTree([][]byte{[]byte("a")})
	require.NotNil(t, tree.RootNode)
	require.Len(t, tree.RootNode.Data, 32)
}

func TestMerkleTreeOddCountDuplicatesLast(t *testing.T) {
	three := NewMerkleTree([][]byte{[]byte("a"), []byte("b"), []byte("c")})
	four := NewMerkleTree([][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("c")})

	require.Equal(t, four.RootNode.Data, three.RootNode.Data)
}

func TestMerkleTreeDeterministic(t *testing.T) {
	data := [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d")}

	a := NewMerkleTree(data)
	b := NewMerkleTree(data)

	require.Equal(t, a.RootNode.Data, b.RootNode.Data)
}

func TestMerkleTreeOrderSensitive(t *testing.T) {
	forward := NewMerkleTree([][]byte{[]byte("a"), []byte("b")})
	reversed := NewMerkleTree([][]byte{[]byte("b"), []byte("a")})

	require.NotEqual(t, forward.RootNode.Data, reversed.RootNode.Data)
}

func TestMerkleTreeRootChangesWithAnyLeaf(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "n")
		leaves := make([][]byte, n)
		for i := range leaves {
			leaves[i] = rapid.SliceOfN(rapid.Byte(), 1, 16).Draw(t, "leaf")
		}

		before := NewMerkleTree(leaves).RootNode.Data

		mutated := make([][]byte, n)
		copy(mutated, leaves)
		idx := rapid.IntRange(0, n-1).Draw(t, "idx")
		mutated[idx] = append(append([]byte{}, mutated[idx]...), 0xFF)

		after := NewMerkleTree(mutated).RootNode.Data
		require.NotEqual(t, before, after)
	})
}
