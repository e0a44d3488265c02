package blockchain

import "github.com/pdkilimba/ledgerd/primitives"

// MerkleTree commits to an ordered list of transactions with a single root
// hash. Block.Hash depends on MerkleTree.RootNode.Data, not on the raw
// transaction list, so two blocks with the same transactions in the same
// order always produce the same root.
type MerkleTree struct {
	RootNode *MerkleNode
}

// MerkleNode is a leaf (Left == Right == nil) or an internal node hashing
// the concatenation of its two children.
type MerkleNode struct {
	Left  *MerkleNode
	Right *MerkleNode
	Data  []byte
}

// NewMerkleNode builds a leaf from data when left and right are both nil,
// otherwise an internal node from its children's hashes.
func NewMerkleNode(left, right *MerkleNode, data []byte) *MerkleNode {
	node := MerkleNode{Left: left, Right: right}

	if left == nil && right == nil {
		node.Data = primitives.Sha256(data)
		return &node
	}

	combined := append(append([]byte{}, left.Data...), right.Data...)
	node.Data = primitives.Sha256(combined)
	return &node
}

// NewMerkleTree builds a tree over data, one leaf per element. An odd number
// of elements duplicates the last one so every level pairs off evenly; this
// is the same convention Bitcoin uses for an odd transaction count.
func NewMerkleTree(data [][]byte) *MerkleTree {
	if len(data) == 0 {
		return &MerkleTree{RootNode: NewMerkleNode(nil, nil, []byte{})}
	}

	if len(data)%2 != 0 {
		data = append(data, data[len(data)-1])
	}

	nodes := make([]*MerkleNode, 0, len(data))
	for _, d := range data {
		nodes = append(nodes, NewMerkleNode(nil, nil, d))
	}

	for len(nodes) > 1 {
		if len(nodes)%2 != 0 {
			nodes = append(nodes, nodes[len(nodes)-1])
		}

		level := make([]*MerkleNode, 0, len(nodes)/2)
		for i := 0; i < len(nodes); i += 2 {
			level = append(level, NewMerkleNode(nodes[i], nodes[i+1], nil))
		}
		nodes = level
	}

	return &MerkleTree{RootNode: nodes[0]}
}
