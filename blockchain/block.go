package blockchain

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Block is one entry in the chain. Hash is derived from, and must always
// equal, SHA256(PrevHash || MerkleRoot || ascii(Timestamp) || Target ||
// ascii(Nonce)), and that hash must compare less than Target as an
// equal-length hex string — Validate (via ProofOfWork) is what checks this.
type Block struct {
	Timestamp    int64
	Transactions []*Transaction
	PrevHash     []byte
	Hash         []byte
	MerkleRoot   []byte
	Target       string
	Nonce        int
	Height       int
}

// newBlock mines a block over transactions on construction: by the time
// this returns, Hash/Nonce/MerkleRoot are already set and Validate() on the
// resulting block's ProofOfWork will pass.
func newBlock(transactions []*Transaction, prevHash []byte, height int, timestamp int64) *Block {
	block := &Block{
		Timestamp:    timestamp,
		Transactions: transactions,
		PrevHash:     prevHash,
		Target:       Target,
		Height:       height,
	}
	block.MerkleRoot = block.hashTransactions()

	pow := NewProof(block)
	nonce, hash := pow.Run()
	block.Nonce = nonce
	block.Hash = []byte(hash)

	return block
}

// CreateBlock mines a new block extending prevHash at height over
// transactions.
func CreateBlock(transactions []*Transaction, prevHash []byte, height int, nowUnix int64) *Block {
	return newBlock(transactions, prevHash, height, nowUnix)
}

// Genesis builds height-0's block, whose sole transaction is a coinbase
// paying the founding address.
func Genesis(coinbase *Transaction, nowUnix int64) *Block {
	return newBlock([]*Transaction{coinbase}, []byte{}, 0, nowUnix)
}

// hashTransactions returns the block's Merkle root over its transaction
// ids, in transaction order.
func (b *Block) hashTransactions() []byte {
	leaves := make([][]byte, 0, len(b.Transactions))
	for _, tx := range b.Transactions {
		leaves = append(leaves, []byte(tx.ID))
	}
	tree := NewMerkleTree(leaves)
	return tree.RootNode.Data
}

// Serialize encodes the block with CBOR, the fixed-layout binary codec used
// for every on-disk and on-wire representation in this package.
func (b *Block) Serialize() ([]byte, error) {
	data, err := cbor.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("serializing block: %w", err)
	}
	return data, nil
}

// DeserializeBlock decodes a block previously produced by Serialize.
func DeserializeBlock(data []byte) (*Block, error) {
	var block Block
	if err := cbor.Unmarshal(data, &block); err != nil {
		return nil, fmt.Errorf("deserializing block: %w", err)
	}
	return &block, nil
}
