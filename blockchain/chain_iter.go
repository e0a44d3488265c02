package blockchain

import "fmt"

// Iterator walks a chain from a starting hash back to genesis, one block at
// a time. It is lazy (reads from the store on each Next) and not
// restartable: once it reaches genesis, calling Next again is an error.
type Iterator struct {
	currentHash []byte
	db          interface {
		Get(key []byte) ([]byte, error)
	}
	done bool
}

// Iterator returns an iterator starting at the current tip.
func (bc *Blockchain) Iterator() *Iterator {
	bc.mu.RLock()
	tip := bc.tip
	bc.mu.RUnlock()

	return &Iterator{currentHash: tip, db: bc.db}
}

// Next returns the next block walking backwards from the tip, and advances
// the iterator to that block's predecessor.
func (it *Iterator) Next() (*Block, error) {
	if it.done {
		return nil, fmt.Errorf("blockchain: iterator exhausted")
	}

	data, err := it.db.Get(it.currentHash)
	if err != nil {
		return nil, fmt.Errorf("reading block during iteration: %w", err)
	}

	block, err := DeserializeBlock(data)
	if err != nil {
		return nil, err
	}

	if len(block.PrevHash) == 0 {
		it.done = true
	} else {
		it.currentHash = block.PrevHash
	}
	return block, nil
}
