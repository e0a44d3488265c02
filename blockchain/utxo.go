package blockchain

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/pdkilimba/ledgerd/store"
)

// UTXOSet indexes unspent outputs in their own namespace (store), reading
// block data from Blockchain only to rebuild (Reindex) or extend (Update)
// that index. Everyday balance and coin-selection lookups never touch the
// chain itself.
type UTXOSet struct {
	Blockchain *Blockchain

	mu     sync.Mutex
	db     store.KVStore
	logger *zap.Logger
}

// NewUTXOSet binds chain's UTXO index to db, a namespace dedicated to this
// node's UTXO set.
func NewUTXOSet(chain *Blockchain, db store.KVStore, logger *zap.Logger) *UTXOSet {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UTXOSet{Blockchain: chain, db: db, logger: logger}
}

// FindSpendableOutputs selects enough unspent outputs locked to pubKeyHash
// to cover amount, returning the total value found and which output
// indices (by transaction id) were selected. The accumulated total may
// exceed amount; the caller is responsible for returning the difference as
// change.
func (u *UTXOSet) FindSpendableOutputs(pubKeyHash []byte, amount int) (int, map[string][]int, error) {
	unspent := make(map[string][]int)
	accumulated := 0

	err := u.db.IterateKeys(nil, true, func(key, value []byte) bool {
		if accumulated >= amount {
			return false
		}
		outs, err := DeserializeOutputs(value)
		if err != nil {
			return false
		}
		txID := string(key)

		for outIdx, out := range outs.Outputs {
			if accumulated >= amount {
				break
			}
			if out.IsLockedWithKey(pubKeyHash) {
				accumulated += int(out.Value)
				unspent[txID] = append(unspent[txID], outIdx)
			}
		}
		return true
	})
	if err != nil {
		return 0, nil, err
	}

	return accumulated, unspent, nil
}

// FindUTXO returns every unspent output locked to pubKeyHash, e.g. for a
// balance query.
func (u *UTXOSet) FindUTXO(pubKeyHash []byte) ([]TxOutput, error) {
	var result []TxOutput

	err := u.db.IterateKeys(nil, true, func(key, value []byte) bool {
		outs, err := DeserializeOutputs(value)
		if err != nil {
			return false
		}
		for _, out := range outs.Outputs {
			if out.IsLockedWithKey(pubKeyHash) {
				result = append(result, out)
			}
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CountTransactions returns the number of transactions with at least one
// unspent output indexed.
func (u *UTXOSet) CountTransactions() (int, error) {
	count := 0
	err := u.db.IterateKeys(nil, false, func(_, _ []byte) bool {
		count++
		return true
	})
	return count, err
}

// Reindex rebuilds the UTXO index from scratch by scanning the whole chain.
// It must not run concurrently with Update against the same index.
func (u *UTXOSet) Reindex() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := u.clear(); err != nil {
		return err
	}

	utxo, err := u.Blockchain.FindUTXO()
	if err != nil {
		return err
	}

	batcher, ok := u.db.(store.Batcher)
	if !ok {
		return fmt.Errorf("utxo: store does not support atomic updates")
	}
	err = batcher.Update(func(kv store.KVStore) error {
		for txID, outs := range utxo {
			data, err := outs.Serialize()
			if err != nil {
				return err
			}
			if err := kv.Put([]byte(txID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing reindexed utxo set: %w", err)
	}

	u.logger.Info("utxo set reindexed", zap.Int("transactions", len(utxo)))
	return nil
}

// Update folds block's transactions into the index: inputs remove the
// outputs they spend, outputs add new entries. It must not run
// concurrently with Reindex against the same index.
func (u *UTXOSet) Update(block *Block) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	batcher, ok := u.db.(store.Batcher)
	if !ok {
		return fmt.Errorf("utxo: store does not support atomic updates")
	}

	return batcher.Update(func(kv store.KVStore) error {
		for _, tx := range block.Transactions {
			if !tx.IsCoinbase() {
				for _, in := range tx.Inputs {
					data, err := kv.Get([]byte(in.TxID))
					if err != nil {
						return err
					}
					outs, err := DeserializeOutputs(data)
					if err != nil {
						return err
					}

					remaining := TxOutputs{}
					for outIdx, out := range outs.Outputs {
						if outIdx != in.Out {
							remaining.Outputs = append(remaining.Outputs, out)
						}
					}

					if len(remaining.Outputs) == 0 {
						if err := kv.Delete([]byte(in.TxID)); err != nil {
							return err
						}
					} else {
						data, err := remaining.Serialize()
						if err != nil {
							return err
						}
						if err := kv.Put([]byte(in.TxID), data); err != nil {
							return err
						}
					}
				}
			}

			newOuts := TxOutputs{Outputs: tx.Outputs}
			data, err := newOuts.Serialize()
			if err != nil {
				return err
			}
			if err := kv.Put([]byte(tx.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (u *UTXOSet) clear() error {
	var keys [][]byte
	err := u.db.IterateKeys(nil, false, func(key, _ []byte) bool {
		k := make([]byte, len(key))
		copy(k, key)
		keys = append(keys, k)
		return true
	})
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := u.db.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
