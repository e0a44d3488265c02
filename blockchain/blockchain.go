package blockchain

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pdkilimba/ledgerd/store"
	"go.uber.org/zap"
)

// tipKey holds the hash of the current chain tip. Its presence is also how
// Create/Open tell whether a chain namespace has already been initialised,
// independent of whatever on-disk marker the underlying store happens to use.
var tipKey = []byte("l")

const genesisCoinbasePayload = "The Times 03/Jan/2009 Chancellor on brink of second bailout for banks"

// Blockchain is the append-only, no-fork chain of blocks backed by db. Only
// tip is cached in memory; every read goes through db, and every write that
// touches tip goes through a single Batcher.Update so the block and the tip
// pointer move together.
type Blockchain struct {
	mu     sync.RWMutex
	tip    []byte
	db     store.KVStore
	logger *zap.Logger
}

// Create initialises a brand-new chain in db, mining a genesis block whose
// coinbase pays address. db must not already hold a chain.
func Create(db store.KVStore, address string, logger *zap.Logger) (*Blockchain, error) {
	if _, err := db.Get(tipKey); err == nil {
		return nil, ErrChainExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("checking for existing chain: %w", err)
	}

	coinbase, err := NewCoinbaseTX(address, genesisCoinbasePayload)
	if err != nil {
		return nil, fmt.Errorf("building genesis coinbase: %w", err)
	}
	genesis := Genesis(coinbase, time.Now().Unix())

	blockData, err := genesis.Serialize()
	if err != nil {
		return nil, err
	}

	batcher, ok := db.(store.Batcher)
	if !ok {
		return nil, fmt.Errorf("blockchain: store does not support atomic updates")
	}
	err = batcher.Update(func(kv store.KVStore) error {
		if err := kv.Put(genesis.Hash, blockData); err != nil {
			return err
		}
		return kv.Put(tipKey, genesis.Hash)
	})
	if err != nil {
		return nil, fmt.Errorf("writing genesis block: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("blockchain created", zap.String("address", address), zap.String("genesis_hash", hexHash(genesis.Hash)))

	return &Blockchain{tip: genesis.Hash, db: db, logger: logger}, nil
}

// Open resumes a chain previously written to db by Create.
func Open(db store.KVStore, logger *zap.Logger) (*Blockchain, error) {
	tip, err := db.Get(tipKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoChain
		}
		return nil, fmt.Errorf("reading chain tip: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	return &Blockchain{tip: tip, db: db, logger: logger}, nil
}

// GetBestHeight returns the height of the current tip block.
func (bc *Blockchain) GetBestHeight() (int, error) {
	bc.mu.RLock()
	tip := bc.tip
	bc.mu.RUnlock()

	block, err := bc.GetBlock(tip)
	if err != nil {
		return 0, err
	}
	return block.Height, nil
}

// GetBlock fetches the block stored under hash.
func (bc *Blockchain) GetBlock(hash []byte) (*Block, error) {
	data, err := bc.db.Get(hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrBlockNotFound
		}
		return nil, fmt.Errorf("reading block: %w", err)
	}
	return DeserializeBlock(data)
}

// GetBlockHashes returns every block hash from the tip back to genesis,
// newest first.
func (bc *Blockchain) GetBlockHashes() ([][]byte, error) {
	var hashes [][]byte
	it := bc.Iterator()
	for {
		block, err := it.Next()
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, block.Hash)
		if len(block.PrevHash) == 0 {
			break
		}
	}
	return hashes, nil
}

// MineBlock verifies transactions, mines a new block over them extending
// the current tip, and advances the tip to it.
func (bc *Blockchain) MineBlock(transactions []*Transaction) (*Block, error) {
	for _, tx := range transactions {
		ok, err := bc.VerifyTransaction(tx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidTransaction, tx.ID)
		}
	}

	bc.mu.Lock()
	defer bc.mu.Unlock()

	lastBlock, err := bc.GetBlock(bc.tip)
	if err != nil {
		return nil, err
	}

	newBlock := CreateBlock(transactions, bc.tip, lastBlock.Height+1, time.Now().Unix())
	blockData, err := newBlock.Serialize()
	if err != nil {
		return nil, err
	}

	batcher, ok := bc.db.(store.Batcher)
	if !ok {
		return nil, fmt.Errorf("blockchain: store does not support atomic updates")
	}
	err = batcher.Update(func(kv store.KVStore) error {
		if err := kv.Put(newBlock.Hash, blockData); err != nil {
			return err
		}
		return kv.Put(tipKey, newBlock.Hash)
	})
	if err != nil {
		return nil, fmt.Errorf("writing mined block: %w", err)
	}

	bc.tip = newBlock.Hash
	bc.logger.Info("block mined", zap.Int("height", newBlock.Height), zap.String("hash", hexHash(newBlock.Hash)))

	return newBlock, nil
}

// AddBlock stores a block received from a peer. Per this chain's model
// there is no fork resolution: if block's height exceeds the current tip's,
// the tip unconditionally moves to block, even if block doesn't reference
// the current tip as its previous hash.
func (bc *Blockchain) AddBlock(block *Block) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if _, err := bc.db.Get(block.Hash); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("checking for existing block: %w", err)
	}

	blockData, err := block.Serialize()
	if err != nil {
		return err
	}

	tipBlock, err := bc.GetBlock(bc.tip)
	if err != nil {
		return err
	}

	batcher, ok := bc.db.(store.Batcher)
	if !ok {
		return fmt.Errorf("blockchain: store does not support atomic updates")
	}
	err = batcher.Update(func(kv store.KVStore) error {
		if err := kv.Put(block.Hash, blockData); err != nil {
			return err
		}
		if tipBlock.Height < block.Height {
			return kv.Put(tipKey, block.Hash)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing received block: %w", err)
	}

	if tipBlock.Height < block.Height {
		bc.tip = block.Hash
		bc.logger.Info("tip advanced by received block", zap.Int("height", block.Height), zap.String("hash", hexHash(block.Hash)))
	}
	return nil
}

// FindUTXO scans the whole chain and returns, for every transaction id,
// the outputs of that transaction that are still unspent. UTXOSet.Reindex
// is the only caller; everyday lookups use the UTXO index instead.
func (bc *Blockchain) FindUTXO() (map[string]TxOutputs, error) {
	utxo := make(map[string]TxOutputs)
	spent := make(map[string][]int)

	it := bc.Iterator()
	for {
		block, err := it.Next()
		if err != nil {
			return nil, err
		}

		for _, tx := range block.Transactions {
		outputs:
			for outIdx, out := range tx.Outputs {
				for _, spentIdx := range spent[tx.ID] {
					if spentIdx == outIdx {
						continue outputs
					}
				}
				entry := utxo[tx.ID]
				entry.Outputs = append(entry.Outputs, out)
				utxo[tx.ID] = entry
			}

			if !tx.IsCoinbase() {
				for _, in := range tx.Inputs {
					spent[in.TxID] = append(spent[in.TxID], in.Out)
				}
			}
		}

		if len(block.PrevHash) == 0 {
			break
		}
	}

	return utxo, nil
}

// FindTransaction searches the chain, tip to genesis, for the transaction
// with the given hex id.
func (bc *Blockchain) FindTransaction(id string) (Transaction, error) {
	it := bc.Iterator()
	for {
		block, err := it.Next()
		if err != nil {
			return Transaction{}, err
		}

		for _, tx := range block.Transactions {
			if tx.ID == id {
				return *tx, nil
			}
		}

		if len(block.PrevHash) == 0 {
			break
		}
	}
	return Transaction{}, ErrTxNotFound
}

// SignTransaction looks up every previous transaction tx's inputs spend and
// signs tx with priv.
func (bc *Blockchain) SignTransaction(tx *Transaction, priv ed25519.PrivateKey) error {
	prevTXs, err := bc.prevTransactions(tx)
	if err != nil {
		return err
	}
	return tx.Sign(priv, prevTXs)
}

// VerifyTransaction looks up every previous transaction tx's inputs spend
// and verifies tx's signatures against them.
func (bc *Blockchain) VerifyTransaction(tx *Transaction) (bool, error) {
	if tx.IsCoinbase() {
		return true, nil
	}
	prevTXs, err := bc.prevTransactions(tx)
	if err != nil {
		return false, err
	}
	return tx.Verify(prevTXs)
}

func (bc *Blockchain) prevTransactions(tx *Transaction) (map[string]Transaction, error) {
	prevTXs := make(map[string]Transaction)
	for _, in := range tx.Inputs {
		prevTx, err := bc.FindTransaction(in.TxID)
		if err != nil {
			return nil, fmt.Errorf("finding previous transaction %s: %w", in.TxID, err)
		}
		prevTXs[in.TxID] = prevTx
	}
	return prevTXs, nil
}

func hexHash(h []byte) string {
	return hexString(h)
}
