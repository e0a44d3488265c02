package network

import (
	"encoding/hex"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdkilimba/ledgerd/blockchain"
)

// CentralNodeAddress is the fixed relay hub every node's known-node list is
// seeded with. A node recognizes itself as that hub (IsBootstrap) when its
// own address matches this constant, which only happens for the node
// actually started on this port.
const CentralNodeAddress = "localhost:3000"

// Node is the shared mutable state one running process's connections all
// read and write. Each field has its own mutex so one slow peer doesn't
// block another field's readers; no method here holds a lock across
// network I/O.
type Node struct {
	Address     string
	MineAddress string

	Chain *blockchain.Blockchain
	UTXO  *blockchain.UTXOSet

	knownNodesMu sync.RWMutex
	knownNodes   []string

	transitMu       sync.Mutex
	blocksInTransit [][]byte

	mempoolMu sync.Mutex
	mempool   map[string]blockchain.Transaction

	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewNode builds a node bound to chain/utxo, seeded with seedNodes as its
// initial known-peer list (conventionally the bootstrap node).
func NewNode(address, mineAddress string, chain *blockchain.Blockchain, utxo *blockchain.UTXOSet, seedNodes []string, logger *zap.Logger) *Node {
	if logger == nil {
		logger = zap.NewNop()
	}
	known := make([]string, len(seedNodes))
	copy(known, seedNodes)

	return &Node{
		Address:     address,
		MineAddress: mineAddress,
		Chain:       chain,
		UTXO:        utxo,
		knownNodes:  known,
		mempool:     make(map[string]blockchain.Transaction),
		limiter:     rate.NewLimiter(rate.Limit(20), 40),
		logger:      logger,
	}
}

// IsBootstrap reports whether this node is the first entry in its own known
// node list, the role the protocol treats as the relay hub for tx inventory.
func (n *Node) IsBootstrap() bool {
	n.knownNodesMu.RLock()
	defer n.knownNodesMu.RUnlock()
	return len(n.knownNodes) > 0 && n.knownNodes[0] == n.Address
}

func (n *Node) KnownNodes() []string {
	n.knownNodesMu.RLock()
	defer n.knownNodesMu.RUnlock()
	out := make([]string, len(n.knownNodes))
	copy(out, n.knownNodes)
	return out
}

func (n *Node) IsKnownNode(addr string) bool {
	n.knownNodesMu.RLock()
	defer n.knownNodesMu.RUnlock()
	for _, node := range n.knownNodes {
		if node == addr {
			return true
		}
	}
	return false
}

func (n *Node) AddKnownNode(addr string) {
	if addr == "" || addr == n.Address || n.IsKnownNode(addr) {
		return
	}
	n.knownNodesMu.Lock()
	n.knownNodes = append(n.knownNodes, addr)
	n.knownNodesMu.Unlock()
}

// EvictKnownNode drops addr from the peer list, per the error taxonomy's
// "peer-reach errors are logged and the peer evicted" rule.
func (n *Node) EvictKnownNode(addr string) {
	n.knownNodesMu.Lock()
	defer n.knownNodesMu.Unlock()
	kept := n.knownNodes[:0]
	for _, node := range n.knownNodes {
		if node != addr {
			kept = append(kept, node)
		}
	}
	n.knownNodes = kept
}

func (n *Node) SetBlocksInTransit(hashes [][]byte) {
	n.transitMu.Lock()
	n.blocksInTransit = hashes
	n.transitMu.Unlock()
}

// PopBlockInTransit removes and returns the next hash queued for download,
// and whether one was available.
func (n *Node) PopBlockInTransit() ([]byte, bool) {
	n.transitMu.Lock()
	defer n.transitMu.Unlock()
	if len(n.blocksInTransit) == 0 {
		return nil, false
	}
	hash := n.blocksInTransit[0]
	n.blocksInTransit = n.blocksInTransit[1:]
	return hash, true
}

func (n *Node) RemoveBlockInTransit(hash []byte) {
	n.transitMu.Lock()
	defer n.transitMu.Unlock()
	kept := n.blocksInTransit[:0]
	for _, h := range n.blocksInTransit {
		if hex.EncodeToString(h) != hex.EncodeToString(hash) {
			kept = append(kept, h)
		}
	}
	n.blocksInTransit = kept
}

func (n *Node) MempoolPut(tx blockchain.Transaction) {
	n.mempoolMu.Lock()
	n.mempool[tx.ID] = tx
	n.mempoolMu.Unlock()
}

func (n *Node) MempoolGet(id string) (blockchain.Transaction, bool) {
	n.mempoolMu.Lock()
	defer n.mempoolMu.Unlock()
	tx, ok := n.mempool[id]
	return tx, ok
}

func (n *Node) MempoolLen() int {
	n.mempoolMu.Lock()
	defer n.mempoolMu.Unlock()
	return len(n.mempool)
}

// MempoolDrain returns every pooled transaction and empties the pool. Used
// when assembling a block to mine: the mine attempt owns that snapshot, not
// whatever arrives in the pool while it's running.
func (n *Node) MempoolDrain() []blockchain.Transaction {
	n.mempoolMu.Lock()
	defer n.mempoolMu.Unlock()
	txs := make([]blockchain.Transaction, 0, len(n.mempool))
	for _, tx := range n.mempool {
		txs = append(txs, tx)
	}
	n.mempool = make(map[string]blockchain.Transaction)
	return txs
}
