package network

import (
	"fmt"
	"net"

	"go.uber.org/zap"

	"github.com/pdkilimba/ledgerd/blockchain"
)

// dial opens a connection to addr, writes cmd/payload, and closes the
// connection so the peer's readMessage sees EOF after the payload. A dial
// or write failure here is a peer-reach error: non-fatal, logged, and the
// peer is evicted from the known-node list.
func (n *Node) dial(addr, cmd string, payload interface{}) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		n.logger.Warn("peer unreachable", zap.String("addr", addr), zap.Error(err))
		n.EvictKnownNode(addr)
		peersKnown.Set(float64(len(n.KnownNodes())))
		peerErrors.WithLabelValues(cmd).Inc()
		return err
	}
	defer conn.Close()

	if err := writeMessage(conn, cmd, payload); err != nil {
		n.logger.Warn("sending to peer failed", zap.String("addr", addr), zap.String("cmd", cmd), zap.Error(err))
		n.EvictKnownNode(addr)
		peersKnown.Set(float64(len(n.KnownNodes())))
		peerErrors.WithLabelValues(cmd).Inc()
		return err
	}
	return nil
}

func (n *Node) SendVersion(addr string) error {
	height, err := n.Chain.GetBestHeight()
	if err != nil {
		return fmt.Errorf("reading local height: %w", err)
	}
	return n.dial(addr, cmdVersion, VersionMsg{Version: protocolVersion, BestHeight: height, AddrFrom: n.Address})
}

func (n *Node) SendGetBlocks(addr string) error {
	return n.dial(addr, cmdGetBlocks, GetBlocksMsg{AddrFrom: n.Address})
}

func (n *Node) SendInv(addr, kind string, items [][]byte) error {
	return n.dial(addr, cmdInv, InvMsg{AddrFrom: n.Address, Type: kind, Items: items})
}

func (n *Node) SendGetData(addr, kind string, id []byte) error {
	return n.dial(addr, cmdGetData, GetDataMsg{AddrFrom: n.Address, Type: kind, ID: id})
}

func (n *Node) SendBlock(addr string, block *blockchain.Block) error {
	data, err := block.Serialize()
	if err != nil {
		return err
	}
	return n.dial(addr, cmdBlock, BlockMsg{AddrFrom: n.Address, Block: data})
}

func (n *Node) SendTx(addr string, tx *blockchain.Transaction) error {
	data, err := tx.Serialize()
	if err != nil {
		return err
	}
	return n.dial(addr, cmdTx, TxMsg{AddrFrom: n.Address, Tx: data})
}

func (n *Node) SendAddr(addr string) error {
	peers := append(n.KnownNodes(), n.Address)
	return n.dial(addr, cmdAddr, AddrMsg{AddrList: peers})
}

// BroadcastInv advertises items of kind to every known peer except skip.
func (n *Node) BroadcastInv(kind string, items [][]byte, skip string) {
	for _, peer := range n.KnownNodes() {
		if peer == n.Address || peer == skip {
			continue
		}
		_ = n.SendInv(peer, kind, items)
	}
}

// RequestBlocksFromAllPeers kicks off a sync round with every known node.
func (n *Node) RequestBlocksFromAllPeers() {
	for _, peer := range n.KnownNodes() {
		_ = n.SendGetBlocks(peer)
	}
}
