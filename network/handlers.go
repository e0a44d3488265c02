package network

import (
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"go.uber.org/zap"

	"github.com/pdkilimba/ledgerd/blockchain"
)

// dispatch routes one decoded message to its handler. The caller (server.go)
// has already split command from payload; dispatch owns CBOR-decoding the
// payload into the right struct.
func (n *Node) dispatch(cmd string, payload []byte) error {
	messagesReceived.WithLabelValues(cmd).Inc()

	switch cmd {
	case cmdAddr:
		return n.handleAddr(payload)
	case cmdBlock:
		return n.handleBlock(payload)
	case cmdGetBlocks:
		return n.handleGetBlocks(payload)
	case cmdGetData:
		return n.handleGetData(payload)
	case cmdInv:
		return n.handleInv(payload)
	case cmdTx:
		return n.handleTx(payload)
	case cmdVersion:
		return n.handleVersion(payload)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (n *Node) handleAddr(payload []byte) error {
	var msg AddrMsg
	if err := unmarshalPayload(payload, &msg); err != nil {
		return err
	}
	for _, addr := range msg.AddrList {
		n.AddKnownNode(addr)
	}
	peersKnown.Set(float64(len(n.KnownNodes())))
	n.logger.Info("learned peers", zap.Int("count", len(msg.AddrList)))
	n.RequestBlocksFromAllPeers()
	return nil
}

func (n *Node) handleBlock(payload []byte) error {
	var msg BlockMsg
	if err := unmarshalPayload(payload, &msg); err != nil {
		return err
	}
	block, err := blockchain.DeserializeBlock(msg.Block)
	if err != nil {
		return err
	}

	if err := n.Chain.AddBlock(block); err != nil {
		return fmt.Errorf("adding received block: %w", err)
	}
	blocksAccepted.Inc()
	n.logger.Info("accepted block from peer", zap.String("hash", hex.EncodeToString(block.Hash)), zap.String("from", msg.AddrFrom))

	if hash, ok := n.PopBlockInTransit(); ok {
		return n.SendGetData(msg.AddrFrom, "block", hash)
	}
	return n.UTXO.Reindex()
}

func (n *Node) handleGetBlocks(payload []byte) error {
	var msg GetBlocksMsg
	if err := unmarshalPayload(payload, &msg); err != nil {
		return err
	}
	hashes, err := n.Chain.GetBlockHashes()
	if err != nil {
		return err
	}
	return n.SendInv(msg.AddrFrom, "block", hashes)
}

func (n *Node) handleGetData(payload []byte) error {
	var msg GetDataMsg
	if err := unmarshalPayload(payload, &msg); err != nil {
		return err
	}

	switch msg.Type {
	case "block":
		block, err := n.Chain.GetBlock(msg.ID)
		if err != nil {
			return nil // peer asked for a block we don't have; not an error
		}
		return n.SendBlock(msg.AddrFrom, block)
	case "tx":
		tx, ok := n.MempoolGet(string(msg.ID))
		if !ok {
			return nil
		}
		return n.SendTx(msg.AddrFrom, &tx)
	default:
		return fmt.Errorf("getdata: unknown type %q", msg.Type)
	}
}

func (n *Node) handleInv(payload []byte) error {
	var msg InvMsg
	if err := unmarshalPayload(payload, &msg); err != nil {
		return err
	}
	if len(msg.Items) == 0 {
		return nil
	}
	n.logger.Info("received inventory", zap.String("type", msg.Type), zap.Int("count", len(msg.Items)))

	switch msg.Type {
	case "block":
		// GetBlockHashes walks tip-to-genesis, so Items arrives newest-first;
		// reverse it so blocksInTransit is pulled oldest-first.
		reversed := make([][]byte, len(msg.Items))
		for i, item := range msg.Items {
			reversed[len(msg.Items)-1-i] = item
		}
		n.SetBlocksInTransit(reversed)
		first := reversed[0]
		n.RemoveBlockInTransit(first)
		return n.SendGetData(msg.AddrFrom, "block", first)
	case "tx":
		txID := msg.Items[0]
		if _, have := n.MempoolGet(string(txID)); !have {
			return n.SendGetData(msg.AddrFrom, "tx", txID)
		}
		return nil
	default:
		return fmt.Errorf("inv: unknown type %q", msg.Type)
	}
}

func (n *Node) handleTx(payload []byte) error {
	var msg TxMsg
	if err := unmarshalPayload(payload, &msg); err != nil {
		return err
	}
	tx, err := blockchain.DeserializeTransaction(msg.Tx)
	if err != nil {
		return err
	}

	n.MempoolPut(tx)
	transactionsPooled.Set(float64(n.MempoolLen()))

	if n.IsBootstrap() {
		n.BroadcastInv("tx", [][]byte{[]byte(tx.ID)}, msg.AddrFrom)
		return nil
	}

	if n.MempoolLen() >= 2 && n.MineAddress != "" {
		return n.mineFromMempool()
	}
	return nil
}

func (n *Node) handleVersion(payload []byte) error {
	var msg VersionMsg
	if err := unmarshalPayload(payload, &msg); err != nil {
		return err
	}

	bestHeight, err := n.Chain.GetBestHeight()
	if err != nil {
		return err
	}

	if bestHeight < msg.BestHeight {
		if err := n.SendGetBlocks(msg.AddrFrom); err != nil {
			return err
		}
	} else if bestHeight > msg.BestHeight {
		if err := n.SendVersion(msg.AddrFrom); err != nil {
			return err
		}
	}

	n.AddKnownNode(msg.AddrFrom)
	peersKnown.Set(float64(len(n.KnownNodes())))
	return nil
}

// mineFromMempool drains the mempool, verifies every pooled transaction,
// mines a block from the valid ones plus a fresh coinbase reward, reindexes
// the UTXO set, and announces the new block to every peer. Invalid
// transactions are dropped with a warning log rather than failing the
// round: one bad broadcast shouldn't stall an otherwise-healthy mining node.
func (n *Node) mineFromMempool() error {
	pending := n.MempoolDrain()
	transactionsPooled.Set(float64(n.MempoolLen()))

	var txs []*blockchain.Transaction
	for i := range pending {
		tx := pending[i]
		ok, err := n.Chain.VerifyTransaction(&tx)
		if err != nil || !ok {
			n.logger.Warn("dropping invalid pooled transaction", zap.String("id", tx.ID), zap.Error(err))
			continue
		}
		txs = append(txs, &tx)
	}
	if len(txs) == 0 {
		n.logger.Info("no valid transactions to mine")
		return nil
	}

	coinbase, err := blockchain.NewCoinbaseTX(n.MineAddress, "")
	if err != nil {
		return err
	}
	txs = append(txs, coinbase)

	block, err := n.Chain.MineBlock(txs)
	if err != nil {
		return err
	}
	if err := n.UTXO.Reindex(); err != nil {
		return err
	}
	blocksAccepted.Inc()
	n.logger.Info("mined block", zap.String("hash", hex.EncodeToString(block.Hash)), zap.Int("txs", len(txs)))

	for _, peer := range n.KnownNodes() {
		if peer != n.Address {
			_ = n.SendInv(peer, "block", [][]byte{block.Hash})
		}
	}

	if n.MempoolLen() > 0 {
		return n.mineFromMempool()
	}
	return nil
}

func unmarshalPayload(data []byte, v interface{}) error {
	if err := cbor.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}
	return nil
}
