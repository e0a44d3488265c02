// Package network implements the peer wire protocol: handshake, block
// sync, and transaction propagation over plain TCP. Every message is an
// ASCII command, a newline, then a CBOR-encoded payload read to EOF —
// there is no length prefix, so each message gets its own connection.
package network

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

const protocolVersion = 1

// Command names, one per message type this protocol knows.
const (
	cmdVersion   = "version"
	cmdGetBlocks = "getblocks"
	cmdInv       = "inv"
	cmdGetData   = "getdata"
	cmdBlock     = "block"
	cmdTx        = "tx"
	cmdAddr      = "addr"
)

// VersionMsg is the handshake message: "I am AddrFrom, my chain tip is at
// BestHeight, and I speak protocol Version."
type VersionMsg struct {
	Version    int
	BestHeight int
	AddrFrom   string
}

// GetBlocksMsg asks a peer for the hashes of every block it has.
type GetBlocksMsg struct {
	AddrFrom string
}

// InvMsg advertises hashes of blocks or transactions the sender has
// available (Type is "block" or "tx").
type InvMsg struct {
	AddrFrom string
	Type     string
	Items    [][]byte
}

// GetDataMsg requests one specific block or transaction by hash.
type GetDataMsg struct {
	AddrFrom string
	Type     string
	ID       []byte
}

// BlockMsg carries one serialized block.
type BlockMsg struct {
	AddrFrom string
	Block    []byte
}

// TxMsg carries one serialized transaction.
type TxMsg struct {
	AddrFrom string
	Tx       []byte
}

// AddrMsg shares known peer addresses for discovery.
type AddrMsg struct {
	AddrList []string
}

// writeMessage frames cmd and payload onto w: "<cmd>\n" followed by the
// CBOR encoding of payload, with nothing after it — the reader relies on
// EOF (i.e. connection close) to know the payload is complete.
func writeMessage(w io.Writer, cmd string, payload interface{}) error {
	if _, err := io.WriteString(w, cmd+"\n"); err != nil {
		return fmt.Errorf("writing command: %w", err)
	}
	data, err := cbor.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", cmd, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing %s payload: %w", cmd, err)
	}
	return nil
}

// readMessage reads a command line followed by its payload to EOF.
func readMessage(r io.Reader) (string, []byte, error) {
	br := bufio.NewReader(r)
	line, err := br.ReadString('\n')
	if err != nil {
		return "", nil, fmt.Errorf("reading command: %w", err)
	}
	cmd := strings.TrimSuffix(line, "\n")

	payload, err := io.ReadAll(br)
	if err != nil {
		return "", nil, fmt.Errorf("reading payload for %s: %w", cmd, err)
	}
	return cmd, payload, nil
}
