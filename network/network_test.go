package network

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pdkilimba/ledgerd/blockchain"
)

func TestWriteReadMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	msg := VersionMsg{Version: protocolVersion, BestHeight: 7, AddrFrom: "localhost:3000"}

	require.NoError(t, writeMessage(&buf, cmdVersion, msg))

	cmd, payload, err := readMessage(&buf)
	require.NoError(t, err)
	require.Equal(t, cmdVersion, cmd)

	var got VersionMsg
	require.NoError(t, unmarshalPayload(payload, &got))
	require.Equal(t, msg, got)
}

func TestReadMessageRejectsMissingNewline(t *testing.T) {
	_, _, err := readMessage(bytes.NewBufferString("nocommandhere"))
	require.Error(t, err)
}

func newTestNode(t *testing.T, seed []string) *Node {
	t.Helper()
	chain, utxo := newTestChain(t)
	return NewNode("localhost:3000", "", chain, utxo, seed, nil)
}

func TestNodeIsBootstrapOnlyWhenFirstInKnownList(t *testing.T) {
	n := newTestNode(t, []string{"localhost:3000", "localhost:3001"})
	require.True(t, n.IsBootstrap())

	n2 := newTestNode(t, []string{"localhost:3001", "localhost:3000"})
	require.False(t, n2.IsBootstrap())
}

func TestKnownNodeAddAndEvict(t *testing.T) {
	n := newTestNode(t, nil)
	n.AddKnownNode("localhost:3001")
	n.AddKnownNode("localhost:3001") // duplicate, ignored
	n.AddKnownNode(n.Address)        // self, ignored

	require.Equal(t, []string{"localhost:3001"}, n.KnownNodes())
	require.True(t, n.IsKnownNode("localhost:3001"))

	n.EvictKnownNode("localhost:3001")
	require.False(t, n.IsKnownNode("localhost:3001"))
}

func TestBlocksInTransitQueue(t *testing.T) {
	n := newTestNode(t, nil)
	n.SetBlocksInTransit([][]byte{{1}, {2}, {3}})

	hash, ok := n.PopBlockInTransit()
	require.True(t, ok)
	require.Equal(t, []byte{1}, hash)

	n.RemoveBlockInTransit([]byte{2})
	hash, ok = n.PopBlockInTransit()
	require.True(t, ok)
	require.Equal(t, []byte{3}, hash)

	_, ok = n.PopBlockInTransit()
	require.False(t, ok)
}

func TestMempoolPutGetDrain(t *testing.T) {
	n := newTestNode(t, nil)
	tx := blockchain.Transaction{ID: "deadbeef"}
	n.MempoolPut(tx)

	got, ok := n.MempoolGet("deadbeef")
	require.True(t, ok)
	require.Equal(t, tx, got)
	require.Equal(t, 1, n.MempoolLen())

	drained := n.MempoolDrain()
	require.Len(t, drained, 1)
	require.Equal(t, 0, n.MempoolLen())
}

func TestNodeMethodsAreConcurrencySafe(t *testing.T) {
	n := newTestNode(t, nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func(i int) {
			defer wg.Done()
			n.AddKnownNode("peer")
		}(i)
		go func(i int) {
			defer wg.Done()
			n.MempoolPut(blockchain.Transaction{ID: "x"})
		}(i)
		go func(i int) {
			defer wg.Done()
			n.SetBlocksInTransit([][]byte{{byte(i)}})
		}(i)
	}
	wg.Wait()
}
