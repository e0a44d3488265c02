package network

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pdkilimba/ledgerd/blockchain"
	"github.com/pdkilimba/ledgerd/store"
	"github.com/pdkilimba/ledgerd/wallet"
)

func newTestChain(t *testing.T) (*blockchain.Blockchain, *blockchain.UTXOSet) {
	t.Helper()
	w, err := wallet.New()
	require.NoError(t, err)

	chain, err := blockchain.Create(store.NewMemoryStore(), w.Address(), nil)
	require.NoError(t, err)

	utxo := blockchain.NewUTXOSet(chain, store.NewMemoryStore(), nil)
	require.NoError(t, utxo.Reindex())
	return chain, utxo
}
