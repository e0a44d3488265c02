package blockchain

import (
	"testing"

	"github.com/pdkilimba/ledgerd/store"
	"github.com/pdkilimba/ledgerd/wallet"
	"github.com/stretchr/testify/require"
)

func TestCreateRefusesDoubleInit(t *testing.T) {
	db := store.NewMemoryStore()
	w, err := wallet.New()
	require.NoError(t, err)

	_, err = Create(db, w.Address(), nil)
	require.NoError(t, err)

	_, err = Create(db, w.Address(), nil)
	require.ErrorIs(t, err, ErrChainExists)
}

func TestOpenFailsWithoutExistingChain(t *testing.T) {
	_, err := Open(store.NewMemoryStore(), nil)
	require.ErrorIs(t, err, ErrNoChain)
}

func TestOpenResumesCreatedChain(t *testing.T) {
	db := store.NewMemoryStore()
	w, err := wallet.New()
	require.NoError(t, err)

	chain, err := Create(db, w.Address(), nil)
	require.NoError(t, err)

	reopened, err := Open(db, nil)
	require.NoError(t, err)

	h1, err := chain.GetBestHeight()
	require.NoError(t, err)
	h2, err := reopened.GetBestHeight()
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

func TestGenesisBestHeightIsZero(t *testing.T) {
	db := store.NewMemoryStore()
	w, err := wallet.New()
	require.NoError(t, err)

	chain, err := Create(db, w.Address(), nil)
	require.NoError(t, err)

	height, err := chain.GetBestHeight()
	require.NoError(t, err)
	require.Equal(t, 0, height)
}

func TestMineBlockAdvancesTipAndHeight(t *testing.T) {
	db := store.NewMemoryStore()
	w, err := wallet.New()
	require.NoError(t, err)

	chain, err := Create(db, w.Address(), nil)
	require.NoError(t, err)

	coinbase, err := NewCoinbaseTX(w.Address(), "")
	require.NoError(t, err)

	block, err := chain.MineBlock([]*Transaction{coinbase})
	require.NoError(t, err)
	require.Equal(t, 1, block.Height)

	height, err := chain.GetBestHeight()
	require.NoError(t, err)
	require.Equal(t, 1, height)
}

func TestGetBlockHashesNewestFirst(t *testing.T) {
	db := store.NewMemoryStore()
	w, err := wallet.New()
	require.NoError(t, err)

	chain, err := Create(db, w.Address(), nil)
	require.NoError(t, err)

	var mined []*Block
	for i := 0; i < 3; i++ {
		coinbase, err := NewCoinbaseTX(w.Address(), "")
		require.NoError(t, err)
		b, err := chain.MineBlock([]*Transaction{coinbase})
		require.NoError(t, err)
		mined = append(mined, b)
	}

	hashes, err := chain.GetBlockHashes()
	require.NoError(t, err)
	require.Len(t, hashes, 4) // genesis + 3 mined

	require.Equal(t, mined[2].Hash, hashes[0])
	require.Equal(t, mined[1].Hash, hashes[1])
	require.Equal(t, mined[0].Hash, hashes[2])
}

func TestAddBlockUnconditionallyReplacesTipOnGreaterHeight(t *testing.T) {
	db := store.NewMemoryStore()
	w, err := wallet.New()
	require.NoError(t, err)

	chain, err := Create(db, w.Address(), nil)
	require.NoError(t, err)

	genesisHeight, err := chain.GetBestHeight()
	require.NoError(t, err)
	require.Equal(t, 0, genesisHeight)

	coinbase, err := NewCoinbaseTX(w.Address(), "unrelated")
	require.NoError(t, err)
	foreign := CreateBlock([]*Transaction{coinbase}, []byte("not-the-real-tip"), 5, 1700000001)

	require.NoError(t, chain.AddBlock(foreign))

	height, err := chain.GetBestHeight()
	require.NoError(t, err)
	require.Equal(t, 5, height)
}

func TestFindTransactionLocatesCoinbase(t *testing.T) {
	db := store.NewMemoryStore()
	w, err := wallet.New()
	require.NoError(t, err)

	chain, err := Create(db, w.Address(), nil)
	require.NoError(t, err)

	genesis, err := chain.GetBlock(chain.tip)
	require.NoError(t, err)
	txID := genesis.Transactions[0].ID

	found, err := chain.FindTransaction(txID)
	require.NoError(t, err)
	require.Equal(t, txID, found.ID)
}

func TestFindTransactionMissingReturnsError(t *testing.T) {
	db := store.NewMemoryStore()
	w, err := wallet.New()
	require.NoError(t, err)

	chain, err := Create(db, w.Address(), nil)
	require.NoError(t, err)

	_, err = chain.FindTransaction("deadbeef")
	require.ErrorIs(t, err, ErrTxNotFound)
}
