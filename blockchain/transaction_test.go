package blockchain

import (
	"testing"

	"github.com/pdkilimba/ledgerd/store"
	"github.com/pdkilimba/ledgerd/wallet"
	"github.com/stretchr/testify/require"
)

func TestNewCoinbaseTXIsCoinbase(t *testing.T) {
	w, err := wallet.New()
	require.NoError(t, err)

	tx, err := NewCoinbaseTX(w.Address(), "")
	require.NoError(t, err)
	require.True(t, tx.IsCoinbase())
	require.NotEmpty(t, tx.ID)
	require.EqualValues(t, SUBSIDY, tx.Outputs[0].Value)
}

func TestNewCoinbaseTXEmptyDataIsUnique(t *testing.T) {
	w, err := wallet.New()
	require.NoError(t, err)

	a, err := NewCoinbaseTX(w.Address(), "")
	require.NoError(t, err)
	b, err := NewCoinbaseTX(w.Address(), "")
	require.NoError(t, err)

	require.NotEqual(t, a.ID, b.ID)
}

func TestTrimmedCopyClearsSignatureAndPublicKey(t *testing.T) {
	tx := &Transaction{
		Inputs: []TxInput{{TxID: "aa", Out: 0, Signature: []byte("sig"), PublicKey: []byte("pub")}},
	}
	trimmed := tx.TrimmedCopy()
	require.Nil(t, trimmed.Inputs[0].Signature)
	require.Nil(t, trimmed.Inputs[0].PublicKey)
	require.Equal(t, "aa", trimmed.Inputs[0].TxID)
}

func newTestChain(t *testing.T, address string) *Blockchain {
	t.Helper()
	db := store.NewMemoryStore()
	chain, err := Create(db, address, nil)
	require.NoError(t, err)
	return chain
}

func TestSignAndVerifyUTXOTransaction(t *testing.T) {
	w, err := wallet.New()
	require.NoError(t, err)
	recipient, err := wallet.New()
	require.NoError(t, err)

	chain := newTestChain(t, w.Address())

	utxoDB := store.NewMemoryStore()
	utxoSet := NewUTXOSet(chain, utxoDB, nil)
	require.NoError(t, utxoSet.Reindex())

	tx, err := NewUTXOTransaction(w, recipient.Address(), 4, utxoSet)
	require.NoError(t, err)

	ok, err := chain.VerifyTransaction(tx)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestNewUTXOTransactionInsufficientFunds(t *testing.T) {
	w, err := wallet.New()
	require.NoError(t, err)
	recipient, err := wallet.New()
	require.NoError(t, err)

	chain := newTestChain(t, w.Address())
	utxoSet := NewUTXOSet(chain, store.NewMemoryStore(), nil)
	require.NoError(t, utxoSet.Reindex())

	_, err = NewUTXOTransaction(w, recipient.Address(), SUBSIDY+1, utxoSet)
	require.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestVerifyTransactionFailsOnTamperedSignature(t *testing.T) {
	w, err := wallet.New()
	require.NoError(t, err)
	recipient, err := wallet.New()
	require.NoError(t, err)

	chain := newTestChain(t, w.Address())
	utxoSet := NewUTXOSet(chain, store.NewMemoryStore(), nil)
	require.NoError(t, utxoSet.Reindex())

	tx, err := NewUTXOTransaction(w, recipient.Address(), 4, utxoSet)
	require.NoError(t, err)

	tx.Inputs[0].Signature[0] ^= 0xFF

	ok, err := chain.VerifyTransaction(tx)
	require.NoError(t, err)
	require.False(t, ok)
}
