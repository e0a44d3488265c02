package wallet

import (
	"testing"

	"github.com/pdkilimba/ledgerd/store"
	"github.com/stretchr/testify/require"
)

func TestCreateWalletPersistsAndReloads(t *testing.T) {
	db := store.NewMemoryStore()

	ws, err := Open(db)
	require.NoError(t, err)

	address, err := ws.CreateWallet()
	require.NoError(t, err)
	require.True(t, ValidateAddress(address))

	reopened, err := Open(db)
	require.NoError(t, err)

	w, ok := reopened.GetWallet(address)
	require.True(t, ok)
	require.Equal(t, address, w.Address())
}

func TestGetAllAddressesSortedAndComplete(t *testing.T) {
	ws, err := Open(store.NewMemoryStore())
	require.NoError(t, err)

	const n = 5
	created := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		address, err := ws.CreateWallet()
		require.NoError(t, err)
		created[address] = true
	}

	addresses := ws.GetAllAddresses()
	require.Len(t, addresses, n)
	for _, a := range addresses {
		require.True(t, created[a])
	}
	for i := 1; i < len(addresses); i++ {
		require.LessOrEqual(t, addresses[i-1], addresses[i])
	}
}

func TestGetWalletMissingAddress(t *testing.T) {
	ws, err := Open(store.NewMemoryStore())
	require.NoError(t, err)

	_, ok := ws.GetWallet("does-not-exist")
	require.False(t, ok)
}
