package wallet

import (
	"crypto/ed25519"
	"fmt"
	"sort"

	"github.com/pdkilimba/ledgerd/primitives"
	"github.com/pdkilimba/ledgerd/store"
)

// Wallets is a collection of wallets keyed by address, persisted in a single
// KV namespace, one per node id. Each value stored is
// the wallet's Ed25519 private key in PKCS#8 DER form; the address itself
// and the public key are always re-derivable from it, so nothing else needs
// to be stored.
type Wallets struct {
	db      store.KVStore
	wallets map[string]*Wallet
}

// Open loads every wallet found in db into memory. db is expected to be a
// KVStore opened against a namespace dedicated to one node-id; Wallets does
// not itself decide where that namespace lives on disk.
func Open(db store.KVStore) (*Wallets, error) {
	ws := &Wallets{db: db, wallets: make(map[string]*Wallet)}

	var loadErr error
	err := db.IterateKeys(nil, true, func(key, value []byte) bool {
		priv, parseErr := primitives.ParsePKCS8(value)
		if parseErr != nil {
			loadErr = fmt.Errorf("parsing wallet %s: %w", key, parseErr)
			return false
		}
		ws.wallets[string(key)] = fromPrivateKey(priv)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("loading wallets: %w", err)
	}
	if loadErr != nil {
		return nil, loadErr
	}
	return ws, nil
}

// CreateWallet generates a fresh wallet, persists it, and returns its
// address.
func (ws *Wallets) CreateWallet() (string, error) {
	w, err := New()
	if err != nil {
		return "", err
	}

	address := w.Address()
	if err := ws.put(address, w.PrivateKey); err != nil {
		return "", err
	}
	ws.wallets[address] = w
	return address, nil
}

func (ws *Wallets) put(address string, priv ed25519.PrivateKey) error {
	der, err := primitives.MarshalPKCS8(priv)
	if err != nil {
		return err
	}
	if err := ws.db.Put([]byte(address), der); err != nil {
		return fmt.Errorf("persisting wallet %s: %w", address, err)
	}
	return nil
}

// GetAllAddresses returns the addresses of every wallet in the collection,
// sorted for stable CLI output.
func (ws *Wallets) GetAllAddresses() []string {
	addresses := make([]string, 0, len(ws.wallets))
	for address := range ws.wallets {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)
	return addresses
}

// GetWallet returns the wallet for address, and whether it was found.
func (ws *Wallets) GetWallet(address string) (*Wallet, bool) {
	w, ok := ws.wallets[address]
	return w, ok
}
