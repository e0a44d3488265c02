package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore is the KVStore implementation backing every per-node namespace
// (blockchain, UTXO set, wallets). Each namespace is one badger directory,
// so one (concern, node-id) pair maps to one *BadgerStore, opened by Open
// below.
type BadgerStore struct {
	db *badger.DB
}

// Exists reports whether a badger directory has already been initialised at
// path.
func Exists(path string) bool {
	_, err := os.Stat(filepath.Join(path, "MANIFEST"))
	return !os.IsNotExist(err)
}

// Open opens (creating if necessary) a badger store rooted at path.
func Open(path string) (*BadgerStore, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory %s: %w", path, err)
	}

	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := openWithRetry(path, opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger store at %s: %w", path, err)
	}
	return &BadgerStore{db: db}, nil
}

func openWithRetry(path string, opts badger.Options) (*badger.DB, error) {
	db, err := badger.Open(opts)
	if err == nil {
		return db, nil
	}
	// A stale LOCK file from an unclean shutdown is the one failure mode
	// worth a single automatic retry; anything else is fatal to the caller.
	if !bytes.Contains([]byte(err.Error()), []byte("LOCK")) {
		return nil, err
	}
	if rmErr := os.Remove(filepath.Join(path, "LOCK")); rmErr != nil {
		return nil, err
	}
	return badger.Open(opts)
}

func (s *BadgerStore) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return ErrNotFound
			}
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *BadgerStore) Put(key, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (s *BadgerStore) Delete(key []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

func (s *BadgerStore) IterateKeys(prefix []byte, withValues bool, fn func(key, value []byte) bool) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = withValues
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)

			var value []byte
			if withValues {
				var err error
				value, err = item.ValueCopy(nil)
				if err != nil {
					return err
				}
			}

			if !fn(key, value) {
				return nil
			}
		}
		return nil
	})
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Update runs fn against a view of the store that commits atomically,
// satisfying the Batcher interface.
func (s *BadgerStore) Update(fn func(KVStore) error) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return fn(&txnStore{txn: txn})
	})
}

// txnStore adapts a single badger transaction to the KVStore interface so
// Batcher.Update callbacks can reuse the same Get/Put/Delete/IterateKeys
// call sites as the top-level store.
type txnStore struct {
	txn *badger.Txn
}

func (t *txnStore) Get(key []byte) ([]byte, error) {
	item, err := t.txn.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (t *txnStore) Put(key, value []byte) error {
	return t.txn.Set(key, value)
}

func (t *txnStore) Delete(key []byte) error {
	err := t.txn.Delete(key)
	if err == badger.ErrKeyNotFound {
		return nil
	}
	return err
}

func (t *txnStore) IterateKeys(prefix []byte, withValues bool, fn func(key, value []byte) bool) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = withValues
	it := t.txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)

		var value []byte
		if withValues {
			var err error
			value, err = item.ValueCopy(nil)
			if err != nil {
				return err
			}
		}

		if !fn(key, value) {
			return nil
		}
	}
	return nil
}

func (t *txnStore) Close() error { return nil }
