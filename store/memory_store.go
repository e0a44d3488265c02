package store

import (
	"bytes"
	"sort"
	"sync"
)

// MemoryStore is an in-process KVStore used by package tests that need a
// KVStore without touching disk. It implements the same ordered-iteration
// contract as BadgerStore so tests exercising Blockchain/UTXOSet/Wallets
// behave identically against either backend.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryStore) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	m.data[string(key)] = v
	return nil
}

func (m *MemoryStore) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, string(key))
	return nil
}

func (m *MemoryStore) IterateKeys(prefix []byte, withValues bool, fn func(key, value []byte) bool) error {
	m.mu.RLock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	m.mu.RUnlock()

	sort.Strings(keys)
	for _, k := range keys {
		m.mu.RLock()
		v := m.data[k]
		m.mu.RUnlock()
		if !withValues {
			v = nil
		}
		if !fn([]byte(k), v) {
			return nil
		}
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// Update runs fn directly against the store: MemoryStore has no isolation
// levels and holds no lock across fn, so each write inside fn takes the
// store's lock on its own and the group is not atomic.
func (m *MemoryStore) Update(fn func(KVStore) error) error {
	return fn(m)
}
