package storage

import (
	"context"
	"sync"
)

// NewMemoryStore creates an in-memory Store, grounded on
// x/superblock/wal/memory.go's memoryManager: a mutex-guarded map, no
// durability across process restarts. Used in tests and, in any CLI mode,
// whenever storage.driver is "memory" (the default).
func NewMemoryStore() Store {
	return &memoryStore{
		proofs:   make(map[recordKey][]byte),
		pies:     make(map[recordKey][]byte),
		queryIDs: make(map[queryKey]string),
	}
}

type recordKey struct {
	block uint64
	step  Step
}

type queryKey struct {
	block uint64
	kind  QueryKind
}

type memoryStore struct {
	mu       sync.RWMutex
	proofs   map[recordKey][]byte
	pies     map[recordKey][]byte
	queryIDs map[queryKey]string
}

func (m *memoryStore) GetProof(_ context.Context, block uint64, step Step) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.proofs[recordKey{block, step}]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *memoryStore) AddProof(_ context.Context, block uint64, step Step, proof []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := recordKey{block, step}
	if _, exists := m.proofs[key]; exists {
		return nil
	}
	m.proofs[key] = append([]byte(nil), proof...)
	return nil
}

func (m *memoryStore) GetPIE(_ context.Context, block uint64, step Step) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.pies[recordKey{block, step}]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *memoryStore) AddPIE(_ context.Context, block uint64, step Step, pie []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := recordKey{block, step}
	if _, exists := m.pies[key]; exists {
		return nil
	}
	m.pies[key] = append([]byte(nil), pie...)
	return nil
}

func (m *memoryStore) GetQueryID(_ context.Context, block uint64, kind QueryKind) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.queryIDs[queryKey{block, kind}]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *memoryStore) AddQueryID(_ context.Context, block uint64, kind QueryKind, queryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := queryKey{block, kind}
	if _, exists := m.queryIDs[key]; exists {
		return nil
	}
	m.queryIDs[key] = queryID
	return nil
}
