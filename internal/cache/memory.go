package cache

import (
	"context"
	"sync"

	"github.com/serroba/linklive/internal/shortlink"
)

// Memory is an in-process implementation of shortlink.LookupCache.
// Entries live until explicitly purged; the contract only promises
// correctness on miss, so unbounded growth is acceptable here and a
// bounded variant can be swapped in without changing callers.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*shortlink.LinkRecord
}

// NewMemory creates an empty in-memory lookup cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]*shortlink.LinkRecord),
	}
}

func (m *Memory) Get(_ context.Context, key string) (*shortlink.LinkRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.entries[key]
	if !ok {
		return nil, false
	}

	return record.Clone(), true
}

func (m *Memory) Put(_ context.Context, key string, record *shortlink.LinkRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = record.Clone()
}

func (m *Memory) Delete(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
}

// Compile-time check.
var _ shortlink.LookupCache = (*Memory)(nil)
