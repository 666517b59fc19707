package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/serroba/linklive/internal/shortlink"
)

// MemoryRegistry is an in-memory implementation of shortlink.Registry.
// Both uniqueness constraints are enforced atomically under one mutex,
// mirroring what the unique indexes give the Postgres registry.
type MemoryRegistry struct {
	mu     sync.Mutex
	byID   map[string]*shortlink.LinkRecord
	byCode map[string]string // short code -> id
	byURL  map[string]string // normalized url -> id
	order  []string          // ids in creation order
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		byID:   make(map[string]*shortlink.LinkRecord),
		byCode: make(map[string]string),
		byURL:  make(map[string]string),
	}
}

func (m *MemoryRegistry) Create(_ context.Context, record *shortlink.LinkRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.byURL[record.OriginalURL]; taken {
		return fmt.Errorf("%w: %s", shortlink.ErrURLTaken, record.OriginalURL)
	}

	if _, taken := m.byCode[record.ShortCode]; taken {
		return fmt.Errorf("%w: %s", shortlink.ErrCodeTaken, record.ShortCode)
	}

	record.ID = uuid.NewString()

	stored := record.Clone()
	m.byID[stored.ID] = stored
	m.byCode[stored.ShortCode] = stored.ID
	m.byURL[stored.OriginalURL] = stored.ID
	m.order = append(m.order, stored.ID)

	return nil
}

func (m *MemoryRegistry) GetByCode(_ context.Context, code string) (*shortlink.LinkRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byCode[code]
	if !ok {
		return nil, shortlink.ErrNotFound
	}

	return m.byID[id].Clone(), nil
}

func (m *MemoryRegistry) GetByOriginalURL(_ context.Context, originalURL string) (*shortlink.LinkRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byURL[originalURL]
	if !ok {
		return nil, shortlink.ErrNotFound
	}

	return m.byID[id].Clone(), nil
}

func (m *MemoryRegistry) List(_ context.Context) ([]*shortlink.LinkRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := make([]*shortlink.LinkRecord, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		records = append(records, m.byID[m.order[i]].Clone())
	}

	return records, nil
}

func (m *MemoryRegistry) Delete(_ context.Context, id string) (*shortlink.LinkRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.byID[id]
	if !ok {
		return nil, shortlink.ErrNotFound
	}

	delete(m.byID, id)
	delete(m.byCode, record.ShortCode)
	delete(m.byURL, record.OriginalURL)

	for i, orderedID := range m.order {
		if orderedID == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}

	return record, nil
}

func (m *MemoryRegistry) IncrementClicks(_ context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.byID[id]
	if !ok {
		return 0, shortlink.ErrNotFound
	}

	record.Clicks++

	return record.Clicks, nil
}

// Compile-time check.
var _ shortlink.Registry = (*MemoryRegistry)(nil)
