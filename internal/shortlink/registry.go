package shortlink

import "context"

// Registry is the durable, uniqueness-enforcing store of link records.
// It is the sole owner of record identity; caches only hold copies.
type Registry interface {
	// Create persists a new record and assigns its ID. It returns
	// ErrCodeTaken or ErrURLTaken when the corresponding unique
	// constraint is violated by a concurrent create.
	Create(ctx context.Context, record *LinkRecord) error

	// GetByCode returns the record for a short code, or ErrNotFound.
	GetByCode(ctx context.Context, code string) (*LinkRecord, error)

	// GetByOriginalURL returns the record for a normalized URL, or
	// ErrNotFound.
	GetByOriginalURL(ctx context.Context, originalURL string) (*LinkRecord, error)

	// List returns all records, newest first.
	List(ctx context.Context) ([]*LinkRecord, error)

	// Delete removes a record by id and returns it, or ErrNotFound.
	Delete(ctx context.Context, id string) (*LinkRecord, error)

	// IncrementClicks atomically adds one to the click counter and
	// returns the new count, or ErrNotFound.
	IncrementClicks(ctx context.Context, id string) (int64, error)
}

// LookupCache is an advisory lookup table in front of the registry.
// Implementations promise correctness on miss, not retention: a Get miss
// must always be resolvable by falling through to the registry.
type LookupCache interface {
	Get(ctx context.Context, key string) (*LinkRecord, bool)
	Put(ctx context.Context, key string, record *LinkRecord)
	Delete(ctx context.Context, key string)
}
