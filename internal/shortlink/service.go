package shortlink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

type originKey struct{}

// ContextWithOrigin tags the context with the id of the realtime session
// that initiated the operation. Fan-out uses it to separate the unicast
// acknowledgment from the broadcast to everyone else.
func ContextWithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originKey{}, origin)
}

// OriginFromContext returns the originating session id, or "" for
// operations that did not come through the realtime channel.
func OriginFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(originKey{}).(string); ok {
		return v
	}

	return ""
}

// EventSink receives domain events for delivery to subscribers. The
// service only emits events; transports decide how to fan them out.
type EventSink interface {
	Created(record *LinkRecord, origin string)
	Deleted(id, origin string)
	Clicked(id string, clicks int64)
}

// Service orchestrates issuance, dedup, persistence, cache population,
// and event emission. It holds no locks across registry calls;
// correctness under races relies on the registry's unique constraints
// plus the reconciliation paths in create.
type Service struct {
	registry    Registry
	issuer      *Issuer
	originCache LookupCache
	codeCache   LookupCache
	events      EventSink
	baseURL     string
	clickWindow time.Duration
	logger      *zap.Logger

	clicks sync.WaitGroup
}

// NewService creates the shortening service. baseURL is the public base
// used to derive ShortURL values.
func NewService(
	registry Registry,
	issuer *Issuer,
	originCache, codeCache LookupCache,
	events EventSink,
	baseURL string,
	logger *zap.Logger,
) *Service {
	return &Service{
		registry:    registry,
		issuer:      issuer,
		originCache: originCache,
		codeCache:   codeCache,
		events:      events,
		baseURL:     baseURL,
		clickWindow: 5 * time.Second,
		logger:      logger,
	}
}

// Shorten returns the record for the given URL, creating it if needed.
// The boolean reports whether the record already existed. Concurrent
// identical submissions converge on one record and exactly one caller
// observes false.
func (s *Service) Shorten(ctx context.Context, rawURL string) (*LinkRecord, bool, error) {
	normalized, err := Normalize(rawURL)
	if err != nil {
		return nil, false, err
	}

	if record, ok := s.originCache.Get(ctx, normalized); ok {
		return record, true, nil
	}

	record, err := s.registry.GetByOriginalURL(ctx, normalized)
	if err == nil {
		s.originCache.Put(ctx, normalized, record)
		return record, true, nil
	}

	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	return s.create(ctx, normalized, true)
}

// create persists a new record for a URL known to be absent. retryOnCodeRace
// allows one fresh-code retry when a concurrent create wins the short-code
// constraint with the same candidate.
func (s *Service) create(ctx context.Context, normalized string, retryOnCodeRace bool) (*LinkRecord, bool, error) {
	code, err := s.issuer.Issue(ctx)
	if err != nil {
		return nil, false, err
	}

	record := &LinkRecord{
		OriginalURL: normalized,
		ShortCode:   code,
		ShortURL:    fmt.Sprintf("%s/%s", s.baseURL, code),
		Clicks:      0,
		CreatedAt:   time.Now(),
	}

	err = s.registry.Create(ctx, record)

	switch {
	case errors.Is(err, ErrURLTaken):
		// A concurrent racer created the URL first; adopt its record.
		existing, getErr := s.registry.GetByOriginalURL(ctx, normalized)
		if getErr != nil {
			return nil, false, getErr
		}

		s.originCache.Put(ctx, normalized, existing)

		return existing, true, nil

	case errors.Is(err, ErrCodeTaken):
		if retryOnCodeRace {
			return s.create(ctx, normalized, false)
		}

		return nil, false, fmt.Errorf("code collision persisted after retry: %w", err)

	case err != nil:
		return nil, false, err
	}

	s.originCache.Put(ctx, normalized, record)
	s.events.Created(record, OriginFromContext(ctx))

	return record, false, nil
}

// Resolve returns the destination URL for a short code. The click
// increment and its event run as a detached task so a slow write never
// delays the redirect.
func (s *Service) Resolve(ctx context.Context, code string) (string, error) {
	record, ok := s.codeCache.Get(ctx, code)
	if !ok {
		var err error

		record, err = s.registry.GetByCode(ctx, code)
		if err != nil {
			return "", err
		}

		s.codeCache.Put(ctx, code, record)
	}

	s.clicks.Add(1)

	go s.recordClick(record.Clone())

	return record.OriginalURL, nil
}

// recordClick persists a click increment after the redirect has already
// been served. Failures are logged, never surfaced: the redirect cannot
// be undone. The code cache is updated optimistically either way.
func (s *Service) recordClick(record *LinkRecord) {
	defer s.clicks.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.clickWindow)
	defer cancel()

	count, err := s.registry.IncrementClicks(ctx, record.ID)
	if err != nil {
		s.logger.Error("failed to persist click",
			zap.String("id", record.ID),
			zap.String("code", record.ShortCode),
			zap.Error(err),
		)

		count = record.Clicks + 1
	}

	record.Clicks = count
	s.codeCache.Put(ctx, record.ShortCode, record)

	if err == nil {
		s.events.Clicked(record.ID, count)
	}
}

// Delete removes a record and purges both caches. Unknown ids report
// ErrNotFound. The deletion event goes to every subscriber, including
// the requester.
func (s *Service) Delete(ctx context.Context, id string) error {
	record, err := s.registry.Delete(ctx, id)
	if err != nil {
		return err
	}

	s.originCache.Delete(ctx, record.OriginalURL)
	s.codeCache.Delete(ctx, record.ShortCode)

	s.events.Deleted(record.ID, OriginFromContext(ctx))

	return nil
}

// List returns all records, newest first.
func (s *Service) List(ctx context.Context) ([]*LinkRecord, error) {
	return s.registry.List(ctx)
}

// Shutdown waits for in-flight click recordings to finish.
func (s *Service) Shutdown() error {
	s.clicks.Wait()

	return nil
}
