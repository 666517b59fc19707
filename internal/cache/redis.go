package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/linklive/internal/shortlink"
	"go.uber.org/zap"
)

// Redis is a Redis-backed implementation of shortlink.LookupCache,
// stored as one hash per key. The cache is advisory: read and write
// failures degrade to misses and are logged, never propagated.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedis creates a Redis lookup cache. prefix namespaces the keys so
// the origin-URL and code caches can share one client. A zero ttl keeps
// entries until purged.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *Redis {
	return &Redis{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

func (r *Redis) Get(ctx context.Context, key string) (*shortlink.LinkRecord, bool) {
	fields, err := r.client.HGetAll(ctx, r.prefix+key).Result()
	if err != nil || len(fields) == 0 {
		return nil, false
	}

	clicks, _ := strconv.ParseInt(fields["clicks"], 10, 64)

	var createdAt time.Time
	if nanos, err := strconv.ParseInt(fields["created_at"], 10, 64); err == nil {
		createdAt = time.Unix(0, nanos)
	}

	return &shortlink.LinkRecord{
		ID:          fields["id"],
		OriginalURL: fields["original_url"],
		ShortCode:   fields["short_code"],
		ShortURL:    fields["short_url"],
		Clicks:      clicks,
		CreatedAt:   createdAt,
	}, true
}

func (r *Redis) Put(ctx context.Context, key string, record *shortlink.LinkRecord) {
	pipe := r.client.Pipeline()
	fullKey := r.prefix + key

	pipe.HSet(ctx, fullKey, map[string]interface{}{
		"id":           record.ID,
		"original_url": record.OriginalURL,
		"short_code":   record.ShortCode,
		"short_url":    record.ShortURL,
		"clicks":       record.Clicks,
		"created_at":   record.CreatedAt.UnixNano(),
	})

	if r.ttl > 0 {
		pipe.Expire(ctx, fullKey, r.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("cache write failed",
			zap.String("key", fullKey),
			zap.Error(err),
		)
	}
}

func (r *Redis) Delete(ctx context.Context, key string) {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		r.logger.Warn("cache purge failed",
			zap.String("key", r.prefix+key),
			zap.Error(err),
		)
	}
}

// Compile-time check.
var _ shortlink.LookupCache = (*Redis)(nil)
