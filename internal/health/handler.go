package health

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/redis/go-redis/v9"
)

// StorageState reports registry connectivity. *store.Monitor satisfies it.
type StorageState interface {
	Connected() bool
}

// Checker defines the interface for pinging a dependency.
type Checker interface {
	Ping(ctx context.Context) error
}

// RedisChecker adapts redis.Client to Checker.
type RedisChecker struct {
	client *redis.Client
}

// NewRedisChecker creates a new Redis health checker.
func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

// Ping checks Redis connectivity.
func (r *RedisChecker) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Handler handles health check operations.
type Handler struct {
	storage StorageState
	cache   Checker
}

// NewHandler creates a health handler. cache may be nil when the
// in-memory cache backend is configured.
func NewHandler(storage StorageState, cache Checker) *Handler {
	return &Handler{
		storage: storage,
		cache:   cache,
	}
}

// Response is the response for the health check endpoint. The status
// code doubles as the machine-readable signal: 503 while the registry
// is unreachable so clients can fall back to their local copy.
type Response struct {
	Status int
	Body   struct {
		Status  string `json:"status"`
		Storage string `json:"storage"`
		Cache   string `json:"cache,omitempty"`
	}
}

// Check reports registry and cache connectivity.
func (h *Handler) Check(ctx context.Context, _ *struct{}) (*Response, error) {
	resp := &Response{Status: http.StatusOK}
	resp.Body.Status = "ok"

	if h.storage.Connected() {
		resp.Body.Storage = "connected"
	} else {
		resp.Body.Storage = "disconnected"
		resp.Body.Status = "error"
		resp.Status = http.StatusServiceUnavailable
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			resp.Body.Cache = "unhealthy"

			if resp.Body.Status == "ok" {
				resp.Body.Status = "degraded"
			}
		} else {
			resp.Body.Cache = "healthy"
		}
	}

	return resp, nil
}

// RegisterRoutes registers health check routes.
func RegisterRoutes(api huma.API, h *Handler) {
	huma.Get(api, "/health", h.Check)
}
