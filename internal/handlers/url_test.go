package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/jaevor/go-nanoid"
	"github.com/serroba/linklive/internal/cache"
	"github.com/serroba/linklive/internal/handlers"
	"github.com/serroba/linklive/internal/shortlink"
	"github.com/serroba/linklive/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testURL = "https://example.com/very/long/path"

// noopSink discards domain events.
type noopSink struct{}

func (noopSink) Created(*shortlink.LinkRecord, string) {}
func (noopSink) Deleted(string, string)                {}
func (noopSink) Clicked(string, int64)                 {}

func newTestHandler(t *testing.T, registry shortlink.Registry) (*handlers.URLHandler, *shortlink.Service) {
	t.Helper()

	gen, err := nanoid.Standard(8)
	require.NoError(t, err)

	service := shortlink.NewService(
		registry,
		shortlink.NewIssuer(registry, gen),
		cache.NewMemory(),
		cache.NewMemory(),
		noopSink{},
		"http://localhost:8888",
		zap.NewNop(),
	)

	t.Cleanup(func() { _ = service.Shutdown() })

	return handlers.NewURLHandler(service, zap.NewNop()), service
}

func assertStatus(t *testing.T, err error, want int) {
	t.Helper()

	var statusErr huma.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, want, statusErr.GetStatus())
}

func TestURLHandler_Shorten(t *testing.T) {
	t.Run("creates short url successfully", func(t *testing.T) {
		handler, _ := newTestHandler(t, store.NewMemoryRegistry())

		req := &handlers.ShortenRequest{}
		req.Body.OriginalURL = testURL

		resp, err := handler.Shorten(context.Background(), req)

		require.NoError(t, err)
		assert.NotEmpty(t, resp.Body.ShortCode)
		assert.Equal(t, testURL, resp.Body.OriginalURL)
		assert.Contains(t, resp.Body.ShortURL, resp.Body.ShortCode)
	})

	t.Run("same url returns the same record", func(t *testing.T) {
		handler, _ := newTestHandler(t, store.NewMemoryRegistry())

		req := &handlers.ShortenRequest{}
		req.Body.OriginalURL = testURL

		resp1, err1 := handler.Shorten(context.Background(), req)
		resp2, err2 := handler.Shorten(context.Background(), req)

		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.Equal(t, resp1.Body.ShortCode, resp2.Body.ShortCode)
		assert.Equal(t, resp1.Body.ID, resp2.Body.ID)
	})

	t.Run("normalizes a bare host", func(t *testing.T) {
		handler, _ := newTestHandler(t, store.NewMemoryRegistry())

		req := &handlers.ShortenRequest{}
		req.Body.OriginalURL = "example.com"

		resp, err := handler.Shorten(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, "https://example.com", resp.Body.OriginalURL)
	})

	t.Run("rejects a missing url", func(t *testing.T) {
		handler, _ := newTestHandler(t, store.NewMemoryRegistry())

		req := &handlers.ShortenRequest{}

		resp, err := handler.Shorten(context.Background(), req)

		assert.Nil(t, resp)
		assertStatus(t, err, http.StatusBadRequest)
	})

	t.Run("rejects an invalid url", func(t *testing.T) {
		handler, _ := newTestHandler(t, store.NewMemoryRegistry())

		req := &handlers.ShortenRequest{}
		req.Body.OriginalURL = "https://"

		resp, err := handler.Shorten(context.Background(), req)

		assert.Nil(t, resp)
		assertStatus(t, err, http.StatusBadRequest)
	})

	t.Run("maps storage failures to 503", func(t *testing.T) {
		handler, _ := newTestHandler(t, &unavailableRegistry{})

		req := &handlers.ShortenRequest{}
		req.Body.OriginalURL = testURL

		_, err := handler.Shorten(context.Background(), req)

		assertStatus(t, err, http.StatusServiceUnavailable)
	})

	t.Run("uses request metadata from context", func(t *testing.T) {
		handler, _ := newTestHandler(t, store.NewMemoryRegistry())

		ctx := handlers.ContextWithRequestMeta(context.Background(), handlers.RequestMeta{
			ClientIP:  "192.168.1.1",
			UserAgent: "TestAgent/1.0",
		})

		req := &handlers.ShortenRequest{}
		req.Body.OriginalURL = testURL

		resp, err := handler.Shorten(ctx, req)

		require.NoError(t, err)
		assert.NotEmpty(t, resp.Body.ShortCode)
	})
}

func TestURLHandler_List(t *testing.T) {
	t.Run("returns records newest first", func(t *testing.T) {
		handler, service := newTestHandler(t, store.NewMemoryRegistry())

		_, _, err := service.Shorten(context.Background(), "https://example.com/first")
		require.NoError(t, err)
		_, _, err = service.Shorten(context.Background(), "https://example.com/second")
		require.NoError(t, err)

		resp, err := handler.List(context.Background(), nil)

		require.NoError(t, err)
		require.Len(t, resp.Body, 2)
		assert.Equal(t, "https://example.com/second", resp.Body[0].OriginalURL)
	})

	t.Run("empty registry returns an empty slice", func(t *testing.T) {
		handler, _ := newTestHandler(t, store.NewMemoryRegistry())

		resp, err := handler.List(context.Background(), nil)

		require.NoError(t, err)
		assert.NotNil(t, resp.Body)
		assert.Empty(t, resp.Body)
	})
}

func TestURLHandler_Delete(t *testing.T) {
	t.Run("deletes an existing record", func(t *testing.T) {
		handler, service := newTestHandler(t, store.NewMemoryRegistry())

		record, _, err := service.Shorten(context.Background(), testURL)
		require.NoError(t, err)

		resp, err := handler.Delete(context.Background(), &handlers.DeleteRequest{ID: record.ID})

		require.NoError(t, err)
		assert.True(t, resp.Body.Success)

		list, err := handler.List(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, list.Body)
	})

	t.Run("unknown id returns 404", func(t *testing.T) {
		handler, _ := newTestHandler(t, store.NewMemoryRegistry())

		resp, err := handler.Delete(context.Background(), &handlers.DeleteRequest{ID: "missing"})

		assert.Nil(t, resp)
		assertStatus(t, err, http.StatusNotFound)
	})
}

func TestURLHandler_Redirect(t *testing.T) {
	t.Run("redirects to the original url", func(t *testing.T) {
		handler, service := newTestHandler(t, store.NewMemoryRegistry())

		record, _, err := service.Shorten(context.Background(), testURL)
		require.NoError(t, err)

		resp, err := handler.Redirect(context.Background(), &handlers.RedirectRequest{Code: record.ShortCode})

		require.NoError(t, err)
		assert.Equal(t, http.StatusFound, resp.Status)
		assert.Equal(t, testURL, resp.Headers.Location)
	})

	t.Run("unknown code returns 404", func(t *testing.T) {
		handler, _ := newTestHandler(t, store.NewMemoryRegistry())

		resp, err := handler.Redirect(context.Background(), &handlers.RedirectRequest{Code: "missing"})

		assert.Nil(t, resp)
		assertStatus(t, err, http.StatusNotFound)
	})

	t.Run("counts the click", func(t *testing.T) {
		registry := store.NewMemoryRegistry()
		handler, service := newTestHandler(t, registry)

		record, _, err := service.Shorten(context.Background(), testURL)
		require.NoError(t, err)

		_, err = handler.Redirect(context.Background(), &handlers.RedirectRequest{Code: record.ShortCode})
		require.NoError(t, err)

		require.NoError(t, service.Shutdown())

		stored, err := registry.GetByCode(context.Background(), record.ShortCode)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stored.Clicks)
	})
}

func TestContextWithRequestMeta(t *testing.T) {
	t.Run("adds and retrieves request metadata from context", func(t *testing.T) {
		meta := handlers.RequestMeta{
			ClientIP:  "192.168.1.1",
			UserAgent: "TestAgent/1.0",
		}
		ctx := handlers.ContextWithRequestMeta(context.Background(), meta)

		retrieved := handlers.RequestMetaFromContext(ctx)
		assert.Equal(t, meta, retrieved)
	})

	t.Run("missing metadata yields the zero value", func(t *testing.T) {
		retrieved := handlers.RequestMetaFromContext(context.Background())

		assert.Equal(t, handlers.RequestMeta{}, retrieved)
	})
}

// unavailableRegistry fails every operation as if the database were
// down.
type unavailableRegistry struct{}

func (unavailableRegistry) Create(context.Context, *shortlink.LinkRecord) error {
	return shortlink.ErrStorageUnavailable
}

func (unavailableRegistry) GetByCode(context.Context, string) (*shortlink.LinkRecord, error) {
	return nil, shortlink.ErrStorageUnavailable
}

func (unavailableRegistry) GetByOriginalURL(context.Context, string) (*shortlink.LinkRecord, error) {
	return nil, shortlink.ErrStorageUnavailable
}

func (unavailableRegistry) List(context.Context) ([]*shortlink.LinkRecord, error) {
	return nil, shortlink.ErrStorageUnavailable
}

func (unavailableRegistry) Delete(context.Context, string) (*shortlink.LinkRecord, error) {
	return nil, shortlink.ErrStorageUnavailable
}

func (unavailableRegistry) IncrementClicks(context.Context, string) (int64, error) {
	return 0, shortlink.ErrStorageUnavailable
}
