package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/linklive/internal/shortlink"
	"go.uber.org/zap"
)

// URLHandler exposes the shortening service over REST.
type URLHandler struct {
	service *shortlink.Service
	logger  *zap.Logger
}

// NewURLHandler creates a new URL handler.
func NewURLHandler(service *shortlink.Service, logger *zap.Logger) *URLHandler {
	return &URLHandler{
		service: service,
		logger:  logger,
	}
}

func (h *URLHandler) Shorten(ctx context.Context, req *ShortenRequest) (*ShortenResponse, error) {
	if req.Body.OriginalURL == "" {
		return nil, huma.Error400BadRequest("URL is required")
	}

	record, existing, err := h.service.Shorten(ctx, req.Body.OriginalURL)
	if err != nil {
		return nil, mapError(err, "failed to create short url")
	}

	meta := RequestMetaFromContext(ctx)
	h.logger.Info("short url requested",
		zap.String("code", record.ShortCode),
		zap.Bool("existing", existing),
		zap.String("client_ip", meta.ClientIP),
	)

	return &ShortenResponse{Body: record}, nil
}

func (h *URLHandler) List(ctx context.Context, _ *struct{}) (*ListResponse, error) {
	records, err := h.service.List(ctx)
	if err != nil {
		return nil, mapError(err, "failed to fetch urls")
	}

	if records == nil {
		records = []*shortlink.LinkRecord{}
	}

	return &ListResponse{Body: records}, nil
}

func (h *URLHandler) Delete(ctx context.Context, req *DeleteRequest) (*DeleteResponse, error) {
	if err := h.service.Delete(ctx, req.ID); err != nil {
		return nil, mapError(err, "failed to delete url")
	}

	resp := &DeleteResponse{}
	resp.Body.Success = true

	return resp, nil
}

func (h *URLHandler) Redirect(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	originalURL, err := h.service.Resolve(ctx, req.Code)
	if err != nil {
		return nil, mapError(err, "failed to resolve short url")
	}

	resp := &RedirectResponse{
		Status: http.StatusFound,
	}
	resp.Headers.Location = originalURL

	return resp, nil
}

// mapError translates domain errors to HTTP responses without leaking
// internal detail. Uniqueness races never reach this point; the service
// reconciles them transparently.
func mapError(err error, fallback string) error {
	switch {
	case errors.Is(err, shortlink.ErrInvalidURL):
		return huma.Error400BadRequest("Invalid URL format")
	case errors.Is(err, shortlink.ErrNotFound):
		return huma.Error404NotFound("URL not found")
	case errors.Is(err, shortlink.ErrStorageUnavailable):
		return huma.Error503ServiceUnavailable("Database not connected")
	default:
		return huma.Error500InternalServerError(fallback)
	}
}
