package handlers

import "github.com/serroba/linklive/internal/shortlink"

// ShortenRequest is the request body for creating a short link.
type ShortenRequest struct {
	Body struct {
		OriginalURL string `doc:"The URL to shorten" example:"https://example.com/very/long/path" json:"originalUrl"`
	}
}

// ShortenResponse returns the stored record. Idempotent re-submissions
// return the existing record with the same 201 shape; the pre-existing
// flag is a realtime-channel concern and is not exposed here.
type ShortenResponse struct {
	Body *shortlink.LinkRecord
}

// ListResponse returns all records, newest first.
type ListResponse struct {
	Body []*shortlink.LinkRecord
}

// DeleteRequest identifies the record to delete.
type DeleteRequest struct {
	ID string `doc:"Record identifier" path:"id"`
}

// DeleteResponse acknowledges a deletion.
type DeleteResponse struct {
	Body struct {
		Success bool `json:"success"`
	}
}

// RedirectRequest is the request for resolving a short code.
type RedirectRequest struct {
	Code string `doc:"The short code" example:"abc123" path:"code"`
}

// RedirectResponse carries the redirect target.
type RedirectResponse struct {
	Status  int
	Headers struct {
		Location string `doc:"The original URL" header:"Location"`
	}
}
