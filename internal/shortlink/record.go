package shortlink

import "time"

// LinkRecord is the persisted mapping between a short code and its
// original URL. The registry assigns ID on creation; everything except
// Clicks is immutable afterwards.
type LinkRecord struct {
	ID          string    `doc:"Opaque record identifier"          json:"id"`
	OriginalURL string    `doc:"Normalized destination URL"        json:"originalUrl"`
	ShortCode   string    `doc:"Unique short code"                 json:"shortCode"`
	ShortURL    string    `doc:"Public short URL"                  json:"shortUrl"`
	Clicks      int64     `doc:"Number of resolved redirects"      json:"clicks"`
	CreatedAt   time.Time `doc:"Creation timestamp"                json:"createdAt"`
}

// Clone returns a copy of the record. Caches hand out clones so callers
// cannot mutate shared state.
func (r *LinkRecord) Clone() *LinkRecord {
	c := *r
	return &c
}
