package realtime

import (
	"encoding/json"

	"github.com/serroba/linklive/internal/shortlink"
)

// Frame types sent by clients.
const (
	frameSnapshotRequest = "get_urls"
	frameSubmitURL       = "new_url"
	frameRequestDelete   = "delete_url"
)

// Frame types sent by the server.
const (
	frameSnapshot   = "urls"
	frameProcessing = "processing_url"
	frameCreated    = "url_created"
	frameDeleted    = "url_deleted"
	frameClicked    = "url_clicked"
	frameError      = "error"
)

// clientFrame is a request from a connected browser tab.
type clientFrame struct {
	Type        string `json:"type"`
	OriginalURL string `json:"originalUrl,omitempty"`
	ID          string `json:"id,omitempty"`
}

// serverFrame is an event or acknowledgment pushed to clients.
type serverFrame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// createdPayload is the record plus the pre-existing flag, so the
// requesting tab can tell an idempotent re-submission from a fresh
// creation.
type createdPayload struct {
	*shortlink.LinkRecord
	IsExisting bool `json:"isExisting"`
}

type deletedPayload struct {
	ID string `json:"id"`
}

type clickedPayload struct {
	ID     string `json:"id"`
	Clicks int64  `json:"clicks"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type processingPayload struct {
	OriginalURL string `json:"originalUrl"`
}

func marshalFrame(frameType string, payload any) ([]byte, error) {
	return json.Marshal(serverFrame{Type: frameType, Payload: payload})
}
