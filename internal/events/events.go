package events

import "github.com/serroba/linklive/internal/shortlink"

// Topics for domain events published on the event bus.
const (
	TopicCreated = "shortlink.created"
	TopicDeleted = "shortlink.deleted"
	TopicClicked = "shortlink.clicked"
)

// Created is published when a new short link is persisted. It is not
// published for idempotent re-submissions; those only get the unicast
// acknowledgment from the session that handled them. Origin is the
// requesting session id ("" for REST requests) so the fan-out can skip
// the requester, which already received its unicast copy.
type Created struct {
	Record *shortlink.LinkRecord `json:"record"`
	Origin string                `json:"origin,omitempty"`
}

// Deleted is published when a record is removed. It is delivered to all
// subscribers, the requester included.
type Deleted struct {
	ID     string `json:"id"`
	Origin string `json:"origin,omitempty"`
}

// Clicked is published after a click increment is persisted, carrying
// the new authoritative count.
type Clicked struct {
	ID     string `json:"id"`
	Clicks int64  `json:"clicks"`
}
