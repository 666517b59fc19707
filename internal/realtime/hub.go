package realtime

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/serroba/linklive/internal/events"
	"github.com/serroba/linklive/internal/shortlink"
	"go.uber.org/zap"
)

// Hub tracks all connected realtime sessions and fans domain events out
// to them. Delivery is best effort: disconnected clients miss events and
// reconcile through the snapshot they request on reconnect.
type Hub struct {
	service  *shortlink.Service
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewHub creates a hub serving the given shortening service. When
// publicURL is set, cross-origin upgrades are restricted to its host;
// an empty publicURL admits any origin, for dev setups where the
// frontend is served from a different port.
func NewHub(service *shortlink.Service, publicURL string, logger *zap.Logger) *Hub {
	var allowedHost string
	if u, err := url.Parse(publicURL); err == nil {
		allowedHost = u.Host
	}

	return &Hub{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(r, allowedHost)
			},
		},
		sessions: make(map[string]*Session),
	}
}

// originAllowed admits requests without an Origin header, same-host
// origins, and the configured public host. Any origin passes while no
// public host is configured.
func originAllowed(r *http.Request, allowedHost string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}

	if strings.EqualFold(u.Host, r.Host) {
		return true
	}

	return allowedHost == "" || strings.EqualFold(u.Host, allowedHost)
}

// ServeWS upgrades the request and runs a session until the client
// disconnects. Each session gets the current snapshot on connect.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	session := &Session{
		id:      uuid.NewString(),
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		service: h.service,
		logger:  h.logger,
	}

	h.register(session)

	go session.writePump()
	go session.readPump()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	session.sendSnapshot(ctx)

	h.logger.Info("realtime session connected", zap.String("session", session.id))
}

func (h *Hub) register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[s.id] = s
}

func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.sessions[s.id]; ok && current == s {
		delete(h.sessions, s.id)
		s.close()
	}
}

// Broadcast queues a frame for every connected session.
func (h *Hub) Broadcast(frame []byte) {
	h.broadcastExcept("", frame)
}

// broadcastExcept queues a frame for every session except the named
// origin, which already received its unicast acknowledgment.
func (h *Hub) broadcastExcept(origin string, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, session := range h.sessions {
		if id == origin {
			continue
		}

		session.enqueue(frame)
	}
}

// SessionCount reports the number of connected sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.sessions)
}

// HandleCreated forwards a creation event. The originating session is
// skipped: it already got the unicast copy with the isExisting flag.
func (h *Hub) HandleCreated(_ context.Context, event *events.Created) error {
	frame, err := marshalFrame(frameCreated, createdPayload{
		LinkRecord: event.Record,
		IsExisting: false,
	})
	if err != nil {
		return err
	}

	h.broadcastExcept(event.Origin, frame)

	return nil
}

// HandleDeleted forwards a deletion event to every session, the
// requester included.
func (h *Hub) HandleDeleted(_ context.Context, event *events.Deleted) error {
	frame, err := marshalFrame(frameDeleted, deletedPayload{ID: event.ID})
	if err != nil {
		return err
	}

	h.Broadcast(frame)

	return nil
}

// HandleClicked forwards a click event with the new count to every
// session.
func (h *Hub) HandleClicked(_ context.Context, event *events.Clicked) error {
	frame, err := marshalFrame(frameClicked, clickedPayload{
		ID:     event.ID,
		Clicks: event.Clicks,
	})
	if err != nil {
		return err
	}

	h.Broadcast(frame)

	return nil
}

// Shutdown closes every session.
func (h *Hub) Shutdown() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, session := range h.sessions {
		session.close()
		delete(h.sessions, id)
	}

	return nil
}

const (
	sendBuffer = 256
	opTimeout  = 10 * time.Second
)
