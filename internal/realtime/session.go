package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/serroba/linklive/internal/shortlink"
	"go.uber.org/zap"
)

const (
	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second

	// pongWait is the read deadline; pingPeriod must be shorter so a
	// healthy client always answers in time.
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Session is one connected browser tab. Outbound frames go through a
// buffered channel so a slow client never blocks the hub.
type Session struct {
	id      string
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	service *shortlink.Service
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool
}

// enqueue queues a frame for delivery. Frames are dropped when the
// client cannot keep up or the session is already closed; dropped events
// are reconciled by the next snapshot. The mutex is held across the send
// so close never races an in-flight enqueue onto a closed channel.
func (s *Session) enqueue(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	select {
	case s.send <- frame:
	default:
		s.logger.Warn("session send buffer full, dropping frame",
			zap.String("session", s.id),
		)
	}
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.closed = true
	close(s.send)
}

func (s *Session) readPump() {
	defer func() {
		s.hub.unregister(s)
		s.conn.Close()
	}()

	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, payload, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Error("websocket read error",
					zap.String("session", s.id),
					zap.Error(err),
				)
			}

			return
		}

		if messageType == websocket.TextMessage {
			s.dispatch(payload)
		}
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Session) dispatch(payload []byte) {
	var frame clientFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		s.sendError("malformed request")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	ctx = shortlink.ContextWithOrigin(ctx, s.id)

	switch frame.Type {
	case frameSnapshotRequest:
		s.sendSnapshot(ctx)
	case frameSubmitURL:
		s.handleSubmit(ctx, frame.OriginalURL)
	case frameRequestDelete:
		s.handleDelete(ctx, frame.ID)
	default:
		s.logger.Debug("unknown frame type",
			zap.String("session", s.id),
			zap.String("type", frame.Type),
		)
	}
}

func (s *Session) handleSubmit(ctx context.Context, rawURL string) {
	if rawURL == "" {
		s.sendError("URL is required")
		return
	}

	s.sendFrame(frameProcessing, processingPayload{OriginalURL: rawURL})

	record, existing, err := s.service.Shorten(ctx, rawURL)
	if err != nil {
		s.sendError(userMessage(err))
		return
	}

	// Unicast goes to the requester always; the broadcast to other
	// sessions happens on the created topic and only for new records.
	s.sendFrame(frameCreated, createdPayload{
		LinkRecord: record,
		IsExisting: existing,
	})
}

func (s *Session) handleDelete(ctx context.Context, id string) {
	if id == "" {
		s.sendError("URL ID is required")
		return
	}

	// No unicast here: the deleted event is broadcast to every session,
	// this one included.
	if err := s.service.Delete(ctx, id); err != nil {
		s.sendError(userMessage(err))
	}
}

// sendSnapshot unicasts the full list, newest first. A storage failure
// degrades to an empty list so a freshly connected tab still renders.
func (s *Session) sendSnapshot(ctx context.Context) {
	records, err := s.service.List(ctx)
	if err != nil {
		s.logger.Error("failed to load snapshot",
			zap.String("session", s.id),
			zap.Error(err),
		)

		records = nil
	}

	if records == nil {
		records = []*shortlink.LinkRecord{}
	}

	s.sendFrame(frameSnapshot, records)
}

func (s *Session) sendFrame(frameType string, payload any) {
	frame, err := marshalFrame(frameType, payload)
	if err != nil {
		s.logger.Error("failed to marshal frame",
			zap.String("type", frameType),
			zap.Error(err),
		)

		return
	}

	s.enqueue(frame)
}

func (s *Session) sendError(message string) {
	s.sendFrame(frameError, errorPayload{Message: message})
}

// userMessage maps domain errors to the human-readable strings shown in
// the client's notice area, without leaking internals.
func userMessage(err error) string {
	switch {
	case errors.Is(err, shortlink.ErrInvalidURL):
		return "Invalid URL format"
	case errors.Is(err, shortlink.ErrNotFound):
		return "URL not found"
	case errors.Is(err, shortlink.ErrStorageUnavailable):
		return "Database not connected"
	default:
		return "Internal server error"
	}
}
