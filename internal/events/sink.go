package events

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/linklive/internal/messaging"
	"github.com/serroba/linklive/internal/shortlink"
	"go.uber.org/zap"
)

// Sink publishes domain events to the event bus. Publish failures are
// logged, never propagated: the triggering operation already succeeded
// and subscribers reconcile missed events via the next snapshot.
type Sink struct {
	created messaging.Publish[Created]
	deleted messaging.Publish[Deleted]
	clicked messaging.Publish[Clicked]
	logger  *zap.Logger
}

// NewSink creates a sink that publishes on the given bus publisher.
func NewSink(publisher message.Publisher, logger *zap.Logger) *Sink {
	return &Sink{
		created: messaging.NewPublishFunc[Created](publisher, TopicCreated),
		deleted: messaging.NewPublishFunc[Deleted](publisher, TopicDeleted),
		clicked: messaging.NewPublishFunc[Clicked](publisher, TopicClicked),
		logger:  logger,
	}
}

func (s *Sink) Created(record *shortlink.LinkRecord, origin string) {
	err := s.created(&Created{Record: record, Origin: origin})
	if err != nil {
		s.logger.Error("failed to publish created event",
			zap.String("id", record.ID),
			zap.Error(err),
		)
	}
}

func (s *Sink) Deleted(id, origin string) {
	err := s.deleted(&Deleted{ID: id, Origin: origin})
	if err != nil {
		s.logger.Error("failed to publish deleted event",
			zap.String("id", id),
			zap.Error(err),
		)
	}
}

func (s *Sink) Clicked(id string, clicks int64) {
	err := s.clicked(&Clicked{ID: id, Clicks: clicks})
	if err != nil {
		s.logger.Error("failed to publish clicked event",
			zap.String("id", id),
			zap.Error(err),
		)
	}
}

// Compile-time check.
var _ shortlink.EventSink = (*Sink)(nil)
