package events_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/linklive/internal/events"
	"github.com/serroba/linklive/internal/shortlink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturingPublisher struct {
	topics     []string
	payloads   [][]byte
	publishErr error
}

func (p *capturingPublisher) Publish(topic string, msgs ...*message.Message) error {
	if p.publishErr != nil {
		return p.publishErr
	}

	for _, msg := range msgs {
		p.topics = append(p.topics, topic)
		p.payloads = append(p.payloads, msg.Payload)
	}

	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func TestSink_Created(t *testing.T) {
	t.Run("publishes on the created topic", func(t *testing.T) {
		pub := &capturingPublisher{}
		sink := events.NewSink(pub, zap.NewNop())

		sink.Created(&shortlink.LinkRecord{
			ID:          "id-1",
			OriginalURL: "https://example.com",
			ShortCode:   "abc123",
			CreatedAt:   time.Now(),
		}, "session-1")

		require.Len(t, pub.topics, 1)
		assert.Equal(t, events.TopicCreated, pub.topics[0])
		assert.Contains(t, string(pub.payloads[0]), `"abc123"`)
		assert.Contains(t, string(pub.payloads[0]), `"session-1"`)
	})

	t.Run("swallows publish failures", func(t *testing.T) {
		pub := &capturingPublisher{publishErr: errors.New("bus down")}
		sink := events.NewSink(pub, zap.NewNop())

		sink.Created(&shortlink.LinkRecord{ID: "id-1"}, "")
	})
}

func TestSink_Deleted(t *testing.T) {
	pub := &capturingPublisher{}
	sink := events.NewSink(pub, zap.NewNop())

	sink.Deleted("id-1", "session-1")

	require.Len(t, pub.topics, 1)
	assert.Equal(t, events.TopicDeleted, pub.topics[0])
	assert.Contains(t, string(pub.payloads[0]), `"id-1"`)
}

func TestSink_Clicked(t *testing.T) {
	pub := &capturingPublisher{}
	sink := events.NewSink(pub, zap.NewNop())

	sink.Clicked("id-1", 5)

	require.Len(t, pub.topics, 1)
	assert.Equal(t, events.TopicClicked, pub.topics[0])
	assert.Contains(t, string(pub.payloads[0]), `"clicks":5`)
}
