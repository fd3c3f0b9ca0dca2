package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrPublisherClosed is returned when publishing through a closed publisher.
var ErrPublisherClosed = errors.New("messaging: publisher is closed")

// Publisher publishes messages to a destination (topic or subject).
type Publisher interface {
	io.Closer

	// Publish sends a message to the destination.
	Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error)
}

// OutgoingMessage represents a broker-agnostic message to be published.
type OutgoingMessage struct {
	// Body is the message payload.
	Body []byte

	// Key is used by Kafka for partitioning and as the Pub/Sub ordering key.
	Key []byte

	// Headers are string key/value pairs. Pub/Sub maps them to attributes
	// and NSQ, which has no headers, drops them.
	Headers []Header
}

// Header is a key/value pair used for message headers.
type Header struct {
	Key   string
	Value string
}

// PublishResult carries optional broker-specific publish metadata.
type PublishResult struct {
	// MessageID is the broker-assigned message ID, when the broker returns one.
	MessageID string
	// Topic is the destination the message was sent to.
	Topic string
	// Timestamp is when the message was handed to the broker.
	Timestamp time.Time
}

func headerMap(hs []Header) map[string]string {
	if len(hs) == 0 {
		return nil
	}

	out := make(map[string]string, len(hs))
	for _, h := range hs {
		if h.Key == "" {
			continue
		}
		out[h.Key] = h.Value
	}
	return out
}
