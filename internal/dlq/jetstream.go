package dlq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/telhawk-systems/eventlog/internal/messaging"
	"github.com/telhawk-systems/eventlog/internal/middleware"
)

// HeaderMsgID is the JetStream de-duplication header.
const HeaderMsgID = "Nats-Msg-Id"

// StreamPublisher publishes a message and waits for the stream acknowledgment.
type StreamPublisher interface {
	PublishSync(ctx context.Context, msg *messaging.Message) (*jetstream.PubAck, error)
}

// JetStreamQueue writes records as JSON messages to a JetStream subject.
type JetStreamQueue struct {
	pub     StreamPublisher
	subject string
}

// NewJetStreamQueue creates a queue publishing to subject.
func NewJetStreamQueue(pub StreamPublisher, subject string) *JetStreamQueue {
	return &JetStreamQueue{pub: pub, subject: subject}
}

// Write publishes rec and waits for the stream to store it.
func (q *JetStreamQueue) Write(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}

	msg := &messaging.Message{
		Subject: q.subject,
		Data:    data,
		Metadata: map[string]string{
			HeaderMsgID:                uuid.NewString(),
			messaging.HeaderEventTopic: rec.Topic,
		},
	}
	if rec.RequestID != "" {
		msg.Metadata[middleware.HeaderRequestID] = rec.RequestID
	}

	if _, err := q.pub.PublishSync(ctx, msg); err != nil {
		return fmt.Errorf("publish dead letter to %s: %w", q.subject, err)
	}
	return nil
}
