// Package listener feeds events from the message bus into the indexer.
package listener

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/telhawk-systems/eventlog/internal/event"
	"github.com/telhawk-systems/eventlog/internal/logging"
	"github.com/telhawk-systems/eventlog/internal/messaging"
	"github.com/telhawk-systems/eventlog/internal/middleware"
)

// Handler consumes decoded events and reports undecodable payloads.
// *indexer.Indexer implements it.
type Handler interface {
	HandleEvent(ctx context.Context, ev event.Event)
	RejectPayload(ctx context.Context, subject, topic string, payload []byte, err error)
}

// Config controls which subjects are consumed.
type Config struct {
	// Subjects to subscribe to; wildcards are allowed.
	Subjects []string
	// Queue is the queue group name. Empty means every instance receives every event.
	Queue string
	// Prefix is stripped from subjects before they are mapped to topics.
	Prefix string
	// Ignore lists subjects that are never handled, such as the dead letter subject.
	Ignore []string
}

// Listener subscribes to event subjects and hands each message to a Handler.
type Listener struct {
	cfg     Config
	bus     messaging.Subscriber
	handler Handler
	logger  *logging.Logger

	mu   sync.Mutex
	subs []messaging.Subscription
}

// New creates a Listener. Call Start to begin consuming.
func New(cfg Config, bus messaging.Subscriber, handler Handler, logger *logging.Logger) (*Listener, error) {
	if len(cfg.Subjects) == 0 {
		return nil, errors.New("listener: at least one subject is required")
	}
	if bus == nil || handler == nil {
		return nil, errors.New("listener: bus and handler are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Listener{cfg: cfg, bus: bus, handler: handler, logger: logger}, nil
}

// Start subscribes to every configured subject. On failure the subscriptions
// made so far are removed.
func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, subject := range l.cfg.Subjects {
		var (
			sub messaging.Subscription
			err error
		)
		if l.cfg.Queue != "" {
			sub, err = l.bus.QueueSubscribe(subject, l.cfg.Queue, l.handleMessage)
		} else {
			sub, err = l.bus.Subscribe(subject, l.handleMessage)
		}
		if err != nil {
			l.unsubscribeLocked()
			return fmt.Errorf("listen on %s: %w", subject, err)
		}
		l.subs = append(l.subs, sub)
		l.logger.Info("listening for events",
			logging.Subject(subject),
			"queue", l.cfg.Queue,
		)
	}
	return nil
}

// Stop removes all subscriptions.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unsubscribeLocked()
}

func (l *Listener) unsubscribeLocked() {
	for _, sub := range l.subs {
		if err := sub.Unsubscribe(); err != nil {
			l.logger.Warn("failed to unsubscribe",
				logging.Subject(sub.Subject()),
				logging.Error(err),
			)
		}
	}
	l.subs = nil
}

// Topic returns the event topic for msg: the Event-Topic header when set,
// otherwise the subject mapped to a topic.
func (l *Listener) Topic(msg *messaging.Message) string {
	if topic := msg.Header(messaging.HeaderEventTopic); topic != "" {
		return topic
	}
	return messaging.SubjectToTopic(msg.Subject, l.cfg.Prefix)
}

// handleMessage never returns an error: a bad message is the handler's to report.
func (l *Listener) handleMessage(ctx context.Context, msg *messaging.Message) error {
	for _, ignored := range l.cfg.Ignore {
		if msg.Subject == ignored {
			return nil
		}
	}

	deliveryID := msg.Header(middleware.HeaderRequestID)
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}
	ctx = middleware.WithRequestID(ctx, deliveryID)

	topic := l.Topic(msg)
	ev, err := event.Decode(topic, msg.Data)
	if err != nil {
		l.handler.RejectPayload(ctx, msg.Subject, topic, msg.Data, err)
		return nil
	}

	l.handler.HandleEvent(ctx, ev)
	return nil
}
