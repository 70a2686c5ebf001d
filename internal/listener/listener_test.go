package listener

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/eventlog/internal/event"
	"github.com/telhawk-systems/eventlog/internal/logging"
	"github.com/telhawk-systems/eventlog/internal/messaging"
	"github.com/telhawk-systems/eventlog/internal/middleware"
)

type fakeSub struct {
	subject      string
	unsubscribed bool
}

func (s *fakeSub) Unsubscribe() error { s.unsubscribed = true; return nil }
func (s *fakeSub) Subject() string    { return s.subject }
func (s *fakeSub) IsValid() bool      { return !s.unsubscribed }

type fakeBus struct {
	handlers map[string]messaging.MessageHandler
	queues   map[string]string
	subs     []*fakeSub
	failOn   string
}

func newFakeBus() *fakeBus {
	return &fakeBus{handlers: map[string]messaging.MessageHandler{}, queues: map[string]string{}}
}

func (b *fakeBus) Subscribe(subject string, h messaging.MessageHandler) (messaging.Subscription, error) {
	return b.QueueSubscribe(subject, "", h)
}

func (b *fakeBus) QueueSubscribe(subject, queue string, h messaging.MessageHandler) (messaging.Subscription, error) {
	if subject == b.failOn {
		return nil, errors.New("permission denied")
	}
	b.handlers[subject] = h
	b.queues[subject] = queue
	sub := &fakeSub{subject: subject}
	b.subs = append(b.subs, sub)
	return sub, nil
}

func (b *fakeBus) Close() error { return nil }

func (b *fakeBus) deliver(t *testing.T, pattern string, msg *messaging.Message) {
	t.Helper()
	h, ok := b.handlers[pattern]
	require.True(t, ok, "no subscription for %s", pattern)
	require.NoError(t, h(context.Background(), msg))
}

type rejection struct {
	subject, topic string
	payload        []byte
	err            error
}

type recordingHandler struct {
	mu       sync.Mutex
	events   []event.Event
	ids      []string
	rejected []rejection
}

func (h *recordingHandler) HandleEvent(ctx context.Context, ev event.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
	h.ids = append(h.ids, middleware.GetRequestID(ctx))
}

func (h *recordingHandler) RejectPayload(ctx context.Context, subject, topic string, payload []byte, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rejected = append(h.rejected, rejection{subject, topic, payload, err})
	h.ids = append(h.ids, middleware.GetRequestID(ctx))
}

func testConfig() Config {
	return Config{
		Subjects: []string{messaging.SubjectAllEvents},
		Queue:    messaging.QueueIndexers,
		Prefix:   messaging.SubjectEventsPrefix,
		Ignore:   []string{messaging.SubjectDeadLetter},
	}
}

func startListener(t *testing.T, cfg Config) (*Listener, *fakeBus, *recordingHandler) {
	t.Helper()
	bus := newFakeBus()
	h := &recordingHandler{}
	l, err := New(cfg, bus, h, logging.Discard())
	require.NoError(t, err)
	require.NoError(t, l.Start())
	return l, bus, h
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{}, newFakeBus(), &recordingHandler{}, nil)
	assert.Error(t, err)

	_, err = New(testConfig(), nil, &recordingHandler{}, nil)
	assert.Error(t, err)

	_, err = New(testConfig(), newFakeBus(), nil, nil)
	assert.Error(t, err)
}

func TestStart_QueueGroup(t *testing.T) {
	_, bus, _ := startListener(t, testConfig())
	assert.Equal(t, messaging.QueueIndexers, bus.queues[messaging.SubjectAllEvents])

	cfg := testConfig()
	cfg.Queue = ""
	_, bus, _ = startListener(t, cfg)
	assert.Equal(t, "", bus.queues[messaging.SubjectAllEvents])
}

func TestStart_FailureUnsubscribes(t *testing.T) {
	bus := newFakeBus()
	bus.failOn = "events.metric.>"
	cfg := testConfig()
	cfg.Subjects = []string{"events.log.>", "events.metric.>"}

	l, err := New(cfg, bus, &recordingHandler{}, logging.Discard())
	require.NoError(t, err)

	err = l.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "events.metric.>")
	require.Len(t, bus.subs, 1)
	assert.True(t, bus.subs[0].unsubscribed)
}

func TestStop(t *testing.T) {
	l, bus, _ := startListener(t, testConfig())
	l.Stop()
	for _, sub := range bus.subs {
		assert.True(t, sub.unsubscribed)
	}
}

func TestHandleMessage_DecodesEvent(t *testing.T) {
	_, bus, h := startListener(t, testConfig())

	bus.deliver(t, messaging.SubjectAllEvents, &messaging.Message{
		Subject: "events.log.INFO",
		Data:    []byte(`{"message":"hello","priority":3}`),
	})

	require.Len(t, h.events, 1)
	ev := h.events[0]
	assert.Equal(t, "log/INFO", ev.Topic)
	msg, ok := ev.Get("message")
	require.True(t, ok)
	assert.Equal(t, event.String("hello"), msg)
	prio, _ := ev.Get("priority")
	assert.Equal(t, event.Int(3), prio)
	assert.NotEmpty(t, h.ids[0])
}

func TestHandleMessage_TopicHeaderOverridesSubject(t *testing.T) {
	_, bus, h := startListener(t, testConfig())

	bus.deliver(t, messaging.SubjectAllEvents, &messaging.Message{
		Subject:  "events.log.INFO",
		Data:     []byte(`{}`),
		Metadata: map[string]string{"event-topic": "audit/login"},
	})

	require.Len(t, h.events, 1)
	assert.Equal(t, "audit/login", h.events[0].Topic)
}

func TestHandleMessage_DeliveryID(t *testing.T) {
	_, bus, h := startListener(t, testConfig())

	bus.deliver(t, messaging.SubjectAllEvents, &messaging.Message{
		Subject:  "events.log.INFO",
		Data:     []byte(`{}`),
		Metadata: map[string]string{middleware.HeaderRequestID: "upstream-42"},
	})
	bus.deliver(t, messaging.SubjectAllEvents, &messaging.Message{Subject: "events.log.INFO", Data: []byte(`{}`)})
	bus.deliver(t, messaging.SubjectAllEvents, &messaging.Message{Subject: "events.log.INFO", Data: []byte(`{}`)})

	require.Len(t, h.ids, 3)
	assert.Equal(t, "upstream-42", h.ids[0])
	assert.NotEmpty(t, h.ids[1])
	assert.NotEqual(t, h.ids[1], h.ids[2])
}

func TestHandleMessage_UndecodablePayload(t *testing.T) {
	_, bus, h := startListener(t, testConfig())

	bus.deliver(t, messaging.SubjectAllEvents, &messaging.Message{
		Subject: "events.log.INFO",
		Data:    []byte(`["not", "an", "object"]`),
	})

	assert.Empty(t, h.events)
	require.Len(t, h.rejected, 1)
	r := h.rejected[0]
	assert.Equal(t, "events.log.INFO", r.subject)
	assert.Equal(t, "log/INFO", r.topic)
	assert.ErrorIs(t, r.err, event.ErrNotObject)
	assert.Equal(t, `["not", "an", "object"]`, string(r.payload))
}

func TestHandleMessage_IgnoredSubject(t *testing.T) {
	cfg := testConfig()
	cfg.Subjects = []string{">"}
	_, bus, h := startListener(t, cfg)

	bus.deliver(t, ">", &messaging.Message{Subject: messaging.SubjectDeadLetter, Data: []byte(`{}`)})

	assert.Empty(t, h.events)
	assert.Empty(t, h.rejected)
}

func TestTopic(t *testing.T) {
	l, _, _ := startListener(t, testConfig())

	assert.Equal(t, "log/WARN", l.Topic(&messaging.Message{Subject: "events.log.WARN"}))
	assert.Equal(t, "x", l.Topic(&messaging.Message{
		Subject:  "events.log.WARN",
		Metadata: map[string]string{"Event-Topic": "x"},
	}))
}
