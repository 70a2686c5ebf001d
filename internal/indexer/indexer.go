// Package indexer turns events into index requests: it builds the document,
// resolves the daily index from the event time and pushes the request to a
// Sender. Failures come back from Process as *StageError values; HandleEvent
// is the event bus entry point and never lets a failure escape.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/telhawk-systems/eventlog/internal/destination"
	"github.com/telhawk-systems/eventlog/internal/dlq"
	"github.com/telhawk-systems/eventlog/internal/document"
	"github.com/telhawk-systems/eventlog/internal/event"
	"github.com/telhawk-systems/eventlog/internal/logging"
	"github.com/telhawk-systems/eventlog/internal/metrics"
	"github.com/telhawk-systems/eventlog/internal/middleware"
)

// Config is the immutable configuration of an Indexer.
type Config struct {
	// Host is the label written into every document.
	Host string
	// Index is the base name daily indices are derived from.
	Index string
	// DocType is the document type label attached to every request.
	DocType string
	// TimestampKey overrides the property carrying the event time.
	TimestampKey string
	// Location fixes the zone used for index days and formatted dates. Nil means UTC.
	Location *time.Location
	// Clock is the time source for events without a timestamp. Nil means time.Now.
	Clock func() time.Time
}

func (c Config) validate() error {
	var errs []error
	if c.Host == "" {
		errs = append(errs, errors.New("host label is required"))
	}
	if c.Index == "" {
		errs = append(errs, errors.New("base index name is required"))
	}
	if c.DocType == "" {
		errs = append(errs, errors.New("document type is required"))
	}
	return errors.Join(errs...)
}

// Result describes an event that was pushed to the sender.
type Result struct {
	Topic     string
	Index     string
	DocType   string
	Document  string
	Timestamp int64
	// Elapsed is the time spent in the sender.
	Elapsed time.Duration
}

// Indexer runs the build -> resolve -> dispatch pipeline. It holds no mutable
// state and is safe for concurrent use.
type Indexer struct {
	cfg      Config
	builder  *document.Builder
	resolver destination.Resolver
	sender   Sender
	dlq      dlq.Writer
	logger   *logging.Logger
	now      func() time.Time
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets the logger used for dropped events.
func WithLogger(l *logging.Logger) Option {
	return func(ix *Indexer) {
		if l != nil {
			ix.logger = l
		}
	}
}

// WithDeadLetters records every dropped event to w.
func WithDeadLetters(w dlq.Writer) Option {
	return func(ix *Indexer) {
		ix.dlq = w
	}
}

// New creates an Indexer pushing to sender.
func New(cfg Config, sender Sender, opts ...Option) (*Indexer, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid indexer config: %w", err)
	}
	if sender == nil {
		return nil, errors.New("invalid indexer config: sender is required")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	ix := &Indexer{
		cfg: cfg,
		builder: document.NewBuilder(
			document.WithTimestampKey(cfg.TimestampKey),
			document.WithLocation(cfg.Location),
			document.WithClock(cfg.Clock),
		),
		resolver: destination.NewResolver(cfg.Index, cfg.Location),
		sender:   sender,
		logger:   logging.Default(),
		now:      now,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix, nil
}

// Resolver returns the index resolver used by the indexer.
func (ix *Indexer) Resolver() destination.Resolver { return ix.resolver }

// Render builds the document and resolves the index for ev without pushing it.
func (ix *Indexer) Render(ev event.Event) (Result, error) {
	doc, ts, err := ix.builder.Build(ix.cfg.Host, ev)
	if err != nil {
		return Result{}, &StageError{Stage: StageBuild, Topic: ev.Topic, Err: err}
	}

	res := Result{Topic: ev.Topic, DocType: ix.cfg.DocType, Document: doc, Timestamp: ts}
	if ts <= 0 {
		return res, &StageError{Stage: StageResolve, Topic: ev.Topic, Err: fmt.Errorf("%w: got %d", ErrInvalidTimestamp, ts)}
	}
	res.Index = ix.resolver.Resolve(ts)
	return res, nil
}

// Process renders ev and pushes it to the sender as a create request.
func (ix *Indexer) Process(ctx context.Context, ev event.Event) (Result, error) {
	res, err := ix.Render(ev)
	if err != nil {
		return res, err
	}

	req := IndexRequest{
		Index:   res.Index,
		DocType: res.DocType,
		Body:    res.Document,
		Create:  true,
	}

	start := time.Now()
	err = ix.push(ctx, req)
	res.Elapsed = time.Since(start)
	metrics.DispatchDuration.Observe(res.Elapsed.Seconds())
	if err != nil {
		return res, &StageError{Stage: StageDispatch, Topic: ev.Topic, Index: res.Index, Err: err}
	}

	metrics.DocumentBytesTotal.Add(float64(len(res.Document)))
	return res, nil
}

func (ix *Indexer) push(ctx context.Context, req IndexRequest) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sender panic: %v", r)
		}
	}()
	return ix.sender.Push(ctx, req)
}

// HandleEvent is the event bus entry point. Failures are logged as warnings,
// counted and dead-lettered; nothing is returned to the caller.
func (ix *Indexer) HandleEvent(ctx context.Context, ev event.Event) {
	defer func() {
		if r := recover(); r != nil {
			ix.drop(ctx, &StageError{Stage: StageInternal, Topic: ev.Topic, Err: fmt.Errorf("panic: %v", r)}, Result{Topic: ev.Topic}, "", nil)
		}
	}()

	res, err := ix.Process(ctx, ev)
	if err != nil {
		ix.drop(ctx, err, res, "", nil)
		return
	}

	metrics.EventsTotal.WithLabelValues(metrics.StatusIndexed).Inc()
	ix.logger.DebugContext(ctx, "event indexed",
		logging.Topic(res.Topic),
		logging.Index(res.Index),
	)
}

// RejectPayload reports a bus message that could not be decoded into an event.
func (ix *Indexer) RejectPayload(ctx context.Context, subject, topic string, payload []byte, err error) {
	ix.drop(ctx, &StageError{Stage: StageDecode, Topic: topic, Err: err}, Result{Topic: topic}, subject, payload)
}

func (ix *Indexer) drop(ctx context.Context, err error, res Result, subject string, payload []byte) {
	stage := StageOf(err)
	if stage == "" {
		stage = StageInternal
	}

	metrics.EventsTotal.WithLabelValues(metrics.StatusDropped).Inc()
	metrics.FailuresTotal.WithLabelValues(string(stage)).Inc()

	attrs := []any{
		logging.Topic(res.Topic),
		logging.Stage(string(stage)),
		logging.Error(err),
	}
	if res.Index != "" {
		attrs = append(attrs, logging.Index(res.Index), logging.DocType(res.DocType))
	}
	if stage == StageDispatch {
		attrs = append(attrs, logging.Duration(res.Elapsed.Milliseconds()))
	}
	if subject != "" {
		attrs = append(attrs, logging.Subject(subject))
	}
	ix.logger.WarnContext(ctx, "Error appending event to document store", attrs...)

	if ix.dlq == nil {
		return
	}

	rec := dlq.Record{
		Timestamp: ix.now().UTC(),
		Topic:     res.Topic,
		Subject:   subject,
		Stage:     string(stage),
		Index:     res.Index,
		DocType:   res.DocType,
		Error:     err.Error(),
		Document:  res.Document,
		Payload:   string(payload),
		RequestID: middleware.GetRequestID(ctx),
	}
	if werr := ix.dlq.Write(ctx, rec); werr != nil {
		metrics.DeadLettersTotal.WithLabelValues("failed").Inc()
		ix.logger.WarnContext(ctx, "failed to write dead letter",
			logging.Topic(res.Topic),
			logging.Error(werr),
		)
		return
	}
	metrics.DeadLettersTotal.WithLabelValues("written").Inc()
}
