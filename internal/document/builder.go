// Package document turns events into the JSON documents stored in the index:
//
//	{ "host": "node1", "topic": "log/INFO", "properties": { "message": "hello" } }
package document

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/telhawk-systems/eventlog/internal/event"
)

// DateLayout is the layout used for the timestamp property inside documents.
const DateLayout = "2006-01-02T15:04:05.000Z07:00"

// ErrUnsupportedValue is returned when a property holds a value of unknown kind.
var ErrUnsupportedValue = errors.New("unsupported property value")

// Builder serializes events. A Builder is immutable after construction and
// safe for concurrent use.
type Builder struct {
	timestampKey string
	location     *time.Location
	now          func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithTimestampKey sets the property name that carries the event time.
func WithTimestampKey(key string) Option {
	return func(b *Builder) {
		if key != "" {
			b.timestampKey = key
		}
	}
}

// WithLocation sets the zone used to format the timestamp property.
func WithLocation(loc *time.Location) Option {
	return func(b *Builder) {
		if loc != nil {
			b.location = loc
		}
	}
}

// WithClock sets the time source used when an event carries no timestamp.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBuilder creates a Builder. Defaults: the "timestamp" property, UTC and the system clock.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		timestampKey: event.TimestampProperty,
		location:     time.UTC,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// TimestampKey returns the property name treated as the event time.
func (b *Builder) TimestampKey() string { return b.timestampKey }

// Build serializes ev into a document and returns it together with the event
// time in milliseconds. When the timestamp property is absent, null, not an
// integer or not positive, the current time is returned instead.
func (b *Builder) Build(host string, ev event.Event) (string, int64, error) {
	var w strings.Builder
	var timestamp int64

	w.WriteString(`{ "host": `)
	Quote(&w, host)
	w.WriteString(`, "topic": `)
	Quote(&w, ev.Topic)
	w.WriteString(`, "properties": { `)

	for i, p := range ev.Properties {
		if i > 0 {
			w.WriteString(", ")
		}
		Quote(&w, p.Name)
		w.WriteString(": ")

		if p.Name == b.timestampKey {
			if ts, ok := p.Value.Int64(); ok && ts > 0 {
				timestamp = ts
				Quote(&w, b.FormatDate(ts))
				continue
			}
		}
		if err := writeValue(&w, p.Value); err != nil {
			return "", 0, fmt.Errorf("property %q: %w", p.Name, err)
		}
	}
	w.WriteString(" } }")

	if timestamp <= 0 {
		timestamp = b.now().UnixMilli()
	}

	return w.String(), timestamp, nil
}

// FormatDate formats a millisecond timestamp as written into documents.
func (b *Builder) FormatDate(ms int64) string {
	return time.UnixMilli(ms).In(b.location).Format(DateLayout)
}

func writeValue(w *strings.Builder, v event.Value) error {
	switch v.Kind() {
	case event.KindNull:
		w.WriteString("null")
	case event.KindString, event.KindInt:
		Quote(w, v.String())
	case event.KindArray:
		return writeArray(w, v.Elems())
	default:
		return fmt.Errorf("%w: kind %s", ErrUnsupportedValue, v.Kind())
	}
	return nil
}

func writeArray(w *strings.Builder, elems []event.Value) error {
	if len(elems) == 0 {
		w.WriteString("[ ]")
		return nil
	}
	w.WriteString("[ ")
	for i, e := range elems {
		if i > 0 {
			w.WriteString(", ")
		}
		// null elements are written as JSON null
		if err := writeValue(w, e); err != nil {
			return err
		}
	}
	w.WriteString(" ]")
	return nil
}
