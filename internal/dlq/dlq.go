// Package dlq records events the indexer had to drop. Records are kept for
// inspection only; nothing in this service replays them.
package dlq

import (
	"context"
	"time"
)

// Record describes one dropped event.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Topic     string    `json:"topic"`
	Subject   string    `json:"subject,omitempty"`
	Stage     string    `json:"stage"`
	Index     string    `json:"index,omitempty"`
	DocType   string    `json:"doc_type,omitempty"`
	Error     string    `json:"error"`
	Document  string    `json:"document,omitempty"`
	Payload   string    `json:"payload,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// Writer stores dead letter records.
type Writer interface {
	Write(ctx context.Context, rec Record) error
}
