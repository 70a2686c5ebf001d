package indexer

import "context"

// IndexRequest is a single write addressed to an index and document type.
// Create requests must fail at the store if the document already exists; the
// store assigns the document ID.
type IndexRequest struct {
	Index   string
	DocType string
	Body    string
	Create  bool
}

// Sender pushes index requests to a document store. Timeouts, retries and
// backpressure are the Sender's business.
type Sender interface {
	Push(ctx context.Context, req IndexRequest) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, req IndexRequest) error

// Push calls f(ctx, req).
func (f SenderFunc) Push(ctx context.Context, req IndexRequest) error {
	return f(ctx, req)
}
