package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/eventlog/internal/indexer"
)

const infoBody = `{"name": "test-node", "cluster_name": "test-cluster", "version": {"number": "2.11.0", "distribution": "opensearch"}}`

type capturedRequest struct {
	method string
	path   string
	opType string
	body   string
}

// mockOpenSearch answers the info endpoint and records every other request.
func mockOpenSearch(t *testing.T, status int, respBody string) (*httptest.Server, func() []capturedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []capturedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/" {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(infoBody))
			return
		}
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, capturedRequest{
			method: r.Method,
			path:   r.URL.Path,
			opType: r.URL.Query().Get("op_type"),
			body:   string(body),
		})
		mu.Unlock()
		w.WriteHeader(status)
		w.Write([]byte(respBody))
	}))
	t.Cleanup(srv.Close)

	return srv, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), reqs...)
	}
}

func newTestSender(t *testing.T, url string) *OpenSearchSender {
	t.Helper()
	client, err := NewOpenSearchClient(OpenSearchConfig{URL: url, Username: "admin", Password: "admin", TLSSkipVerify: true})
	require.NoError(t, err)
	return NewOpenSearchSender(client)
}

func TestPing(t *testing.T) {
	srv, _ := mockOpenSearch(t, http.StatusOK, "{}")
	client, err := NewOpenSearchClient(OpenSearchConfig{URL: srv.URL})
	require.NoError(t, err)

	assert.NoError(t, Ping(context.Background(), client))
}

func TestPing_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
	}))
	defer srv.Close()

	client, err := NewOpenSearchClient(OpenSearchConfig{URL: srv.URL})
	require.NoError(t, err)

	assert.Error(t, Ping(context.Background(), client))
}

func TestPing_ConnectionFailure(t *testing.T) {
	client, err := NewOpenSearchClient(OpenSearchConfig{URL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	assert.Error(t, Ping(context.Background(), client))
}

func TestOpenSearchSender_PushCreate(t *testing.T) {
	srv, captured := mockOpenSearch(t, http.StatusCreated, `{"_index":"logs-2024.01.15","_id":"abc","result":"created"}`)
	sender := newTestSender(t, srv.URL)

	doc := `{ "host": "node1", "topic": "log/INFO", "properties": { "message": "hello" } }`
	err := sender.Push(context.Background(), indexer.IndexRequest{
		Index:   "logs-2024.01.15",
		DocType: "event",
		Body:    doc,
		Create:  true,
	})
	require.NoError(t, err)

	reqs := captured()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].method)
	assert.Equal(t, "/logs-2024.01.15/_doc", reqs[0].path)
	assert.Equal(t, "create", reqs[0].opType)
	assert.Equal(t, doc, reqs[0].body)
}

func TestOpenSearchSender_PushIndex(t *testing.T) {
	srv, captured := mockOpenSearch(t, http.StatusCreated, `{"result":"created"}`)
	sender := newTestSender(t, srv.URL)

	require.NoError(t, sender.Push(context.Background(), indexer.IndexRequest{Index: "logs", Body: "{}"}))

	reqs := captured()
	require.Len(t, reqs, 1)
	assert.Empty(t, reqs[0].opType)
}

func TestOpenSearchSender_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"conflict", http.StatusConflict, `{"error":{"type":"version_conflict_engine_exception"}}`},
		{"mapping", http.StatusBadRequest, `{"error":{"type":"mapper_parsing_exception"}}`},
		{"unavailable", http.StatusServiceUnavailable, `{"error":"cluster_block_exception"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := mockOpenSearch(t, tt.status, tt.body)
			sender := newTestSender(t, srv.URL)

			err := sender.Push(context.Background(), indexer.IndexRequest{Index: "logs", Body: "{}", Create: true})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrStoreRejected))
			assert.Contains(t, err.Error(), tt.body)
		})
	}
}

func TestOpenSearchSender_CancelledContext(t *testing.T) {
	srv, _ := mockOpenSearch(t, http.StatusCreated, `{}`)
	sender := newTestSender(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sender.Push(ctx, indexer.IndexRequest{Index: "logs", Body: "{}", Create: true})
	assert.Error(t, err)
}
