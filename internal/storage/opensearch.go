// Package storage holds the document store backends behind indexer.Sender.
package storage

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/telhawk-systems/eventlog/internal/indexer"
)

// ErrStoreRejected is returned when the store answers a write with an error status.
var ErrStoreRejected = errors.New("document store rejected request")

// OpenSearchConfig holds OpenSearch connection settings.
type OpenSearchConfig struct {
	URL           string
	Username      string
	Password      string
	TLSSkipVerify bool
}

// NewOpenSearchClient creates a client. It does not contact the cluster; use Ping for that.
func NewOpenSearchClient(cfg OpenSearchConfig) (*opensearch.Client, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.TLSSkipVerify,
			},
		},
	}

	osCfg := opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: httpClient.Transport,
	}

	client, err := opensearch.NewClient(osCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}
	return client, nil
}

// Ping checks that the cluster answers the info endpoint.
func Ping(ctx context.Context, client *opensearch.Client) error {
	info, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to ping opensearch: %w", err)
	}
	defer info.Body.Close()

	if info.IsError() {
		return fmt.Errorf("opensearch returned error: %s", info.Status())
	}
	return nil
}

// OpenSearchSender writes each request as a single document. The cluster
// assigns the document ID; create requests use op_type=create.
type OpenSearchSender struct {
	client *opensearch.Client
}

// NewOpenSearchSender creates a sender writing through client.
func NewOpenSearchSender(client *opensearch.Client) *OpenSearchSender {
	return &OpenSearchSender{client: client}
}

// Push implements indexer.Sender.
func (s *OpenSearchSender) Push(ctx context.Context, req indexer.IndexRequest) error {
	osReq := opensearchapi.IndexRequest{
		Index: req.Index,
		Body:  strings.NewReader(req.Body),
	}
	if req.Create {
		osReq.OpType = "create"
	}

	res, err := osReq.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("index into %s: %w", req.Index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("%w: %s: %s", ErrStoreRejected, res.Status(), strings.TrimSpace(string(body)))
	}
	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, res.Body)
	return nil
}
