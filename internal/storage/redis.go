package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/telhawk-systems/eventlog/internal/indexer"
)

// RedisSender appends documents to one Redis list per index and document
// type, for consumers that drain the lists into a store themselves.
type RedisSender struct {
	client *redis.Client
	prefix string
}

// NewRedisSender connects to redisURL and verifies the connection.
func NewRedisSender(redisURL, keyPrefix string) (*RedisSender, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return NewRedisSenderWithClient(client, keyPrefix), nil
}

// NewRedisSenderWithClient wraps an existing client.
func NewRedisSenderWithClient(client *redis.Client, keyPrefix string) *RedisSender {
	return &RedisSender{client: client, prefix: keyPrefix}
}

// Key returns the list key documents for index and docType are appended to.
func (s *RedisSender) Key(index, docType string) string {
	return s.prefix + index + ":" + docType
}

// Push implements indexer.Sender. Every push appends a new element, so
// create semantics hold without a document ID.
func (s *RedisSender) Push(ctx context.Context, req indexer.IndexRequest) error {
	if err := s.client.RPush(ctx, s.Key(req.Index, req.DocType), req.Body).Err(); err != nil {
		return fmt.Errorf("rpush %s: %w", s.Key(req.Index, req.DocType), err)
	}
	return nil
}

// Ping checks the connection.
func (s *RedisSender) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *RedisSender) Close() error {
	return s.client.Close()
}
