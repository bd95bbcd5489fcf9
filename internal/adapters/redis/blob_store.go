// Package redis provides Redis-based adapters for the admin console.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/target/mmk-admin-console/internal/ports"
)

// BlobStore is a Redis-based BlobStore for consoles sharing state across hosts.
// Keys carry no TTL: persisted state lives until logout deletes it.
type BlobStore struct {
	client redis.UniversalClient
	prefix string
}

// NewBlobStore creates a new Redis-based blob store.
func NewBlobStore(client redis.UniversalClient) *BlobStore {
	return &BlobStore{
		client: client,
		prefix: "mmk:console:",
	}
}

// NewBlobStoreWithPrefix creates a Redis blob store with a custom key prefix.
func NewBlobStoreWithPrefix(client redis.UniversalClient, prefix string) *BlobStore {
	return &BlobStore{
		client: client,
		prefix: prefix,
	}
}

func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ports.ErrNotFound
	}

	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

func (s *BlobStore) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return errors.New("blob key cannot be empty")
	}
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *BlobStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil // Nothing to delete
	}
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
