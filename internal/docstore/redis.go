package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/lenslove/academy/internal/platform/cache"
)

// maxTxRetries bounds optimistic retries when a watched key changes mid-update.
const maxTxRetries = 5

// RedisStore keeps each document as a JSON string under prefix:collection:key.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed document store.
func NewRedisStore(client *redis.Client, prefix string) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) key(collection, key string) string {
	return cache.Key(s.prefix, collection, key)
}

func (s *RedisStore) Get(ctx context.Context, collection, key string) (Document, error) {
	if err := validateKey(collection, key); err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, s.key(collection, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%s/%s: %w", collection, key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return decodeBytes(data)
}

func (s *RedisStore) Set(ctx context.Context, collection, key string, doc Document) error {
	if err := validateKey(collection, key); err != nil {
		return err
	}
	data, err := encode(doc)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(collection, key), data, 0).Err(); err != nil {
		return fmt.Errorf("set document: %w", err)
	}
	return nil
}

func (s *RedisStore) Create(ctx context.Context, collection, key string, doc Document) error {
	if err := validateKey(collection, key); err != nil {
		return err
	}
	data, err := encode(doc)
	if err != nil {
		return err
	}
	created, err := s.client.SetNX(ctx, s.key(collection, key), data, 0).Result()
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	if !created {
		return fmt.Errorf("%s/%s: %w", collection, key, ErrAlreadyExists)
	}
	return nil
}

func (s *RedisStore) Update(ctx context.Context, collection, key string, fields Document) error {
	if err := validateKey(collection, key); err != nil {
		return err
	}
	k := s.key(collection, key)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%s/%s: %w", collection, key, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("read document: %w", err)
		}
		existing, err := decodeBytes(data)
		if err != nil {
			return err
		}
		out, err := encode(merge(existing, fields))
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, out, 0)
			return nil
		})
		return err
	}

	for range maxTxRetries {
		err := s.client.Watch(ctx, txf, k)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("update document: %w", err)
		}
		return err
	}
	return fmt.Errorf("update document %s/%s: too much contention", collection, key)
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
