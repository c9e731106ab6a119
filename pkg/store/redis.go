package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	docNamespace     = "doc:"
	versionNamespace = "version:"
)

// Redis keeps each document as a JSON string at prefix+"doc:"+key and its
// version counter at prefix+"version:"+key, so no workspace key can collide
// with a counter.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to addr and verifies the connection.
func NewRedis(ctx context.Context, addr, prefix string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	return NewRedisWithClient(client, prefix), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) keys(key string) (string, string) {
	return r.prefix + docNamespace + key, r.prefix + versionNamespace + key
}

func (r *Redis) Read(ctx context.Context, key string) (*Document, error) {
	doc, _, err := r.ReadVersion(ctx, key)
	return doc, err
}

func (r *Redis) ReadVersion(ctx context.Context, key string) (*Document, int64, error) {
	bodyKey, verKey := r.keys(key)

	var bodyCmd, verCmd *redis.StringCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		bodyCmd = pipe.Get(ctx, bodyKey)
		verCmd = pipe.Get(ctx, verKey)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, fmt.Errorf("read %s: %w", key, err)
	}

	data, err := bodyCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", key, err)
	}
	version, err := verCmd.Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, fmt.Errorf("read %s version: %w", key, err)
	}

	doc, err := decode(data)
	if err != nil {
		return nil, 0, err
	}
	return doc, version, nil
}

func (r *Redis) Write(ctx context.Context, key string, doc *Document) error {
	if err := validKey(key); err != nil {
		return err
	}
	data, err := encode(doc)
	if err != nil {
		return err
	}
	bodyKey, verKey := r.keys(key)

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, bodyKey, data, 0)
		pipe.Incr(ctx, verKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (r *Redis) WriteIfVersion(ctx context.Context, key string, doc *Document, version int64) error {
	if err := validKey(key); err != nil {
		return err
	}
	data, err := encode(doc)
	if err != nil {
		return err
	}
	bodyKey, verKey := r.keys(key)

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, verKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return &ConflictError{Key: key, Expected: version, Current: current}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, bodyKey, data, 0)
			pipe.Incr(ctx, verKey)
			return nil
		})
		return err
	}

	err = r.client.Watch(ctx, txf, verKey)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrVersionConflict):
		return err
	case errors.Is(err, redis.TxFailedErr):
		// The version key changed between WATCH and EXEC.
		return &ConflictError{Key: key, Expected: version, Current: -1}
	default:
		return fmt.Errorf("write %s: %w", key, err)
	}
}

func (r *Redis) Keys(ctx context.Context) ([]string, error) {
	var cursor uint64
	var keys []string
	bodyPrefix := r.prefix + docNamespace
	for {
		batch, next, err := r.client.Scan(ctx, cursor, bodyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan keys: %w", err)
		}
		for _, k := range batch {
			keys = append(keys, strings.TrimPrefix(k, bodyPrefix))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close closes the Redis client connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
