package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/userdeck/userdeck/pkg/errors"
	"github.com/userdeck/userdeck/pkg/types"
)

// RedisSlot persists the pending-deletion blob under a single redis key
type RedisSlot struct {
	client  *redis.Client
	key     string
	timeout time.Duration
}

// NewRedisSlot creates a redis-backed session slot
func NewRedisSlot(addr, key string, db int) (*RedisSlot, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if key == "" {
		return nil, fmt.Errorf("redis key is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisSlot{
		client:  client,
		key:     key,
		timeout: 5 * time.Second,
	}, nil
}

// Write persists the blob, replacing any prior content
func (r *RedisSlot) Write(blob *types.PendingBlob) error {
	data, err := json.Marshal(blob)
	if err != nil {
		return errors.NewSlotError("failed to encode pending blob", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return errors.NewSlotError("failed to write session slot", err)
	}
	return nil
}

// Read returns the persisted blob, or nil if the slot is empty
func (r *RedisSlot) Read() (*types.PendingBlob, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewSlotError("failed to read session slot", err)
	}

	var blob types.PendingBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, errors.NewSlotCorruptedError(err)
	}
	if err := blob.Validate(); err != nil {
		return nil, errors.NewSlotCorruptedError(err)
	}
	return &blob, nil
}

// Clear erases the slot
func (r *RedisSlot) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return errors.NewSlotError("failed to clear session slot", err)
	}
	return nil
}

// Close releases the redis connection
func (r *RedisSlot) Close() error {
	return r.client.Close()
}
