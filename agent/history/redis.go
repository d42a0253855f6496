package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "agentrelay:history:"

// redisDriver persists one JSON blob per user. Concurrent writers for the
// same user are already serialized by the orchestrator's per-user lock, so
// plain GET/SET is sufficient here.
type redisDriver struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

var _ Driver = (*redisDriver)(nil)

func newRedisDriver(client *redis.Client, keyPrefix string, ttl time.Duration) *redisDriver {
	if keyPrefix == "" {
		keyPrefix = defaultRedisKeyPrefix
	}
	return &redisDriver{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

func (d *redisDriver) key(userID string) string {
	return d.keyPrefix + userID
}

func (d *redisDriver) Load(ctx context.Context, userID string) (*Entry, error) {
	val, err := d.client.Get(ctx, d.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis load: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		return nil, fmt.Errorf("unmarshal history entry: %w", err)
	}
	return &entry, nil
}

func (d *redisDriver) Save(ctx context.Context, entry *Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}
	if err := d.client.Set(ctx, d.key(entry.UserID), payload, d.ttl).Err(); err != nil {
		return fmt.Errorf("redis save: %w", err)
	}
	return nil
}

func (d *redisDriver) Delete(ctx context.Context, userID string) error {
	if err := d.client.Del(ctx, d.key(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

func (d *redisDriver) Close() error {
	return d.client.Close()
}
