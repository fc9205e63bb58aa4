package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

const redisPrefix = "session:"

// RedisStore sesiones en redis, payload JSON, TTL = vida restante.
type RedisStore struct {
	c *rdb.Client
}

func NewRedisStore(client *rdb.Client) *RedisStore {
	return &RedisStore{c: client}
}

func (r *RedisStore) key(id string) string { return redisPrefix + id }

func (r *RedisStore) Create(ctx context.Context, p Principal) error {
	if p.SessionID == "" {
		return fmt.Errorf("session: missing session_id")
	}
	ttl := time.Until(p.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session: expires_at must be in the future")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}
	return r.c.Set(ctx, r.key(p.SessionID), data, ttl).Err()
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) (*Principal, error) {
	val, err := r.c.Get(ctx, r.key(sessionID)).Bytes()
	if err == rdb.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p Principal
	if err := json.Unmarshal(val, &p); err != nil {
		return nil, fmt.Errorf("session: unmarshal: %w", err)
	}
	return &p, nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return r.c.Del(ctx, r.key(sessionID)).Err()
}
