package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/civiclens/webclient/config"
	"github.com/civiclens/webclient/types"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in Redis as JSON values with a TTL so that
// replicas share one token cache.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg config.RedisConfig, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisStoreFromClient(client, cfg.Prefix, ttl), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) key(id string) string {
	if r.prefix == "" {
		return id
	}
	return r.prefix + ":" + id
}

func (r *RedisStore) Get(ctx context.Context, id string) (types.Session, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return types.Session{}, ErrNotFound
		}
		return types.Session{}, err
	}
	var session types.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return types.Session{}, fmt.Errorf("decode cached session: %w", err)
	}
	return session, nil
}

func (r *RedisStore) Put(ctx context.Context, id string, session types.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(id), raw, r.ttl).Err()
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.key(id)).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
