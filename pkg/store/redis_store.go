package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the latest snapshot so restarted instances can serve
// before the first fetch completes.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisStore(addr, password string, db int, prefix string, ttl time.Duration) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisStoreWithClient(rdb, prefix, ttl)
}

func NewRedisStoreWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		key:    prefix + ":snapshot",
		ttl:    ttl,
	}
}

func (r *RedisStore) Load(ctx context.Context) (*Snapshot, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", r.key, err)
	}
	snapshot := &Snapshot{}
	if err := sonic.Unmarshal(data, snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return snapshot, nil
}

func (r *RedisStore) Save(ctx context.Context, snapshot *Snapshot) error {
	data, err := sonic.Marshal(snapshot)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key, data, r.ttl).Err()
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
