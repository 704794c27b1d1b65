package storage

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/lingo-web/internal/errors"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "lingo:"

var _ KV = (*RedisKV)(nil)

// RedisKV keeps browser storage in Redis so credentials survive a restart of the web process.
type RedisKV struct {
	client *redis.Client
	prefix string
}

// NewRedisClient connects and pings, failing fast on a bad address.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("[storage NewRedisClient] ping %s: %w", addr, err)
	}
	return client, nil
}

func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{
		client: client,
		prefix: defaultRedisPrefix,
	}
}

func (r *RedisKV) key(key string) string {
	return r.prefix + key
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, apperrors.ErrEmptyKey
	}
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("[storage RedisKV.Get] %w", err)
	}
	return val, true, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return apperrors.ErrEmptyKey
	}
	// 0 = no expiry, like local storage
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("[storage RedisKV.Set] %w", err)
	}
	return nil
}

func (r *RedisKV) Remove(ctx context.Context, key string) error {
	if key == "" {
		return apperrors.ErrEmptyKey
	}
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("[storage RedisKV.Remove] %w", err)
	}
	return nil
}
