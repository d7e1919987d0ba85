package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/commercezen/engine/pkg/config"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "commercezen"

// RedisStore implements Store over a shared redis instance so a pending
// order can survive a process restart within its TTL.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore dials redis using the provided configuration and verifies
// connectivity.
func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if !cfg.Enabled() {
		return nil, errors.New("redis url or address is required")
	}
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout
	return opts, nil
}

func redisKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, namespace, key)
}

func (s *RedisStore) Put(ctx context.Context, namespace, key string, doc []byte, ttl time.Duration) error {
	return s.client.Set(ctx, redisKey(namespace, key), doc, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	doc, err := s.client.Get(ctx, redisKey(namespace, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *RedisStore) Delete(ctx context.Context, namespace, key string) error {
	return s.client.Del(ctx, redisKey(namespace, key)).Err()
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
