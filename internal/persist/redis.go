package persist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"snapfeed/internal/observability"

	"github.com/redis/go-redis/v9"
)

type metricsHook struct{}

func (h metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.PersistenceErrors.WithLabelValues("redis", cmd.Name()).Inc()
		}
		return err
	}
}

func (h metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.PersistenceErrors.WithLabelValues("redis", "pipeline").Inc()
		}
		return err
	}
}

// NewRedisClient connects to addr, which may be a redis:// URL or host:port.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL %q: %w", addr, err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)
	client.AddHook(metricsHook{})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// RedisStorage stores each key as a plain redis string.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

// NewRedisStorage wraps client. prefix namespaces every key.
func NewRedisStorage(client *redis.Client, prefix string) *RedisStorage {
	return &RedisStorage{client: client, prefix: prefix}
}

var _ Storage = (*RedisStorage)(nil)

func (r *RedisStorage) key(k string) string { return r.prefix + k }

func (r *RedisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := observability.TraceStorageOperation(ctx, "redis", "get")
	v, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.EndSpan(span, nil)
		return nil, ErrNotFound
	}
	observability.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *RedisStorage) Set(ctx context.Context, key string, value []byte) error {
	ctx, span := observability.TraceStorageOperation(ctx, "redis", "set")
	err := r.client.Set(ctx, r.key(key), value, 0).Err()
	observability.EndSpan(span, err)
	return err
}

func (r *RedisStorage) Remove(ctx context.Context, key string) error {
	ctx, span := observability.TraceStorageOperation(ctx, "redis", "del")
	err := r.client.Del(ctx, r.key(key)).Err()
	observability.EndSpan(span, err)
	return err
}
