package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vango-dev/vango-sdk/pkg/watch"
)

// RedisClient defines the Redis operations the backing needs.
// This interface is compatible with github.com/redis/go-redis/v9.
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) RedisStatusCmd
	Get(ctx context.Context, key string) RedisStringCmd
	Del(ctx context.Context, keys ...string) RedisIntCmd
	Keys(ctx context.Context, pattern string) RedisStringSliceCmd
}

// RedisStatusCmd represents a Redis status command result.
type RedisStatusCmd interface {
	Err() error
}

// RedisStringCmd represents a Redis string command result.
type RedisStringCmd interface {
	Result() (string, error)
	Err() error
}

// RedisIntCmd represents a Redis int command result.
type RedisIntCmd interface {
	Err() error
}

// RedisStringSliceCmd represents a Redis string-slice command result.
type RedisStringSliceCmd interface {
	Result() ([]string, error)
	Err() error
}

// ErrRedisNil is returned when a key doesn't exist in Redis.
// This should match redis.Nil from go-redis.
var ErrRedisNil = errors.New("redis: nil")

// RedisBacking persists values in Redis, sharing them across servers.
// Notifications are in-process only; use keyspace notifications externally
// if cross-server change propagation is needed.
type RedisBacking struct {
	client  RedisClient
	prefix  string
	enc     Encoder
	ttl     time.Duration
	timeout time.Duration
	subs    *subscriptions
}

// RedisOption configures RedisBacking behavior.
type RedisOption func(*redisConfig)

type redisConfig struct {
	prefix  string
	enc     Encoder
	ttl     time.Duration
	timeout time.Duration
}

// WithRedisPrefix sets the key prefix. Default: "vango:storage:".
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *redisConfig) {
		c.prefix = prefix
	}
}

// WithRedisEncoder sets the value encoder. Default: the compressed binary
// encoder.
func WithRedisEncoder(enc Encoder) RedisOption {
	return func(c *redisConfig) {
		c.enc = enc
	}
}

// WithRedisTTL expires values after d. Default: no expiration, matching the
// other persistent backings.
func WithRedisTTL(d time.Duration) RedisOption {
	return func(c *redisConfig) {
		c.ttl = d
	}
}

// WithRedisTimeout bounds each command. Default: 5 seconds.
func WithRedisTimeout(d time.Duration) RedisOption {
	return func(c *redisConfig) {
		c.timeout = d
	}
}

// NewRedisBacking creates a Redis-backed storage medium. The caller owns the
// client; closing it is not this type's job.
func NewRedisBacking(client RedisClient, opts ...RedisOption) *RedisBacking {
	cfg := &redisConfig{
		prefix:  "vango:storage:",
		enc:     Default,
		timeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &RedisBacking{
		client:  client,
		prefix:  cfg.prefix,
		enc:     cfg.enc,
		ttl:     cfg.ttl,
		timeout: cfg.timeout,
		subs:    newSubscriptions("redis"),
	}
}

// Name implements the metrics/log label.
func (r *RedisBacking) Name() string { return "redis" }

// Encoder returns the configured value encoder.
func (r *RedisBacking) Encoder() Encoder { return r.enc }

func (r *RedisBacking) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}

func (r *RedisBacking) redisKey(key string) string {
	return r.prefix + key
}

// Load implements Backing.
func (r *RedisBacking) Load(key string) (Encoded, bool, error) {
	ctx, cancel := r.ctx()
	defer cancel()

	value, err := r.client.Get(ctx, r.redisKey(key)).Result()
	if err != nil {
		if err.Error() == ErrRedisNil.Error() {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

// Store implements Backing.
func (r *RedisBacking) Store(key string, e Encoded) error {
	value, err := encodedString(e)
	if err != nil {
		return err
	}

	ctx, cancel := r.ctx()
	defer cancel()

	return r.client.Set(ctx, r.redisKey(key), value, r.ttl).Err()
}

// Remove implements Backing.
func (r *RedisBacking) Remove(key string) error {
	ctx, cancel := r.ctx()
	defer cancel()

	return r.client.Del(ctx, r.redisKey(key)).Err()
}

// Keys implements Lister, stripping the prefix from the stored keys.
func (r *RedisBacking) Keys() ([]string, error) {
	ctx, cancel := r.ctx()
	defer cancel()

	raw, err := r.client.Keys(ctx, r.prefix+"*").Result()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		keys = append(keys, k[len(r.prefix):])
	}
	return keys, nil
}

// Subscribe implements Subscriber.
func (r *RedisBacking) Subscribe(key string, getter Getter) *watch.Receiver[Payload] {
	return r.subs.subscribe(key, getter)
}

// Unsubscribe implements Subscriber.
func (r *RedisBacking) Unsubscribe(key string) {
	r.subs.unsubscribe(key)
}

// notify broadcasts the key's current value to in-process subscribers.
func (r *RedisBacking) notify(key string) {
	r.subs.notify(key)
}

// Prefix returns the current key prefix.
// This is for testing/debugging purposes.
func (r *RedisBacking) Prefix() string {
	return r.prefix
}
