package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisClientRequired is returned when NewRedis gets a nil client.
var ErrRedisClientRequired = errors.New("kvstore: redis client is required")

// Both scripts answer -1 for a missing key, 0 for a value mismatch and 1 on
// success, so the check and the write happen in one server-side step.
var (
	scriptCompareAndRemove = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then return -1 end
if v ~= ARGV[1] then return 0 end
redis.call('DEL', KEYS[1])
return 1
`)

	scriptCompareAndSwap = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then return -1 end
if v ~= ARGV[1] then return 0 end
local ttl = tonumber(ARGV[3])
if ttl > 0 then
  redis.call('SET', KEYS[1], ARGV[2], 'PX', ttl)
else
  redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)
)

// RedisConfig configures the Redis-backed mapping.
type RedisConfig struct {
	// Client is an established connection. The mapping closes it on Close.
	Client redis.UniversalClient
	// Prefix namespaces every key, e.g. "mailbite:recipients:".
	Prefix string
}

// Redis is a Mapping stored in Redis. Expiry is native (PX) and
// conditional operations run as Lua scripts.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis returns a Redis mapping.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrRedisClientRequired
	}
	return &Redis{client: cfg.Client, prefix: cfg.Prefix}, nil
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

// Get implements Mapping.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kvstore: redis get: %w", err)
	}
	return val, nil
}

// Put implements Mapping.
func (r *Redis) Put(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, r.key(key), val, ttl).Err(); err != nil {
		return fmt.Errorf("kvstore: redis set: %w", err)
	}
	return nil
}

// Remove implements Mapping.
func (r *Redis) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("kvstore: redis del: %w", err)
	}
	return nil
}

// CompareAndRemove implements Mapping.
func (r *Redis) CompareAndRemove(ctx context.Context, key string, expected []byte) (bool, error) {
	res, err := scriptCompareAndRemove.Run(ctx, r.client, []string{r.key(key)}, expected).Int()
	if err != nil {
		return false, fmt.Errorf("kvstore: redis compare and remove: %w", err)
	}
	return scriptResult(res)
}

// CompareAndSwap implements Mapping.
func (r *Redis) CompareAndSwap(ctx context.Context, key string, expected, val []byte, ttl time.Duration) (bool, error) {
	res, err := scriptCompareAndSwap.Run(ctx, r.client, []string{r.key(key)}, expected, val, max(ttl.Milliseconds(), 0)).Int()
	if err != nil {
		return false, fmt.Errorf("kvstore: redis compare and swap: %w", err)
	}
	return scriptResult(res)
}

func scriptResult(res int) (bool, error) {
	switch res {
	case -1:
		return false, ErrNotFound
	case 1:
		return true, nil
	default:
		return false, nil
	}
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
