package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Evaler abstracts the minimal surface we need from a Redis client.
// Implementations may wrap github.com/redis/go-redis/v9 (Cmdable.Eval)
// or any equivalent.
type Evaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)
}

// RedisLimiter keeps each key's attempts in a sorted set scored by
// millisecond timestamp. One Lua script per check trims, counts and
// conditionally records in a single atomic step, which gives the
// single-writer-per-key discipline without any locking on our side.
// PEXPIRE on every recorded attempt reclaims storage: the key cannot
// outlive its newest attempt by more than one window.
type RedisLimiter struct {
	client Evaler
	quota  int
	window time.Duration
}

func NewRedisLimiter(client Evaler, quota int, window time.Duration) *RedisLimiter {
	if quota <= 0 {
		quota = DefaultQuota
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisLimiter{client: client, quota: quota, window: window}
}

// checkScript returns {allowed, remaining}. Attempts with score equal to
// the cutoff are stale, matching the strictly-newer-than-cutoff rule of
// the in-memory store.
const checkScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local quota = tonumber(ARGV[3])
local member = ARGV[4]
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local active = redis.call('ZCARD', key)
if active < quota then
  redis.call('ZADD', key, now, member)
  redis.call('PEXPIRE', key, window)
  active = active + 1
  return {1, math.max(0, quota - active)}
end
return {0, math.max(0, quota - active)}
`

// RedisKey returns the sorted-set key for a client key.
func RedisKey(key string) string { return fmt.Sprintf("contact:ratelimit:%s", key) }

func (l *RedisLimiter) Check(ctx context.Context, key string) (Result, error) {
	now := time.Now().UnixMilli()
	keys := []string{RedisKey(key)}
	args := []interface{}{now, l.window.Milliseconds(), l.quota, uuid.NewString()}

	reply, err := l.client.Eval(ctx, checkScript, keys, args...)
	if err != nil {
		return Result{}, fmt.Errorf("redis eval key=%s: %w", key, err)
	}

	vals, ok := reply.([]interface{})
	if !ok || len(vals) != 2 {
		return Result{}, fmt.Errorf("unexpected reply for key=%s: %v", key, reply)
	}
	allowed, ok1 := vals[0].(int64)
	remaining, ok2 := vals[1].(int64)
	if !ok1 || !ok2 {
		return Result{}, fmt.Errorf("unexpected reply types for key=%s: %v", key, reply)
	}

	return Result{Allowed: allowed == 1, Remaining: int(remaining)}, nil
}
