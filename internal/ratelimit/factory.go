package ratelimit

import (
	"context"
	"fmt"

	"github.com/web3ld/contact-api/internal/config"

	"github.com/redis/go-redis/v9"
)

// goRedisEvaler adapts a go-redis client to the Evaler interface.
type goRedisEvaler struct {
	client redis.Cmdable
}

func (g goRedisEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	return g.client.Eval(ctx, script, keys, args...).Result()
}

// New builds a Limiter from configuration.
func New(cfg config.RateLimitConfig, redisCfg config.RedisConfig) (Limiter, error) {
	switch cfg.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
		return NewRedisLimiter(goRedisEvaler{client: client}, cfg.Quota, cfg.Window), nil
	case "memory", "":
		return NewMemoryLimiter(cfg.Quota, cfg.Window), nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend: %q", cfg.Backend)
	}
}
