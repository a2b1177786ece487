package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Fixed window: the key is created on the first request and expires after the window.
var fixedWindowScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current >= tonumber(ARGV[1]) then
	return {0, current, redis.call('PTTL', KEYS[1])}
end
current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return {1, current, redis.call('PTTL', KEYS[1])}
`)

// RedisLimiter shares fixed-window counters between service instances.
type RedisLimiter struct {
	rdb    redis.Scripter
	cfg    Config
	prefix string
}

func NewRedisLimiter(rdb redis.Scripter, cfg Config) *RedisLimiter {
	if rdb == nil {
		panic("missing redis client")
	}

	return &RedisLimiter{
		rdb:    rdb,
		cfg:    cfg.withDefaults(),
		prefix: "ratelimit:",
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := fixedWindowScript.Run(
		ctx,
		l.rdb,
		[]string{l.prefix + key},
		l.cfg.MaxPerWindow,
		l.cfg.Window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("could not check rate limit for %s: %w", key, err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("unexpected rate limit script result: %v", res)
	}

	allowed, count, ttl := res[0] == 1, int(res[1]), time.Duration(res[2])*time.Millisecond
	if !allowed {
		if ttl < 0 {
			ttl = l.cfg.Window
		}
		return Decision{Allowed: false, RetryAfter: ttl}, nil
	}

	return Decision{Allowed: true, Remaining: l.cfg.MaxPerWindow - count}, nil
}
