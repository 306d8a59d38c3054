package util

import (
	"context"

	"github.com/pkg/errors"
	redisKit "github.com/superj80820/url-shortener/kit/redis"
)

// fixedWindowScript counts a request and opens the window on the first one.
// It returns {count, ttl seconds}.
const fixedWindowScript = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('EXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('TTL', KEYS[1])
if ttl < 0 then
	redis.call('EXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`

// CacheRateLimit allows maxRequests per key in a fixed window of expiry seconds.
type CacheRateLimit struct {
	cache       *redisKit.Cache
	maxRequests int
	expiry      int
}

func CreateCacheRateLimit(cache *redisKit.Cache, maxRequests, expiry int) *CacheRateLimit {
	return &CacheRateLimit{cache: cache, maxRequests: maxRequests, expiry: expiry}
}

// Pass reports whether the request fits in the current window, how many requests are left and
// the seconds until the window resets.
func (c *CacheRateLimit) Pass(ctx context.Context, key string) (pass bool, remaining, curExpiry int, err error) {
	result, err := c.cache.RunLua(ctx, fixedWindowScript, []string{key}, c.expiry).Int64Slice()
	if err != nil {
		return false, 0, 0, errors.Wrap(err, "run rate limit script failed")
	}
	if len(result) != 2 {
		return false, 0, 0, errors.Errorf("unexpected rate limit result %v", result)
	}
	count, ttl := int(result[0]), int(result[1])
	remaining = c.maxRequests - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= c.maxRequests, remaining, ttl, nil
}
