package redis

import (
	"context"
	"time"

	"github.com/pkg/errors"
	goRedis "github.com/redis/go-redis/v9"
)

var ErrNil = goRedis.Nil

type Cache struct {
	redisClient *goRedis.Client
}

type Cmd struct {
	*goRedis.Cmd
}

type cacheConfig struct {
	dialTimeout  time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
	poolSize     int
}

type Option func(*cacheConfig)

// UseTimeout bounds dial, read and write so a slow redis can not stall callers.
func UseTimeout(timeout time.Duration) Option {
	return func(cc *cacheConfig) {
		cc.dialTimeout = timeout
		cc.readTimeout = timeout
		cc.writeTimeout = timeout
	}
}

func UsePoolSize(poolSize int) Option {
	return func(cc *cacheConfig) {
		cc.poolSize = poolSize
	}
}

func (cache *Cache) RunLua(ctx context.Context, script string, keys []string, args ...interface{}) *Cmd {
	luaScript := goRedis.NewScript(script)
	cmd := Cmd{luaScript.Run(ctx, cache.redisClient, keys, args...)}
	return &cmd
}

func (cache *Cache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return cacheSet(ctx, cache.redisClient, key, value, expiration).Err()
}

func (cache *Cache) Del(ctx context.Context, keys ...string) error {
	return cache.redisClient.Del(ctx, keys...).Err()
}

func (cache *Cache) Get(ctx context.Context, key string) (val string, exists bool, err error) {
	val, err = cache.redisClient.Get(ctx, key).Result()
	if err == goRedis.Nil {
		return "", false, nil
	} else if err != nil {
		return "", false, errors.Wrap(err, "get redis failed")
	}
	return val, true, nil
}

func (cache *Cache) FlushDB(ctx context.Context) error {
	if err := cache.redisClient.FlushDB(ctx).Err(); err != nil {
		return errors.Wrap(err, "flush db failed")
	}
	return nil
}

func (cache *Cache) Close() error {
	return cache.redisClient.Close()
}

func cacheSet(ctx context.Context, cmd goRedis.Cmdable, key string, value interface{}, expiration time.Duration) *goRedis.StatusCmd {
	return cmd.Set(ctx, key, value, expiration)
}

func CreateCache(address, password string, dbSelect int, options ...Option) (*Cache, error) {
	config := cacheConfig{
		dialTimeout:  5 * time.Second,
		readTimeout:  3 * time.Second,
		writeTimeout: 3 * time.Second,
	}
	for _, option := range options {
		option(&config)
	}

	redisClient := goRedis.NewClient(&goRedis.Options{
		Addr:         address,
		Password:     password,
		DB:           dbSelect,
		DialTimeout:  config.dialTimeout,
		ReadTimeout:  config.readTimeout,
		WriteTimeout: config.writeTimeout,
		PoolSize:     config.poolSize,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrap(err, "redis connect failed")
	}
	return &Cache{redisClient: redisClient}, nil
}
