package redis

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/superj80820/url-shortener/domain"
	redisKit "github.com/superj80820/url-shortener/kit/redis"
	"github.com/superj80820/url-shortener/link/repository/cache"
)

type cacheRepo struct {
	cache   *redisKit.Cache
	linkTTL time.Duration
}

// CreateLinkCacheRepo keeps link entries without TTL unless linkTTL is positive.
func CreateLinkCacheRepo(cache *redisKit.Cache, linkTTL time.Duration) domain.LinkCacheRepo {
	return &cacheRepo{
		cache:   cache,
		linkTTL: linkTTL,
	}
}

func CreateStatsCacheRepo(cache *redisKit.Cache) domain.StatsCacheRepo {
	return &cacheRepo{
		cache: cache,
	}
}

func (c *cacheRepo) GetLink(ctx context.Context, shortCode string) (*domain.LinkCacheEntry, error) {
	key := cache.LinkKey(shortCode)
	val, exists, err := c.cache.Get(ctx, key)
	if err != nil {
		return nil, errors.Wrap(err, "get link cache failed")
	}
	if !exists {
		return nil, domain.ErrCacheMiss
	}
	entry, err := cache.DecodeLinkEntry([]byte(val))
	if err != nil {
		if delErr := c.cache.Del(ctx, key); delErr != nil {
			return nil, errors.Wrap(delErr, "delete undecodable link cache failed")
		}
		return nil, errors.Wrap(domain.ErrCacheMiss, err.Error())
	}
	return entry, nil
}

func (c *cacheRepo) SetLink(ctx context.Context, shortCode string, entry *domain.LinkCacheEntry) error {
	data, err := cache.EncodeLinkEntry(entry)
	if err != nil {
		return errors.Wrap(err, "encode link entry failed")
	}
	if err := c.cache.Set(ctx, cache.LinkKey(shortCode), data, c.linkTTL); err != nil {
		return errors.Wrap(err, "set link cache failed")
	}
	return nil
}

func (c *cacheRepo) DeleteLink(ctx context.Context, shortCode string) error {
	if err := c.cache.Del(ctx, cache.LinkKey(shortCode)); err != nil {
		return errors.Wrap(err, "delete link cache failed")
	}
	return nil
}

func (c *cacheRepo) GetStats(ctx context.Context, ownerID int64) ([]byte, error) {
	val, exists, err := c.cache.Get(ctx, cache.StatsKey(ownerID))
	if err != nil {
		return nil, errors.Wrap(err, "get stats cache failed")
	}
	if !exists {
		return nil, domain.ErrCacheMiss
	}
	return []byte(val), nil
}

func (c *cacheRepo) SetStats(ctx context.Context, ownerID int64, stats []byte, ttl time.Duration) error {
	if err := c.cache.Set(ctx, cache.StatsKey(ownerID), stats, ttl); err != nil {
		return errors.Wrap(err, "set stats cache failed")
	}
	return nil
}
