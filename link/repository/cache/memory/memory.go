package memory

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/superj80820/url-shortener/domain"
	"github.com/superj80820/url-shortener/link/repository/cache"
)

type item struct {
	data     []byte
	expireAt time.Time
}

// CacheRepo is an in-process stand in for redis. Values are stored serialized so behaviour matches.
type CacheRepo struct {
	items   map[string]*item
	linkTTL time.Duration
	clock   domain.Clock
	lock    sync.Mutex
}

var (
	_ domain.LinkCacheRepo  = (*CacheRepo)(nil)
	_ domain.StatsCacheRepo = (*CacheRepo)(nil)
)

func CreateCacheRepo(linkTTL time.Duration, clock domain.Clock) *CacheRepo {
	return &CacheRepo{
		items:   make(map[string]*item),
		linkTTL: linkTTL,
		clock:   clock,
	}
}

func (c *CacheRepo) get(key string) ([]byte, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	it, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if !it.expireAt.IsZero() && !c.clock().Before(it.expireAt) {
		delete(c.items, key)
		return nil, false
	}
	return it.data, true
}

func (c *CacheRepo) set(key string, data []byte, ttl time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()

	it := &item{data: data}
	if ttl > 0 {
		it.expireAt = c.clock().Add(ttl)
	}
	c.items[key] = it
}

func (c *CacheRepo) del(key string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	delete(c.items, key)
}

func (c *CacheRepo) GetLink(ctx context.Context, shortCode string) (*domain.LinkCacheEntry, error) {
	key := cache.LinkKey(shortCode)
	data, ok := c.get(key)
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	entry, err := cache.DecodeLinkEntry(data)
	if err != nil {
		c.del(key)
		return nil, errors.Wrap(domain.ErrCacheMiss, err.Error())
	}
	return entry, nil
}

func (c *CacheRepo) SetLink(ctx context.Context, shortCode string, entry *domain.LinkCacheEntry) error {
	data, err := cache.EncodeLinkEntry(entry)
	if err != nil {
		return errors.Wrap(err, "encode link entry failed")
	}
	c.set(cache.LinkKey(shortCode), data, c.linkTTL)
	return nil
}

func (c *CacheRepo) DeleteLink(ctx context.Context, shortCode string) error {
	c.del(cache.LinkKey(shortCode))
	return nil
}

func (c *CacheRepo) GetStats(ctx context.Context, ownerID int64) ([]byte, error) {
	data, ok := c.get(cache.StatsKey(ownerID))
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return data, nil
}

func (c *CacheRepo) SetStats(ctx context.Context, ownerID int64, stats []byte, ttl time.Duration) error {
	c.set(cache.StatsKey(ownerID), stats, ttl)
	return nil
}

// SetRaw writes a raw value under key, used to plant foreign payloads.
func (c *CacheRepo) SetRaw(key string, data []byte) {
	c.set(key, data, 0)
}

func (c *CacheRepo) GetRaw(key string) ([]byte, bool) {
	return c.get(key)
}

func (c *CacheRepo) Flush() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.items = make(map[string]*item)
}
