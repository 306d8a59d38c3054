package resolver

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/superj80820/url-shortener/domain"
	loggerKit "github.com/superj80820/url-shortener/kit/logger"
	"golang.org/x/sync/singleflight"
)

type resolverUseCase struct {
	linkRepo      domain.LinkRepo
	linkCacheRepo domain.LinkCacheRepo
	clickUseCase  domain.ClickUseCase
	clock         domain.Clock
	logger        *loggerKit.Logger

	lookupGroup singleflight.Group
}

func CreateResolverUseCase(
	linkRepo domain.LinkRepo,
	linkCacheRepo domain.LinkCacheRepo,
	clickUseCase domain.ClickUseCase,
	clock domain.Clock,
	logger *loggerKit.Logger,
) (domain.ResolverUseCase, error) {
	if linkRepo == nil || linkCacheRepo == nil || clickUseCase == nil || clock == nil || logger == nil {
		return nil, errors.New("create resolver use case failed")
	}
	return &resolverUseCase{
		linkRepo:      linkRepo,
		linkCacheRepo: linkCacheRepo,
		clickUseCase:  clickUseCase,
		clock:         clock,
		logger:        logger,
	}, nil
}

// Resolve returns the target url of shortCode. Missing and expired codes return
// domain.ErrNoData and domain.ErrExpired. A click is recorded only on success.
func (r *resolverUseCase) Resolve(ctx context.Context, shortCode string, metadata *domain.ClickMetadata) (string, error) {
	now := r.clock()

	entry, err := r.linkCacheRepo.GetLink(ctx, shortCode)
	if err == nil {
		if entry.IsExpired(now) {
			if err := r.linkCacheRepo.DeleteLink(ctx, shortCode); err != nil {
				r.logger.Warn("evict expired link cache failed", loggerKit.String("short_code", shortCode), loggerKit.Error(err))
			}
			return "", errors.Wrapf(domain.ErrExpired, "short code %s", shortCode)
		}
		r.recordClick(ctx, entry.ID, metadata)
		return entry.URL, nil
	} else if !errors.Is(err, domain.ErrCacheMiss) {
		r.logger.Warn("get link cache failed, fall back to store", loggerKit.String("short_code", shortCode), loggerKit.Error(err))
	}

	entry, err = r.lookup(ctx, shortCode, now)
	if err != nil {
		return "", err
	}
	r.recordClick(ctx, entry.ID, metadata)
	return entry.URL, nil
}

// lookup collapses concurrent store lookups of one short code into a single query.
func (r *resolverUseCase) lookup(ctx context.Context, shortCode string, now time.Time) (*domain.LinkCacheEntry, error) {
	result, err, _ := r.lookupGroup.Do(shortCode, func() (interface{}, error) {
		link, err := r.linkRepo.GetByShortCode(context.WithoutCancel(ctx), shortCode)
		if err != nil {
			return nil, errors.Wrap(err, "get link failed")
		}
		entry := link.CacheEntry()
		if entry.IsExpired(now) {
			return entry, nil
		}
		if err := r.linkCacheRepo.SetLink(context.WithoutCancel(ctx), shortCode, entry); err != nil {
			r.logger.Warn("set link cache failed", loggerKit.String("short_code", shortCode), loggerKit.Error(err))
			return entry, nil
		}
		return r.revalidate(ctx, shortCode, entry)
	})
	if err != nil {
		return nil, err
	}
	entry := result.(*domain.LinkCacheEntry)
	if entry.IsExpired(now) {
		return nil, errors.Wrapf(domain.ErrExpired, "short code %s", shortCode)
	}
	return entry, nil
}

// revalidate re-reads the store after the cache fill. A write that invalidated
// the cache between the first read and the fill would otherwise be undone.
func (r *resolverUseCase) revalidate(ctx context.Context, shortCode string, cached *domain.LinkCacheEntry) (*domain.LinkCacheEntry, error) {
	link, err := r.linkRepo.GetByShortCode(context.WithoutCancel(ctx), shortCode)
	if err == nil && sameEntry(link.CacheEntry(), cached) {
		return cached, nil
	}
	if err := r.linkCacheRepo.DeleteLink(context.WithoutCancel(ctx), shortCode); err != nil {
		r.logger.Warn("drop stale link cache failed", loggerKit.String("short_code", shortCode), loggerKit.Error(err))
	}
	if err != nil {
		return nil, errors.Wrap(err, "get link failed")
	}
	return link.CacheEntry(), nil
}

func sameEntry(a, b *domain.LinkCacheEntry) bool {
	if a.ID != b.ID || a.URL != b.URL {
		return false
	}
	if a.ExpiresAt == nil || b.ExpiresAt == nil {
		return a.ExpiresAt == b.ExpiresAt
	}
	return a.ExpiresAt.Equal(*b.ExpiresAt)
}

func (r *resolverUseCase) recordClick(ctx context.Context, linkID int64, metadata *domain.ClickMetadata) {
	if metadata == nil {
		metadata = new(domain.ClickMetadata)
	}
	if err := r.clickUseCase.Record(context.WithoutCancel(ctx), linkID, metadata); err != nil {
		r.logger.Error("record click failed", loggerKit.Int64("link_id", linkID), loggerKit.Error(err))
	}
}
