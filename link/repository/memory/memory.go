package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/superj80820/url-shortener/domain"
)

// Store keeps links and clicks together so deleting a link can cascade to its clicks.
type Store struct {
	links      map[int64]*domain.Link
	shortCodes map[string]int64
	clicks     map[int64][]*domain.Click

	linkSequence  int64
	clickSequence int64

	clock domain.Clock
	lock  sync.RWMutex
}

var (
	_ domain.LinkRepo  = (*Store)(nil)
	_ domain.ClickRepo = (*Store)(nil)
)

func CreateStore(clock domain.Clock) *Store {
	return &Store{
		links:      make(map[int64]*domain.Link),
		shortCodes: make(map[string]int64),
		clicks:     make(map[int64][]*domain.Click),
		clock:      clock,
	}
}

func copyLink(link *domain.Link) *domain.Link {
	linkCopy := *link
	if link.ExpiresAt != nil {
		expiresAt := *link.ExpiresAt
		linkCopy.ExpiresAt = &expiresAt
	}
	return &linkCopy
}

func (s *Store) Create(ctx context.Context, link *domain.Link) (*domain.Link, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.shortCodes[link.ShortCode]; ok {
		return nil, errors.Wrapf(domain.ErrDuplicate, "short code %s", link.ShortCode)
	}

	now := s.clock()
	s.linkSequence++
	linkInstance := copyLink(link)
	linkInstance.ID = s.linkSequence
	linkInstance.CreatedAt = now
	linkInstance.UpdatedAt = now

	s.links[linkInstance.ID] = linkInstance
	s.shortCodes[linkInstance.ShortCode] = linkInstance.ID

	return copyLink(linkInstance), nil
}

func (s *Store) Get(ctx context.Context, linkID int64) (*domain.Link, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	link, ok := s.links[linkID]
	if !ok {
		return nil, errors.Wrapf(domain.ErrNoData, "link %d", linkID)
	}
	return copyLink(link), nil
}

func (s *Store) GetByShortCode(ctx context.Context, shortCode string) (*domain.Link, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	linkID, ok := s.shortCodes[shortCode]
	if !ok {
		return nil, errors.Wrapf(domain.ErrNoData, "short code %s", shortCode)
	}
	return copyLink(s.links[linkID]), nil
}

func (s *Store) ExistsShortCode(ctx context.Context, shortCode string) (bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	_, ok := s.shortCodes[shortCode]
	return ok, nil
}

func (s *Store) GetByOwner(ctx context.Context, ownerID int64) ([]*domain.Link, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	links := make([]*domain.Link, 0)
	for _, link := range s.links {
		if link.OwnerID == ownerID {
			links = append(links, copyLink(link))
		}
	}
	sort.Slice(links, func(i, j int) bool {
		if !links[i].CreatedAt.Equal(links[j].CreatedAt) {
			return links[i].CreatedAt.After(links[j].CreatedAt)
		}
		return links[i].ID > links[j].ID
	})
	return links, nil
}

func (s *Store) Update(ctx context.Context, linkID int64, update *domain.LinkUpdate, updatedAt time.Time) (*domain.Link, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	link, ok := s.links[linkID]
	if !ok {
		return nil, errors.Wrapf(domain.ErrNoData, "link %d", linkID)
	}
	if update.OriginalURL != nil {
		link.OriginalURL = *update.OriginalURL
	}
	if update.ClearExpiresAt {
		link.ExpiresAt = nil
	} else if update.ExpiresAt != nil {
		expiresAt := *update.ExpiresAt
		link.ExpiresAt = &expiresAt
	}
	link.UpdatedAt = updatedAt

	return copyLink(link), nil
}

func (s *Store) Delete(ctx context.Context, linkID int64) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	link, ok := s.links[linkID]
	if !ok {
		return errors.Wrapf(domain.ErrNoData, "link %d", linkID)
	}
	delete(s.clicks, linkID)
	delete(s.shortCodes, link.ShortCode)
	delete(s.links, linkID)
	return nil
}

// CreateClicks is all or nothing. A click for a missing link fails the whole batch.
func (s *Store) CreateClicks(ctx context.Context, clicks []*domain.Click) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	for _, click := range clicks {
		if _, ok := s.links[click.LinkID]; !ok {
			return errors.Wrapf(domain.ErrNoData, "link %d of click", click.LinkID)
		}
	}
	for _, click := range clicks {
		s.clickSequence++
		clickInstance := *click
		clickInstance.ID = s.clickSequence
		click.ID = clickInstance.ID
		s.clicks[click.LinkID] = append(s.clicks[click.LinkID], &clickInstance)
	}
	return nil
}

func (s *Store) GetClicksByLink(ctx context.Context, linkID int64) ([]*domain.Click, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	clicks := make([]*domain.Click, 0, len(s.clicks[linkID]))
	for _, click := range s.clicks[linkID] {
		clickCopy := *click
		clicks = append(clicks, &clickCopy)
	}
	sort.Slice(clicks, func(i, j int) bool {
		if !clicks[i].ClickedAt.Equal(clicks[j].ClickedAt) {
			return clicks[i].ClickedAt.After(clicks[j].ClickedAt)
		}
		return clicks[i].ID > clicks[j].ID
	})
	return clicks, nil
}

func (s *Store) rangeOwnerClicks(ownerID int64, fn func(click *domain.Click)) {
	for linkID, link := range s.links {
		if link.OwnerID != ownerID {
			continue
		}
		for _, click := range s.clicks[linkID] {
			fn(click)
		}
	}
}

func (s *Store) CountClicksByOwner(ctx context.Context, ownerID int64, since *time.Time) (int64, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	var count int64
	s.rangeOwnerClicks(ownerID, func(click *domain.Click) {
		if since == nil || !click.ClickedAt.Before(*since) {
			count++
		}
	})
	return count, nil
}

func (s *Store) GetTopReferrersByOwner(ctx context.Context, ownerID int64, limit int) ([]*domain.ReferrerCount, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	counts := make(map[string]int64)
	s.rangeOwnerClicks(ownerID, func(click *domain.Click) {
		if click.Referrer != nil {
			counts[*click.Referrer]++
		}
	})

	referrers := make([]*domain.ReferrerCount, 0, len(counts))
	for referrer, count := range counts {
		referrers = append(referrers, &domain.ReferrerCount{Referrer: referrer, Count: count})
	}
	sort.Slice(referrers, func(i, j int) bool {
		if referrers[i].Count != referrers[j].Count {
			return referrers[i].Count > referrers[j].Count
		}
		return referrers[i].Referrer < referrers[j].Referrer
	})
	if len(referrers) > limit {
		referrers = referrers[:limit]
	}
	return referrers, nil
}
