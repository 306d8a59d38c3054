package resolver

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/superj80820/url-shortener/domain"
	loggerKit "github.com/superj80820/url-shortener/kit/logger"
	memoryMQKit "github.com/superj80820/url-shortener/kit/mq/memory"
	"github.com/superj80820/url-shortener/link/repository/cache"
	memoryCacheRepo "github.com/superj80820/url-shortener/link/repository/cache/memory"
	clickMQRepo "github.com/superj80820/url-shortener/link/repository/click/mq"
	memoryRepo "github.com/superj80820/url-shortener/link/repository/memory"
	clickUseCase "github.com/superj80820/url-shortener/link/usecase/click"
	"github.com/superj80820/url-shortener/link/usecase/code"
	linkUseCase "github.com/superj80820/url-shortener/link/usecase/link"
)

type testClock struct {
	lock sync.Mutex
	now  time.Time
}

func (c *testClock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now = c.now.Add(d)
}

type countingLinkRepo struct {
	domain.LinkRepo

	lock    sync.Mutex
	lookups int
}

func (c *countingLinkRepo) GetByShortCode(ctx context.Context, shortCode string) (*domain.Link, error) {
	c.lock.Lock()
	c.lookups++
	c.lock.Unlock()
	return c.LinkRepo.GetByShortCode(ctx, shortCode)
}

func (c *countingLinkRepo) Lookups() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.lookups
}

// pausingLinkRepo holds the first short code lookup until released.
type pausingLinkRepo struct {
	domain.LinkRepo

	once     sync.Once
	entered  chan struct{}
	released chan struct{}
}

func createPausingLinkRepo(linkRepo domain.LinkRepo) *pausingLinkRepo {
	return &pausingLinkRepo{
		LinkRepo: linkRepo,
		entered:  make(chan struct{}),
		released: make(chan struct{}),
	}
}

func (p *pausingLinkRepo) GetByShortCode(ctx context.Context, shortCode string) (*domain.Link, error) {
	link, err := p.LinkRepo.GetByShortCode(ctx, shortCode)
	p.once.Do(func() {
		close(p.entered)
		<-p.released
	})
	return link, err
}

type failingCacheRepo struct{}

func (failingCacheRepo) GetLink(ctx context.Context, shortCode string) (*domain.LinkCacheEntry, error) {
	return nil, context.DeadlineExceeded
}

func (failingCacheRepo) SetLink(ctx context.Context, shortCode string, entry *domain.LinkCacheEntry) error {
	return context.DeadlineExceeded
}

func (failingCacheRepo) DeleteLink(ctx context.Context, shortCode string) error {
	return context.DeadlineExceeded
}

type testSuite struct {
	clock    *testClock
	store    *memoryRepo.Store
	linkRepo *countingLinkRepo
	cache    *memoryCacheRepo.CacheRepo
	topic    interface{ Shutdown() bool }
	clicks   domain.ClickUseCase
	links    domain.LinkUseCase
	resolver domain.ResolverUseCase
}

func createTestSuite(t *testing.T, linkCacheRepo domain.LinkCacheRepo) *testSuite {
	ctx := context.Background()
	logger := loggerKit.NewNoopLogger()
	clock := &testClock{now: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}

	store := memoryRepo.CreateStore(clock.Now)
	linkRepo := &countingLinkRepo{LinkRepo: store}
	memoryCache := memoryCacheRepo.CreateCacheRepo(0, clock.Now)
	if linkCacheRepo == nil {
		linkCacheRepo = memoryCache
	}

	topic := memoryMQKit.CreateMemoryMQ(ctx, 10000, 5*time.Millisecond)
	t.Cleanup(func() { topic.Shutdown() })
	clicks, err := clickUseCase.CreateClickUseCase(linkRepo, store, clickMQRepo.CreateClickQueueRepo(topic), clock.Now, logger)
	require.Nil(t, err)
	clicks.ConsumeClicks(ctx, "click-writer")

	links, err := linkUseCase.CreateLinkUseCase(linkRepo, linkCacheRepo, code.CreateCodeGenerator(), clock.Now, logger)
	require.Nil(t, err)
	resolver, err := CreateResolverUseCase(linkRepo, linkCacheRepo, clicks, clock.Now, logger)
	require.Nil(t, err)

	return &testSuite{
		clock:    clock,
		store:    store,
		linkRepo: linkRepo,
		cache:    memoryCache,
		topic:    topic,
		clicks:   clicks,
		links:    links,
		resolver: resolver,
	}
}

// flushClicks stops the queue after delivering everything still buffered.
func (s *testSuite) flushClicks() {
	s.topic.Shutdown()
}

func (s *testSuite) clicksOf(t *testing.T, linkID int64) []*domain.Click {
	clicks, err := s.store.GetClicksByLink(context.Background(), linkID)
	require.Nil(t, err)
	return clicks
}

func TestResolverUseCase(t *testing.T) {
	ctx := context.Background()
	ownerID := int64(1)
	metadata := &domain.ClickMetadata{Referrer: "https://news.example.com", UserAgent: "curl/8.0", IPAddress: "10.0.0.1"}

	testCases := []struct {
		scenario string
		fn       func(t *testing.T)
	}{
		{
			scenario: "test resolve through cache then through store after flush",
			fn: func(t *testing.T) {
				suite := createTestSuite(t, nil)
				link, err := suite.links.Create(ctx, ownerID, &domain.LinkCreate{OriginalURL: "https://example.com/a", CustomCode: "abc123"})
				require.Nil(t, err)

				target, err := suite.resolver.Resolve(ctx, "abc123", metadata)
				require.Nil(t, err)
				assert.Equal(t, "https://example.com/a", target)
				assert.Equal(t, 0, suite.linkRepo.Lookups())

				suite.cache.Flush()
				target, err = suite.resolver.Resolve(ctx, "abc123", metadata)
				require.Nil(t, err)
				assert.Equal(t, "https://example.com/a", target)
				assert.Equal(t, 2, suite.linkRepo.Lookups())

				entry, err := suite.cache.GetLink(ctx, "abc123")
				require.Nil(t, err)
				assert.Equal(t, link.ID, entry.ID)
				assert.Equal(t, "https://example.com/a", entry.URL)

				suite.flushClicks()
				clicks := suite.clicksOf(t, link.ID)
				require.Len(t, clicks, 2)
				for _, click := range clicks {
					assert.Equal(t, link.ID, click.LinkID)
					require.NotNil(t, click.Referrer)
					assert.Equal(t, metadata.Referrer, *click.Referrer)
					require.NotNil(t, click.UserAgent)
					assert.Equal(t, metadata.UserAgent, *click.UserAgent)
					require.NotNil(t, click.IPAddress)
					assert.Equal(t, metadata.IPAddress, *click.IPAddress)
					assert.True(t, suite.clock.Now().Equal(click.ClickedAt))
				}
			},
		},
		{
			scenario: "test unknown code is not found without click",
			fn: func(t *testing.T) {
				suite := createTestSuite(t, nil)

				_, err := suite.resolver.Resolve(ctx, "nope", metadata)
				assert.ErrorIs(t, err, domain.ErrNoData)
				_, err = suite.cache.GetLink(ctx, "nope")
				assert.ErrorIs(t, err, domain.ErrCacheMiss)
			},
		},
		{
			scenario: "test expired code via cache evicts entry and records no click",
			fn: func(t *testing.T) {
				suite := createTestSuite(t, nil)
				expiresAt := suite.clock.Now().Add(time.Hour)
				link, err := suite.links.Create(ctx, ownerID, &domain.LinkCreate{OriginalURL: "https://example.com", CustomCode: "soon", ExpiresAt: &expiresAt})
				require.Nil(t, err)
				_, err = suite.cache.GetLink(ctx, "soon")
				require.Nil(t, err)

				suite.clock.Advance(2 * time.Hour)
				_, err = suite.resolver.Resolve(ctx, "soon", metadata)
				assert.ErrorIs(t, err, domain.ErrExpired)
				_, err = suite.cache.GetLink(ctx, "soon")
				assert.ErrorIs(t, err, domain.ErrCacheMiss)
				assert.Equal(t, 0, suite.linkRepo.Lookups())

				suite.flushClicks()
				assert.Len(t, suite.clicksOf(t, link.ID), 0)
			},
		},
		{
			scenario: "test expired code via store is not cached and records no click",
			fn: func(t *testing.T) {
				suite := createTestSuite(t, nil)
				expiresAt := suite.clock.Now().Add(time.Hour)
				link, err := suite.links.Create(ctx, ownerID, &domain.LinkCreate{OriginalURL: "https://example.com", CustomCode: "later", ExpiresAt: &expiresAt})
				require.Nil(t, err)
				suite.cache.Flush()

				suite.clock.Advance(2 * time.Hour)
				_, err = suite.resolver.Resolve(ctx, "later", metadata)
				assert.ErrorIs(t, err, domain.ErrExpired)
				_, err = suite.cache.GetLink(ctx, "later")
				assert.ErrorIs(t, err, domain.ErrCacheMiss)

				suite.flushClicks()
				assert.Len(t, suite.clicksOf(t, link.ID), 0)
			},
		},
		{
			scenario: "test link expiring exactly now still resolves",
			fn: func(t *testing.T) {
				suite := createTestSuite(t, nil)
				expiresAt := suite.clock.Now()
				_, err := suite.links.Create(ctx, ownerID, &domain.LinkCreate{OriginalURL: "https://example.com", CustomCode: "edge", ExpiresAt: &expiresAt})
				require.Nil(t, err)

				target, err := suite.resolver.Resolve(ctx, "edge", nil)
				require.Nil(t, err)
				assert.Equal(t, "https://example.com", target)
			},
		},
		{
			scenario: "test update url is seen by the next resolution",
			fn: func(t *testing.T) {
				suite := createTestSuite(t, nil)
				link, err := suite.links.Create(ctx, ownerID, &domain.LinkCreate{OriginalURL: "https://example.com/old", CustomCode: "moving"})
				require.Nil(t, err)
				target, err := suite.resolver.Resolve(ctx, "moving", nil)
				require.Nil(t, err)
				assert.Equal(t, "https://example.com/old", target)

				newURL := "https://example.com/new"
				_, err = suite.links.Update(ctx, link.ID, ownerID, &domain.LinkUpdate{OriginalURL: &newURL})
				require.Nil(t, err)

				target, err = suite.resolver.Resolve(ctx, "moving", nil)
				require.Nil(t, err)
				assert.Equal(t, newURL, target)
			},
		},
		{
			scenario: "test delete removes cache entry and clicks then resolution is not found",
			fn: func(t *testing.T) {
				suite := createTestSuite(t, nil)
				link, err := suite.links.Create(ctx, ownerID, &domain.LinkCreate{OriginalURL: "https://example.com", CustomCode: "gone"})
				require.Nil(t, err)
				for i := 0; i < 3; i++ {
					_, err := suite.resolver.Resolve(ctx, "gone", metadata)
					require.Nil(t, err)
				}
				require.Eventually(t, func() bool {
					return len(suite.clicksOf(t, link.ID)) == 3
				}, time.Second, 5*time.Millisecond)

				require.Nil(t, suite.links.Delete(ctx, link.ID, ownerID))

				_, err = suite.cache.GetLink(ctx, "gone")
				assert.ErrorIs(t, err, domain.ErrCacheMiss)
				assert.Len(t, suite.clicksOf(t, link.ID), 0)
				_, err = suite.resolver.Resolve(ctx, "gone", metadata)
				assert.ErrorIs(t, err, domain.ErrNoData)
			},
		},
		{
			scenario: "test store read racing a delete does not leave the link cached",
			fn: func(t *testing.T) {
				suite := createTestSuite(t, nil)
				link, err := suite.links.Create(ctx, ownerID, &domain.LinkCreate{OriginalURL: "https://example.com/race", CustomCode: "race"})
				require.Nil(t, err)
				suite.cache.Flush()

				pausing := createPausingLinkRepo(suite.linkRepo)
				resolver, err := CreateResolverUseCase(pausing, suite.cache, suite.clicks, suite.clock.Now, loggerKit.NewNoopLogger())
				require.Nil(t, err)

				done := make(chan error, 1)
				go func() {
					_, err := resolver.Resolve(ctx, "race", nil)
					done <- err
				}()
				<-pausing.entered
				require.Nil(t, suite.links.Delete(ctx, link.ID, ownerID))
				close(pausing.released)
				<-done

				_, err = suite.cache.GetLink(ctx, "race")
				assert.ErrorIs(t, err, domain.ErrCacheMiss)
				_, err = resolver.Resolve(ctx, "race", nil)
				assert.ErrorIs(t, err, domain.ErrNoData)
			},
		},
		{
			scenario: "test store read racing an update does not leave the old url cached",
			fn: func(t *testing.T) {
				suite := createTestSuite(t, nil)
				link, err := suite.links.Create(ctx, ownerID, &domain.LinkCreate{OriginalURL: "https://example.com/before", CustomCode: "swap"})
				require.Nil(t, err)
				suite.cache.Flush()

				pausing := createPausingLinkRepo(suite.linkRepo)
				resolver, err := CreateResolverUseCase(pausing, suite.cache, suite.clicks, suite.clock.Now, loggerKit.NewNoopLogger())
				require.Nil(t, err)

				done := make(chan error, 1)
				go func() {
					_, err := resolver.Resolve(ctx, "swap", nil)
					done <- err
				}()
				<-pausing.entered
				newURL := "https://example.com/after"
				_, err = suite.links.Update(ctx, link.ID, ownerID, &domain.LinkUpdate{OriginalURL: &newURL})
				require.Nil(t, err)
				close(pausing.released)
				<-done

				target, err := resolver.Resolve(ctx, "swap", nil)
				require.Nil(t, err)
				assert.Equal(t, newURL, target)
			},
		},
		{
			scenario: "test concurrent redirects record one click each",
			fn: func(t *testing.T) {
				suite := createTestSuite(t, nil)
				link, err := suite.links.Create(ctx, ownerID, &domain.LinkCreate{OriginalURL: "https://example.com/hot", CustomCode: "hot"})
				require.Nil(t, err)
				suite.cache.Flush()

				const concurrency = 200
				targets := make([]string, concurrency)
				errs := make([]error, concurrency)
				var wg sync.WaitGroup
				for i := 0; i < concurrency; i++ {
					wg.Add(1)
					go func(i int) {
						defer wg.Done()
						targets[i], errs[i] = suite.resolver.Resolve(ctx, "hot", metadata)
					}(i)
				}
				wg.Wait()

				for i := 0; i < concurrency; i++ {
					require.Nil(t, errs[i])
					assert.Equal(t, "https://example.com/hot", targets[i])
				}
				assert.LessOrEqual(t, suite.linkRepo.Lookups(), 2*concurrency)

				suite.flushClicks()
				assert.Len(t, suite.clicksOf(t, link.ID), concurrency)
			},
		},
		{
			scenario: "test undecodable cache entry falls back to store",
			fn: func(t *testing.T) {
				suite := createTestSuite(t, nil)
				_, err := suite.links.Create(ctx, ownerID, &domain.LinkCreate{OriginalURL: "https://example.com", CustomCode: "legacy"})
				require.Nil(t, err)
				suite.cache.SetRaw(cache.LinkKey("legacy"), []byte(`{"v":99,"url":"https://evil.example.com"}`))

				target, err := suite.resolver.Resolve(ctx, "legacy", nil)
				require.Nil(t, err)
				assert.Equal(t, "https://example.com", target)
				assert.Equal(t, 2, suite.linkRepo.Lookups())
			},
		},
		{
			scenario: "test cache failure degrades to store",
			fn: func(t *testing.T) {
				suite := createTestSuite(t, failingCacheRepo{})
				_, err := suite.links.Create(ctx, ownerID, &domain.LinkCreate{OriginalURL: "https://example.com/down", CustomCode: "down"})
				require.Nil(t, err)

				target, err := suite.resolver.Resolve(ctx, "down", nil)
				require.Nil(t, err)
				assert.Equal(t, "https://example.com/down", target)
				assert.Equal(t, 1, suite.linkRepo.Lookups())
			},
		},
		{
			scenario: "test click queue failure does not fail resolution",
			fn: func(t *testing.T) {
				suite := createTestSuite(t, nil)
				_, err := suite.links.Create(ctx, ownerID, &domain.LinkCreate{OriginalURL: "https://example.com", CustomCode: "quiet"})
				require.Nil(t, err)
				suite.flushClicks()

				target, err := suite.resolver.Resolve(ctx, "quiet", nil)
				require.Nil(t, err)
				assert.Equal(t, "https://example.com", target)
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.scenario, testCase.fn)
	}
}
