package link

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/superj80820/url-shortener/domain"
	loggerKit "github.com/superj80820/url-shortener/kit/logger"
	memoryCacheRepo "github.com/superj80820/url-shortener/link/repository/cache/memory"
	memoryRepo "github.com/superj80820/url-shortener/link/repository/memory"
	"github.com/superj80820/url-shortener/link/usecase/code"
)

type scriptedCodeGenerator struct {
	domain.CodeGenerator

	lock  sync.Mutex
	codes []string
	calls int
}

func (s *scriptedCodeGenerator) Generate(length int) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	code := s.codes[s.calls%len(s.codes)]
	s.calls++
	return code, nil
}

// blindLinkRepo never sees existing codes, so collisions surface on insert.
type blindLinkRepo struct {
	domain.LinkRepo
}

func (blindLinkRepo) ExistsShortCode(ctx context.Context, shortCode string) (bool, error) {
	return false, nil
}

type testSuite struct {
	store     *memoryRepo.Store
	cache     *memoryCacheRepo.CacheRepo
	generator *scriptedCodeGenerator
	useCase   domain.LinkUseCase
}

func createTestSuite(t *testing.T, codes []string, wrapRepo func(domain.LinkRepo) domain.LinkRepo) *testSuite {
	clock := func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) }
	store := memoryRepo.CreateStore(clock)
	cache := memoryCacheRepo.CreateCacheRepo(0, clock)
	generator := &scriptedCodeGenerator{CodeGenerator: code.CreateCodeGenerator(), codes: codes}

	var linkRepo domain.LinkRepo = store
	if wrapRepo != nil {
		linkRepo = wrapRepo(store)
	}

	useCase, err := CreateLinkUseCase(linkRepo, cache, generator, clock, loggerKit.NewNoopLogger())
	require.Nil(t, err)

	return &testSuite{
		store:     store,
		cache:     cache,
		generator: generator,
		useCase:   useCase,
	}
}

func TestLinkUseCase(t *testing.T) {
	ctx := context.Background()
	ownerID := int64(1)
	otherOwnerID := int64(2)

	testCases := []struct {
		scenario string
		fn       func(t *testing.T)
	}{
		{
			scenario: "test create generated link writes through cache",
			fn: func(t *testing.T) {
				suite := createTestSuite(t, []string{"Ab3dE9"}, nil)

				link, err := suite.useCase.Create(ctx, ownerID, &domain.LinkCreate{OriginalURL: "https://example.com/a"})
				require.Nil(t, err)
				assert.Equal(t, "Ab3dE9", link.ShortCode)
				assert.False(t, link.IsCustom)
				assert.Equal(t, ownerID, link.OwnerID)

				entry, err := suite.cache.GetLink(ctx, "Ab3dE9")
				require.Nil(t, err)
				assert.Equal(t, link.ID, entry.ID)
				assert.Equal(t, "https://example.com/a", entry.URL)
				assert.Nil(t, entry.ExpiresAt)
			},
		},
		{
			scenario: "test create with default generator uses six characters",
			fn: func(t *testing.T) {
				clock := time.Now
				store := memoryRepo.CreateStore(clock)
				useCase, err := CreateLinkUseCase(store, memoryCacheRepo.CreateCacheRepo(0, clock), code.CreateCodeGenerator(), clock, loggerKit.NewNoopLogger())
				require.Nil(t, err)

				link, err := useCase.Create(ctx, ownerID, &domain.LinkCreate{OriginalURL: "http://example.com"})
				require.Nil(t, err)
				assert.Len(t, link.ShortCode, 6)
				assert.True(t, code.IsAlphanumeric(link.ShortCode))
			},
		},
		{
			scenario: "test create custom link",
			fn: func(t *testing.T) {
				suite := createTestSuite(t, []string{"unused"}, nil)
				expiresAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

				link, err := suite.useCase.Create(ctx, ownerID, &domain.LinkCreate{
					OriginalURL: "https://example.com/promo",
					CustomCode:  "promo2024",
					ExpiresAt:   &expiresAt,
				})
				require.Nil(t, err)
				assert.Equal(t, "promo2024", link.ShortCode)
				assert.True(t, link.IsCustom)
				require.NotNil(t, link.ExpiresAt)
				assert.True(t, expiresAt.Equal(*link.ExpiresAt))
				assert.Equal(t, 0, suite.generator.calls)
			},
		},
		{
			scenario: "test duplicate custom code conflicts without a second row",
			fn: func(t *testing.T) {
				suite := createTestSuite(t, []string{"unused"}, nil)

				_, err := suite.useCase.Create(ctx, ownerID, &domain.LinkCreate{OriginalURL: "https://example.com/1", CustomCode: "mycode"})
				require.Nil(t, err)
				_, err = suite.useCase.Create(ctx, otherOwnerID, &domain.LinkCreate{OriginalURL: "https://example.com/2", CustomCode: "mycode"})
				assert.ErrorIs(t, err, domain.ErrCodeConflict)

				links, err := suite.store.GetByOwner(ctx, otherOwnerID)
				require.Nil(t, err)
				assert.Len(t, links, 0)
				link, err := suite.store.GetByShortCode(ctx, "mycode")
				require.Nil(t, err)
				assert.Equal(t, "https://example.com/1", link.OriginalURL)
			},
		},
		{
			scenario: "test custom code lost to a concurrent insert conflicts",
			fn: func(t *testing.T) {
				suite := createTestSuite(t, []string{"unused"}, func(repo domain.LinkRepo) domain.LinkRepo {
					return blindLinkRepo{LinkRepo: repo}
				})

				_, err := suite.useCase.Create(ctx, ownerID, &domain.LinkCreate{OriginalURL: "https://example.com/1", CustomCode: "racecode"})
				require.Nil(t, err)
				_, err = suite.useCase.Create(ctx, ownerID, &domain.LinkCreate{OriginalURL: "https://example.com/2", CustomCode: "racecode"})
				assert.ErrorIs(t, err, domain.ErrCodeConflict)
			},
		},
		{
			scenario: "test invalid custom codes are rejected",
			fn: func(t *testing.T) {
				suite := createTestSuite(t, []string{"unused"}, nil)

				for _, customCode := range []string{"ab", "abcdefghijk", "has-dash", "with space"} {
					_, err := suite.useCase.Create(ctx, ownerID, &domain.LinkCreate{OriginalURL: "https://example.com", CustomCode: customCode})
					assert.ErrorIs(t, err, domain.ErrInvalidCode, customCode)
				}
				links, err := suite.store.GetByOwner(ctx, ownerID)
				require.Nil(t, err)
				assert.Len(t, links, 0)
			},
		},
		{
			scenario: "test invalid urls are rejected",
			fn: func(t *testing.T) {
				suite := createTestSuite(t, []string{"Ab3dE9"}, nil)

				for _, rawURL := range []string{"", "example.com", "ftp://example.com/file", "https://", "://bad"} {
					_, err := suite.useCase.Create(ctx, ownerID, &domain.LinkCreate{OriginalURL: rawURL})
					assert.ErrorIs(t, err, domain.ErrInvalidURL, rawURL)
				}
			},
		},
		{
			scenario: "test three colliding generations exhaust without a new row",
			fn: func(t *testing.T) {
				suite := createTestSuite(t, []string{"taken1"}, nil)
				_, err := suite.useCase.Create(ctx, otherOwnerID, &domain.LinkCreate{OriginalURL: "https://example.com/first"})
				require.Nil(t, err)

				_, err = suite.useCase.Create(ctx, ownerID, &domain.LinkCreate{OriginalURL: "https://example.com/second"})
				assert.ErrorIs(t, err, domain.ErrGenerationExhausted)
				assert.Equal(t, 1+3, suite.generator.calls)

				links, err := suite.store.GetByOwner(ctx, ownerID)
				require.Nil(t, err)
				assert.Len(t, links, 0)
			},
		},
		{
			scenario: "test two collisions then the third candidate is used",
			fn: func(t *testing.T) {
				suite := createTestSuite(t, []string{"taken1", "taken2"}, nil)
				for i := 0; i < 2; i++ {
					_, err := suite.useCase.Create(ctx, otherOwnerID, &domain.LinkCreate{OriginalURL: "https://example.com/seed"})
					require.Nil(t, err)
				}
				suite.generator.codes = []string{"taken1", "taken2", "fresh3"}
				suite.generator.calls = 0

				link, err := suite.useCase.Create(ctx, ownerID, &domain.LinkCreate{OriginalURL: "https://example.com/new"})
				require.Nil(t, err)
				assert.Equal(t, "fresh3", link.ShortCode)
				assert.Equal(t, 3, suite.generator.calls)

				links, err := suite.store.GetByOwner(ctx, ownerID)
				require.Nil(t, err)
				assert.Len(t, links, 1)
			},
		},
		{
			scenario: "test collision on insert counts as an attempt",
			fn: func(t *testing.T) {
				suite := createTestSuite(t, []string{"taken1"}, func(repo domain.LinkRepo) domain.LinkRepo {
					return blindLinkRepo{LinkRepo: repo}
				})
				_, err := suite.useCase.Create(ctx, otherOwnerID, &domain.LinkCreate{OriginalURL: "https://example.com/seed"})
				require.Nil(t, err)
				suite.generator.codes = []string{"taken1", "fresh2"}
				suite.generator.calls = 0

				link, err := suite.useCase.Create(ctx, ownerID, &domain.LinkCreate{OriginalURL: "https://example.com/new"})
				require.Nil(t, err)
				assert.Equal(t, "fresh2", link.ShortCode)
				assert.Equal(t, 2, suite.generator.calls)
			},
		},
		{
			scenario: "test max attempts is configurable",
			fn: func(t *testing.T) {
				clock := time.Now
				store := memoryRepo.CreateStore(clock)
				generator := &scriptedCodeGenerator{CodeGenerator: code.CreateCodeGenerator(), codes: []string{"taken1"}}
				useCase, err := CreateLinkUseCase(store, memoryCacheRepo.CreateCacheRepo(0, clock), generator, clock, loggerKit.NewNoopLogger(), SetMaxAttempts(5))
				require.Nil(t, err)
				_, err = useCase.Create(ctx, ownerID, &domain.LinkCreate{OriginalURL: "https://example.com/seed"})
				require.Nil(t, err)
				generator.calls = 0

				_, err = useCase.Create(ctx, ownerID, &domain.LinkCreate{OriginalURL: "https://example.com/new"})
				assert.ErrorIs(t, err, domain.ErrGenerationExhausted)
				assert.Equal(t, 5, generator.calls)
			},
		},
		{
			scenario: "test update url invalidates cache entry",
			fn: func(t *testing.T) {
				suite := createTestSuite(t, []string{"Ab3dE9"}, nil)
				link, err := suite.useCase.Create(ctx, ownerID, &domain.LinkCreate{OriginalURL: "https://example.com/old"})
				require.Nil(t, err)

				newURL := "https://example.com/new"
				updated, err := suite.useCase.Update(ctx, link.ID, ownerID, &domain.LinkUpdate{OriginalURL: &newURL})
				require.Nil(t, err)
				assert.Equal(t, newURL, updated.OriginalURL)
				assert.Equal(t, link.ShortCode, updated.ShortCode)

				_, err = suite.cache.GetLink(ctx, link.ShortCode)
				assert.ErrorIs(t, err, domain.ErrCacheMiss)
			},
		},
		{
			scenario: "test update clears expiry",
			fn: func(t *testing.T) {
				suite := createTestSuite(t, []string{"Ab3dE9"}, nil)
				expiresAt := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
				link, err := suite.useCase.Create(ctx, ownerID, &domain.LinkCreate{OriginalURL: "https://example.com", ExpiresAt: &expiresAt})
				require.Nil(t, err)

				updated, err := suite.useCase.Update(ctx, link.ID, ownerID, &domain.LinkUpdate{ClearExpiresAt: true})
				require.Nil(t, err)
				assert.Nil(t, updated.ExpiresAt)
			},
		},
		{
			scenario: "test empty update leaves link and cache alone",
			fn: func(t *testing.T) {
				suite := createTestSuite(t, []string{"Ab3dE9"}, nil)
				link, err := suite.useCase.Create(ctx, ownerID, &domain.LinkCreate{OriginalURL: "https://example.com"})
				require.Nil(t, err)

				updated, err := suite.useCase.Update(ctx, link.ID, ownerID, &domain.LinkUpdate{})
				require.Nil(t, err)
				assert.Equal(t, link.OriginalURL, updated.OriginalURL)
				_, err = suite.cache.GetLink(ctx, link.ShortCode)
				assert.Nil(t, err)
			},
		},
		{
			scenario: "test update checks existence ownership and url",
			fn: func(t *testing.T) {
				suite := createTestSuite(t, []string{"Ab3dE9"}, nil)
				link, err := suite.useCase.Create(ctx, ownerID, &domain.LinkCreate{OriginalURL: "https://example.com"})
				require.Nil(t, err)
				newURL := "https://example.com/new"
				badURL := "not a url"

				_, err = suite.useCase.Update(ctx, 999, ownerID, &domain.LinkUpdate{OriginalURL: &newURL})
				assert.ErrorIs(t, err, domain.ErrNoData)
				_, err = suite.useCase.Update(ctx, link.ID, otherOwnerID, &domain.LinkUpdate{OriginalURL: &newURL})
				assert.ErrorIs(t, err, domain.ErrForbidden)
				_, err = suite.useCase.Update(ctx, link.ID, ownerID, &domain.LinkUpdate{OriginalURL: &badURL})
				assert.ErrorIs(t, err, domain.ErrInvalidURL)

				stored, err := suite.store.Get(ctx, link.ID)
				require.Nil(t, err)
				assert.Equal(t, "https://example.com", stored.OriginalURL)
			},
		},
		{
			scenario: "test delete removes cache entry and link",
			fn: func(t *testing.T) {
				suite := createTestSuite(t, []string{"Ab3dE9"}, nil)
				link, err := suite.useCase.Create(ctx, ownerID, &domain.LinkCreate{OriginalURL: "https://example.com"})
				require.Nil(t, err)

				assert.ErrorIs(t, suite.useCase.Delete(ctx, link.ID, otherOwnerID), domain.ErrForbidden)
				assert.ErrorIs(t, suite.useCase.Delete(ctx, 999, ownerID), domain.ErrNoData)

				require.Nil(t, suite.useCase.Delete(ctx, link.ID, ownerID))
				_, err = suite.cache.GetLink(ctx, link.ShortCode)
				assert.ErrorIs(t, err, domain.ErrCacheMiss)
				_, err = suite.store.Get(ctx, link.ID)
				assert.True(t, errors.Is(err, domain.ErrNoData))
			},
		},
		{
			scenario: "test get by owner returns only the owner's links",
			fn: func(t *testing.T) {
				suite := createTestSuite(t, []string{"code01", "code02", "code03"}, nil)
				for _, owner := range []int64{ownerID, otherOwnerID, ownerID} {
					_, err := suite.useCase.Create(ctx, owner, &domain.LinkCreate{OriginalURL: "https://example.com"})
					require.Nil(t, err)
				}

				links, err := suite.useCase.GetByOwner(ctx, ownerID)
				require.Nil(t, err)
				require.Len(t, links, 2)
				assert.Equal(t, "code03", links[0].ShortCode)
				assert.Equal(t, "code01", links[1].ShortCode)
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.scenario, testCase.fn)
	}
}
