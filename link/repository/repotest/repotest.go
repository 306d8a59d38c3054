// Package repotest holds behaviour checks shared by every link and click store.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/superj80820/url-shortener/domain"
)

func strPtr(s string) *string {
	return &s
}

func RunLinkRepoTests(t *testing.T, linkRepo domain.LinkRepo) {
	ctx := context.Background()
	expiresAt := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		scenario string
		fn       func(t *testing.T)
	}{
		{
			scenario: "test create and get link",
			fn: func(t *testing.T) {
				link, err := linkRepo.Create(ctx, &domain.Link{
					ShortCode:   "repoA1",
					OriginalURL: "https://example.com/a",
					OwnerID:     100,
					IsCustom:    true,
					ExpiresAt:   &expiresAt,
				})
				require.Nil(t, err)
				assert.NotZero(t, link.ID)
				assert.False(t, link.CreatedAt.IsZero())

				got, err := linkRepo.Get(ctx, link.ID)
				assert.Nil(t, err)
				assert.Equal(t, "repoA1", got.ShortCode)
				assert.Equal(t, "https://example.com/a", got.OriginalURL)
				assert.Equal(t, int64(100), got.OwnerID)
				assert.True(t, got.IsCustom)
				assert.True(t, expiresAt.Equal(*got.ExpiresAt))

				got, err = linkRepo.GetByShortCode(ctx, "repoA1")
				assert.Nil(t, err)
				assert.Equal(t, link.ID, got.ID)

				exists, err := linkRepo.ExistsShortCode(ctx, "repoA1")
				assert.Nil(t, err)
				assert.True(t, exists)
			},
		},
		{
			scenario: "test duplicated short code",
			fn: func(t *testing.T) {
				_, err := linkRepo.Create(ctx, &domain.Link{ShortCode: "repoB1", OriginalURL: "https://example.com/b", OwnerID: 100})
				require.Nil(t, err)
				_, err = linkRepo.Create(ctx, &domain.Link{ShortCode: "repoB1", OriginalURL: "https://example.com/other", OwnerID: 101})
				assert.True(t, errors.Is(err, domain.ErrDuplicate))

				link, err := linkRepo.GetByShortCode(ctx, "repoB1")
				assert.Nil(t, err)
				assert.Equal(t, "https://example.com/b", link.OriginalURL)
			},
		},
		{
			scenario: "test missing link",
			fn: func(t *testing.T) {
				_, err := linkRepo.Get(ctx, 987654321)
				assert.True(t, errors.Is(err, domain.ErrNoData))
				_, err = linkRepo.GetByShortCode(ctx, "missing")
				assert.True(t, errors.Is(err, domain.ErrNoData))
				exists, err := linkRepo.ExistsShortCode(ctx, "missing")
				assert.Nil(t, err)
				assert.False(t, exists)
				_, err = linkRepo.Update(ctx, 987654321, &domain.LinkUpdate{OriginalURL: strPtr("https://example.com")}, time.Now())
				assert.True(t, errors.Is(err, domain.ErrNoData))
				assert.True(t, errors.Is(linkRepo.Delete(ctx, 987654321), domain.ErrNoData))
			},
		},
		{
			scenario: "test get by owner newest first",
			fn: func(t *testing.T) {
				var ids []int64
				for _, shortCode := range []string{"repoC1", "repoC2", "repoC3"} {
					link, err := linkRepo.Create(ctx, &domain.Link{ShortCode: shortCode, OriginalURL: "https://example.com/c", OwnerID: 200})
					require.Nil(t, err)
					ids = append(ids, link.ID)
				}
				links, err := linkRepo.GetByOwner(ctx, 200)
				assert.Nil(t, err)
				require.Len(t, links, 3)
				assert.Equal(t, ids[2], links[0].ID)
				assert.Equal(t, ids[1], links[1].ID)
				assert.Equal(t, ids[0], links[2].ID)

				links, err = linkRepo.GetByOwner(ctx, 999)
				assert.Nil(t, err)
				assert.Len(t, links, 0)
			},
		},
		{
			scenario: "test update url and expiry",
			fn: func(t *testing.T) {
				link, err := linkRepo.Create(ctx, &domain.Link{ShortCode: "repoD1", OriginalURL: "https://example.com/d", OwnerID: 300})
				require.Nil(t, err)

				updatedAt := time.Now().UTC().Add(time.Minute).Truncate(time.Second)
				updated, err := linkRepo.Update(ctx, link.ID, &domain.LinkUpdate{
					OriginalURL: strPtr("https://example.com/d2"),
					ExpiresAt:   &expiresAt,
				}, updatedAt)
				assert.Nil(t, err)
				assert.Equal(t, "https://example.com/d2", updated.OriginalURL)
				assert.True(t, expiresAt.Equal(*updated.ExpiresAt))
				assert.True(t, updatedAt.Equal(updated.UpdatedAt))
				assert.Equal(t, "repoD1", updated.ShortCode)

				updated, err = linkRepo.Update(ctx, link.ID, &domain.LinkUpdate{ClearExpiresAt: true}, updatedAt)
				assert.Nil(t, err)
				assert.Nil(t, updated.ExpiresAt)
				assert.Equal(t, "https://example.com/d2", updated.OriginalURL)
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.scenario, testCase.fn)
	}
}

func RunClickRepoTests(t *testing.T, linkRepo domain.LinkRepo, clickRepo domain.ClickRepo) {
	ctx := context.Background()
	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		scenario string
		fn       func(t *testing.T)
	}{
		{
			scenario: "test create clicks and list newest first",
			fn: func(t *testing.T) {
				link, err := linkRepo.Create(ctx, &domain.Link{ShortCode: "clickA1", OriginalURL: "https://example.com", OwnerID: 500})
				require.Nil(t, err)

				require.Nil(t, clickRepo.CreateClicks(ctx, []*domain.Click{
					{LinkID: link.ID, ClickedAt: base, Referrer: strPtr("https://a.com")},
					{LinkID: link.ID, ClickedAt: base.Add(2 * time.Hour), UserAgent: strPtr("curl/8.0"), IPAddress: strPtr("10.0.0.1")},
					{LinkID: link.ID, ClickedAt: base.Add(time.Hour)},
				}))

				clicks, err := clickRepo.GetClicksByLink(ctx, link.ID)
				assert.Nil(t, err)
				require.Len(t, clicks, 3)
				assert.True(t, base.Add(2*time.Hour).Equal(clicks[0].ClickedAt))
				assert.True(t, base.Add(time.Hour).Equal(clicks[1].ClickedAt))
				assert.True(t, base.Equal(clicks[2].ClickedAt))
				assert.Equal(t, "curl/8.0", *clicks[0].UserAgent)
				assert.Equal(t, "10.0.0.1", *clicks[0].IPAddress)
				assert.Nil(t, clicks[0].Referrer)
				assert.Equal(t, "https://a.com", *clicks[2].Referrer)
				for _, click := range clicks {
					assert.NotZero(t, click.ID)
					assert.Equal(t, link.ID, click.LinkID)
				}
			},
		},
		{
			scenario: "test click for missing link is rejected",
			fn: func(t *testing.T) {
				assert.NotNil(t, clickRepo.CreateClicks(ctx, []*domain.Click{{LinkID: 987654321, ClickedAt: base}}))
			},
		},
		{
			scenario: "test count and top referrers by owner",
			fn: func(t *testing.T) {
				first, err := linkRepo.Create(ctx, &domain.Link{ShortCode: "clickB1", OriginalURL: "https://example.com", OwnerID: 600})
				require.Nil(t, err)
				second, err := linkRepo.Create(ctx, &domain.Link{ShortCode: "clickB2", OriginalURL: "https://example.com", OwnerID: 600})
				require.Nil(t, err)
				other, err := linkRepo.Create(ctx, &domain.Link{ShortCode: "clickB3", OriginalURL: "https://example.com", OwnerID: 601})
				require.Nil(t, err)

				var clicks []*domain.Click
				addClicks := func(linkID int64, referrer *string, clickedAt time.Time, count int) {
					for i := 0; i < count; i++ {
						clicks = append(clicks, &domain.Click{LinkID: linkID, ClickedAt: clickedAt, Referrer: referrer})
					}
				}
				addClicks(first.ID, strPtr("https://g.com"), base, 3)
				addClicks(second.ID, strPtr("https://b.com"), base, 2)
				addClicks(first.ID, strPtr("https://a.com"), base.AddDate(0, 0, -10), 2)
				addClicks(second.ID, strPtr("https://c.com"), base.AddDate(0, 0, -40), 2)
				addClicks(first.ID, strPtr("https://d.com"), base, 1)
				addClicks(first.ID, strPtr("https://e.com"), base, 1)
				addClicks(first.ID, nil, base, 4)
				addClicks(other.ID, strPtr("https://z.com"), base, 9)
				require.Nil(t, clickRepo.CreateClicks(ctx, clicks))

				total, err := clickRepo.CountClicksByOwner(ctx, 600, nil)
				assert.Nil(t, err)
				assert.Equal(t, int64(15), total)

				since := base.AddDate(0, 0, -7)
				week, err := clickRepo.CountClicksByOwner(ctx, 600, &since)
				assert.Nil(t, err)
				assert.Equal(t, int64(11), week)

				since = base.AddDate(0, 0, -30)
				month, err := clickRepo.CountClicksByOwner(ctx, 600, &since)
				assert.Nil(t, err)
				assert.Equal(t, int64(13), month)

				since = base
				today, err := clickRepo.CountClicksByOwner(ctx, 600, &since)
				assert.Nil(t, err)
				assert.Equal(t, int64(11), today)

				referrers, err := clickRepo.GetTopReferrersByOwner(ctx, 600, domain.TopReferrersLimit)
				assert.Nil(t, err)
				assert.Equal(t, []*domain.ReferrerCount{
					{Referrer: "https://g.com", Count: 3},
					{Referrer: "https://a.com", Count: 2},
					{Referrer: "https://b.com", Count: 2},
					{Referrer: "https://c.com", Count: 2},
					{Referrer: "https://d.com", Count: 1},
				}, referrers)

				referrers, err = clickRepo.GetTopReferrersByOwner(ctx, 602, domain.TopReferrersLimit)
				assert.Nil(t, err)
				assert.Len(t, referrers, 0)
			},
		},
		{
			scenario: "test delete link cascades clicks",
			fn: func(t *testing.T) {
				link, err := linkRepo.Create(ctx, &domain.Link{ShortCode: "clickC1", OriginalURL: "https://example.com", OwnerID: 700})
				require.Nil(t, err)
				require.Nil(t, clickRepo.CreateClicks(ctx, []*domain.Click{
					{LinkID: link.ID, ClickedAt: base},
					{LinkID: link.ID, ClickedAt: base},
				}))

				assert.Nil(t, linkRepo.Delete(ctx, link.ID))

				clicks, err := clickRepo.GetClicksByLink(ctx, link.ID)
				assert.Nil(t, err)
				assert.Len(t, clicks, 0)
				total, err := clickRepo.CountClicksByOwner(ctx, 700, nil)
				assert.Nil(t, err)
				assert.Equal(t, int64(0), total)
				_, err = linkRepo.GetByShortCode(ctx, "clickC1")
				assert.True(t, errors.Is(err, domain.ErrNoData))
			},
		},
		{
			scenario: "test click flushed after link delete is rejected",
			fn: func(t *testing.T) {
				link, err := linkRepo.Create(ctx, &domain.Link{ShortCode: "clickD1", OriginalURL: "https://example.com", OwnerID: 800})
				require.Nil(t, err)
				require.Nil(t, linkRepo.Delete(ctx, link.ID))

				assert.NotNil(t, clickRepo.CreateClicks(ctx, []*domain.Click{{LinkID: link.ID, ClickedAt: base}}))

				clicks, err := clickRepo.GetClicksByLink(ctx, link.ID)
				assert.Nil(t, err)
				assert.Len(t, clicks, 0)
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.scenario, testCase.fn)
	}
}
