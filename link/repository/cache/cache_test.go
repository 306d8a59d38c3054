package cache

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/superj80820/url-shortener/domain"
)

func TestLinkEntryCodec(t *testing.T) {
	expiresAt := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	testCases := []struct {
		scenario string
		fn       func(t *testing.T)
	}{
		{
			scenario: "test encode entry with expiry",
			fn: func(t *testing.T) {
				data, err := EncodeLinkEntry(&domain.LinkCacheEntry{ID: 7, URL: "https://example.com", ExpiresAt: &expiresAt})
				assert.Nil(t, err)
				assert.JSONEq(t, `{"v":1,"id":7,"url":"https://example.com","expires_at":"2030-01-02T03:04:05Z"}`, string(data))

				entry, err := DecodeLinkEntry(data)
				assert.Nil(t, err)
				assert.Equal(t, int64(7), entry.ID)
				assert.True(t, expiresAt.Equal(*entry.ExpiresAt))
			},
		},
		{
			scenario: "test encode entry without expiry",
			fn: func(t *testing.T) {
				data, err := EncodeLinkEntry(&domain.LinkCacheEntry{ID: 7, URL: "https://example.com"})
				assert.Nil(t, err)
				assert.JSONEq(t, `{"v":1,"id":7,"url":"https://example.com","expires_at":null}`, string(data))
			},
		},
		{
			scenario: "test decode entry with unknown version",
			fn: func(t *testing.T) {
				_, err := DecodeLinkEntry([]byte(`{"id":7,"url":"https://example.com","expires_at":null}`))
				assert.True(t, errors.Is(err, ErrUnknownVersion))
				_, err = DecodeLinkEntry([]byte(`{"v":2,"id":7}`))
				assert.True(t, errors.Is(err, ErrUnknownVersion))
			},
		},
		{
			scenario: "test decode broken entry",
			fn: func(t *testing.T) {
				_, err := DecodeLinkEntry([]byte(`not json`))
				assert.NotNil(t, err)
			},
		},
		{
			scenario: "test keys",
			fn: func(t *testing.T) {
				assert.Equal(t, "link:abc123", LinkKey("abc123"))
				assert.Equal(t, "stats:user_42", StatsKey(42))
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.scenario, testCase.fn)
	}
}
