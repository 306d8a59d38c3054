package memory

import (
	"testing"
	"time"

	"github.com/superj80820/url-shortener/link/repository/repotest"
)

func TestStore(t *testing.T) {
	clock := func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) }

	t.Run("link repo", func(t *testing.T) {
		repotest.RunLinkRepoTests(t, CreateStore(clock))
	})
	t.Run("click repo", func(t *testing.T) {
		store := CreateStore(clock)
		repotest.RunClickRepoTests(t, store, store)
	})
}
