package background

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/superj80820/url-shortener/domain"
	loggerKit "github.com/superj80820/url-shortener/kit/logger"
	memoryMQKit "github.com/superj80820/url-shortener/kit/mq/memory"
	clickMQRepo "github.com/superj80820/url-shortener/link/repository/click/mq"
	memoryRepo "github.com/superj80820/url-shortener/link/repository/memory"
	clickUseCase "github.com/superj80820/url-shortener/link/usecase/click"
)

func TestRunAsyncClickRecorder(t *testing.T) {
	testCases := []struct {
		scenario string
		fn       func(t *testing.T)
	}{
		{
			scenario: "test stores clicks and stops when queue shuts down",
			fn: func(t *testing.T) {
				ctx := context.Background()
				store := memoryRepo.CreateStore(time.Now)
				topic := memoryMQKit.CreateMemoryMQ(ctx, 100, 5*time.Millisecond)
				clicks, err := clickUseCase.CreateClickUseCase(store, store, clickMQRepo.CreateClickQueueRepo(topic), time.Now, loggerKit.NewNoopLogger())
				require.Nil(t, err)
				link, err := store.Create(ctx, &domain.Link{ShortCode: "abc", OriginalURL: "https://example.com", OwnerID: 1})
				require.Nil(t, err)

				errCh := make(chan error)
				go func() { errCh <- RunAsyncClickRecorder(ctx, clicks) }()

				storedCount := func() int {
					stored, err := store.GetClicksByLink(ctx, link.ID)
					require.Nil(t, err)
					return len(stored)
				}
				require.Eventually(t, func() bool {
					require.Nil(t, clicks.Record(ctx, link.ID, nil))
					return storedCount() > 0
				}, time.Second, 20*time.Millisecond)
				require.Nil(t, clicks.Record(ctx, link.ID, nil))
				topic.Shutdown()

				select {
				case err := <-errCh:
					assert.Nil(t, err)
				case <-time.After(time.Second):
					assert.Fail(t, "runner did not stop")
				}
				assert.GreaterOrEqual(t, storedCount(), 2)
			},
		},
		{
			scenario: "test stops when context is canceled",
			fn: func(t *testing.T) {
				store := memoryRepo.CreateStore(time.Now)
				topic := memoryMQKit.CreateMemoryMQ(context.Background(), 100, time.Hour)
				defer topic.Shutdown()
				clicks, err := clickUseCase.CreateClickUseCase(store, store, clickMQRepo.CreateClickQueueRepo(topic), time.Now, loggerKit.NewNoopLogger())
				require.Nil(t, err)

				ctx, cancel := context.WithCancel(context.Background())
				errCh := make(chan error)
				go func() { errCh <- RunAsyncClickRecorder(ctx, clicks) }()
				cancel()

				select {
				case err := <-errCh:
					assert.Nil(t, err)
				case <-time.After(time.Second):
					assert.Fail(t, "runner did not stop")
				}
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.scenario, testCase.fn)
	}
}
