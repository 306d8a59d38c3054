package background

import (
	"context"

	"github.com/pkg/errors"
	"github.com/superj80820/url-shortener/domain"
)

const ClickWriterKey = "global-click-writer"

// RunAsyncClickRecorder persists queued clicks until the queue stops or ctx is done.
func RunAsyncClickRecorder(ctx context.Context, clickUseCase domain.ClickUseCase) error {
	clickUseCase.ConsumeClicks(context.WithoutCancel(ctx), ClickWriterKey)

	select {
	case <-clickUseCase.Done():
		return errors.Wrap(clickUseCase.Err(), "click use case get error")
	case <-ctx.Done():
		return nil
	}
}
