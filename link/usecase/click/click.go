package click

import (
	"context"

	"github.com/pkg/errors"
	"github.com/superj80820/url-shortener/domain"
	loggerKit "github.com/superj80820/url-shortener/kit/logger"
)

type clickUseCase struct {
	linkRepo       domain.LinkRepo
	clickRepo      domain.ClickRepo
	clickQueueRepo domain.ClickQueueRepo
	clock          domain.Clock
	logger         *loggerKit.Logger
}

func CreateClickUseCase(
	linkRepo domain.LinkRepo,
	clickRepo domain.ClickRepo,
	clickQueueRepo domain.ClickQueueRepo,
	clock domain.Clock,
	logger *loggerKit.Logger,
) (domain.ClickUseCase, error) {
	if linkRepo == nil || clickRepo == nil || clickQueueRepo == nil || clock == nil || logger == nil {
		return nil, errors.New("create click use case failed")
	}
	return &clickUseCase{
		linkRepo:       linkRepo,
		clickRepo:      clickRepo,
		clickQueueRepo: clickQueueRepo,
		clock:          clock,
		logger:         logger,
	}, nil
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// Record hands the click to the queue and returns without waiting for it to be stored.
func (c *clickUseCase) Record(ctx context.Context, linkID int64, metadata *domain.ClickMetadata) error {
	click := &domain.Click{
		LinkID:    linkID,
		ClickedAt: c.clock().UTC(),
	}
	if metadata != nil {
		click.Referrer = optionalString(metadata.Referrer)
		click.UserAgent = optionalString(metadata.UserAgent)
		click.IPAddress = optionalString(metadata.IPAddress)
	}
	if err := c.clickQueueRepo.Produce(ctx, click); err != nil {
		return errors.Wrap(err, "produce click failed")
	}
	return nil
}

// ConsumeClicks persists queued clicks until the queue is done. A failed batch is retried
// row by row so one bad click, for example of a deleted link, does not drop the others.
// Rows that still fail are logged and dropped.
func (c *clickUseCase) ConsumeClicks(ctx context.Context, key string) {
	c.clickQueueRepo.Consume(key, func(clicks []*domain.Click) error {
		err := c.clickRepo.CreateClicks(ctx, clicks)
		if err == nil {
			return nil
		}
		c.logger.Warn("store click batch failed, store one by one", loggerKit.Int("size", len(clicks)), loggerKit.Error(err))
		for _, click := range clicks {
			if err := c.clickRepo.CreateClicks(ctx, []*domain.Click{click}); err != nil {
				c.logger.Error("store click failed, drop it", loggerKit.Int64("link_id", click.LinkID), loggerKit.Error(err))
			}
		}
		return nil
	}, func(err error) {
		c.logger.Error("consume click failed", loggerKit.Error(err))
	})
}

func (c *clickUseCase) GetClicks(ctx context.Context, linkID, ownerID int64) ([]*domain.Click, error) {
	link, err := c.linkRepo.Get(ctx, linkID)
	if err != nil {
		return nil, errors.Wrap(err, "get link failed")
	}
	if link.OwnerID != ownerID {
		return nil, errors.Wrapf(domain.ErrForbidden, "link %d", linkID)
	}
	clicks, err := c.clickRepo.GetClicksByLink(ctx, linkID)
	if err != nil {
		return nil, errors.Wrap(err, "get clicks failed")
	}
	return clicks, nil
}

func (c *clickUseCase) Done() <-chan struct{} {
	return c.clickQueueRepo.Done()
}

func (c *clickUseCase) Err() error {
	return c.clickQueueRepo.Err()
}
