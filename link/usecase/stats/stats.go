package stats

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/superj80820/url-shortener/domain"
	loggerKit "github.com/superj80820/url-shortener/kit/logger"
)

const defaultFreshness = 300 * time.Second

type statsUseCase struct {
	clickRepo      domain.ClickRepo
	statsCacheRepo domain.StatsCacheRepo
	clock          domain.Clock
	logger         *loggerKit.Logger

	freshness time.Duration
}

type Option func(*statsUseCase)

func SetFreshness(freshness time.Duration) Option {
	return func(s *statsUseCase) {
		if freshness > 0 {
			s.freshness = freshness
		}
	}
}

func CreateStatsUseCase(
	clickRepo domain.ClickRepo,
	statsCacheRepo domain.StatsCacheRepo,
	clock domain.Clock,
	logger *loggerKit.Logger,
	options ...Option,
) (domain.StatsUseCase, error) {
	if clickRepo == nil || statsCacheRepo == nil || clock == nil || logger == nil {
		return nil, errors.New("create stats use case failed")
	}
	s := &statsUseCase{
		clickRepo:      clickRepo,
		statsCacheRepo: statsCacheRepo,
		clock:          clock,
		logger:         logger,
		freshness:      defaultFreshness,
	}
	for _, option := range options {
		option(s)
	}
	return s, nil
}

// GetStats serves the cached stats while they are fresh. Day boundaries are UTC midnights.
func (s *statsUseCase) GetStats(ctx context.Context, ownerID int64) (*domain.ClickStats, error) {
	cached, err := s.statsCacheRepo.GetStats(ctx, ownerID)
	if err == nil {
		var stats domain.ClickStats
		if err := json.Unmarshal(cached, &stats); err == nil {
			return &stats, nil
		}
		s.logger.Warn("undecodable stats cache, recompute", loggerKit.Int64("owner_id", ownerID))
	} else if !errors.Is(err, domain.ErrCacheMiss) {
		s.logger.Warn("get stats cache failed, recompute", loggerKit.Int64("owner_id", ownerID), loggerKit.Error(err))
	}

	stats, err := s.compute(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	marshalStats, err := json.Marshal(stats)
	if err != nil {
		return nil, errors.Wrap(err, "marshal stats failed")
	}
	if err := s.statsCacheRepo.SetStats(ctx, ownerID, marshalStats, s.freshness); err != nil {
		s.logger.Warn("set stats cache failed", loggerKit.Int64("owner_id", ownerID), loggerKit.Error(err))
	}

	return stats, nil
}

func (s *statsUseCase) compute(ctx context.Context, ownerID int64) (*domain.ClickStats, error) {
	now := s.clock().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := today.AddDate(0, 0, -7)
	monthStart := today.AddDate(0, 0, -30)

	var (
		stats domain.ClickStats
		err   error
	)
	if stats.TotalClicks, err = s.clickRepo.CountClicksByOwner(ctx, ownerID, nil); err != nil {
		return nil, errors.Wrap(err, "count total clicks failed")
	}
	if stats.ClicksToday, err = s.clickRepo.CountClicksByOwner(ctx, ownerID, &today); err != nil {
		return nil, errors.Wrap(err, "count today clicks failed")
	}
	if stats.ClicksThisWeek, err = s.clickRepo.CountClicksByOwner(ctx, ownerID, &weekStart); err != nil {
		return nil, errors.Wrap(err, "count week clicks failed")
	}
	if stats.ClicksThisMonth, err = s.clickRepo.CountClicksByOwner(ctx, ownerID, &monthStart); err != nil {
		return nil, errors.Wrap(err, "count month clicks failed")
	}
	if stats.TopReferrers, err = s.clickRepo.GetTopReferrersByOwner(ctx, ownerID, domain.TopReferrersLimit); err != nil {
		return nil, errors.Wrap(err, "get top referrers failed")
	}
	if stats.TopReferrers == nil {
		stats.TopReferrers = make([]*domain.ReferrerCount, 0)
	}
	return &stats, nil
}
