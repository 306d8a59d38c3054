package domain

import (
	"context"
	"time"
)

const TopReferrersLimit = 5

type Click struct {
	ID        int64     `json:"id"`
	LinkID    int64     `json:"link_id"`
	ClickedAt time.Time `json:"clicked_at"`
	Referrer  *string   `json:"referrer"`
	UserAgent *string   `json:"user_agent"`
	IPAddress *string   `json:"ip_address"`
}

type ClickMetadata struct {
	Referrer  string
	UserAgent string
	IPAddress string
}

type ReferrerCount struct {
	Referrer string `json:"referrer"`
	Count    int64  `json:"count"`
}

type ClickStats struct {
	TotalClicks     int64            `json:"total_clicks"`
	ClicksToday     int64            `json:"clicks_today"`
	ClicksThisWeek  int64            `json:"clicks_this_week"`
	ClicksThisMonth int64            `json:"clicks_this_month"`
	TopReferrers    []*ReferrerCount `json:"top_referrers"`
}

type ClickRepo interface {
	CreateClicks(ctx context.Context, clicks []*Click) error
	GetClicksByLink(ctx context.Context, linkID int64) ([]*Click, error)
	CountClicksByOwner(ctx context.Context, ownerID int64, since *time.Time) (int64, error)
	GetTopReferrersByOwner(ctx context.Context, ownerID int64, limit int) ([]*ReferrerCount, error)
}

type ClickQueueRepo interface {
	Produce(ctx context.Context, click *Click) error
	Consume(key string, notify func(clicks []*Click) error, errorHandler func(error))
	StopConsume(key string)
	Done() <-chan struct{}
	Err() error
}

type StatsCacheRepo interface {
	GetStats(ctx context.Context, ownerID int64) ([]byte, error)
	SetStats(ctx context.Context, ownerID int64, stats []byte, ttl time.Duration) error
}

type ClickUseCase interface {
	Record(ctx context.Context, linkID int64, metadata *ClickMetadata) error
	ConsumeClicks(ctx context.Context, key string)
	GetClicks(ctx context.Context, linkID, ownerID int64) ([]*Click, error)
	Done() <-chan struct{}
	Err() error
}

type StatsUseCase interface {
	GetStats(ctx context.Context, ownerID int64) (*ClickStats, error)
}
