package orm

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/superj80820/url-shortener/domain"
	ormKit "github.com/superj80820/url-shortener/kit/orm"
)

type linkReference struct {
	ID int64 `gorm:"primaryKey"`
}

func (linkReference) TableName() string {
	return "links"
}

type clickEntity struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	LinkID    int64     `gorm:"not null;index:idx_clicks_link_id"`
	ClickedAt time.Time `gorm:"not null;index:idx_clicks_clicked_at"`
	Referrer  *string   `gorm:"type:text"`
	UserAgent *string   `gorm:"type:text"`
	IPAddress *string   `gorm:"size:64"`

	Link *linkReference `gorm:"foreignKey:LinkID;constraint:OnDelete:CASCADE"`
}

func (clickEntity) TableName() string {
	return "clicks"
}

func (c *clickEntity) toDomain() *domain.Click {
	return &domain.Click{
		ID:        c.ID,
		LinkID:    c.LinkID,
		ClickedAt: c.ClickedAt.UTC(),
		Referrer:  c.Referrer,
		UserAgent: c.UserAgent,
		IPAddress: c.IPAddress,
	}
}

type clickRepo struct {
	db *ormKit.DB
}

func CreateClickRepo(db *ormKit.DB) domain.ClickRepo {
	return &clickRepo{
		db: db,
	}
}

// Migrate creates the clicks table with a cascading foreign key to links.
func Migrate(db *ormKit.DB) error {
	if err := db.AutoMigrate(&clickEntity{}); err != nil {
		return errors.Wrap(err, "migrate clicks failed")
	}
	return nil
}

func (c *clickRepo) CreateClicks(ctx context.Context, clicks []*domain.Click) error {
	if len(clicks) == 0 {
		return nil
	}
	entities := make([]*clickEntity, len(clicks))
	for idx, click := range clicks {
		entities[idx] = &clickEntity{
			LinkID:    click.LinkID,
			ClickedAt: click.ClickedAt,
			Referrer:  click.Referrer,
			UserAgent: click.UserAgent,
			IPAddress: click.IPAddress,
		}
	}
	if err := c.db.WithContext(ctx).Omit("Link").Create(&entities).Error; err != nil {
		return errors.Wrap(err, "create clicks failed")
	}
	for idx, entity := range entities {
		clicks[idx].ID = entity.ID
	}
	return nil
}

func (c *clickRepo) GetClicksByLink(ctx context.Context, linkID int64) ([]*domain.Click, error) {
	var entities []*clickEntity
	if err := c.db.WithContext(ctx).Where("link_id = ?", linkID).Order("clicked_at DESC, id DESC").Find(&entities).Error; err != nil {
		return nil, errors.Wrap(err, "get clicks failed")
	}
	clicks := make([]*domain.Click, len(entities))
	for idx, entity := range entities {
		clicks[idx] = entity.toDomain()
	}
	return clicks, nil
}

func (c *clickRepo) ownerClicks(ctx context.Context, ownerID int64) *ormKit.TX {
	return c.db.WithContext(ctx).
		Table("clicks").
		Joins("JOIN links ON links.id = clicks.link_id").
		Where("links.owner_id = ?", ownerID)
}

func (c *clickRepo) CountClicksByOwner(ctx context.Context, ownerID int64, since *time.Time) (int64, error) {
	query := c.ownerClicks(ctx, ownerID)
	if since != nil {
		query = query.Where("clicks.clicked_at >= ?", *since)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "count clicks failed")
	}
	return count, nil
}

type referrerCountRow struct {
	Referrer   string
	ClickCount int64
}

func (c *clickRepo) GetTopReferrersByOwner(ctx context.Context, ownerID int64, limit int) ([]*domain.ReferrerCount, error) {
	var rows []*referrerCountRow
	if err := c.ownerClicks(ctx, ownerID).
		Select("clicks.referrer AS referrer, COUNT(*) AS click_count").
		Where("clicks.referrer IS NOT NULL").
		Group("clicks.referrer").
		Order("click_count DESC, referrer ASC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "get top referrers failed")
	}
	referrers := make([]*domain.ReferrerCount, len(rows))
	for idx, row := range rows {
		referrers[idx] = &domain.ReferrerCount{Referrer: row.Referrer, Count: row.ClickCount}
	}
	return referrers, nil
}
