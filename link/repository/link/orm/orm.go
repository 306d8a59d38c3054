package orm

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/superj80820/url-shortener/domain"
	ormKit "github.com/superj80820/url-shortener/kit/orm"
)

type linkEntity struct {
	ID          int64      `gorm:"primaryKey;autoIncrement"`
	ShortCode   string     `gorm:"size:10;not null;uniqueIndex:idx_links_short_code"`
	OriginalURL string     `gorm:"type:text;not null"`
	OwnerID     int64      `gorm:"not null;index:idx_links_owner_id"`
	IsCustom    bool       `gorm:"not null;default:false"`
	ExpiresAt   *time.Time `gorm:""`
	CreatedAt   time.Time  `gorm:"not null"`
	UpdatedAt   time.Time  `gorm:"not null"`
}

func (linkEntity) TableName() string {
	return "links"
}

func (l *linkEntity) toDomain() *domain.Link {
	link := &domain.Link{
		ID:          l.ID,
		ShortCode:   l.ShortCode,
		OriginalURL: l.OriginalURL,
		OwnerID:     l.OwnerID,
		IsCustom:    l.IsCustom,
		CreatedAt:   l.CreatedAt.UTC(),
		UpdatedAt:   l.UpdatedAt.UTC(),
	}
	if l.ExpiresAt != nil {
		expiresAt := l.ExpiresAt.UTC()
		link.ExpiresAt = &expiresAt
	}
	return link
}

type linkRepo struct {
	db *ormKit.DB
}

func CreateLinkRepo(db *ormKit.DB) domain.LinkRepo {
	return &linkRepo{
		db: db,
	}
}

// Migrate creates the links table. Run it before the clicks migration, clicks reference links.
func Migrate(db *ormKit.DB) error {
	if err := db.AutoMigrate(&linkEntity{}); err != nil {
		return errors.Wrap(err, "migrate links failed")
	}
	return nil
}

func (l *linkRepo) Create(ctx context.Context, link *domain.Link) (*domain.Link, error) {
	entity := linkEntity{
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		OwnerID:     link.OwnerID,
		IsCustom:    link.IsCustom,
		ExpiresAt:   link.ExpiresAt,
	}
	if err := l.db.WithContext(ctx).Create(&entity).Error; ormKit.IsDuplicatedKeyErr(err) {
		return nil, errors.Wrapf(domain.ErrDuplicate, "short code %s", link.ShortCode)
	} else if err != nil {
		return nil, errors.Wrap(err, "create link failed")
	}
	return entity.toDomain(), nil
}

func (l *linkRepo) Get(ctx context.Context, linkID int64) (*domain.Link, error) {
	var entity linkEntity
	if err := l.db.WithContext(ctx).First(&entity, linkID).Error; errors.Is(err, ormKit.ErrRecordNotFound) {
		return nil, errors.Wrapf(domain.ErrNoData, "link %d", linkID)
	} else if err != nil {
		return nil, errors.Wrap(err, "get link failed")
	}
	return entity.toDomain(), nil
}

func (l *linkRepo) GetByShortCode(ctx context.Context, shortCode string) (*domain.Link, error) {
	var entity linkEntity
	if err := l.db.WithContext(ctx).Where("short_code = ?", shortCode).First(&entity).Error; errors.Is(err, ormKit.ErrRecordNotFound) {
		return nil, errors.Wrapf(domain.ErrNoData, "short code %s", shortCode)
	} else if err != nil {
		return nil, errors.Wrap(err, "get link by short code failed")
	}
	return entity.toDomain(), nil
}

func (l *linkRepo) ExistsShortCode(ctx context.Context, shortCode string) (bool, error) {
	var count int64
	if err := l.db.WithContext(ctx).Model(&linkEntity{}).Where("short_code = ?", shortCode).Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "count short code failed")
	}
	return count > 0, nil
}

func (l *linkRepo) GetByOwner(ctx context.Context, ownerID int64) ([]*domain.Link, error) {
	var entities []*linkEntity
	if err := l.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at DESC, id DESC").Find(&entities).Error; err != nil {
		return nil, errors.Wrap(err, "get links by owner failed")
	}
	links := make([]*domain.Link, len(entities))
	for idx, entity := range entities {
		links[idx] = entity.toDomain()
	}
	return links, nil
}

func (l *linkRepo) Update(ctx context.Context, linkID int64, update *domain.LinkUpdate, updatedAt time.Time) (*domain.Link, error) {
	values := map[string]interface{}{
		"updated_at": updatedAt,
	}
	if update.OriginalURL != nil {
		values["original_url"] = *update.OriginalURL
	}
	if update.ClearExpiresAt {
		values["expires_at"] = nil
	} else if update.ExpiresAt != nil {
		values["expires_at"] = *update.ExpiresAt
	}

	result := l.db.WithContext(ctx).Model(&linkEntity{}).Where("id = ?", linkID).Updates(values)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "update link failed")
	}
	if result.RowsAffected == 0 {
		return nil, errors.Wrapf(domain.ErrNoData, "link %d", linkID)
	}
	return l.Get(ctx, linkID)
}

// Delete removes the clicks of the link and the link in one transaction.
func (l *linkRepo) Delete(ctx context.Context, linkID int64) error {
	return l.db.WithContext(ctx).Transaction(func(tx *ormKit.TX) error {
		if err := tx.Exec("DELETE FROM clicks WHERE link_id = ?", linkID).Error; err != nil {
			return errors.Wrap(err, "delete clicks failed")
		}
		result := tx.Delete(&linkEntity{}, linkID)
		if result.Error != nil {
			return errors.Wrap(result.Error, "delete link failed")
		}
		if result.RowsAffected == 0 {
			return errors.Wrapf(domain.ErrNoData, "link %d", linkID)
		}
		return nil
	})
}
