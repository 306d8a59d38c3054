package domain

import (
	"context"
	"time"
)

const (
	ShortCodeMinLength = 3
	ShortCodeMaxLength = 10
)

type Link struct {
	ID          int64      `json:"id"`
	ShortCode   string     `json:"short_code"`
	OriginalURL string     `json:"original_url"`
	OwnerID     int64      `json:"owner_id"`
	IsCustom    bool       `json:"is_custom"`
	ExpiresAt   *time.Time `json:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

func (l *Link) CacheEntry() *LinkCacheEntry {
	return &LinkCacheEntry{
		ID:        l.ID,
		URL:       l.OriginalURL,
		ExpiresAt: l.ExpiresAt,
	}
}

// LinkCacheEntry is the projection of a link kept in the resolution cache.
type LinkCacheEntry struct {
	ID        int64
	URL       string
	ExpiresAt *time.Time
}

func (l *LinkCacheEntry) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

type LinkCreate struct {
	OriginalURL string
	CustomCode  string
	ExpiresAt   *time.Time
}

// LinkUpdate holds the owner editable fields. ClearExpiresAt removes the expiry.
type LinkUpdate struct {
	OriginalURL    *string
	ExpiresAt      *time.Time
	ClearExpiresAt bool
}

func (l *LinkUpdate) IsEmpty() bool {
	return l.OriginalURL == nil && l.ExpiresAt == nil && !l.ClearExpiresAt
}

type LinkRepo interface {
	Create(ctx context.Context, link *Link) (*Link, error)
	Get(ctx context.Context, linkID int64) (*Link, error)
	GetByShortCode(ctx context.Context, shortCode string) (*Link, error)
	ExistsShortCode(ctx context.Context, shortCode string) (bool, error)
	GetByOwner(ctx context.Context, ownerID int64) ([]*Link, error)
	Update(ctx context.Context, linkID int64, update *LinkUpdate, updatedAt time.Time) (*Link, error)
	Delete(ctx context.Context, linkID int64) error
}

type LinkCacheRepo interface {
	GetLink(ctx context.Context, shortCode string) (*LinkCacheEntry, error)
	SetLink(ctx context.Context, shortCode string, entry *LinkCacheEntry) error
	DeleteLink(ctx context.Context, shortCode string) error
}

type CodeGenerator interface {
	Generate(length int) (string, error)
	ValidateCustom(code string) error
}

type LinkUseCase interface {
	Create(ctx context.Context, ownerID int64, linkCreate *LinkCreate) (*Link, error)
	Update(ctx context.Context, linkID, ownerID int64, update *LinkUpdate) (*Link, error)
	Delete(ctx context.Context, linkID, ownerID int64) error
	GetByOwner(ctx context.Context, ownerID int64) ([]*Link, error)
}

type ResolverUseCase interface {
	Resolve(ctx context.Context, shortCode string, metadata *ClickMetadata) (string, error)
}
