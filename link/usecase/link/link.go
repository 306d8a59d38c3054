package link

import (
	"context"
	"net/url"

	"github.com/pkg/errors"
	"github.com/superj80820/url-shortener/domain"
	loggerKit "github.com/superj80820/url-shortener/kit/logger"
)

const (
	defaultCodeLength  = 6
	defaultMaxAttempts = 3
)

type linkUseCase struct {
	linkRepo      domain.LinkRepo
	linkCacheRepo domain.LinkCacheRepo
	codeGenerator domain.CodeGenerator
	clock         domain.Clock
	logger        *loggerKit.Logger

	codeLength  int
	maxAttempts int
}

type Option func(*linkUseCase)

func SetCodeLength(codeLength int) Option {
	return func(l *linkUseCase) {
		if codeLength >= domain.ShortCodeMinLength && codeLength <= domain.ShortCodeMaxLength {
			l.codeLength = codeLength
		}
	}
}

func SetMaxAttempts(maxAttempts int) Option {
	return func(l *linkUseCase) {
		if maxAttempts > 0 {
			l.maxAttempts = maxAttempts
		}
	}
}

func CreateLinkUseCase(
	linkRepo domain.LinkRepo,
	linkCacheRepo domain.LinkCacheRepo,
	codeGenerator domain.CodeGenerator,
	clock domain.Clock,
	logger *loggerKit.Logger,
	options ...Option,
) (domain.LinkUseCase, error) {
	if linkRepo == nil || linkCacheRepo == nil || codeGenerator == nil || clock == nil || logger == nil {
		return nil, errors.New("create link use case failed")
	}
	l := &linkUseCase{
		linkRepo:      linkRepo,
		linkCacheRepo: linkCacheRepo,
		codeGenerator: codeGenerator,
		clock:         clock,
		logger:        logger,
		codeLength:    defaultCodeLength,
		maxAttempts:   defaultMaxAttempts,
	}
	for _, option := range options {
		option(l)
	}
	return l, nil
}

func validateURL(rawURL string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return errors.Wrapf(domain.ErrInvalidURL, "parse url failed, error: %v", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.Wrapf(domain.ErrInvalidURL, "unsupported scheme %q", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return errors.Wrap(domain.ErrInvalidURL, "missing host")
	}
	return nil
}

func (l *linkUseCase) Create(ctx context.Context, ownerID int64, linkCreate *domain.LinkCreate) (*domain.Link, error) {
	if err := validateURL(linkCreate.OriginalURL); err != nil {
		return nil, err
	}

	var (
		link *domain.Link
		err  error
	)
	if linkCreate.CustomCode != "" {
		link, err = l.createCustom(ctx, ownerID, linkCreate)
	} else {
		link, err = l.createGenerated(ctx, ownerID, linkCreate)
	}
	if err != nil {
		return nil, err
	}

	if err := l.linkCacheRepo.SetLink(ctx, link.ShortCode, link.CacheEntry()); err != nil {
		l.logger.Warn("write through link cache failed", loggerKit.String("short_code", link.ShortCode), loggerKit.Error(err))
	}

	return link, nil
}

func (l *linkUseCase) createCustom(ctx context.Context, ownerID int64, linkCreate *domain.LinkCreate) (*domain.Link, error) {
	if err := l.codeGenerator.ValidateCustom(linkCreate.CustomCode); err != nil {
		return nil, errors.Wrap(err, "validate custom code failed")
	}

	exists, err := l.linkRepo.ExistsShortCode(ctx, linkCreate.CustomCode)
	if err != nil {
		return nil, errors.Wrap(err, "check short code failed")
	}
	if exists {
		return nil, errors.Wrapf(domain.ErrCodeConflict, "short code %s", linkCreate.CustomCode)
	}

	link, err := l.linkRepo.Create(ctx, &domain.Link{
		ShortCode:   linkCreate.CustomCode,
		OriginalURL: linkCreate.OriginalURL,
		OwnerID:     ownerID,
		IsCustom:    true,
		ExpiresAt:   linkCreate.ExpiresAt,
	})
	if errors.Is(err, domain.ErrDuplicate) {
		return nil, errors.Wrapf(domain.ErrCodeConflict, "short code %s", linkCreate.CustomCode)
	} else if err != nil {
		return nil, errors.Wrap(err, "create link failed")
	}
	return link, nil
}

// createGenerated tries at most maxAttempts candidates. A candidate lost to a concurrent
// insert counts as a collision.
func (l *linkUseCase) createGenerated(ctx context.Context, ownerID int64, linkCreate *domain.LinkCreate) (*domain.Link, error) {
	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		shortCode, err := l.codeGenerator.Generate(l.codeLength)
		if err != nil {
			return nil, errors.Wrap(err, "generate short code failed")
		}

		exists, err := l.linkRepo.ExistsShortCode(ctx, shortCode)
		if err != nil {
			return nil, errors.Wrap(err, "check short code failed")
		}
		if exists {
			l.logger.Debug("short code collided", loggerKit.String("short_code", shortCode), loggerKit.Int("attempt", attempt))
			continue
		}

		link, err := l.linkRepo.Create(ctx, &domain.Link{
			ShortCode:   shortCode,
			OriginalURL: linkCreate.OriginalURL,
			OwnerID:     ownerID,
			ExpiresAt:   linkCreate.ExpiresAt,
		})
		if errors.Is(err, domain.ErrDuplicate) {
			l.logger.Debug("short code collided on insert", loggerKit.String("short_code", shortCode), loggerKit.Int("attempt", attempt))
			continue
		} else if err != nil {
			return nil, errors.Wrap(err, "create link failed")
		}
		return link, nil
	}
	return nil, errors.Wrapf(domain.ErrGenerationExhausted, "after %d attempts", l.maxAttempts)
}

func (l *linkUseCase) getOwned(ctx context.Context, linkID, ownerID int64) (*domain.Link, error) {
	link, err := l.linkRepo.Get(ctx, linkID)
	if err != nil {
		return nil, errors.Wrap(err, "get link failed")
	}
	if link.OwnerID != ownerID {
		return nil, errors.Wrapf(domain.ErrForbidden, "link %d", linkID)
	}
	return link, nil
}

func (l *linkUseCase) Update(ctx context.Context, linkID, ownerID int64, update *domain.LinkUpdate) (*domain.Link, error) {
	link, err := l.getOwned(ctx, linkID, ownerID)
	if err != nil {
		return nil, err
	}
	if update.IsEmpty() {
		return link, nil
	}
	if update.OriginalURL != nil {
		if err := validateURL(*update.OriginalURL); err != nil {
			return nil, err
		}
	}

	updatedLink, err := l.linkRepo.Update(ctx, linkID, update, l.clock().UTC())
	if err != nil {
		return nil, errors.Wrap(err, "update link failed")
	}

	if err := l.linkCacheRepo.DeleteLink(ctx, updatedLink.ShortCode); err != nil {
		l.logger.Warn("invalidate link cache failed", loggerKit.String("short_code", updatedLink.ShortCode), loggerKit.Error(err))
	}

	return updatedLink, nil
}

func (l *linkUseCase) Delete(ctx context.Context, linkID, ownerID int64) error {
	link, err := l.getOwned(ctx, linkID, ownerID)
	if err != nil {
		return err
	}

	if err := l.linkRepo.Delete(ctx, linkID); err != nil {
		return errors.Wrap(err, "delete link failed")
	}

	if err := l.linkCacheRepo.DeleteLink(ctx, link.ShortCode); err != nil {
		l.logger.Warn("invalidate link cache failed", loggerKit.String("short_code", link.ShortCode), loggerKit.Error(err))
	}
	return nil
}

func (l *linkUseCase) GetByOwner(ctx context.Context, ownerID int64) ([]*domain.Link, error) {
	links, err := l.linkRepo.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "get links failed")
	}
	return links, nil
}
