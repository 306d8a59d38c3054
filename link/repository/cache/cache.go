package cache

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/superj80820/url-shortener/domain"
)

const (
	linkKeyPrefix  = "link:"
	statsKeyPrefix = "stats:user_"

	LinkEntryVersion = 1
)

var ErrUnknownVersion = errors.New("unknown cache entry version")

func LinkKey(shortCode string) string {
	return linkKeyPrefix + shortCode
}

func StatsKey(ownerID int64) string {
	return statsKeyPrefix + strconv.FormatInt(ownerID, 10)
}

type linkEntryPayload struct {
	Version   int        `json:"v"`
	ID        int64      `json:"id"`
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expires_at"`
}

func EncodeLinkEntry(entry *domain.LinkCacheEntry) ([]byte, error) {
	payload := linkEntryPayload{
		Version:   LinkEntryVersion,
		ID:        entry.ID,
		URL:       entry.URL,
		ExpiresAt: entry.ExpiresAt,
	}
	if payload.ExpiresAt != nil {
		expiresAt := payload.ExpiresAt.UTC()
		payload.ExpiresAt = &expiresAt
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshal link entry failed")
	}
	return data, nil
}

// DecodeLinkEntry fails with ErrUnknownVersion for payloads written by another schema version.
func DecodeLinkEntry(data []byte) (*domain.LinkCacheEntry, error) {
	var payload linkEntryPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, errors.Wrap(err, "unmarshal link entry failed")
	}
	if payload.Version != LinkEntryVersion {
		return nil, errors.Wrapf(ErrUnknownVersion, "version %d", payload.Version)
	}
	return &domain.LinkCacheEntry{
		ID:        payload.ID,
		URL:       payload.URL,
		ExpiresAt: payload.ExpiresAt,
	}, nil
}
