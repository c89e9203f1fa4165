package model

import (
	"context"
	"time"
)

// Presigner mints time-limited read URLs for private objects.
type Presigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// CachedURL is a previously minted URL with its issue time.
type CachedURL struct {
	URL      string    `json:"url"`
	IssuedAt time.Time `json:"issued_at"`
}

// URLCache stores signed URLs keyed by MediaItem.CacheKey. Entries are never invalidated;
// readers decide freshness from IssuedAt.
type URLCache interface {
	Get(ctx context.Context, key string) (CachedURL, bool)
	Set(ctx context.Context, key string, entry CachedURL)
}
