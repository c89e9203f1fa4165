package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dtroode/vaultdrop-server/internal/logger"
	"github.com/dtroode/vaultdrop-server/internal/metrics"
	"github.com/dtroode/vaultdrop-server/internal/model"
)

// AccessConfig holds signed URL parameters.
type AccessConfig struct {
	URLTTL       time.Duration
	CacheWindow  time.Duration
	IssueTimeout time.Duration
	Extension    string
}

// SignedURL is a time-limited link to one private object.
type SignedURL struct {
	URL       string
	ExpiresAt time.Time
	Cached    bool
}

// Access mints signed URLs for media items and reuses recent ones from a cache.
type Access struct {
	presigner model.Presigner
	cache     model.URLCache
	cfg       AccessConfig
	now       func() time.Time
	logger    *logger.Logger
}

// NewAccess creates an Access. The cache window must be positive and strictly shorter
// than the URL TTL.
func NewAccess(
	presigner model.Presigner,
	cache model.URLCache,
	cfg AccessConfig,
	now func() time.Time,
	logger *logger.Logger,
) (*Access, error) {
	if cfg.URLTTL <= 0 {
		return nil, errors.New("url ttl must be positive")
	}
	if cfg.CacheWindow <= 0 || cfg.CacheWindow >= cfg.URLTTL {
		return nil, fmt.Errorf("cache window %s must be positive and shorter than url ttl %s", cfg.CacheWindow, cfg.URLTTL)
	}
	if now == nil {
		now = time.Now
	}

	return &Access{
		presigner: presigner,
		cache:     cache,
		cfg:       cfg,
		now:       now,
		logger:    logger,
	}, nil
}

// IssueURL returns a signed URL for item. It does not check entitlement.
func (s *Access) IssueURL(ctx context.Context, item model.MediaItem) (SignedURL, error) {
	if err := item.Validate(); err != nil {
		return SignedURL{}, err
	}

	key := item.CacheKey()
	now := s.now()

	if entry, ok := s.cache.Get(ctx, key); ok {
		age := now.Sub(entry.IssuedAt)
		if age >= 0 && age < s.cfg.CacheWindow {
			metrics.URLCacheLookups.WithLabelValues(metrics.ResultHit).Inc()
			return SignedURL{URL: entry.URL, ExpiresAt: entry.IssuedAt.Add(s.cfg.URLTTL), Cached: true}, nil
		}
	}
	metrics.URLCacheLookups.WithLabelValues(metrics.ResultMiss).Inc()

	if s.cfg.IssueTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.IssueTimeout)
		defer cancel()
	}

	objectKey := item.ObjectKey(s.cfg.Extension)
	signed, err := s.presigner.PresignGet(ctx, objectKey, s.cfg.URLTTL)
	if err != nil {
		s.logger.Error("failed to issue signed url", "object_key", objectKey, "error", err)
		if errors.Is(err, model.ErrIssuance) {
			return SignedURL{}, err
		}
		return SignedURL{}, fmt.Errorf("%w: %v", model.ErrIssuance, err)
	}
	metrics.SignedURLsIssued.Inc()

	s.cache.Set(ctx, key, model.CachedURL{URL: signed, IssuedAt: now})

	return SignedURL{URL: signed, ExpiresAt: now.Add(s.cfg.URLTTL)}, nil
}
