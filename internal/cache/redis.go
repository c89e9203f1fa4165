package cache

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dtroode/vaultdrop-server/internal/logger"
	"github.com/dtroode/vaultdrop-server/internal/model"
)

const redisKeyPrefix = "signed-url:"

var _ model.URLCache = (*Redis)(nil)

// Redis shares signed URLs between processes. Keys expire after ttl, which must not exceed
// the signed URL lifetime. Failures are logged and treated as misses.
type Redis struct {
	client *goredis.Client
	ttl    time.Duration
	logger *logger.Logger
}

func NewRedis(client *goredis.Client, ttl time.Duration, logger *logger.Logger) *Redis {
	return &Redis{client: client, ttl: ttl, logger: logger}
}

func (r *Redis) Get(ctx context.Context, key string) (model.CachedURL, bool) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			r.logger.Warn("url cache read failed", "key", key, "error", err)
		}
		return model.CachedURL{}, false
	}

	var e model.CachedURL
	if err := json.Unmarshal(raw, &e); err != nil {
		r.logger.Warn("url cache entry is corrupt", "key", key, "error", err)
		return model.CachedURL{}, false
	}
	return e, true
}

func (r *Redis) Set(ctx context.Context, key string, entry model.CachedURL) {
	raw, err := json.Marshal(entry)
	if err != nil {
		r.logger.Warn("url cache entry encoding failed", "key", key, "error", err)
		return
	}
	if err := r.client.Set(ctx, redisKeyPrefix+key, raw, r.ttl).Err(); err != nil {
		r.logger.Warn("url cache write failed", "key", key, "error", err)
	}
}
