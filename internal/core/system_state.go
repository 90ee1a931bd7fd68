package core

import (
	"lccache/internal/cache"
	"lccache/internal/config"
	"lccache/internal/logger"

	"github.com/pkg/errors"
)

// SystemState is what the API and the host processes share.
type SystemState struct {
	Configuration config.SystemConfiguration

	KeyCache *cache.LruCache[string, []byte]
}

func NewSystemState(cfg config.SystemConfiguration) (*SystemState, error) {
	keyCache, err := cache.NewLruCache[string, []byte](
		cfg.CacheCapacityCount,
		cache.WithLogger(logger.Sink{}),
		cache.WithSizeVariance(cfg.CacheSizeVariance),
		cache.WithRetryLogInterval(cfg.RetryLogInterval),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build key cache")
	}

	return &SystemState{
		Configuration: cfg,
		KeyCache:      keyCache,
	}, nil
}
