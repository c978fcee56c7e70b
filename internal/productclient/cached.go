package productclient

import (
	"context"
	"encoding/json"
	"time"

	"github.com/RaikyD/order-lifecycle-service/internal/application"
	"github.com/RaikyD/order-lifecycle-service/internal/cache"
	"github.com/RaikyD/order-lifecycle-service/internal/domain"
	"github.com/RaikyD/order-lifecycle-service/internal/logger"
)

const cacheOperation = "product"

// Cached serves product lookups from cache before asking next. Cache errors
// are logged and fall through to next; misses are never cached. A cached
// price can be up to ttl older than the product service's.
type Cached struct {
	next  application.ProductLookup
	cache cache.Cache
	ttl   time.Duration
}

func NewCached(next application.ProductLookup, c cache.Cache, ttl time.Duration) *Cached {
	return &Cached{next: next, cache: c, ttl: ttl}
}

func (c *Cached) Lookup(ctx context.Context, productID string) (*domain.Product, error) {
	key := c.cache.GenerateKey(cacheOperation, productID)

	raw, err := c.cache.Get(ctx, key)
	if err != nil {
		logger.Warn("product cache get failed", "key", key, "err", err)
	}
	if raw != "" {
		var p domain.Product
		if err := json.Unmarshal([]byte(raw), &p); err == nil {
			return &p, nil
		}
		logger.Warn("product cache entry unreadable", "key", key)
	}

	p, err := c.next.Lookup(ctx, productID)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(p); err == nil {
		if err := c.cache.Set(ctx, key, string(b), c.ttl); err != nil {
			logger.Warn("product cache set failed", "key", key, "err", err)
		}
	}
	return p, nil
}
