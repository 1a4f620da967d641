// Package cache keeps the facet catalog in Redis so sessions do not each hit
// the catalog backend on mount.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront-catalog/internal/domain"
	"storefront-catalog/internal/fetch"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultKey         = "catalog:facets"
	DefaultTTL         = 10 * time.Minute
	DefaultLoadTimeout = 10 * time.Second
)

var ErrFacetCacheMiss = errors.New("facet cache miss")

// FacetCache is a read-through cache in front of a FacetFetcher. Concurrent
// misses share one origin request. Redis failures fall back to the origin.
type FacetCache struct {
	client *redis.Client
	origin fetch.FacetFetcher
	key    string
	ttl    time.Duration
	// loadTimeout bounds a shared origin load, which outlives the caller
	// that started it.
	loadTimeout time.Duration
	group       singleflight.Group
	logger *zap.Logger
}

// NewFacetCache wraps origin.
func NewFacetCache(client *redis.Client, origin fetch.FacetFetcher, ttl time.Duration, logger *zap.Logger) *FacetCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FacetCache{
		client: client,
		origin: origin,
		key:    DefaultKey,
		ttl:    ttl,
		logger: logger,

		loadTimeout: DefaultLoadTimeout,
	}
}

// FetchFacets returns the cached catalog or loads it from the origin.
func (c *FacetCache) FetchFacets(ctx context.Context) (domain.FacetCatalog, error) {
	catalog, err := c.get(ctx)
	if err == nil {
		return catalog, nil
	}
	if !errors.Is(err, ErrFacetCacheMiss) {
		c.logger.Warn("Facet cache read failed", zap.Error(err))
	}

	ch := c.group.DoChan(c.key, func() (any, error) {
		return c.load(ctx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return domain.FacetCatalog{}, res.Err
		}
		if res.Shared {
			c.logger.Debug("Facet load shared with concurrent caller")
		}
		return res.Val.(domain.FacetCatalog), nil
	case <-ctx.Done():
		return domain.FacetCatalog{}, ctx.Err()
	}
}

// load fetches from the origin and fills the cache. It is detached from the
// caller's cancellation because other callers may be waiting on it.
func (c *FacetCache) load(ctx context.Context) (domain.FacetCatalog, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
	defer cancel()

	catalog, err := c.origin.FetchFacets(ctx)
	if err != nil {
		return domain.FacetCatalog{}, err
	}
	if catalog.IsEmpty() {
		c.logger.Debug("Origin returned an empty facet catalog, not caching")
		return catalog, nil
	}
	if err := c.set(ctx, catalog); err != nil {
		c.logger.Warn("Facet cache write failed", zap.Error(err))
	}
	return catalog, nil
}

// Invalidate drops the cached catalog.
func (c *FacetCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate facet cache: %w", err)
	}
	return nil
}

func (c *FacetCache) get(ctx context.Context) (domain.FacetCatalog, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.FacetCatalog{}, ErrFacetCacheMiss
	}
	if err != nil {
		return domain.FacetCatalog{}, fmt.Errorf("failed to read facet cache: %w", err)
	}

	var catalog domain.FacetCatalog
	if err := json.Unmarshal(raw, &catalog); err != nil {
		return domain.FacetCatalog{}, fmt.Errorf("failed to decode cached facets: %w", err)
	}
	return catalog, nil
}

func (c *FacetCache) set(ctx context.Context, catalog domain.FacetCatalog) error {
	raw, err := json.Marshal(catalog)
	if err != nil {
		return fmt.Errorf("failed to encode facets: %w", err)
	}
	return c.client.Set(ctx, c.key, raw, c.ttl).Err()
}
