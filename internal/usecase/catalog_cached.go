package usecase

import (
	"context"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/macrolens/foodrecon/internal/domain"
)

// ResultCache stores normalized catalog results
type ResultCache interface {
	GetSearch(query string) ([]domain.NormalizedFood, bool)
	SetSearch(query string, foods []domain.NormalizedFood)
	GetDetail(fdcID int64) (domain.NormalizedFood, bool)
	SetDetail(fdcID int64, food domain.NormalizedFood)
}

// CachedCatalog serves repeated lookups from a ResultCache and collapses
// concurrent detail lookups for the same id into one upstream call.
// A result whose generation ticket went stale while it was in flight is
// neither cached nor returned.
type CachedCatalog struct {
	inner FoodCatalog
	cache ResultCache
	group singleflight.Group
	log   *zap.Logger
}

// NewCachedCatalog decorates inner with cache
func NewCachedCatalog(inner FoodCatalog, cache ResultCache) *CachedCatalog {
	return &CachedCatalog{
		inner: inner,
		cache: cache,
		log:   zap.L().Named("catalog"),
	}
}

// Search returns cached results for the normalized query or fetches and caches them
func (c *CachedCatalog) Search(ctx context.Context, query string) ([]domain.NormalizedFood, error) {
	key := NormalizeQuery(query)
	if key == "" {
		return nil, domain.ErrInvalidRequest
	}
	if foods, ok := c.cache.GetSearch(key); ok {
		c.log.Debug("search cache hit", zap.String("key", key))
		return foods, nil
	}

	foods, err := c.inner.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if stale(ctx) {
		c.log.Debug("dropping superseded search", zap.String("key", key))
		return nil, domain.ErrSuperseded
	}
	c.cache.SetSearch(key, foods)
	return foods, nil
}

// Details returns the cached record or fetches it once for all concurrent callers
func (c *CachedCatalog) Details(ctx context.Context, fdcID int64) (*domain.NormalizedFood, error) {
	if food, ok := c.cache.GetDetail(fdcID); ok {
		return &food, nil
	}

	// The shared fetch must outlive any single caller; each caller still stops waiting on its own ctx.
	ch := c.group.DoChan(strconv.FormatInt(fdcID, 10), func() (any, error) {
		return c.inner.Details(context.WithoutCancel(ctx), fdcID)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Shared {
		c.log.Debug("detail lookup shared", zap.Int64("fdc_id", fdcID))
	}
	v := res.Val
	if stale(ctx) {
		return nil, domain.ErrSuperseded
	}

	food := *v.(*domain.NormalizedFood)
	c.cache.SetDetail(fdcID, food)
	return &food, nil
}
