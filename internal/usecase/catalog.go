package usecase

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/macrolens/foodrecon/internal/domain"
	"github.com/macrolens/foodrecon/internal/infrastructure/openfoodfacts"
	"github.com/macrolens/foodrecon/internal/infrastructure/usda"
)

// FoodCatalog is the lookup surface shared by the remote, cached and mock catalogs
type FoodCatalog interface {
	Search(ctx context.Context, query string) ([]domain.NormalizedFood, error)
	Details(ctx context.Context, fdcID int64) (*domain.NormalizedFood, error)
}

// RemoteCatalogConfig holds configuration for the remote catalog
type RemoteCatalogConfig struct {
	RawPayloadTTL     time.Duration
	MinPairConfidence float64
}

// RemoteCatalog queries FoodData Central and Open Food Facts, normalizes both
// and merges records describing the same product, FoodData Central first
type RemoteCatalog struct {
	usda       domain.USDAClient
	off        domain.OpenFoodFactsClient
	raw        domain.CacheRepository
	rawTTL     time.Duration
	matcher    *MatchingService
	preprocess *QueryPreprocessor
	log        *zap.Logger
}

// NewRemoteCatalog wires the two upstream clients. raw may be nil to disable payload caching.
func NewRemoteCatalog(
	usdaClient domain.USDAClient,
	offClient domain.OpenFoodFactsClient,
	raw domain.CacheRepository,
	config RemoteCatalogConfig,
) *RemoteCatalog {
	ttl := config.RawPayloadTTL
	if ttl == 0 {
		ttl = 720 * time.Hour
	}
	return &RemoteCatalog{
		usda:       usdaClient,
		off:        offClient,
		raw:        raw,
		rawTTL:     ttl,
		matcher:    NewMatchingService(MatchConfig{MinConfidenceThreshold: config.MinPairConfidence, EnableFuzzyMatching: true}),
		preprocess: NewQueryPreprocessor(),
		log:        zap.L().Named("catalog"),
	}
}

// Search queries both catalogs concurrently. One failing source degrades to
// the other; only when both fail is an error returned.
func (r *RemoteCatalog) Search(ctx context.Context, query string) ([]domain.NormalizedFood, error) {
	q := r.preprocess.PreprocessQuery(query)
	if q == "" {
		return nil, domain.ErrInvalidRequest
	}

	var (
		primaries, secondaries []domain.NormalizedFood
		usdaErr, offErr        error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp, err := r.usda.SearchFoods(gctx, q)
		if err != nil {
			usdaErr = err
			return nil
		}
		for i := range resp.Foods {
			primaries = append(primaries, usda.NormalizeFood(&resp.Foods[i]))
		}
		return nil
	})
	g.Go(func() error {
		products, err := r.off.SearchProducts(gctx, q)
		if err != nil {
			offErr = err
			return nil
		}
		for _, raw := range products {
			if f := openfoodfacts.Normalize("", raw); !f.IsEmpty() {
				secondaries = append(secondaries, f)
			}
		}
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if usdaErr != nil && offErr != nil {
		if errors.Is(usdaErr, domain.ErrProductNotFound) && errors.Is(offErr, domain.ErrProductNotFound) {
			return nil, domain.ErrProductNotFound
		}
		if !errors.Is(usdaErr, domain.ErrProductNotFound) {
			return nil, usdaErr
		}
		return nil, offErr
	}
	r.logDegraded("usda", usdaErr)
	r.logDegraded("openfoodfacts", offErr)

	pairs := r.matcher.Pair(primaries, secondaries)
	results := make([]domain.NormalizedFood, 0, len(pairs))
	for _, p := range pairs {
		if merged := MergeFoods(p.Primary, p.Secondary); merged != nil {
			results = append(results, *merged)
		}
	}
	if len(results) == 0 {
		return nil, domain.ErrProductNotFound
	}

	r.log.Debug("search merged",
		zap.String("query", q),
		zap.Int("usda", len(primaries)),
		zap.Int("openfoodfacts", len(secondaries)),
		zap.Int("results", len(results)))
	return results, nil
}

// Details fetches a FoodData Central record and, when it carries a barcode,
// the matching Open Food Facts product, and merges the two
func (r *RemoteCatalog) Details(ctx context.Context, fdcID int64) (*domain.NormalizedFood, error) {
	if fdcID <= 0 {
		return nil, domain.ErrInvalidRequest
	}

	raw, err := r.fetchRaw(ctx, usda.GID(fdcID), func(ctx context.Context) ([]byte, error) {
		return r.usda.GetFoodDetails(ctx, fdcID)
	})
	if err != nil {
		return nil, err
	}
	primary := usda.Normalize(fdcID, raw)
	if primary.IsEmpty() {
		r.forgetRaw(ctx, usda.GID(fdcID))
	}
	if primary.Barcode == "" {
		return &primary, nil
	}

	offRaw, err := r.fetchRaw(ctx, openfoodfacts.GID(primary.Barcode), func(ctx context.Context) ([]byte, error) {
		return r.off.GetProduct(ctx, primary.Barcode)
	})
	if err != nil {
		if !errors.Is(err, domain.ErrProductNotFound) {
			r.logDegraded("openfoodfacts", err)
		}
		return &primary, nil
	}
	secondary := openfoodfacts.Normalize(primary.Barcode, offRaw)
	if secondary.IsEmpty() {
		r.forgetRaw(ctx, openfoodfacts.GID(primary.Barcode))
		return &primary, nil
	}
	return MergeFoods(&primary, &secondary), nil
}

// fetchRaw reads a payload through the raw cache, filling it on a miss
func (r *RemoteCatalog) fetchRaw(ctx context.Context, key string, fetch func(context.Context) ([]byte, error)) ([]byte, error) {
	if r.raw != nil {
		if b, err := r.raw.Get(ctx, key); err == nil {
			return b, nil
		} else if !errors.Is(err, domain.ErrCacheMiss) {
			r.log.Warn("raw cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	b, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	if r.raw != nil {
		if err := r.raw.Set(ctx, key, b, r.rawTTL); err != nil {
			r.log.Warn("raw cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return b, nil
}

// forgetRaw drops a cached payload that did not decode so the next lookup refetches it
func (r *RemoteCatalog) forgetRaw(ctx context.Context, key string) {
	if r.raw == nil {
		return
	}
	if err := r.raw.Delete(ctx, key); err != nil {
		r.log.Warn("raw cache delete failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *RemoteCatalog) logDegraded(source string, err error) {
	if err == nil || errors.Is(err, domain.ErrProductNotFound) {
		return
	}
	r.log.Warn("source unavailable, continuing without it", zap.String("source", source), zap.Error(err))
}

// ParseFdcID parses a FoodData Central id from a path segment
func ParseFdcID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidRequest
	}
	return id, nil
}
