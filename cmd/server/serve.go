package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/macrolens/foodrecon/config"
	httpDelivery "github.com/macrolens/foodrecon/internal/delivery/http"
	"github.com/macrolens/foodrecon/internal/domain"
	"github.com/macrolens/foodrecon/internal/infrastructure/cache"
	"github.com/macrolens/foodrecon/internal/infrastructure/openfoodfacts"
	"github.com/macrolens/foodrecon/internal/infrastructure/store"
	"github.com/macrolens/foodrecon/internal/infrastructure/usda"
	"github.com/macrolens/foodrecon/internal/usecase"
)

const (
	shutdownTimeout = 10 * time.Second
	purgeInterval   = time.Hour
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initCatalog(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		st, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		go purgeResults(ctx, env.Results)

		handler := httpDelivery.NewHandler(
			env.Catalog,
			usecase.NewLoggingService(env.Catalog, st),
			usecase.NewSearchSessions(0),
			env.Results,
		)
		router := httpDelivery.SetupRouter(cfg, handler)

		port := servePort
		if port == "" {
			port = cfg.Server.Port
		}
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%s", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("shutdown incomplete", zap.Error(err))
			}
		}()

		zap.L().Info("starting server",
			zap.String("port", port),
			zap.String("environment", cfg.Server.Environment),
			zap.String("catalog", cfg.Catalog.Mode),
			zap.String("cache", cfg.Cache.Type),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// catalogEnv is the catalog stack shared by the commands that need one
type catalogEnv struct {
	Catalog usecase.FoodCatalog
	Results *cache.ResultCache
	closers []func() error
}

// Close releases the raw payload cache
func (e *catalogEnv) Close() {
	for _, c := range e.closers {
		if err := c(); err != nil {
			zap.L().Warn("close failed", zap.Error(err))
		}
	}
}

// initCatalog builds the configured catalog behind the normalized result cache
func initCatalog(ctx context.Context, cfg *config.Config) (*catalogEnv, error) {
	env := &catalogEnv{
		Results: cache.NewResultCache(cache.ResultCacheConfig{MaxAge: cfg.Cache.MaxAge, MaxSize: cfg.Cache.MaxSize}),
	}

	var inner usecase.FoodCatalog
	switch cfg.Catalog.Mode {
	case config.CatalogMock:
		inner = usecase.NewMockCatalog(usecase.SampleFoods()...)
	default:
		raw, closeRaw, err := newRawCache(ctx, cfg.Cache)
		if err != nil {
			return nil, err
		}
		env.closers = append(env.closers, closeRaw)

		usdaClient := usda.NewClient(cfg.USDA.APIKey, cfg.USDA.BaseURL, cfg.RateLimit.USDA)
		if cfg.Server.Environment == "development" {
			usdaClient.SetDebug(true)
		}
		offClient := openfoodfacts.NewClient(cfg.OpenFoodFacts.BaseURL, cfg.OpenFoodFacts.UserAgent)

		inner = usecase.NewRemoteCatalog(usdaClient, offClient, raw, usecase.RemoteCatalogConfig{
			RawPayloadTTL:     cfg.Cache.TTL,
			MinPairConfidence: cfg.Catalog.MinPairConfidence,
		})
	}

	env.Catalog = usecase.NewCachedCatalog(inner, env.Results)
	return env, nil
}

func newRawCache(ctx context.Context, c config.CacheConfig) (domain.CacheRepository, func() error, error) {
	if c.Type == "redis" {
		rc, err := cache.NewRedisCache(ctx, c.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		zap.L().Info("raw payload cache: redis")
		return rc, rc.Close, nil
	}
	mc := cache.NewMemoryCache()
	return mc, mc.Close, nil
}

// purgeResults drops expired normalized results until ctx ends
func purgeResults(ctx context.Context, results *cache.ResultCache) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := results.Purge(); n > 0 {
				zap.L().Debug("purged expired results", zap.Int("count", n))
			}
		}
	}
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
