package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Catalog modes
const (
	CatalogRemote = "remote"
	CatalogMock   = "mock"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	USDA          USDAConfig          `mapstructure:"usda"`
	OpenFoodFacts OpenFoodFactsConfig `mapstructure:"openfoodfacts"`
	Catalog       CatalogConfig       `mapstructure:"catalog"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Store         StoreConfig         `mapstructure:"store"`
	RateLimit     RateLimitConfig     `mapstructure:"ratelimit"`
	Log           LogConfig           `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// USDAConfig holds USDA API configuration
type USDAConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// OpenFoodFactsConfig holds Open Food Facts API configuration
type OpenFoodFactsConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	UserAgent string `mapstructure:"user_agent"`
}

// CatalogConfig selects the catalog implementation
type CatalogConfig struct {
	Mode              string  `mapstructure:"mode"` // "remote" or "mock"
	MinPairConfidence float64 `mapstructure:"min_pair_confidence"`
}

// CacheConfig holds cache-related configuration.
// Type and TTL apply to raw catalog payloads, MaxAge and MaxSize to normalized results.
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
	MaxAge   time.Duration `mapstructure:"max_age"`
	MaxSize  int           `mapstructure:"max_size"`
}

// StoreConfig locates the reference store database
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
	USDA  int `mapstructure:"usda"`   // requests per hour
}

// LogConfig configures logging
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/macrolens/")

	v.SetEnvPrefix("MACROLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := validate(&cfg); err != nil {
		return nil, eris.Wrap(err, "invalid configuration")
	}

	return &cfg, nil
}

// loadEnvFile reads ./.env when present. Variables already in the environment win.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := gotenv.Load(".env"); err != nil {
		return eris.Wrap(err, "config: load .env")
	}
	return nil
}

// setDefaults sets default configuration values.
// Every key needs a default so that AutomaticEnv can populate it on Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"chrome-extension://*"})

	v.SetDefault("usda.api_key", "")
	v.SetDefault("usda.base_url", "https://api.nal.usda.gov/fdc")

	v.SetDefault("openfoodfacts.base_url", "https://world.openfoodfacts.org")
	v.SetDefault("openfoodfacts.user_agent", "MacroLens/1.0")

	v.SetDefault("catalog.mode", CatalogRemote)
	v.SetDefault("catalog.min_pair_confidence", 60)

	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "720h") // 30 days
	v.SetDefault("cache.max_age", "168h")
	v.SetDefault("cache.max_size", 1000)

	v.SetDefault("store.path", "macrolens.db")

	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.usda", 1000)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.Catalog.Mode {
	case CatalogRemote:
		if config.USDA.APIKey == "" {
			return eris.New("USDA API key is required (set MACROLENS_USDA_API_KEY)")
		}
	case CatalogMock:
	default:
		return eris.Errorf("catalog mode must be 'remote' or 'mock', got: %s", config.Catalog.Mode)
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return eris.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return eris.New("Redis URL is required when cache type is 'redis'")
	}

	if config.Cache.MaxAge <= 0 || config.Cache.MaxSize <= 0 {
		return eris.New("cache max_age and max_size must be positive")
	}

	return nil
}

// InitLogger builds the global zap logger
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
