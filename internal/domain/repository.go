package domain

import (
	"context"
	"encoding/json"
	"time"
)

// CacheRepository defines the raw payload cache used in front of the remote catalogs
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// USDAClient defines the interface for interacting with USDA FoodData Central API
type USDAClient interface {
	SearchFoods(ctx context.Context, query string) (*USDASearchResponse, error)
	GetFoodDetails(ctx context.Context, fdcID int64) ([]byte, error)
}

// OpenFoodFactsClient defines the interface for the Open Food Facts API
type OpenFoodFactsClient interface {
	SearchProducts(ctx context.Context, query string) ([]json.RawMessage, error)
	GetProduct(ctx context.Context, barcode string) ([]byte, error)
}

// ReferenceStore is the read/write contract of the durable entity store
type ReferenceStore interface {
	SaveReference(ctx context.Context, ref *FoodReference) error
	GetReference(ctx context.Context, gid string) (*FoodReference, error)
	SaveLogEntry(ctx context.Context, entry *LogEntry) error
	ListLogEntries(ctx context.Context, limit int) ([]*LogEntry, error)
}
