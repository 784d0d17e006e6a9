package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Geocoder resolves a postal code to coordinates
type Geocoder interface {
	Lookup(ctx context.Context, pincode string) (*Location, error)
}

// ProviderSource fetches the raw listing of one provider for a query.
// Implementations wrap the external scrapers.
type ProviderSource interface {
	Provider() ProviderID
	Fetch(ctx context.Context, query string, location Location) ([]RawRecord, error)
}
