package geocode

import (
	"context"
	"fmt"

	"ccc-photos/internal/geo"
	"ccc-photos/internal/logging"
	"ccc-photos/internal/metrics"
)

// PlaceStore persists resolved names.
type PlaceStore interface {
	GetPlaceName(ctx context.Context, key string) (string, bool, error)
	PutPlaceName(ctx context.Context, key string, lat, lng float64, name string) error
}

// Lookuper is the part of Client that Cached needs.
type Lookuper interface {
	Lookup(ctx context.Context, lat, lng float64) (string, error)
}

// Cached resolves names through a store before asking the service.
// Only names returned by the service are stored; coordinate fallbacks are not.
type Cached struct {
	lookup Lookuper
	store  PlaceStore
}

// NewCached wraps lookup with store. A nil store disables caching.
func NewCached(lookup Lookuper, store PlaceStore) *Cached {
	return &Cached{lookup: lookup, store: store}
}

// Key rounds a position to the precision used for cache entries.
func Key(lat, lng float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lng)
}

// Resolve returns a place name for the position, never failing.
func (c *Cached) Resolve(ctx context.Context, lat, lng float64) string {
	key := Key(lat, lng)

	if c.store != nil {
		name, ok, err := c.store.GetPlaceName(ctx, key)
		if err != nil {
			logging.Warn("place cache lookup failed for %s: %v", key, err)
		}
		if ok && name != "" {
			metrics.GeocodeRequestsTotal.WithLabelValues("cache_hit").Inc()
			return name
		}
	}

	fallback := geo.Coordinates{Lat: lat, Lng: lng}.String()
	if c.lookup == nil {
		return fallback
	}

	name, err := c.lookup.Lookup(ctx, lat, lng)
	if err != nil {
		logging.Warn("Reverse geocoding %s failed, using coordinates: %v", fallback, err)
		metrics.GeocodeRequestsTotal.WithLabelValues("fallback").Inc()
		return fallback
	}

	if c.store != nil {
		if err := c.store.PutPlaceName(ctx, key, lat, lng, name); err != nil {
			logging.Warn("place cache store failed for %s: %v", key, err)
		}
	}
	return name
}
