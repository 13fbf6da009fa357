// Package cache provides a two-tier cache for computed statistics. The fast
// tier is Redis; the durable tier is a database table that survives Redis
// restarts.
package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// DefaultTTL is how long computed statistics stay valid.
const DefaultTTL = time.Hour

// Well-known cache keys.
const (
	KeyDashboard          = "stats_dashboard"
	KeyKeyMetrics         = "stats_key_metrics"
	KeyDrivers            = "stats_drivers"
	KeyPeakHours          = "stats_peak_hours"
	KeyStatusDistribution = "stats_status_distribution"
)

// Store is a byte-level cache tier.
type Store interface {
	// Get returns the cached value and whether it was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Tiered layers a fast store over a durable one. Reads try the fast tier
// first and backfill it on a durable hit. Fast-tier failures degrade to the
// durable tier instead of failing the read.
type Tiered struct {
	fast    Store
	durable Store
}

// NewTiered creates a two-tier store. Either tier may be nil.
func NewTiered(fast, durable Store) *Tiered {
	return &Tiered{fast: fast, durable: durable}
}

// Get implements Store.
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if t.fast != nil {
		value, ok, err := t.fast.Get(ctx, key)
		if err != nil {
			log.Printf("cache: fast tier get %s: %v", key, err)
		} else if ok {
			return value, true, nil
		}
	}

	if t.durable == nil {
		return nil, false, nil
	}

	value, ok, err := t.durable.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}

	if t.fast != nil {
		if err := t.fast.Set(ctx, key, value, DefaultTTL); err != nil {
			log.Printf("cache: fast tier backfill %s: %v", key, err)
		}
	}
	return value, true, nil
}

// Set implements Store. The value is written to both tiers.
func (t *Tiered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if t.fast != nil {
		if err := t.fast.Set(ctx, key, value, ttl); err != nil {
			log.Printf("cache: fast tier set %s: %v", key, err)
		}
	}
	if t.durable == nil {
		return nil
	}
	return t.durable.Set(ctx, key, value, ttl)
}

// Delete implements Store. Keys are removed from both tiers.
func (t *Tiered) Delete(ctx context.Context, keys ...string) error {
	if t.fast != nil {
		if err := t.fast.Delete(ctx, keys...); err != nil {
			log.Printf("cache: fast tier delete: %v", err)
		}
	}
	if t.durable == nil {
		return nil
	}
	return t.durable.Delete(ctx, keys...)
}

var _ Store = (*Tiered)(nil)

// Fetch returns the cached value for key, computing and storing it on a miss.
// Cache errors fall through to compute so statistics stay available when the
// cache is down.
func Fetch[T any](ctx context.Context, store Store, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if store != nil {
		data, ok, err := store.Get(ctx, key)
		if err != nil {
			log.Printf("cache: get %s: %v", key, err)
		} else if ok {
			var value T
			if err := json.Unmarshal(data, &value); err == nil {
				return value, nil
			}
			log.Printf("cache: corrupt entry %s, recomputing", key)
		}
	}

	value, err := compute(ctx)
	if err != nil {
		return zero, err
	}

	if store != nil {
		if data, err := json.Marshal(value); err == nil {
			if err := store.Set(ctx, key, data, ttl); err != nil {
				log.Printf("cache: set %s: %v", key, err)
			}
		}
	}
	return value, nil
}
