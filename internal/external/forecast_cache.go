package external

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"velobrief/internal/forecast"
	"velobrief/internal/types"
)

// ForecastSource is the provider surface the cache wraps.
type ForecastSource interface {
	ByCoordinates(ctx context.Context, lat, lon float64) (forecast.Forecast, error)
	ByPlace(ctx context.Context, name string) (forecast.Forecast, error)
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Hits    int64
	Misses  int64
	Entries int
}

type cacheEntry struct {
	forecast forecast.Forecast
	storedAt time.Time
}

// CachedForecastSource memoizes successful lookups for a TTL and collapses
// concurrent identical lookups into one provider call. Failures are never
// cached.
type CachedForecastSource struct {
	source     ForecastSource
	ttl        time.Duration
	maxEntries int
	clock      types.Clock

	mu      sync.RWMutex
	entries map[string]cacheEntry
	hits    int64
	misses  int64

	group singleflight.Group
}

// NewCachedForecastSource wraps source. A non-positive ttl disables caching
// but keeps request collapsing.
func NewCachedForecastSource(source ForecastSource, ttl time.Duration, maxEntries int, clock types.Clock) *CachedForecastSource {
	if clock == nil {
		clock = types.RealClock{}
	}
	return &CachedForecastSource{
		source:     source,
		ttl:        ttl,
		maxEntries: maxEntries,
		clock:      clock,
		entries:    make(map[string]cacheEntry),
	}
}

// ByCoordinates keys on coordinates rounded to two decimals, about 1 km.
func (c *CachedForecastSource) ByCoordinates(ctx context.Context, lat, lon float64) (forecast.Forecast, error) {
	key := fmt.Sprintf("coords:%.2f,%.2f", round2(lat), round2(lon))
	return c.get(ctx, key, func(ctx context.Context) (forecast.Forecast, error) {
		return c.source.ByCoordinates(ctx, lat, lon)
	})
}

// ByPlace keys on the case-folded, trimmed place name.
func (c *CachedForecastSource) ByPlace(ctx context.Context, name string) (forecast.Forecast, error) {
	key := "place:" + strings.ToLower(strings.TrimSpace(name))
	return c.get(ctx, key, func(ctx context.Context) (forecast.Forecast, error) {
		return c.source.ByPlace(ctx, name)
	})
}

// Stats returns a snapshot of hit and miss counters.
func (c *CachedForecastSource) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Entries: len(c.entries)}
}

func (c *CachedForecastSource) get(ctx context.Context, key string, load func(context.Context) (forecast.Forecast, error)) (forecast.Forecast, error) {
	now := c.clock.Now()

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.ttl > 0 && now.Sub(e.storedAt) < c.ttl {
		c.hits++
		c.mu.Unlock()
		return e.forecast, nil
	}
	c.misses++
	c.mu.Unlock()

	ch := c.group.DoChan(key, func() (any, error) {
		// The shared call must not die with whichever caller arrived first.
		f, err := load(context.WithoutCancel(ctx))
		if err == nil {
			c.store(key, f)
		}
		return f, err
	})

	select {
	case <-ctx.Done():
		return forecast.Forecast{}, types.NewAppError(types.ErrCodeUpstreamUnavailable,
			"forecast lookup cancelled", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return forecast.Forecast{}, res.Err
		}
		return res.Val.(forecast.Forecast), nil
	}
}

func (c *CachedForecastSource) store(key string, f forecast.Forecast) {
	if c.ttl <= 0 {
		return
	}
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		for k, e := range c.entries {
			if now.Sub(e.storedAt) >= c.ttl {
				delete(c.entries, k)
			}
		}
		if len(c.entries) >= c.maxEntries {
			return
		}
	}
	c.entries[key] = cacheEntry{forecast: f, storedAt: now}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
