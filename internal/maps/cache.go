package maps

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"lead_broker_backend/internal/geo"
	"lead_broker_backend/platform/logger"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	cacheKeyPrefix  = "geocode:"
	defaultCacheTTL = 30 * 24 * time.Hour
	// Misses are remembered briefly so a bad address does not hammer the
	// upstream on every resubmission.
	missTTL = time.Hour
)

type cachedPoint struct {
	Found bool    `json:"found"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

// CachedGeocoder stores geocoding results in Redis and collapses concurrent
// lookups of the same address into one upstream call. Redis failures degrade
// to uncached lookups.
type CachedGeocoder struct {
	next  geo.Geocoder
	rdb   *redis.Client
	ttl   time.Duration
	group singleflight.Group
	log   *logger.Logger
}

// NewCachedGeocoder wraps next with a Redis cache. A nil client disables
// caching but keeps request collapsing.
func NewCachedGeocoder(next geo.Geocoder, rdb *redis.Client, ttl time.Duration, log *logger.Logger) *CachedGeocoder {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedGeocoder{next: next, rdb: rdb, ttl: ttl, log: log}
}

func (c *CachedGeocoder) Geocode(ctx context.Context, address string) (geo.Point, error) {
	key := cacheKey(address)

	if hit, ok := c.get(ctx, key); ok {
		if !hit.Found {
			return geo.Point{}, geo.ErrNoResult
		}
		return geo.Point{Lat: hit.Lat, Lon: hit.Lon}, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		point, err := c.next.Geocode(ctx, address)
		switch {
		case err == nil:
			c.set(ctx, key, cachedPoint{Found: true, Lat: point.Lat, Lon: point.Lon}, c.ttl)
		case errors.Is(err, geo.ErrNoResult):
			c.set(ctx, key, cachedPoint{}, missTTL)
		}
		return point, err
	})
	if err != nil {
		return geo.Point{}, err
	}
	return v.(geo.Point), nil
}

func (c *CachedGeocoder) get(ctx context.Context, key string) (cachedPoint, bool) {
	if c.rdb == nil {
		return cachedPoint{}, false
	}
	str, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WithContext(ctx).Warn("geocode cache read failed", "error", err)
		}
		return cachedPoint{}, false
	}
	var hit cachedPoint
	if err := json.Unmarshal([]byte(str), &hit); err != nil {
		c.log.WithContext(ctx).Warn("geocode cache entry is corrupt", "key", key, "error", err)
		return cachedPoint{}, false
	}
	return hit, true
}

func (c *CachedGeocoder) set(ctx context.Context, key string, value cachedPoint, ttl time.Duration) {
	if c.rdb == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.rdb.Set(context.WithoutCancel(ctx), key, data, ttl).Err(); err != nil {
		c.log.WithContext(ctx).Warn("geocode cache write failed", "error", err)
	}
}

func cacheKey(address string) string {
	return cacheKeyPrefix + strings.Join(strings.Fields(strings.ToLower(address)), " ")
}

var _ geo.Geocoder = (*CachedGeocoder)(nil)
