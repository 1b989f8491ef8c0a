package maps

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"lead_broker_backend/internal/geo"
	"lead_broker_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type countingGeocoder struct {
	calls int32
	point geo.Point
	err   error
	delay time.Duration
}

func (g *countingGeocoder) Geocode(ctx context.Context, _ string) (geo.Point, error) {
	atomic.AddInt32(&g.calls, 1)
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	return g.point, g.err
}

func newCache(t *testing.T, next geo.Geocoder) (*CachedGeocoder, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewCachedGeocoder(next, rdb, time.Hour, logger.Discard()), mr
}

func TestCacheServesRepeatLookups(t *testing.T) {
	next := &countingGeocoder{point: geo.Point{Lat: 30.2672, Lon: -97.7431}}
	cache, mr := newCache(t, next)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p, err := cache.Geocode(ctx, "500  Congress Ave, AUSTIN")
		if err != nil {
			t.Fatalf("geocode: %v", err)
		}
		if p != next.point {
			t.Fatalf("unexpected point %+v", p)
		}
	}
	if next.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", next.calls)
	}
	if !mr.Exists("geocode:500 congress ave, austin") {
		t.Fatalf("expected normalized cache key, have %v", mr.Keys())
	}
	if ttl := mr.TTL("geocode:500 congress ave, austin"); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", ttl)
	}
}

func TestCacheRemembersMisses(t *testing.T) {
	next := &countingGeocoder{err: geo.ErrNoResult}
	cache, _ := newCache(t, next)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := cache.Geocode(ctx, "nowhere at all"); !errors.Is(err, geo.ErrNoResult) {
			t.Fatalf("expected ErrNoResult, got %v", err)
		}
	}
	if next.calls != 1 {
		t.Fatalf("expected miss to be cached, got %d calls", next.calls)
	}
}

func TestCacheDoesNotStoreTransientErrors(t *testing.T) {
	next := &countingGeocoder{err: errors.New("timeout")}
	cache, mr := newCache(t, next)

	_, _ = cache.Geocode(context.Background(), "500 Congress Ave")
	if len(mr.Keys()) != 0 {
		t.Fatalf("transient errors must not be cached, have %v", mr.Keys())
	}
}

func TestCacheCollapsesConcurrentLookups(t *testing.T) {
	next := &countingGeocoder{point: geo.Point{Lat: 1, Lon: 1}, delay: 50 * time.Millisecond}
	cache, _ := newCache(t, next)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = cache.Geocode(context.Background(), "same address")
		}()
	}
	wg.Wait()
	if next.calls != 1 {
		t.Fatalf("expected concurrent lookups to collapse, got %d calls", next.calls)
	}
}

func TestCacheSurvivesRedisOutage(t *testing.T) {
	next := &countingGeocoder{point: geo.Point{Lat: 2, Lon: 2}}
	cache, mr := newCache(t, next)
	mr.Close()

	p, err := cache.Geocode(context.Background(), "500 Congress Ave")
	if err != nil || p != next.point {
		t.Fatalf("expected upstream result despite redis outage, got %+v %v", p, err)
	}
}
