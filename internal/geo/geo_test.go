package geo

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"lead_broker_backend/platform/logger"
)

var (
	austin = Point{Lat: 30.2672, Lon: -97.7431}
	dallas = Point{Lat: 32.7767, Lon: -96.7970}
)

type fakeGeocoder struct {
	points map[string]Point
	err    error
	block  bool
	calls  atomic.Int32
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address string) (Point, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return Point{}, ctx.Err()
	}
	if f.err != nil {
		return Point{}, f.err
	}
	p, ok := f.points[address]
	if !ok {
		return Point{}, ErrNoResult
	}
	return p, nil
}

func TestHaversine(t *testing.T) {
	d := Haversine(austin, dallas)
	if d < 175 || d > 190 {
		t.Fatalf("expected Austin-Dallas around 182 miles, got %.2f", d)
	}
	if back := Haversine(dallas, austin); math.Abs(back-d) > 1e-9 {
		t.Fatalf("distance must be symmetric: %.6f vs %.6f", d, back)
	}
	if same := Haversine(austin, austin); same != 0 {
		t.Fatalf("expected zero distance for identical points, got %f", same)
	}
}

func TestPointValid(t *testing.T) {
	if !austin.Valid() {
		t.Fatalf("expected austin to be valid")
	}
	if (Point{Lat: 91}).Valid() || (Point{Lon: -181}).Valid() || (Point{Lat: math.NaN()}).Valid() {
		t.Fatalf("expected out-of-range points to be invalid")
	}
}

func TestResolveUsesKnownCoordinates(t *testing.T) {
	g := &fakeGeocoder{}
	e := NewEvaluator(g, Options{}, logger.Discard())

	res := e.Resolve(context.Background(), Location{Address: "Austin, TX", Point: &austin})
	if res.Fallback || res.Point != austin {
		t.Fatalf("expected known coordinates, got %+v", res)
	}
	if g.calls.Load() != 0 {
		t.Fatalf("geocoder must not be called when coordinates are known")
	}
}

func TestResolveTimesOutToFallback(t *testing.T) {
	g := &fakeGeocoder{block: true}
	e := NewEvaluator(g, Options{Timeout: 20 * time.Millisecond}, logger.Discard())

	start := time.Now()
	res := e.Resolve(context.Background(), Location{Address: "nowhere"})
	if !res.Fallback {
		t.Fatalf("expected fallback resolution")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("lookup was not bounded by the timeout: %v", elapsed)
	}
}

func TestDistanceFallbackIsLargeNotZero(t *testing.T) {
	e := NewEvaluator(&fakeGeocoder{err: errors.New("upstream down")}, Options{}, logger.Discard())

	d := e.Distance(context.Background(), Location{Address: "a"}, Location{Address: "b"})
	if !d.Fallback || d.Miles != DefaultFallbackMiles {
		t.Fatalf("expected fallback distance %v, got %+v", DefaultFallbackMiles, d)
	}
}

func TestDistanceIsDeterministic(t *testing.T) {
	g := &fakeGeocoder{points: map[string]Point{"Austin, TX": austin, "Dallas, TX": dallas}}
	e := NewEvaluator(g, Options{}, logger.Discard())

	first := e.Distance(context.Background(), Location{Address: "Austin, TX"}, Location{Address: "Dallas, TX"})
	second := e.Distance(context.Background(), Location{Address: "Austin, TX"}, Location{Address: "Dallas, TX"})
	if first != second {
		t.Fatalf("expected identical results, got %+v and %+v", first, second)
	}
	if first.Fallback {
		t.Fatalf("expected resolved distance")
	}
	if first.Miles != RoundMiles(first.Miles) {
		t.Fatalf("expected distance rounded to 0.01, got %v", first.Miles)
	}
}

func TestCovers(t *testing.T) {
	e := NewEvaluator(nil, Options{}, logger.Discard())
	resolved := Resolution{Address: "500 Congress Ave, Austin, TX", Point: austin}
	fallback := Resolution{Address: "somewhere unknown", Fallback: true}
	shortTrip := Distance{Miles: 20}
	longTrip := Distance{Miles: 200}
	fifty := 50.0

	tests := []struct {
		name   string
		origin Resolution
		trip   Distance
		area   ServiceArea
		want   bool
	}{
		{"nationwide", fallback, Distance{Miles: DefaultFallbackMiles, Fallback: true}, ServiceArea{Regions: []string{"Nationwide"}}, true},
		{"region case-insensitive", resolved, shortTrip, ServiceArea{Regions: []string{"AUSTIN"}}, true},
		{"region mismatch", resolved, shortTrip, ServiceArea{Regions: []string{"Houston"}}, false},
		{"radius inside", resolved, shortTrip, ServiceArea{Center: &austin, RadiusMiles: 10}, true},
		{"radius outside", resolved, shortTrip, ServiceArea{Center: &dallas, RadiusMiles: 50}, false},
		{"radius with fallback origin", fallback, shortTrip, ServiceArea{Center: &austin, RadiusMiles: 100}, false},
		{"max trip exceeded", resolved, longTrip, ServiceArea{Regions: []string{"Austin"}, MaxTripMiles: &fifty}, false},
		{"empty area", resolved, shortTrip, ServiceArea{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Covers(tt.origin, tt.trip, tt.area)
			if got.Covered != tt.want {
				t.Fatalf("expected covered=%v, got %+v", tt.want, got)
			}
		})
	}
}

func TestCoversReportsCenterDistance(t *testing.T) {
	e := NewEvaluator(nil, Options{}, logger.Discard())
	cov := e.Covers(Resolution{Address: "Dallas", Point: dallas}, Distance{Miles: 5}, ServiceArea{Center: &austin, RadiusMiles: 250})
	if !cov.Covered || cov.CenterMiles == nil {
		t.Fatalf("expected covered with known distance, got %+v", cov)
	}
	if *cov.CenterMiles < 175 || *cov.CenterMiles > 190 {
		t.Fatalf("unexpected center distance %v", *cov.CenterMiles)
	}

	regionOnly := e.Covers(Resolution{Address: "Dallas", Point: dallas}, Distance{Miles: 5}, ServiceArea{Regions: []string{"Dallas"}})
	if regionOnly.CenterMiles != nil {
		t.Fatalf("expected unknown distance for a region-only buyer")
	}
}
