package geo

import (
	"context"
	"strings"
	"time"

	"lead_broker_backend/platform/logger"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
)

const (
	// DefaultFallbackMiles is used when an address cannot be resolved. It
	// exceeds any domestic trip and any buyer radius.
	DefaultFallbackMiles = 9999.0
	// DefaultTimeout bounds a single geocoding lookup.
	DefaultTimeout = 5 * time.Second
)

// Geocoder turns a free-form address into coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Point, error)
}

// Options configures an Evaluator.
type Options struct {
	Timeout       time.Duration
	FallbackMiles float64
}

// Evaluator computes trip distances and buyer coverage.
type Evaluator struct {
	geocoder      Geocoder
	timeout       time.Duration
	fallbackMiles float64
	log           *logger.Logger
}

// Trip is a resolved origin/destination pair and the distance between them.
type Trip struct {
	Origin      Resolution
	Destination Resolution
	Distance    Distance
}

// NewEvaluator creates an Evaluator. A nil geocoder means only locations with
// coordinates can be resolved.
func NewEvaluator(geocoder Geocoder, opts Options, log *logger.Logger) *Evaluator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.FallbackMiles <= 0 {
		opts.FallbackMiles = DefaultFallbackMiles
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Evaluator{
		geocoder:      geocoder,
		timeout:       opts.Timeout,
		fallbackMiles: opts.FallbackMiles,
		log:           log,
	}
}

// FallbackMiles returns the distance substituted for unresolvable trips.
func (e *Evaluator) FallbackMiles() float64 {
	return e.fallbackMiles
}

// Resolve returns coordinates for loc. Known coordinates are used as is;
// otherwise the geocoder is consulted within the configured timeout. Failures
// are logged and reported as a fallback resolution, never as an error.
func (e *Evaluator) Resolve(ctx context.Context, loc Location) Resolution {
	address := strings.TrimSpace(loc.Address)
	if loc.Point != nil && loc.Point.Valid() {
		return Resolution{Address: address, Point: *loc.Point}
	}

	fallback := Resolution{Address: address, Fallback: true}
	if address == "" || e.geocoder == nil {
		e.log.WithContext(ctx).GeocodeFallback(address, e.fallbackMiles, nil)
		return fallback
	}

	lookupCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	point, err := e.geocoder.Geocode(lookupCtx, address)
	if err != nil {
		e.log.WithContext(ctx).GeocodeFallback(address, e.fallbackMiles, err)
		return fallback
	}
	if !point.Valid() {
		e.log.WithContext(ctx).GeocodeFallback(address, e.fallbackMiles, ErrNoResult)
		return fallback
	}

	return Resolution{Address: address, Point: point}
}

// Trip resolves both ends concurrently and measures the distance between them.
func (e *Evaluator) Trip(ctx context.Context, from, to Location) Trip {
	var trip Trip
	var g errgroup.Group
	g.Go(func() error {
		trip.Origin = e.Resolve(ctx, from)
		return nil
	})
	g.Go(func() error {
		trip.Destination = e.Resolve(ctx, to)
		return nil
	})
	_ = g.Wait()

	trip.Distance = e.Between(trip.Origin, trip.Destination)
	return trip
}

// Distance resolves both locations and returns the trip distance.
func (e *Evaluator) Distance(ctx context.Context, from, to Location) Distance {
	return e.Trip(ctx, from, to).Distance
}

// Between measures the distance between two resolutions.
func (e *Evaluator) Between(from, to Resolution) Distance {
	if from.Fallback || to.Fallback {
		return Distance{Miles: e.fallbackMiles, Fallback: true}
	}
	return Distance{Miles: RoundMiles(Haversine(from.Point, to.Point))}
}

// Covers reports whether a buyer with the given service area can serve a lead
// whose origin resolved to origin and whose trip measured trip.
func (e *Evaluator) Covers(origin Resolution, trip Distance, area ServiceArea) Coverage {
	var cov Coverage
	if area.Center != nil && area.Center.Valid() && !origin.Fallback {
		miles := RoundMiles(Haversine(*area.Center, origin.Point))
		cov.CenterMiles = &miles
	}

	if area.MaxTripMiles != nil && trip.Miles > *area.MaxTripMiles {
		return cov
	}

	if MatchesRegion(origin.Address, area.Regions) {
		cov.Covered = true
		return cov
	}

	if area.HasRadius() {
		miles := e.fallbackMiles
		if cov.CenterMiles != nil {
			miles = *cov.CenterMiles
		}
		cov.Covered = miles <= area.RadiusMiles
	}
	return cov
}

// MatchesRegion reports whether address falls in one of regions. Region names
// are matched as case-folded substrings of the address; Nationwide matches any
// address.
func MatchesRegion(address string, regions []string) bool {
	if len(regions) == 0 {
		return false
	}
	fold := cases.Fold()
	folded := fold.String(address)
	for _, region := range regions {
		region = strings.TrimSpace(region)
		if region == "" {
			continue
		}
		if strings.EqualFold(region, Nationwide) {
			return true
		}
		if folded != "" && strings.Contains(folded, fold.String(region)) {
			return true
		}
	}
	return false
}
