// Package geo resolves addresses to coordinates and evaluates trip distance
// and buyer service-area coverage.
package geo

import (
	"errors"
	"math"
)

// EarthRadiusMiles is the mean Earth radius used by Haversine.
const EarthRadiusMiles = 3958.8

// Nationwide is the region name that covers every origin.
const Nationwide = "Nationwide"

// ErrNoResult is returned by a Geocoder that found no match for an address.
var ErrNoResult = errors.New("geocoder returned no result")

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether p is a finite coordinate inside the WGS84 range.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Location is an address, optionally with coordinates already known.
type Location struct {
	Address string
	Point   *Point
}

// Resolution is the outcome of resolving a Location. When Fallback is true the
// Point is meaningless and distance computations use the fallback distance.
type Resolution struct {
	Address  string
	Point    Point
	Fallback bool
}

// Distance is a trip distance in miles.
type Distance struct {
	Miles    float64 `json:"miles"`
	Fallback bool    `json:"fallback"`
}

// ServiceArea describes where a buyer operates. A buyer covers an origin if
// any region matches the origin address or the origin lies within RadiusMiles
// of Center. MaxTripMiles, when set, additionally caps the trip length.
type ServiceArea struct {
	Center       *Point   `json:"center,omitempty"`
	RadiusMiles  float64  `json:"radiusMiles,omitempty"`
	Regions      []string `json:"regions,omitempty"`
	MaxTripMiles *float64 `json:"maxTripMiles,omitempty"`
}

// HasRadius reports whether the area is defined by a center and radius.
func (a ServiceArea) HasRadius() bool {
	return a.Center != nil && a.RadiusMiles > 0
}

// Coverage is the eligibility of one origin for one service area.
// CenterMiles is nil when the distance to the buyer is unknown.
type Coverage struct {
	Covered     bool
	CenterMiles *float64
}

// Haversine returns the great-circle distance between a and b in miles.
func Haversine(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMiles * c
}

// RoundMiles rounds to 0.01 mile.
func RoundMiles(miles float64) float64 {
	return math.Round(miles*100) / 100
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
