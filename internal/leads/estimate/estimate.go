// Package estimate produces the instant move-cost range shown to the
// submitter. It is informational only and plays no part in lead pricing.
package estimate

import (
	"math"
	"strings"

	"lead_broker_backend/internal/geo"
)

const (
	baseRateCents      = 15000
	mileageRateCents   = 250
	materialsRateCents = 5000
	specialItemCents   = 10000
	defaultSizeFactor  = 1.5
	lowFactor          = 0.8
	highFactor         = 1.2
	roundToCents       = 1000
)

var sizeMultipliers = map[string]float64{
	"studio": 1.0,
	"1br":    1.2,
	"2-3br":  1.8,
	"4+br":   2.5,
	"office": 2.0,
}

// Estimate is a cost range in cents with its components.
type Estimate struct {
	LowCents         int64 `json:"lowCents"`
	TypicalCents     int64 `json:"typicalCents"`
	HighCents        int64 `json:"highCents"`
	LaborCents       int64 `json:"laborCents"`
	TravelCents      int64 `json:"travelCents"`
	MaterialsCents   int64 `json:"materialsCents"`
	SpecialItemCents int64 `json:"specialItemCents"`
	// Approximate is set when the trip distance was unknown and travel was
	// left out of the figure.
	Approximate bool `json:"approximate"`
}

// SizeMultiplier returns the crew/truck factor for a move size.
func SizeMultiplier(size string) float64 {
	if m, ok := sizeMultipliers[strings.ReplaceAll(strings.ToLower(strings.TrimSpace(size)), " ", "")]; ok {
		return m
	}
	return defaultSizeFactor
}

// Calculate prices a move of the given size, distance and special items.
func Calculate(size string, distance geo.Distance, specialItems int) Estimate {
	multiplier := SizeMultiplier(size)

	miles := distance.Miles
	approximate := distance.Fallback || math.IsNaN(miles) || miles < 0
	if approximate {
		miles = 0
	}
	if specialItems < 0 {
		specialItems = 0
	}

	labor := float64(baseRateCents) * multiplier
	travel := miles * mileageRateCents
	materials := float64(materialsRateCents) * multiplier
	special := float64(specialItems * specialItemCents)
	typical := labor + travel + materials + special

	return Estimate{
		LowCents:         roundTen(typical * lowFactor),
		TypicalCents:     roundTen(typical),
		HighCents:        roundTen(typical * highFactor),
		LaborCents:       roundTen(labor),
		TravelCents:      roundTen(travel),
		MaterialsCents:   roundTen(materials),
		SpecialItemCents: int64(special),
		Approximate:      approximate,
	}
}

// roundTen rounds a cent amount to the nearest ten dollars.
func roundTen(cents float64) int64 {
	return int64(math.Round(cents/roundToCents)) * roundToCents
}
