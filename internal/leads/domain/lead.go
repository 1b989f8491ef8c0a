package domain

import (
	"time"

	"lead_broker_backend/internal/geo"
	"lead_broker_backend/internal/leads/estimate"

	"github.com/google/uuid"
)

// Lead is a scored and priced service request. Score, tier and price are
// fixed at creation; afterwards only Status changes.
type Lead struct {
	ID           uuid.UUID
	Name         string
	Email        string
	Phone        string
	Category     string
	Size         string
	Timeline     string
	MoveDate     *time.Time
	SpecialItems []string

	Origin      geo.Location
	Destination geo.Location

	Score            int
	ScoreBreakdown   map[string]int
	Tier             string
	PriceCents       int64
	DistanceMiles    float64
	DistanceFallback bool
	Estimate         estimate.Estimate

	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OriginResolution returns the lead origin as the geo package sees it. A lead
// without stored origin coordinates counts as a fallback resolution.
func (l Lead) OriginResolution() geo.Resolution {
	if l.Origin.Point == nil || !l.Origin.Point.Valid() {
		return geo.Resolution{Address: l.Origin.Address, Fallback: true}
	}
	return geo.Resolution{Address: l.Origin.Address, Point: *l.Origin.Point}
}

// Trip returns the stored trip distance.
func (l Lead) Trip() geo.Distance {
	return geo.Distance{Miles: l.DistanceMiles, Fallback: l.DistanceFallback}
}

// RankedBuyer is one buyer in an allocation, in match order.
type RankedBuyer struct {
	BuyerID      string   `json:"buyerId"`
	CompanyName  string   `json:"companyName"`
	ContactEmail string   `json:"contactEmail"`
	Rank         int      `json:"rank"`
	CenterMiles  *float64 `json:"centerMiles,omitempty"`
}

// Allocation is the outcome of distributing one lead.
type Allocation struct {
	LeadID     uuid.UUID
	Tier       string
	PriceCents int64
	// Candidates is the ranked eligible pool from the first match pass.
	Candidates []RankedBuyer
	// Buyers are the buyers whose capacity was actually reserved.
	Buyers []RankedBuyer
	Status Status
	// Conflicts counts reservations lost to concurrent allocations.
	Conflicts int
}

// BuyerIDs returns the IDs of the reserved buyers.
func (a Allocation) BuyerIDs() []string {
	ids := make([]string, len(a.Buyers))
	for i, b := range a.Buyers {
		ids[i] = b.BuyerID
	}
	return ids
}
