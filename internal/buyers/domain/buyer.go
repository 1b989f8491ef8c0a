// Package domain holds the buyer aggregate and its invariants.
package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"lead_broker_backend/internal/geo"
)

var (
	// ErrCapacityExhausted is returned by a reservation when the buyer has no
	// remaining capacity or has been deactivated in the meantime.
	ErrCapacityExhausted = errors.New("buyer capacity exhausted")
	// ErrCorruptBuyer marks buyer data that cannot be interpreted safely.
	ErrCorruptBuyer = errors.New("corrupt buyer record")
	// ErrNotFound is returned when a buyer does not exist.
	ErrNotFound = errors.New("buyer not found")
)

// Buyer is a subscriber that purchases leads inside its service area.
type Buyer struct {
	ID                string
	CompanyName       string
	ContactEmail      string
	ContactPhone      string
	BaseAddress       string
	ServiceArea       geo.ServiceArea
	AcceptedTiers     []string
	Specialties       []string
	Capacity          int
	RemainingCapacity int
	Active            bool
	Rating            float64
	ResponseTimeMins  int
	ConversionRate    float64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CanTakeLeads reports whether the buyer may receive another lead.
func (b Buyer) CanTakeLeads() bool {
	return b.Active && b.RemainingCapacity > 0
}

// TierPreference returns the position of tier in AcceptedTiers. Lower means
// more preferred.
func (b Buyer) TierPreference(tier string) (int, bool) {
	for i, accepted := range b.AcceptedTiers {
		if strings.EqualFold(accepted, tier) {
			return i, true
		}
	}
	return 0, false
}

// Accepts reports whether the buyer buys leads of tier.
func (b Buyer) Accepts(tier string) bool {
	_, ok := b.TierPreference(tier)
	return ok
}

// Validate checks the invariants every stored buyer must satisfy. Violations
// wrap ErrCorruptBuyer.
func (b Buyer) Validate() error {
	switch {
	case strings.TrimSpace(b.ID) == "":
		return fmt.Errorf("%w: missing id", ErrCorruptBuyer)
	case b.Capacity < 0:
		return fmt.Errorf("%w: buyer %s has negative capacity", ErrCorruptBuyer, b.ID)
	case b.RemainingCapacity < 0 || b.RemainingCapacity > b.Capacity:
		return fmt.Errorf("%w: buyer %s remaining capacity %d outside [0,%d]", ErrCorruptBuyer, b.ID, b.RemainingCapacity, b.Capacity)
	case len(b.AcceptedTiers) == 0:
		return fmt.Errorf("%w: buyer %s accepts no tiers", ErrCorruptBuyer, b.ID)
	case b.ServiceArea.Center != nil && !b.ServiceArea.Center.Valid():
		return fmt.Errorf("%w: buyer %s has an invalid service-area center", ErrCorruptBuyer, b.ID)
	case b.ServiceArea.RadiusMiles < 0 || math.IsNaN(b.ServiceArea.RadiusMiles):
		return fmt.Errorf("%w: buyer %s has an invalid radius", ErrCorruptBuyer, b.ID)
	case b.ServiceArea.MaxTripMiles != nil && (*b.ServiceArea.MaxTripMiles < 0 || math.IsNaN(*b.ServiceArea.MaxTripMiles)):
		return fmt.Errorf("%w: buyer %s has an invalid max trip distance", ErrCorruptBuyer, b.ID)
	}
	return nil
}

// Filter narrows a buyer listing.
type Filter struct {
	Active *bool
	Tier   string
	Region string
}

// Matches applies f to b in memory.
func (f Filter) Matches(b Buyer) bool {
	if f.Active != nil && b.Active != *f.Active {
		return false
	}
	if f.Tier != "" && !b.Accepts(f.Tier) {
		return false
	}
	if f.Region != "" {
		for _, r := range b.ServiceArea.Regions {
			if strings.EqualFold(r, f.Region) {
				return true
			}
		}
		return false
	}
	return true
}
