package domain

import (
	"errors"
	"math"
	"testing"

	"lead_broker_backend/internal/geo"
)

func validBuyer() Buyer {
	return Buyer{
		ID:                "B001",
		CompanyName:       "Swift Local Movers",
		AcceptedTiers:     []string{"silver", "bronze"},
		Capacity:          10,
		RemainingCapacity: 4,
		Active:            true,
		ServiceArea:       geo.ServiceArea{Regions: []string{"Austin"}},
	}
}

func TestValidate(t *testing.T) {
	if err := validBuyer().Validate(); err != nil {
		t.Fatalf("expected valid buyer, got %v", err)
	}

	badCenter := geo.Point{Lat: math.NaN()}
	tests := map[string]func(*Buyer){
		"missing id":        func(b *Buyer) { b.ID = " " },
		"negative capacity": func(b *Buyer) { b.Capacity = -1 },
		"remaining > cap":   func(b *Buyer) { b.RemainingCapacity = 11 },
		"no tiers":          func(b *Buyer) { b.AcceptedTiers = nil },
		"bad center":        func(b *Buyer) { b.ServiceArea.Center = &badCenter },
		"negative radius":   func(b *Buyer) { b.ServiceArea.RadiusMiles = -5 },
	}
	for name, mutate := range tests {
		b := validBuyer()
		mutate(&b)
		if err := b.Validate(); !errors.Is(err, ErrCorruptBuyer) {
			t.Fatalf("%s: expected ErrCorruptBuyer, got %v", name, err)
		}
	}
}

func TestTierPreference(t *testing.T) {
	b := validBuyer()
	if idx, ok := b.TierPreference("BRONZE"); !ok || idx != 1 {
		t.Fatalf("expected bronze at index 1, got %d %v", idx, ok)
	}
	if b.Accepts("platinum") {
		t.Fatalf("buyer must not accept platinum")
	}
}

func TestFilterMatches(t *testing.T) {
	b := validBuyer()
	inactive := false
	if (Filter{Active: &inactive}).Matches(b) {
		t.Fatalf("active buyer must not match inactive filter")
	}
	if !(Filter{Tier: "silver", Region: "austin"}).Matches(b) {
		t.Fatalf("expected tier and region to match")
	}
	if (Filter{Region: "Dallas"}).Matches(b) {
		t.Fatalf("unexpected region match")
	}
}
