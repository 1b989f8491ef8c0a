// Package matching ranks the buyers eligible for a lead.
package matching

import (
	"sort"

	buyerdomain "lead_broker_backend/internal/buyers/domain"
	"lead_broker_backend/internal/geo"
	"lead_broker_backend/internal/leads/domain"
)

// Candidate is an eligible buyer with the facts used to rank it.
type Candidate struct {
	Buyer          buyerdomain.Buyer
	TierPreference int
	// CenterMiles is the distance from the buyer's base to the lead origin,
	// nil when unknown.
	CenterMiles *float64
}

// Matcher filters and orders buyers for a lead. It does not mutate buyers.
type Matcher struct {
	eval *geo.Evaluator
}

// New creates a Matcher that uses eval for coverage checks.
func New(eval *geo.Evaluator) *Matcher {
	return &Matcher{eval: eval}
}

// Match returns every buyer that is active, has capacity left, accepts the
// lead's tier and covers its origin, best first. Order: stronger tier
// preference, more remaining capacity, closer base (unknown last), buyer ID.
func (m *Matcher) Match(lead domain.Lead, buyers []buyerdomain.Buyer) []Candidate {
	origin := lead.OriginResolution()
	trip := lead.Trip()

	candidates := make([]Candidate, 0, len(buyers))
	for _, b := range buyers {
		if !b.CanTakeLeads() {
			continue
		}
		pref, ok := b.TierPreference(lead.Tier)
		if !ok {
			continue
		}
		cov := m.eval.Covers(origin, trip, b.ServiceArea)
		if !cov.Covered {
			continue
		}
		candidates = append(candidates, Candidate{Buyer: b, TierPreference: pref, CenterMiles: cov.CenterMiles})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return less(candidates[i], candidates[j])
	})
	return candidates
}

// Select returns the first n candidates. A non-positive n selects none.
func Select(candidates []Candidate, n int) []Candidate {
	if n <= 0 {
		return nil
	}
	if n > len(candidates) {
		n = len(candidates)
	}
	return candidates[:n]
}

// Ranked converts candidates into the allocation representation.
func Ranked(candidates []Candidate) []domain.RankedBuyer {
	out := make([]domain.RankedBuyer, len(candidates))
	for i, c := range candidates {
		out[i] = RankedBuyer(c, i+1)
	}
	return out
}

// RankedBuyer converts one candidate at the given 1-based rank.
func RankedBuyer(c Candidate, rank int) domain.RankedBuyer {
	return domain.RankedBuyer{
		BuyerID:      c.Buyer.ID,
		CompanyName:  c.Buyer.CompanyName,
		ContactEmail: c.Buyer.ContactEmail,
		Rank:         rank,
		CenterMiles:  c.CenterMiles,
	}
}

func less(a, b Candidate) bool {
	if a.TierPreference != b.TierPreference {
		return a.TierPreference < b.TierPreference
	}
	if a.Buyer.RemainingCapacity != b.Buyer.RemainingCapacity {
		return a.Buyer.RemainingCapacity > b.Buyer.RemainingCapacity
	}
	switch {
	case a.CenterMiles != nil && b.CenterMiles != nil:
		if *a.CenterMiles != *b.CenterMiles {
			return *a.CenterMiles < *b.CenterMiles
		}
	case a.CenterMiles != nil:
		return true
	case b.CenterMiles != nil:
		return false
	}
	return a.Buyer.ID < b.Buyer.ID
}
