package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"lead_broker_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// Memory is an in-process lead store used by tests and the memory backend.
type Memory struct {
	mu          sync.RWMutex
	leads       map[uuid.UUID]domain.Lead
	allocations map[uuid.UUID][]domain.RankedBuyer
	now         func() time.Time
}

// NewMemory creates an empty in-memory lead store.
func NewMemory() *Memory {
	return &Memory{
		leads:       make(map[uuid.UUID]domain.Lead),
		allocations: make(map[uuid.UUID][]domain.RankedBuyer),
		now:         time.Now,
	}
}

func (m *Memory) Create(_ context.Context, lead domain.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.leads[lead.ID]; exists {
		return fmt.Errorf("insert lead: duplicate id %s", lead.ID)
	}
	m.leads[lead.ID] = lead
	return nil
}

func (m *Memory) GetByID(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lead, ok := m.leads[id]
	if !ok {
		return domain.Lead{}, ErrNotFound
	}
	return lead, nil
}

func (m *Memory) List(_ context.Context, params ListParams) ([]domain.Lead, int, error) {
	m.mu.RLock()
	matched := make([]domain.Lead, 0, len(m.leads))
	for _, lead := range m.leads {
		if params.matches(lead) {
			matched = append(matched, lead)
		}
	}
	m.mu.RUnlock()

	sortLeads(matched, params.SortBy, params.SortOrder == "asc")
	total := len(matched)

	start := min(max(params.Offset, 0), total)
	end := total
	if params.Limit > 0 {
		end = min(start+params.Limit, total)
	}
	return matched[start:end], total, nil
}

func (m *Memory) ListAllocations(_ context.Context, leadID uuid.UUID) ([]domain.RankedBuyer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.RankedBuyer, len(m.allocations[leadID]))
	copy(out, m.allocations[leadID])
	return out, nil
}

func (m *Memory) ListUnmatched(_ context.Context, limit int) ([]domain.Lead, error) {
	m.mu.RLock()
	out := make([]domain.Lead, 0)
	for _, lead := range m.leads {
		if lead.Status == domain.StatusUnmatched {
			out = append(out, lead)
		}
	}
	m.mu.RUnlock()

	sortLeads(out, "created_at", true)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) RecordAllocation(_ context.Context, alloc domain.Allocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lead, ok := m.leads[alloc.LeadID]
	if !ok {
		return ErrNotFound
	}
	if !allocationAllowed(lead.Status, alloc.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, lead.Status, alloc.Status)
	}
	lead.Status = alloc.Status
	lead.UpdatedAt = m.now()
	m.leads[lead.ID] = lead

	existing := m.allocations[lead.ID]
	for _, b := range alloc.Buyers {
		if !hasBuyer(existing, b.BuyerID) {
			existing = append(existing, b)
		}
	}
	m.allocations[lead.ID] = existing
	return nil
}

func (m *Memory) UpdateStatus(_ context.Context, id uuid.UUID, status domain.Status) (domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lead, ok := m.leads[id]
	if !ok {
		return domain.Lead{}, ErrNotFound
	}
	if !domain.CanTransition(lead.Status, status) {
		return domain.Lead{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, lead.Status, status)
	}
	lead.Status = status
	lead.UpdatedAt = m.now()
	m.leads[id] = lead
	return lead, nil
}

func (m *Memory) ExpireStale(_ context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expired := make([]uuid.UUID, 0)
	for id, lead := range m.leads {
		if !isExpirable(lead.Status) || !lead.CreatedAt.Before(cutoff) {
			continue
		}
		lead.Status = domain.StatusExpired
		lead.UpdatedAt = m.now()
		m.leads[id] = lead
		expired = append(expired, id)
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].String() < expired[j].String() })
	return expired, nil
}

func (p ListParams) matches(lead domain.Lead) bool {
	if p.Status != nil && lead.Status != *p.Status {
		return false
	}
	if p.Tier != "" && lead.Tier != p.Tier {
		return false
	}
	if p.Category != "" && lead.Category != p.Category {
		return false
	}
	if p.Search != "" {
		needle := strings.ToLower(p.Search)
		for _, field := range []string{lead.Name, lead.Email, lead.Phone, lead.Origin.Address} {
			if strings.Contains(strings.ToLower(field), needle) {
				return true
			}
		}
		return false
	}
	return true
}

func sortLeads(leads []domain.Lead, sortBy string, asc bool) {
	key := func(a, b domain.Lead) int {
		switch sortBy {
		case "score":
			return compare(a.Score, b.Score)
		case "price":
			return compare(a.PriceCents, b.PriceCents)
		case "distance":
			return compare(a.DistanceMiles, b.DistanceMiles)
		case "status":
			return strings.Compare(string(a.Status), string(b.Status))
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}
	sort.SliceStable(leads, func(i, j int) bool {
		c := key(leads[i], leads[j])
		if c == 0 {
			return leads[i].ID.String() < leads[j].ID.String()
		}
		if asc {
			return c < 0
		}
		return c > 0
	})
}

func compare[T int | int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func isExpirable(s domain.Status) bool {
	for _, e := range expirable {
		if s == e {
			return true
		}
	}
	return false
}

func hasBuyer(buyers []domain.RankedBuyer, id string) bool {
	for _, b := range buyers {
		if b.BuyerID == id {
			return true
		}
	}
	return false
}
