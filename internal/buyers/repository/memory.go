package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"lead_broker_backend/internal/buyers/domain"
	"lead_broker_backend/internal/geo"
)

// Memory is an in-process buyer store. All mutations happen under one mutex,
// which makes Reserve a linearizable compare-and-decrement.
type Memory struct {
	mu     sync.Mutex
	buyers map[string]domain.Buyer
	// exhausted holds buyers that Reserve deactivated by taking their last
	// unit of capacity. Only those are reactivated by Release.
	exhausted map[string]bool
	now       func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		buyers:    make(map[string]domain.Buyer),
		exhausted: make(map[string]bool),
		now:       time.Now,
	}
}

func (m *Memory) List(_ context.Context, filter domain.Filter) ([]domain.Buyer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Buyer, 0, len(m.buyers))
	for _, b := range m.buyers {
		if filter.Matches(b) {
			out = append(out, clone(b))
		}
	}
	sortByID(out)
	return out, nil
}

func (m *Memory) Snapshot(_ context.Context) ([]domain.Buyer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Buyer, 0, len(m.buyers))
	for _, b := range m.buyers {
		if !b.CanTakeLeads() {
			continue
		}
		if err := b.Validate(); err != nil {
			return nil, err
		}
		out = append(out, clone(b))
	}
	sortByID(out)
	return out, nil
}

func (m *Memory) Get(_ context.Context, id string) (domain.Buyer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buyers[id]
	if !ok {
		return domain.Buyer{}, domain.ErrNotFound
	}
	return clone(b), nil
}

func (m *Memory) InsertIfAbsent(_ context.Context, buyer domain.Buyer) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.buyers[buyer.ID]; exists {
		return false, nil
	}
	now := m.now()
	buyer.CreatedAt, buyer.UpdatedAt = now, now
	m.buyers[buyer.ID] = clone(buyer)
	return true, nil
}

// Put stores buyer unconditionally. It is meant for seeding and tests; it
// bypasses Reserve and so must not be used to adjust capacity at runtime.
func (m *Memory) Put(buyer domain.Buyer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buyers[buyer.ID] = clone(buyer)
	delete(m.exhausted, buyer.ID)
}

func (m *Memory) Reserve(_ context.Context, id string) (domain.Buyer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buyers[id]
	if !ok {
		return domain.Buyer{}, domain.ErrNotFound
	}
	if !b.CanTakeLeads() {
		return domain.Buyer{}, domain.ErrCapacityExhausted
	}
	b.RemainingCapacity--
	if b.RemainingCapacity == 0 {
		b.Active = false
		m.exhausted[id] = true
	}
	b.UpdatedAt = m.now()
	m.buyers[id] = b
	return clone(b), nil
}

func (m *Memory) Release(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buyers[id]
	if !ok {
		return domain.ErrNotFound
	}
	if m.exhausted[id] {
		b.Active = true
		delete(m.exhausted, id)
	}
	if b.RemainingCapacity < b.Capacity {
		b.RemainingCapacity++
	}
	b.UpdatedAt = m.now()
	m.buyers[id] = b
	return nil
}

func (m *Memory) ListMissingCenter(_ context.Context, limit int) ([]domain.Buyer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Buyer, 0)
	for _, b := range m.buyers {
		if b.ServiceArea.Center == nil && b.BaseAddress != "" {
			out = append(out, clone(b))
		}
	}
	sortByID(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) SetCenter(_ context.Context, id string, center geo.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buyers[id]
	if !ok {
		return domain.ErrNotFound
	}
	c := center
	b.ServiceArea.Center = &c
	b.UpdatedAt = m.now()
	m.buyers[id] = b
	return nil
}

func clone(b domain.Buyer) domain.Buyer {
	b.AcceptedTiers = append([]string(nil), b.AcceptedTiers...)
	b.Specialties = append([]string(nil), b.Specialties...)
	b.ServiceArea.Regions = append([]string(nil), b.ServiceArea.Regions...)
	if b.ServiceArea.Center != nil {
		c := *b.ServiceArea.Center
		b.ServiceArea.Center = &c
	}
	if b.ServiceArea.MaxTripMiles != nil {
		v := *b.ServiceArea.MaxTripMiles
		b.ServiceArea.MaxTripMiles = &v
	}
	return b
}

func sortByID(buyers []domain.Buyer) {
	sort.Slice(buyers, func(i, j int) bool { return buyers[i].ID < buyers[j].ID })
}

var _ Repository = (*Memory)(nil)
