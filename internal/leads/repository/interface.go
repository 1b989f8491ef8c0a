// Package repository persists leads and their buyer allocations.
package repository

import (
	"context"
	"errors"
	"time"

	"lead_broker_backend/internal/leads/domain"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("lead not found")
	ErrInvalidTransition = errors.New("invalid lead status transition")
)

// ListParams filters and pages a lead listing.
type ListParams struct {
	Status    *domain.Status
	Tier      string
	Category  string
	Search    string
	SortBy    string
	SortOrder string
	Offset    int
	Limit     int
}

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	List(ctx context.Context, params ListParams) ([]domain.Lead, int, error)
	ListAllocations(ctx context.Context, leadID uuid.UUID) ([]domain.RankedBuyer, error)
	// ListUnmatched returns the oldest unmatched leads first.
	ListUnmatched(ctx context.Context, limit int) ([]domain.Lead, error)
}

// LeadWriter provides write operations for the lead lifecycle.
type LeadWriter interface {
	Create(ctx context.Context, lead domain.Lead) error
	// RecordAllocation stores the reserved buyers and moves a new or
	// unmatched lead to the allocation status.
	RecordAllocation(ctx context.Context, allocation domain.Allocation) error
	// UpdateStatus applies a lifecycle transition, returning
	// ErrInvalidTransition when the current status does not allow it.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) (domain.Lead, error)
	// ExpireStale expires unsold leads created before cutoff.
	ExpireStale(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
}

// LeadRepository combines all lead store operations.
type LeadRepository interface {
	LeadReader
	LeadWriter
}

// allocationAllowed reports whether a lead in from may record an allocation
// ending in to. Retrying an unmatched lead that still finds nobody keeps it
// unmatched.
func allocationAllowed(from, to domain.Status) bool {
	if from == domain.StatusUnmatched && to == domain.StatusUnmatched {
		return true
	}
	return (from == domain.StatusNew || from == domain.StatusUnmatched) && domain.CanTransition(from, to)
}

// expirable are the statuses ExpireStale acts on.
var expirable = []domain.Status{domain.StatusUnmatched, domain.StatusDistributed}
