package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"lead_broker_backend/internal/leads/domain"

	"github.com/google/uuid"
)

var created = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

func newLead(score int, status domain.Status, age time.Duration) domain.Lead {
	return domain.Lead{
		ID:        uuid.New(),
		Name:      "Jane Doe",
		Category:  "local-move",
		Score:     score,
		Tier:      "gold",
		Status:    status,
		CreatedAt: created.Add(-age),
		UpdatedAt: created.Add(-age),
	}
}

func TestRecordAllocationTransitions(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	lead := newLead(80, domain.StatusNew, 0)
	if err := repo.Create(ctx, lead); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := repo.RecordAllocation(ctx, domain.Allocation{LeadID: lead.ID, Status: domain.StatusUnmatched}); err != nil {
		t.Fatalf("new -> unmatched: %v", err)
	}
	if err := repo.RecordAllocation(ctx, domain.Allocation{LeadID: lead.ID, Status: domain.StatusUnmatched}); err != nil {
		t.Fatalf("unmatched retry staying unmatched: %v", err)
	}

	alloc := domain.Allocation{
		LeadID: lead.ID,
		Status: domain.StatusDistributed,
		Buyers: []domain.RankedBuyer{{BuyerID: "B1", Rank: 1}, {BuyerID: "B2", Rank: 2}},
	}
	if err := repo.RecordAllocation(ctx, alloc); err != nil {
		t.Fatalf("unmatched -> distributed: %v", err)
	}
	if err := repo.RecordAllocation(ctx, alloc); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition on second distribution, got %v", err)
	}

	buyers, _ := repo.ListAllocations(ctx, lead.ID)
	if len(buyers) != 2 || buyers[0].BuyerID != "B1" {
		t.Fatalf("unexpected allocations: %+v", buyers)
	}
}

func TestUpdateStatusRejectsIllegalTransitions(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	lead := newLead(80, domain.StatusDistributed, 0)
	_ = repo.Create(ctx, lead)

	got, err := repo.UpdateStatus(ctx, lead.ID, domain.StatusSold)
	if err != nil {
		t.Fatalf("distributed -> sold: %v", err)
	}
	if got.Status != domain.StatusSold {
		t.Fatalf("expected sold, got %s", got.Status)
	}
	if _, err := repo.UpdateStatus(ctx, lead.ID, domain.StatusExpired); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected sold to be terminal, got %v", err)
	}
	if _, err := repo.UpdateStatus(ctx, uuid.New(), domain.StatusSold); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListFiltersSortsAndPages(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	for i, score := range []int{40, 90, 70, 55} {
		lead := newLead(score, domain.StatusDistributed, time.Duration(i)*time.Hour)
		_ = repo.Create(ctx, lead)
	}
	unmatched := newLead(20, domain.StatusUnmatched, 0)
	_ = repo.Create(ctx, unmatched)

	status := domain.StatusDistributed
	page, total, err := repo.List(ctx, ListParams{Status: &status, SortBy: "score", Offset: 1, Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 4 {
		t.Fatalf("expected total 4, got %d", total)
	}
	if len(page) != 2 || page[0].Score != 70 || page[1].Score != 55 {
		t.Fatalf("unexpected page: %d items", len(page))
	}

	_, total, _ = repo.List(ctx, ListParams{Offset: 50, Limit: 10})
	if total != 5 {
		t.Fatalf("expected total 5 past the end, got %d", total)
	}
}

func TestExpireStaleOnlyTouchesOldUnsoldLeads(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	old := newLead(50, domain.StatusUnmatched, 48*time.Hour)
	oldSold := newLead(50, domain.StatusSold, 48*time.Hour)
	fresh := newLead(50, domain.StatusDistributed, time.Hour)
	for _, l := range []domain.Lead{old, oldSold, fresh} {
		_ = repo.Create(ctx, l)
	}

	ids, err := repo.ExpireStale(ctx, created.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if len(ids) != 1 || ids[0] != old.ID {
		t.Fatalf("expected only the old unmatched lead, got %v", ids)
	}
	got, _ := repo.GetByID(ctx, oldSold.ID)
	if got.Status != domain.StatusSold {
		t.Fatalf("sold lead must stay sold, got %s", got.Status)
	}
}

func TestListUnmatchedOldestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	newer := newLead(30, domain.StatusUnmatched, time.Hour)
	older := newLead(30, domain.StatusUnmatched, 5*time.Hour)
	_ = repo.Create(ctx, newer)
	_ = repo.Create(ctx, older)
	_ = repo.Create(ctx, newLead(30, domain.StatusDistributed, 9*time.Hour))

	got, _ := repo.ListUnmatched(ctx, 10)
	if len(got) != 2 || got[0].ID != older.ID {
		t.Fatalf("expected older unmatched lead first")
	}
}
