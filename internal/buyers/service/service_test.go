package service

import (
	"context"
	"testing"

	"lead_broker_backend/internal/buyers/repository"
	"lead_broker_backend/internal/buyers/transport"
	"lead_broker_backend/platform/apperr"
	"lead_broker_backend/platform/logger"
)

func TestSampleBuyersAreValid(t *testing.T) {
	seen := map[string]bool{}
	for _, b := range SampleBuyers() {
		if err := b.Validate(); err != nil {
			t.Fatalf("sample buyer %s invalid: %v", b.ID, err)
		}
		if seen[b.ID] {
			t.Fatalf("duplicate sample buyer %s", b.ID)
		}
		seen[b.ID] = true
	}
	for _, id := range []string{"B001", "B002", "B003"} {
		if !seen[id] {
			t.Fatalf("missing sample buyer %s", id)
		}
	}
}

func TestSeedSampleBuyersIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := New(repository.NewMemory(), logger.Discard())

	first, err := svc.SeedSampleBuyers(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if first.Count != len(SampleBuyers()) {
		t.Fatalf("expected %d inserted, got %d", len(SampleBuyers()), first.Count)
	}

	second, err := svc.SeedSampleBuyers(ctx)
	if err != nil {
		t.Fatalf("seed again: %v", err)
	}
	if second.Count != 0 || second.Total != first.Total {
		t.Fatalf("expected no new buyers on second seed, got %+v", second)
	}
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	svc := New(repository.NewMemory(), logger.Discard())
	if _, err := svc.SeedSampleBuyers(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}

	res, err := svc.List(ctx, transport.ListBuyersRequest{Tier: "Platinum"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, b := range res.Items {
		found := false
		for _, tier := range b.AcceptedTiers {
			if tier == "platinum" {
				found = true
			}
		}
		if !found {
			t.Fatalf("buyer %s does not accept platinum", b.ID)
		}
	}
	if res.Total != 3 {
		t.Fatalf("expected 3 platinum buyers, got %d", res.Total)
	}

	res, err = svc.List(ctx, transport.ListBuyersRequest{Region: "dallas"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Total != 1 || res.Items[0].ID != "B003" {
		t.Fatalf("expected only B003 to list Dallas, got %+v", res.Items)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	svc := New(repository.NewMemory(), logger.Discard())
	_, err := svc.GetByID(context.Background(), "B999")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
