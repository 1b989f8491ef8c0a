package distribution

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	buyerdomain "lead_broker_backend/internal/buyers/domain"
	buyerrepo "lead_broker_backend/internal/buyers/repository"
	buyerservice "lead_broker_backend/internal/buyers/service"
	"lead_broker_backend/internal/geo"
	"lead_broker_backend/internal/leads/domain"
	"lead_broker_backend/internal/leads/pricing"
	"lead_broker_backend/platform/logger"
)

var (
	now         = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	austin      = geo.Point{Lat: 30.2672, Lon: -97.7431}
	sanAntonio  = geo.Point{Lat: 29.4241, Lon: -98.4936}
	errDatabase = errors.New("database unavailable")
)

type recordingWriter struct {
	mu          sync.Mutex
	allocations []domain.Allocation
	err         error
}

func (w *recordingWriter) RecordAllocation(_ context.Context, a domain.Allocation) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.allocations = append(w.allocations, a)
	return nil
}

type corruptSource struct{}

func (corruptSource) Snapshot(context.Context) ([]buyerdomain.Buyer, error) {
	return nil, buyerdomain.ErrCorruptBuyer
}

// racingLedger drains a buyer right before the first reservation attempt.
type racingLedger struct {
	*buyerrepo.Memory
	once  sync.Once
	steal string
}

func (l *racingLedger) Reserve(ctx context.Context, id string) (buyerdomain.Buyer, error) {
	l.once.Do(func() {
		for {
			if _, err := l.Memory.Reserve(ctx, l.steal); err != nil {
				return
			}
		}
	})
	return l.Memory.Reserve(ctx, id)
}

func newDistributor(store *buyerrepo.Memory, writer StatusWriter, policy Policy) *Distributor {
	eval := geo.NewEvaluator(nil, geo.Options{}, logger.Discard())
	return New(eval, pricing.DefaultTable(), store, store, writer, policy, logger.Discard())
}

func sampleStore() *buyerrepo.Memory {
	store := buyerrepo.NewMemory()
	for _, b := range buyerservice.SampleBuyers() {
		store.Put(b)
	}
	return store
}

func highQualitySubmission() domain.Submission {
	origin, dest := austin, sanAntonio
	return domain.Submission{
		Name:               "Jane Doe",
		Email:              "jane@example.com",
		Phone:              "(512) 555-0142",
		Category:           "local-move",
		Timeline:           "within 2 weeks",
		OriginAddress:      "500 Congress Ave, Austin, TX",
		DestinationAddress: "100 Alamo Plaza, San Antonio, TX",
		OriginPoint:        &origin,
		DestinationPoint:   &dest,
	}
}

func lowQualitySubmission() domain.Submission {
	return domain.Submission{
		Name:               "Sam Lee",
		Category:           "local-move",
		Size:               "2-3br",
		Timeline:           "not sure",
		OriginAddress:      "somewhere near the lake",
		DestinationAddress: "the other side of town",
	}
}

func TestHighQualityLeadIsDistributed(t *testing.T) {
	store := sampleStore()
	writer := &recordingWriter{}
	d := newDistributor(store, writer, DefaultPolicy())

	lead, res, err := d.Distribute(context.Background(), highQualitySubmission(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lead.Score < 80 {
		t.Fatalf("expected score >= 80, got %d (%v)", lead.Score, lead.ScoreBreakdown)
	}
	if lead.Tier != pricing.TierGold && lead.Tier != pricing.TierPlatinum {
		t.Fatalf("expected gold or platinum, got %s", lead.Tier)
	}
	if lead.Status != domain.StatusDistributed {
		t.Fatalf("expected distributed, got %s", lead.Status)
	}

	ids := res.Allocation.BuyerIDs()
	if len(ids) != 2 || ids[0] != "B004" || ids[1] != "B002" {
		t.Fatalf("expected [B004 B002], got %v", ids)
	}
	b, _ := store.Get(context.Background(), "B004")
	if b.RemainingCapacity != 49 {
		t.Fatalf("expected B004 capacity 49, got %d", b.RemainingCapacity)
	}
	if len(writer.allocations) != 1 || writer.allocations[0].Status != domain.StatusDistributed {
		t.Fatalf("expected one recorded distributed allocation, got %+v", writer.allocations)
	}
}

func TestLowQualityFallbackLeadIsUnmatched(t *testing.T) {
	store := sampleStore()
	writer := &recordingWriter{}
	d := newDistributor(store, writer, DefaultPolicy())

	lead, res, err := d.Distribute(context.Background(), lowQualitySubmission(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lead.Score >= 40 {
		t.Fatalf("expected score < 40, got %d", lead.Score)
	}
	if lead.Tier != pricing.TierBronze {
		t.Fatalf("expected bronze, got %s", lead.Tier)
	}
	if !lead.DistanceFallback || lead.DistanceMiles != geo.DefaultFallbackMiles {
		t.Fatalf("expected fallback distance, got %v (fallback=%v)", lead.DistanceMiles, lead.DistanceFallback)
	}
	if len(res.Allocation.Buyers) != 0 || lead.Status != domain.StatusUnmatched {
		t.Fatalf("expected unmatched lead, got %s with %v", lead.Status, res.Allocation.BuyerIDs())
	}
}

func TestInvalidSubmissionContactsNothing(t *testing.T) {
	writer := &recordingWriter{}
	d := newDistributor(sampleStore(), writer, DefaultPolicy())

	_, _, err := d.Distribute(context.Background(), domain.Submission{Name: "Jo"}, now)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(writer.allocations) != 0 {
		t.Fatalf("expected no allocation recorded")
	}
}

func TestExclusiveModeSelectsOneBuyer(t *testing.T) {
	d := newDistributor(sampleStore(), &recordingWriter{}, Policy{Mode: ModeExclusive})

	_, res, err := d.Distribute(context.Background(), highQualitySubmission(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ids := res.Allocation.BuyerIDs(); len(ids) != 1 || ids[0] != "B004" {
		t.Fatalf("expected [B004], got %v", ids)
	}
	if len(res.Allocation.Candidates) != 2 {
		t.Fatalf("expected both candidates reported, got %d", len(res.Allocation.Candidates))
	}
}

func TestCorruptBuyerPoolIsFatal(t *testing.T) {
	eval := geo.NewEvaluator(nil, geo.Options{}, logger.Discard())
	store := sampleStore()
	writer := &recordingWriter{}
	d := New(eval, pricing.DefaultTable(), corruptSource{}, store, writer, DefaultPolicy(), logger.Discard())

	_, _, err := d.Distribute(context.Background(), highQualitySubmission(), now)
	if !errors.Is(err, buyerdomain.ErrCorruptBuyer) {
		t.Fatalf("expected corrupt buyer error, got %v", err)
	}
	if len(writer.allocations) != 0 {
		t.Fatalf("expected nothing recorded")
	}
}

func TestFailedWriteReleasesCapacity(t *testing.T) {
	store := sampleStore()
	d := newDistributor(store, &recordingWriter{err: errDatabase}, DefaultPolicy())

	_, _, err := d.Distribute(context.Background(), highQualitySubmission(), now)
	if !errors.Is(err, errDatabase) {
		t.Fatalf("expected write error, got %v", err)
	}
	for _, id := range []string{"B002", "B004"} {
		b, _ := store.Get(context.Background(), id)
		if b.RemainingCapacity != b.Capacity {
			t.Fatalf("expected %s capacity restored, got %d/%d", id, b.RemainingCapacity, b.Capacity)
		}
	}
}

func TestReservationConflictFallsThroughToNextBuyer(t *testing.T) {
	store := sampleStore()
	ledger := &racingLedger{Memory: store, steal: "B004"}
	eval := geo.NewEvaluator(nil, geo.Options{}, logger.Discard())
	d := New(eval, pricing.DefaultTable(), store, ledger, &recordingWriter{}, Policy{Mode: ModeExclusive}, logger.Discard())

	_, res, err := d.Distribute(context.Background(), highQualitySubmission(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ids := res.Allocation.BuyerIDs(); len(ids) != 1 || ids[0] != "B002" {
		t.Fatalf("expected fallthrough to B002, got %v", ids)
	}
	if res.Allocation.Conflicts != 1 {
		t.Fatalf("expected one conflict, got %d", res.Allocation.Conflicts)
	}
}

func TestConcurrentAllocationsNeverOversell(t *testing.T) {
	store := buyerrepo.NewMemory()
	store.Put(buyerdomain.Buyer{
		ID:                "ONLY",
		CompanyName:       "Solo Movers",
		ContactEmail:      "solo@example.com",
		ServiceArea:       geo.ServiceArea{Regions: []string{geo.Nationwide}},
		AcceptedTiers:     []string{pricing.TierGold, pricing.TierPlatinum},
		Capacity:          3,
		RemainingCapacity: 3,
		Active:            true,
	})
	writer := &recordingWriter{}
	d := newDistributor(store, writer, Policy{Mode: ModeExclusive})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := d.Distribute(context.Background(), highQualitySubmission(), now); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	distributed := 0
	for _, a := range writer.allocations {
		if a.Status == domain.StatusDistributed {
			distributed++
		}
	}
	if distributed != 3 {
		t.Fatalf("expected exactly 3 distributed leads, got %d", distributed)
	}
	b, _ := store.Get(context.Background(), "ONLY")
	if b.RemainingCapacity != 0 || b.Active {
		t.Fatalf("expected exhausted inactive buyer, got %+v", b)
	}
}

func TestExhaustedBuyersAreReported(t *testing.T) {
	store := buyerrepo.NewMemory()
	store.Put(buyerdomain.Buyer{
		ID:                "LAST",
		ServiceArea:       geo.ServiceArea{Regions: []string{geo.Nationwide}},
		AcceptedTiers:     []string{pricing.TierGold},
		Capacity:          1,
		RemainingCapacity: 1,
		Active:            true,
	})
	d := newDistributor(store, &recordingWriter{}, DefaultPolicy())

	_, res, err := d.Distribute(context.Background(), highQualitySubmission(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Exhausted) != 1 || res.Exhausted[0].ID != "LAST" {
		t.Fatalf("expected LAST reported exhausted, got %+v", res.Exhausted)
	}
}

func TestPolicySelectionCount(t *testing.T) {
	if got := (Policy{Mode: ModeExclusive, SharedLimit: 9}).SelectionCount(); got != 1 {
		t.Fatalf("exclusive: expected 1, got %d", got)
	}
	if got := (Policy{Mode: ModeShared, SharedLimit: 3}).SelectionCount(); got != 3 {
		t.Fatalf("shared: expected 3, got %d", got)
	}
	if got := (Policy{}).SelectionCount(); got != DefaultSharedLimit {
		t.Fatalf("default: expected %d, got %d", DefaultSharedLimit, got)
	}
}
