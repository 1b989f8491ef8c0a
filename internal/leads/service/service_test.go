package service

import (
	"context"
	"sync"
	"testing"
	"time"

	buyerdomain "lead_broker_backend/internal/buyers/domain"
	buyerrepo "lead_broker_backend/internal/buyers/repository"
	buyerservice "lead_broker_backend/internal/buyers/service"
	"lead_broker_backend/internal/events"
	"lead_broker_backend/internal/geo"
	"lead_broker_backend/internal/leads/distribution"
	"lead_broker_backend/internal/leads/domain"
	"lead_broker_backend/internal/leads/pricing"
	"lead_broker_backend/internal/leads/repository"
	"lead_broker_backend/internal/leads/transport"
	"lead_broker_backend/platform/apperr"
	"lead_broker_backend/platform/logger"

	"github.com/google/uuid"
)

var fixedNow = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

type harness struct {
	svc    *Service
	leads  *repository.Memory
	buyers *buyerrepo.Memory
	bus    *events.InMemoryBus

	mu        sync.Mutex
	published []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := logger.Discard()
	h := &harness{
		leads:  repository.NewMemory(),
		buyers: buyerrepo.NewMemory(),
		bus:    events.NewInMemoryBus(log),
	}
	for _, b := range buyerservice.SampleBuyers() {
		h.buyers.Put(b)
	}
	record := events.HandlerFunc(func(_ context.Context, e events.Event) error {
		h.mu.Lock()
		h.published = append(h.published, e.EventName())
		h.mu.Unlock()
		return nil
	})
	for _, name := range []string{
		events.LeadSubmitted{}.EventName(),
		events.LeadDistributed{}.EventName(),
		events.LeadUnmatched{}.EventName(),
		events.LeadStatusChanged{}.EventName(),
		events.BuyerCapacityExhausted{}.EventName(),
	} {
		h.bus.Subscribe(name, record)
	}

	eval := geo.NewEvaluator(nil, geo.Options{}, log)
	dist := distribution.New(eval, pricing.DefaultTable(), h.buyers, h.buyers, h.leads, distribution.DefaultPolicy(), log)
	h.svc = New(h.leads, dist, h.bus, log)
	h.svc.now = func() time.Time { return fixedNow }
	return h
}

func (h *harness) events() []string {
	h.bus.Wait()
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.published...)
}

func ptr(v float64) *float64 { return &v }

func highQualityRequest() transport.SubmitLeadRequest {
	return transport.SubmitLeadRequest{
		Name:     "Jane Doe",
		Email:    "jane@example.com",
		Phone:    "(512) 555-0142",
		Category: "local-move",
		Timeline: "within 2 weeks",
		Origin: transport.LocationRequest{
			Address: "500 Congress Ave, Austin, TX", Lat: ptr(30.2672), Lon: ptr(-97.7431),
		},
		Destination: transport.LocationRequest{
			Address: "100 Alamo Plaza, San Antonio, TX", Lat: ptr(29.4241), Lon: ptr(-98.4936),
		},
	}
}

func contains(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}

func TestSubmitDistributesAndStoresLead(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	resp, err := h.svc.Submit(ctx, highQualityRequest())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.Status != string(domain.StatusDistributed) || len(resp.MatchedBuyers) != 2 {
		t.Fatalf("expected distribution to 2 buyers, got %s %+v", resp.Status, resp.MatchedBuyers)
	}
	if resp.Price != float64(resp.PriceCents)/100 {
		t.Fatalf("price and priceCents disagree: %v vs %d", resp.Price, resp.PriceCents)
	}

	stored, err := h.svc.GetByID(ctx, resp.LeadID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != string(domain.StatusDistributed) || len(stored.MatchedBuyers) != 2 {
		t.Fatalf("stored lead mismatch: %+v", stored)
	}
	if stored.Score != resp.Score || stored.Tier != resp.Tier {
		t.Fatalf("stored score/tier changed")
	}

	got := h.events()
	for _, want := range []string{"leads.lead.submitted", "leads.lead.distributed"} {
		if !contains(got, want) {
			t.Fatalf("expected %s event, got %v", want, got)
		}
	}
}

func TestSubmitUnmatchedIsNotAnError(t *testing.T) {
	h := newHarness(t)
	req := transport.SubmitLeadRequest{
		Name:        "Sam Lee",
		Category:    "local-move",
		Size:        "2-3br",
		Timeline:    "not sure",
		Origin:      transport.LocationRequest{Address: "somewhere near the lake"},
		Destination: transport.LocationRequest{Address: "the other side of town"},
	}

	resp, err := h.svc.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.Status != string(domain.StatusUnmatched) || len(resp.MatchedBuyers) != 0 {
		t.Fatalf("expected unmatched, got %s %+v", resp.Status, resp.MatchedBuyers)
	}
	if resp.MatchedBuyers == nil {
		t.Fatalf("matchedBuyers must serialize as an empty list")
	}
	if resp.Tier != pricing.TierBronze || !resp.DistanceFallback {
		t.Fatalf("expected bronze fallback lead, got %s fallback=%v", resp.Tier, resp.DistanceFallback)
	}
	if !contains(h.events(), "leads.lead.unmatched") {
		t.Fatalf("expected unmatched event")
	}
}

func TestSubmitValidationError(t *testing.T) {
	h := newHarness(t)
	req := highQualityRequest()
	req.Category = " "

	_, err := h.svc.Submit(context.Background(), req)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, total, _ := h.leads.List(context.Background(), repository.ListParams{}); total != 0 {
		t.Fatalf("nothing should be stored, got %d leads", total)
	}
}

func TestSubmitRejectsBadMoveDate(t *testing.T) {
	h := newHarness(t)
	req := highQualityRequest()
	req.MoveDate = "next tuesday"

	if _, err := h.svc.Submit(context.Background(), req); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	resp, _ := h.svc.Submit(ctx, highQualityRequest())

	lead, err := h.svc.UpdateStatus(ctx, resp.LeadID, transport.UpdateLeadStatusRequest{Status: "sold"})
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if lead.Status != "sold" {
		t.Fatalf("expected sold, got %s", lead.Status)
	}

	_, err = h.svc.UpdateStatus(ctx, resp.LeadID, transport.UpdateLeadStatusRequest{Status: "expired"})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for sold -> expired, got %v", err)
	}

	_, err = h.svc.UpdateStatus(ctx, uuid.New(), transport.UpdateLeadStatusRequest{Status: "sold"})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRetryUnmatchedPicksUpNewCapacity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := highQualityRequest()
	req.Origin = transport.LocationRequest{Address: "1 Main St, Nowhere, NV", Lat: ptr(39.0), Lon: ptr(-117.0)}
	req.Destination = transport.LocationRequest{Address: "2 Main St, Nowhere, NV", Lat: ptr(39.5), Lon: ptr(-117.2)}

	// Drain the only buyer that covers Nevada.
	for {
		if _, err := h.buyers.Reserve(ctx, "B002"); err != nil {
			break
		}
	}
	resp, err := h.svc.Submit(ctx, req)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.Status != string(domain.StatusUnmatched) {
		t.Fatalf("expected unmatched while B002 is exhausted, got %s", resp.Status)
	}

	h.buyers.Put(buyerdomain.Buyer{
		ID:                "B002",
		CompanyName:       "Premier Moving Services",
		ContactEmail:      "sales@premiermove.com",
		ServiceArea:       geo.ServiceArea{Regions: []string{geo.Nationwide}},
		AcceptedTiers:     []string{"platinum", "gold"},
		Capacity:          10,
		RemainingCapacity: 10,
		Active:            true,
	})

	result, err := h.svc.RetryUnmatched(ctx, 10)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if result.Attempted != 1 || result.Distributed != 1 {
		t.Fatalf("expected 1/1, got %+v", result)
	}
	lead, _ := h.svc.GetByID(ctx, resp.LeadID)
	if lead.Status != string(domain.StatusDistributed) {
		t.Fatalf("expected distributed after retry, got %s", lead.Status)
	}
}

func TestSubmitAllocationFailureLeavesLeadRetryable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var valid buyerdomain.Buyer
	for _, b := range buyerservice.SampleBuyers() {
		if b.ID == "B002" {
			valid = b
		}
	}
	corrupt := valid
	corrupt.AcceptedTiers = nil
	h.buyers.Put(corrupt)

	if _, err := h.svc.Submit(ctx, highQualityRequest()); !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("expected internal error for corrupt pool, got %v", err)
	}
	items, total, err := h.leads.List(ctx, repository.ListParams{})
	if err != nil || total != 1 {
		t.Fatalf("expected the lead to be stored, got %d (%v)", total, err)
	}
	if items[0].Status != domain.StatusUnmatched {
		t.Fatalf("expected unmatched after allocation failure, got %s", items[0].Status)
	}
	if !contains(h.events(), "leads.lead.unmatched") {
		t.Fatalf("expected unmatched event")
	}

	h.buyers.Put(valid)
	result, err := h.svc.RetryUnmatched(ctx, 10)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if result.Attempted != 1 || result.Distributed != 1 {
		t.Fatalf("expected the parked lead to be retried, got %+v", result)
	}
}

func TestSubmitAllocationFailureLeadExpires(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, b := range buyerservice.SampleBuyers() {
		b.AcceptedTiers = nil
		h.buyers.Put(b)
	}
	if _, err := h.svc.Submit(ctx, highQualityRequest()); err == nil {
		t.Fatalf("expected allocation error")
	}

	h.svc.now = func() time.Time { return fixedNow.Add(8 * 24 * time.Hour) }
	n, err := h.svc.ExpireStale(ctx, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected the parked lead to expire, got %d", n)
	}
}

func TestExpireStale(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	resp, _ := h.svc.Submit(ctx, highQualityRequest())

	h.svc.now = func() time.Time { return fixedNow.Add(8 * 24 * time.Hour) }
	n, err := h.svc.ExpireStale(ctx, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired lead, got %d", n)
	}
	lead, _ := h.svc.GetByID(ctx, resp.LeadID)
	if lead.Status != string(domain.StatusExpired) {
		t.Fatalf("expected expired, got %s", lead.Status)
	}
}

func TestListPaginates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := h.svc.Submit(ctx, highQualityRequest()); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	page, err := h.svc.List(ctx, transport.ListLeadsRequest{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 3 || page.TotalPages != 2 || len(page.Items) != 1 {
		t.Fatalf("unexpected page: total=%d pages=%d items=%d", page.Total, page.TotalPages, len(page.Items))
	}
}
