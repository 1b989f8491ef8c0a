// Package service implements the lead lifecycle: submission, listing and
// status changes after distribution.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	buyerdomain "lead_broker_backend/internal/buyers/domain"
	"lead_broker_backend/internal/events"
	"lead_broker_backend/internal/geo"
	"lead_broker_backend/internal/leads/distribution"
	"lead_broker_backend/internal/leads/domain"
	"lead_broker_backend/internal/leads/repository"
	"lead_broker_backend/internal/leads/transport"
	"lead_broker_backend/platform/apperr"
	"lead_broker_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	defaultPageSize   = 20
	maxPageSize       = 100
	defaultRetryBatch = 50
	moveDateLayout    = "2006-01-02"
)

// Service is the lead lifecycle service.
type Service struct {
	repo        repository.LeadRepository
	distributor *distribution.Distributor
	eventBus    events.Bus
	log         *logger.Logger
	now         func() time.Time
}

// New creates the lead service.
func New(repo repository.LeadRepository, distributor *distribution.Distributor, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:        repo,
		distributor: distributor,
		eventBus:    eventBus,
		log:         log,
		now:         time.Now,
	}
}

// Submit qualifies, stores and distributes a new lead. A lead that finds no
// buyer is still accepted and returned with status unmatched.
func (s *Service) Submit(ctx context.Context, req transport.SubmitLeadRequest) (transport.SubmitLeadResponse, error) {
	sub, err := toSubmission(req)
	if err != nil {
		return transport.SubmitLeadResponse{}, err
	}

	now := s.now().UTC()
	lead, err := s.distributor.Qualify(ctx, sub, now)
	if err != nil {
		return transport.SubmitLeadResponse{}, s.mapError("submit lead", err)
	}

	if err := s.repo.Create(ctx, lead); err != nil {
		return transport.SubmitLeadResponse{}, s.mapError("store lead", err)
	}
	ctx = context.WithValue(ctx, logger.LeadIDKey, lead.ID.String())

	s.eventBus.Publish(ctx, events.LeadSubmitted{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        lead.ID,
		Category:      lead.Category,
		Score:         lead.Score,
		Tier:          lead.Tier,
		PriceCents:    lead.PriceCents,
		DistanceMiles: lead.DistanceMiles,
		Fallback:      lead.DistanceFallback,
	})

	res, err := s.distributor.Allocate(ctx, lead)
	if err != nil {
		s.parkUnmatched(ctx, lead)
		return transport.SubmitLeadResponse{}, s.mapError("distribute lead", err)
	}
	lead.Status = res.Allocation.Status
	s.publishAllocation(ctx, res, false)

	return transport.SubmitLeadResponse{
		LeadID:           lead.ID,
		Score:            lead.Score,
		ScoreBreakdown:   lead.ScoreBreakdown,
		Tier:             lead.Tier,
		Price:            float64(lead.PriceCents) / 100,
		PriceCents:       lead.PriceCents,
		MatchedBuyers:    toMatchedBuyers(res.Allocation.Buyers),
		Status:           string(lead.Status),
		DistanceMiles:    lead.DistanceMiles,
		DistanceFallback: lead.DistanceFallback,
		Estimate:         lead.Estimate,
	}, nil
}

// parkUnmatched moves a stored lead whose allocation failed to unmatched so
// that the retry and expiry jobs still see it.
func (s *Service) parkUnmatched(ctx context.Context, lead domain.Lead) {
	ctx = context.WithoutCancel(ctx)
	if _, err := s.repo.UpdateStatus(ctx, lead.ID, domain.StatusUnmatched); err != nil {
		s.log.WithContext(ctx).Error("failed to park lead after allocation error", "error", err)
		return
	}
	s.eventBus.Publish(ctx, events.LeadUnmatched{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		Tier:      lead.Tier,
	})
}

func (s *Service) List(ctx context.Context, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	params := repository.ListParams{
		Tier:      strings.ToLower(req.Tier),
		Category:  strings.ToLower(req.Category),
		Search:    strings.TrimSpace(req.Search),
		SortBy:    mapSortBy(req.SortBy),
		SortOrder: req.SortOrder,
		Offset:    (req.Page - 1) * req.PageSize,
		Limit:     req.PageSize,
	}
	if req.Status != "" {
		status := domain.Status(req.Status)
		params.Status = &status
	}

	leads, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, s.mapError("list leads", err)
	}

	items := make([]transport.LeadResponse, len(leads))
	for i, lead := range leads {
		items[i] = toLeadResponse(lead, nil)
	}

	totalPages := (total + req.PageSize - 1) / req.PageSize
	return transport.LeadListResponse{
		Items:      items,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: totalPages,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, s.mapError("get lead", err)
	}
	buyers, err := s.repo.ListAllocations(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, s.mapError("list allocations", err)
	}
	return toLeadResponse(lead, buyers), nil
}

// UpdateStatus moves a distributed lead to sold or an open lead to expired.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, req transport.UpdateLeadStatusRequest) (transport.LeadResponse, error) {
	before, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, s.mapError("update lead status", err)
	}

	lead, err := s.repo.UpdateStatus(ctx, id, domain.Status(req.Status))
	if err != nil {
		return transport.LeadResponse{}, s.mapError("update lead status", err)
	}

	s.eventBus.Publish(ctx, events.LeadStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    id,
		OldStatus: string(before.Status),
		NewStatus: string(lead.Status),
	})
	return toLeadResponse(lead, nil), nil
}

// RetryUnmatched re-runs allocation for the oldest unmatched leads, picking
// up capacity that was added since they were submitted.
func (s *Service) RetryUnmatched(ctx context.Context, limit int) (transport.RetryUnmatchedResponse, error) {
	if limit < 1 {
		limit = defaultRetryBatch
	}
	leads, err := s.repo.ListUnmatched(ctx, limit)
	if err != nil {
		return transport.RetryUnmatchedResponse{}, s.mapError("list unmatched leads", err)
	}

	var result transport.RetryUnmatchedResponse
	for _, lead := range leads {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Attempted++

		leadCtx := context.WithValue(ctx, logger.LeadIDKey, lead.ID.String())
		res, err := s.distributor.Allocate(leadCtx, lead)
		if err != nil {
			if errors.Is(err, buyerdomain.ErrCorruptBuyer) {
				return result, s.mapError("retry unmatched leads", err)
			}
			s.log.WithContext(leadCtx).Warn("unmatched lead retry failed", "error", err)
			continue
		}
		if res.Allocation.Status == domain.StatusDistributed {
			result.Distributed++
			s.publishAllocation(leadCtx, res, true)
		}
	}

	s.log.WithContext(ctx).Info("unmatched leads retried", "attempted", result.Attempted, "distributed", result.Distributed)
	return result, nil
}

// ExpireStale expires unsold leads older than maxAge and returns how many
// were expired.
func (s *Service) ExpireStale(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().UTC().Add(-maxAge)
	ids, err := s.repo.ExpireStale(ctx, cutoff)
	if err != nil {
		return 0, s.mapError("expire stale leads", err)
	}
	for _, id := range ids {
		s.eventBus.Publish(ctx, events.LeadStatusChanged{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    id,
			NewStatus: string(domain.StatusExpired),
		})
	}
	if len(ids) > 0 {
		s.log.WithContext(ctx).Info("stale leads expired", "count", len(ids), "cutoff", cutoff)
	}
	return len(ids), nil
}

func (s *Service) publishAllocation(ctx context.Context, res distribution.Result, retry bool) {
	alloc := res.Allocation
	if alloc.Status == domain.StatusDistributed {
		buyers := make([]events.DeliveredBuyer, len(alloc.Buyers))
		for i, b := range alloc.Buyers {
			buyers[i] = events.DeliveredBuyer{
				BuyerID:      b.BuyerID,
				CompanyName:  b.CompanyName,
				ContactEmail: b.ContactEmail,
				Rank:         b.Rank,
				CenterMiles:  b.CenterMiles,
			}
		}
		s.eventBus.Publish(ctx, events.LeadDistributed{
			BaseEvent:  events.NewBaseEvent(),
			LeadID:     alloc.LeadID,
			Tier:       alloc.Tier,
			PriceCents: alloc.PriceCents,
			Buyers:     buyers,
			Retry:      retry,
		})
	} else {
		s.eventBus.Publish(ctx, events.LeadUnmatched{
			BaseEvent:  events.NewBaseEvent(),
			LeadID:     alloc.LeadID,
			Tier:       alloc.Tier,
			Candidates: len(alloc.Candidates),
		})
	}

	for _, b := range res.Exhausted {
		s.eventBus.Publish(ctx, events.BuyerCapacityExhausted{
			BaseEvent:   events.NewBaseEvent(),
			BuyerID:     b.ID,
			CompanyName: b.CompanyName,
			Capacity:    b.Capacity,
		})
	}
}

func (s *Service) mapError(op string, err error) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return apperr.Validation("validation failed").WithOp(op).WithDetails(verr.Fields)
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("lead not found").WithOp(op)
	case errors.Is(err, repository.ErrInvalidTransition):
		return apperr.Wrap(apperr.KindConflict, "lead status cannot change that way", err).WithOp(op)
	case errors.Is(err, buyerdomain.ErrCorruptBuyer):
		s.log.Error("corrupt buyer data", "operation", op, "error", err)
		return apperr.Wrap(apperr.KindInternal, "buyer data is corrupt", err).WithOp(op)
	default:
		s.log.DatabaseError(op, err)
		return apperr.Wrap(apperr.KindInternal, "failed to process lead", err).WithOp(op)
	}
}

func toSubmission(req transport.SubmitLeadRequest) (domain.Submission, error) {
	sub := domain.Submission{
		Name:               req.Name,
		Email:              req.Email,
		Phone:              req.Phone,
		Category:           req.Category,
		Size:               req.Size,
		Timeline:           req.Timeline,
		SpecialItems:       req.SpecialItems,
		OriginAddress:      req.Origin.Address,
		DestinationAddress: req.Destination.Address,
		OriginPoint:        toPoint(req.Origin),
		DestinationPoint:   toPoint(req.Destination),
	}
	if req.MoveDate != "" {
		d, err := time.Parse(moveDateLayout, req.MoveDate)
		if err != nil {
			return domain.Submission{}, apperr.Validation("validation failed").
				WithDetails(map[string]string{"moveDate": "must be a date in YYYY-MM-DD format"})
		}
		sub.MoveDate = &d
	}
	return sub, nil
}

func toPoint(loc transport.LocationRequest) *geo.Point {
	if loc.Lat == nil || loc.Lon == nil {
		return nil
	}
	return &geo.Point{Lat: *loc.Lat, Lon: *loc.Lon}
}

func mapSortBy(sortBy string) string {
	if sortBy == "createdAt" {
		return "created_at"
	}
	return sortBy
}

func toMatchedBuyers(buyers []domain.RankedBuyer) []transport.MatchedBuyerResponse {
	out := make([]transport.MatchedBuyerResponse, len(buyers))
	for i, b := range buyers {
		out[i] = transport.MatchedBuyerResponse{
			BuyerID:      b.BuyerID,
			CompanyName:  b.CompanyName,
			ContactEmail: b.ContactEmail,
			Rank:         b.Rank,
			CenterMiles:  b.CenterMiles,
		}
	}
	return out
}

func toLeadResponse(lead domain.Lead, buyers []domain.RankedBuyer) transport.LeadResponse {
	resp := transport.LeadResponse{
		ID:               lead.ID,
		Name:             lead.Name,
		Email:            lead.Email,
		Phone:            lead.Phone,
		Category:         lead.Category,
		Size:             lead.Size,
		Timeline:         lead.Timeline,
		SpecialItems:     lead.SpecialItems,
		Origin:           transport.LocationResponse{Address: lead.Origin.Address, Point: lead.Origin.Point},
		Destination:      transport.LocationResponse{Address: lead.Destination.Address, Point: lead.Destination.Point},
		Score:            lead.Score,
		ScoreBreakdown:   lead.ScoreBreakdown,
		Tier:             lead.Tier,
		PriceCents:       lead.PriceCents,
		DistanceMiles:    lead.DistanceMiles,
		DistanceFallback: lead.DistanceFallback,
		Estimate:         lead.Estimate,
		Status:           string(lead.Status),
		CreatedAt:        lead.CreatedAt,
		UpdatedAt:        lead.UpdatedAt,
	}
	if resp.SpecialItems == nil {
		resp.SpecialItems = []string{}
	}
	if lead.MoveDate != nil {
		d := lead.MoveDate.Format(moveDateLayout)
		resp.MoveDate = &d
	}
	if buyers != nil {
		resp.MatchedBuyers = toMatchedBuyers(buyers)
	}
	return resp
}
