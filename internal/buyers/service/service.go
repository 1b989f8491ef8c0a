package service

import (
	"context"
	"errors"
	"strings"

	"lead_broker_backend/internal/buyers/domain"
	"lead_broker_backend/internal/buyers/repository"
	"lead_broker_backend/internal/buyers/transport"
	"lead_broker_backend/platform/apperr"
	"lead_broker_backend/platform/logger"
)

// Service provides buyer listing and seeding.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

// New creates a new buyers service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) List(ctx context.Context, req transport.ListBuyersRequest) (transport.ListBuyersResponse, error) {
	filter := domain.Filter{
		Active: req.Active,
		Tier:   strings.ToLower(strings.TrimSpace(req.Tier)),
		Region: strings.TrimSpace(req.Region),
	}

	buyers, err := s.repo.List(ctx, filter)
	if err != nil {
		return transport.ListBuyersResponse{}, s.mapError("list buyers", err)
	}

	items := make([]transport.BuyerResponse, 0, len(buyers))
	for _, b := range buyers {
		items = append(items, mapBuyerResponse(b))
	}
	return transport.ListBuyersResponse{Items: items, Total: len(items)}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (transport.BuyerResponse, error) {
	b, err := s.repo.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return transport.BuyerResponse{}, s.mapError("get buyer", err)
	}
	return mapBuyerResponse(b), nil
}

// SeedSampleBuyers inserts the demonstration buyer pool. Buyers that already
// exist are left untouched, so repeated calls are harmless.
func (s *Service) SeedSampleBuyers(ctx context.Context) (transport.SeedBuyersResponse, error) {
	samples := SampleBuyers()
	inserted := 0
	for _, b := range samples {
		if err := b.Validate(); err != nil {
			return transport.SeedBuyersResponse{}, apperr.Wrap(apperr.KindInternal, "sample buyer is invalid", err)
		}
		ok, err := s.repo.InsertIfAbsent(ctx, b)
		if err != nil {
			return transport.SeedBuyersResponse{}, s.mapError("seed buyers", err)
		}
		if ok {
			inserted++
		}
	}

	s.log.WithContext(ctx).Info("sample buyers seeded", "inserted", inserted, "total", len(samples))
	return transport.SeedBuyersResponse{Count: inserted, Total: len(samples)}, nil
}

func (s *Service) mapError(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return apperr.NotFound("buyer not found").WithOp(op)
	case errors.Is(err, domain.ErrCorruptBuyer):
		s.log.Error("corrupt buyer data", "operation", op, "error", err)
		return apperr.Wrap(apperr.KindInternal, "buyer data is corrupt", err).WithOp(op)
	default:
		s.log.DatabaseError(op, err)
		return apperr.Wrap(apperr.KindInternal, "failed to access buyers", err).WithOp(op)
	}
}

func mapBuyerResponse(b domain.Buyer) transport.BuyerResponse {
	return transport.BuyerResponse{
		ID:           b.ID,
		CompanyName:  b.CompanyName,
		ContactEmail: b.ContactEmail,
		ContactPhone: b.ContactPhone,
		BaseAddress:  b.BaseAddress,
		ServiceArea: transport.ServiceAreaResponse{
			Center:       b.ServiceArea.Center,
			RadiusMiles:  b.ServiceArea.RadiusMiles,
			Regions:      nonNil(b.ServiceArea.Regions),
			MaxTripMiles: b.ServiceArea.MaxTripMiles,
		},
		AcceptedTiers:     nonNil(b.AcceptedTiers),
		Specialties:       nonNil(b.Specialties),
		Capacity:          b.Capacity,
		RemainingCapacity: b.RemainingCapacity,
		Active:            b.Active,
		Rating:            b.Rating,
		ResponseTimeMins:  b.ResponseTimeMins,
		ConversionRate:    b.ConversionRate,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
