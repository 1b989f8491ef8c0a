// Package service records intake-form funnel events and lead outcomes.
package service

import (
	"context"
	"time"

	"lead_broker_backend/internal/analytics/repository"
	"lead_broker_backend/internal/analytics/transport"
	"lead_broker_backend/internal/events"
	"lead_broker_backend/platform/apperr"
	"lead_broker_backend/platform/logger"
	"lead_broker_backend/platform/sanitize"

	"github.com/google/uuid"
)

// ClientInfo is request metadata captured alongside a funnel event.
type ClientInfo struct {
	UserAgent string
	IPAddress string
	Referrer  string
}

type Service struct {
	repo repository.Repository
	log  *logger.Logger
	now  func() time.Time
}

func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

// Track stores one funnel checkpoint.
func (s *Service) Track(ctx context.Context, req transport.TrackRequest, client ClientInfo) (transport.TrackResponse, error) {
	event := repository.FormEvent{
		ID:               uuid.New(),
		SessionID:        sanitize.Text(req.SessionID),
		LeadID:           req.LeadID,
		StepReached:      req.StepReached,
		Completed:        req.Completed,
		AbandonedAtStep:  req.AbandonedAtStep,
		UserAgent:        truncate(client.UserAgent, 500),
		IPAddress:        client.IPAddress,
		Referrer:         truncate(client.Referrer, 500),
		TimeSpentSeconds: req.TimeSpentSeconds,
		TestVariant:      sanitize.Text(req.TestVariant),
		CreatedAt:        s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, event); err != nil {
		s.log.DatabaseError("track form event", err)
		return transport.TrackResponse{}, apperr.Wrap(apperr.KindInternal, "failed to record analytics", err)
	}
	return transport.TrackResponse{ID: event.ID}, nil
}

// Subscribe logs lead outcomes so funnel completion can be joined with
// distribution results downstream.
func (s *Service) Subscribe(bus events.Bus) {
	bus.Subscribe(events.LeadSubmitted{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadSubmitted)
		if !ok {
			return nil
		}
		s.log.WithContext(ctx).Info("lead_funnel",
			"stage", "submitted",
			"lead_id", e.LeadID.String(),
			"category", e.Category,
			"score", e.Score,
			"tier", e.Tier,
			"distance_fallback", e.Fallback,
		)
		return nil
	}))
	bus.Subscribe(events.LeadDistributed{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadDistributed)
		if !ok {
			return nil
		}
		s.log.WithContext(ctx).Info("lead_funnel",
			"stage", "distributed",
			"lead_id", e.LeadID.String(),
			"buyers", len(e.Buyers),
			"price_cents", e.PriceCents,
			"retry", e.Retry,
		)
		return nil
	}))
	bus.Subscribe(events.LeadUnmatched{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadUnmatched)
		if !ok {
			return nil
		}
		s.log.WithContext(ctx).Info("lead_funnel",
			"stage", "unmatched",
			"lead_id", e.LeadID.String(),
			"tier", e.Tier,
		)
		return nil
	}))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
