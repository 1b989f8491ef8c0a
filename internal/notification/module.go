// Package notification fans lead marketplace events out to buyers and
// dashboards. Buyer e-mails go through the task queue when one is configured
// and are sent inline otherwise. Dashboards receive every event over SSE.
package notification

import (
	"context"
	"errors"

	"lead_broker_backend/internal/events"
	apphttp "lead_broker_backend/internal/http"
	"lead_broker_backend/internal/notification/sse"
	"lead_broker_backend/platform/logger"

	"github.com/google/uuid"
)

// DeliveryQueue schedules buyer e-mails for background delivery.
type DeliveryQueue interface {
	EnqueueLeadDelivery(ctx context.Context, leadID uuid.UUID, buyerID string, rank int) error
	EnqueueCapacityNotice(ctx context.Context, buyerID string) error
}

// Module wires event handlers for buyer delivery and the live event stream.
type Module struct {
	deliverer *Deliverer
	queue     DeliveryQueue
	sse       *sse.Service
	log       *logger.Logger
}

// New creates the notification module. queue may be nil, in which case
// deliveries run inside the event handler.
func New(deliverer *Deliverer, queue DeliveryQueue, sseService *sse.Service, log *logger.Logger) *Module {
	return &Module{
		deliverer: deliverer,
		queue:     queue,
		sse:       sseService,
		log:       log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notifications"
}

// SSE returns the live event stream service.
func (m *Module) SSE() *sse.Service {
	return m.sse
}

// RegisterRoutes mounts the event stream.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/notifications/stream", m.sse.Handler())
}

// RegisterHandlers subscribes the module to the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadSubmitted{}.EventName(), events.HandlerFunc(m.handleLeadSubmitted))
	bus.Subscribe(events.LeadDistributed{}.EventName(), events.HandlerFunc(m.handleLeadDistributed))
	bus.Subscribe(events.LeadUnmatched{}.EventName(), events.HandlerFunc(m.handleLeadUnmatched))
	bus.Subscribe(events.LeadStatusChanged{}.EventName(), events.HandlerFunc(m.handleLeadStatusChanged))
	bus.Subscribe(events.BuyerCapacityExhausted{}.EventName(), events.HandlerFunc(m.handleCapacityExhausted))
}

func (m *Module) handleLeadSubmitted(_ context.Context, event events.Event) error {
	e, ok := event.(events.LeadSubmitted)
	if !ok {
		return nil
	}
	m.sse.Broadcast(sse.Event{Type: sse.EventLeadSubmitted, LeadID: e.LeadID, Data: e})
	return nil
}

func (m *Module) handleLeadDistributed(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadDistributed)
	if !ok {
		return nil
	}

	buyerIDs := make([]string, len(e.Buyers))
	for i, b := range e.Buyers {
		buyerIDs[i] = b.BuyerID
	}
	m.sse.Broadcast(sse.Event{Type: sse.EventLeadDistributed, LeadID: e.LeadID, Data: e}, buyerIDs...)

	var errs []error
	for _, b := range e.Buyers {
		if err := m.deliverLead(ctx, e.LeadID, b); err != nil {
			m.log.WithContext(ctx).Error("lead delivery failed",
				"lead_id", e.LeadID.String(), "buyer_id", b.BuyerID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Module) deliverLead(ctx context.Context, leadID uuid.UUID, b events.DeliveredBuyer) error {
	if m.queue != nil {
		return m.queue.EnqueueLeadDelivery(ctx, leadID, b.BuyerID, b.Rank)
	}
	return m.deliverer.DeliverLead(ctx, leadID, b.BuyerID, b.Rank)
}

func (m *Module) handleLeadUnmatched(_ context.Context, event events.Event) error {
	e, ok := event.(events.LeadUnmatched)
	if !ok {
		return nil
	}
	m.sse.Broadcast(sse.Event{Type: sse.EventLeadUnmatched, LeadID: e.LeadID, Data: e})
	return nil
}

func (m *Module) handleLeadStatusChanged(_ context.Context, event events.Event) error {
	e, ok := event.(events.LeadStatusChanged)
	if !ok {
		return nil
	}
	m.sse.Broadcast(sse.Event{
		Type:    sse.EventLeadStatusChanged,
		LeadID:  e.LeadID,
		Message: e.OldStatus + " -> " + e.NewStatus,
		Data:    e,
	})
	return nil
}

func (m *Module) handleCapacityExhausted(ctx context.Context, event events.Event) error {
	e, ok := event.(events.BuyerCapacityExhausted)
	if !ok {
		return nil
	}
	m.sse.Broadcast(sse.Event{Type: sse.EventCapacityExhausted, BuyerID: e.BuyerID, Data: e}, e.BuyerID)

	if m.queue != nil {
		return m.queue.EnqueueCapacityNotice(ctx, e.BuyerID)
	}
	return m.deliverer.NotifyCapacityExhausted(ctx, e.BuyerID)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
