// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"lead_broker_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadSubmitted is published once a lead has been scored, tiered and stored.
type LeadSubmitted struct {
	BaseEvent
	LeadID        uuid.UUID `json:"leadId"`
	Category      string    `json:"category"`
	Score         int       `json:"score"`
	Tier          string    `json:"tier"`
	PriceCents    int64     `json:"priceCents"`
	DistanceMiles float64   `json:"distanceMiles"`
	Fallback      bool      `json:"distanceFallback"`
}

func (e LeadSubmitted) EventName() string { return "leads.lead.submitted" }

// DeliveredBuyer identifies one buyer that received a lead.
type DeliveredBuyer struct {
	BuyerID      string   `json:"buyerId"`
	CompanyName  string   `json:"companyName"`
	ContactEmail string   `json:"contactEmail"`
	Rank         int      `json:"rank"`
	CenterMiles  *float64 `json:"centerMiles,omitempty"`
}

// LeadDistributed is published after capacity was reserved with one or more
// buyers and the allocation was stored.
type LeadDistributed struct {
	BaseEvent
	LeadID     uuid.UUID        `json:"leadId"`
	Tier       string           `json:"tier"`
	PriceCents int64            `json:"priceCents"`
	Buyers     []DeliveredBuyer `json:"buyers"`
	Retry      bool             `json:"retry"`
}

func (e LeadDistributed) EventName() string { return "leads.lead.distributed" }

// LeadUnmatched is published when no eligible buyer could take a lead.
type LeadUnmatched struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	Tier       string    `json:"tier"`
	Candidates int       `json:"candidates"`
}

func (e LeadUnmatched) EventName() string { return "leads.lead.unmatched" }

// LeadStatusChanged is published on every status transition after
// distribution (sold, expired).
type LeadStatusChanged struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
}

func (e LeadStatusChanged) EventName() string { return "leads.lead.status_changed" }

// =============================================================================
// Buyers Domain Events
// =============================================================================

// BuyerCapacityExhausted is published when a reservation took a buyer's last
// unit of capacity.
type BuyerCapacityExhausted struct {
	BaseEvent
	BuyerID     string `json:"buyerId"`
	CompanyName string `json:"companyName"`
	Capacity    int    `json:"capacity"`
}

func (e BuyerCapacityExhausted) EventName() string { return "buyers.capacity.exhausted" }
