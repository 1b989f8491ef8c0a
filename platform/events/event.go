// Package events is the in-process publish/subscribe bus that lets the leads,
// analytics and notification modules react to each other without imports.
// It carries no business logic; event types live in internal/events.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is implemented by every payload published on the bus.
type Event interface {
	// EventName is the subscription key, e.g. "leads.lead.distributed".
	EventName() string
	EventID() uuid.UUID
	OccurredAt() time.Time
}

// BaseEvent is embedded by concrete events for identity and timing.
type BaseEvent struct {
	ID        uuid.UUID `json:"eventId"`
	Timestamp time.Time `json:"occurredAt"`
}

func (e BaseEvent) EventID() uuid.UUID { return e.ID }

func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// NewBaseEvent stamps a fresh event ID and the current UTC time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{ID: uuid.New(), Timestamp: time.Now().UTC()}
}

// Handler reacts to one published event.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc lets a plain function subscribe.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus routes events by name to subscribed handlers.
type Bus interface {
	// Publish fans out asynchronously; handler errors are logged, not returned.
	Publish(ctx context.Context, event Event)
	// PublishSync runs handlers in order and returns their joined errors.
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}
