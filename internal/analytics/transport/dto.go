package transport

import "github.com/google/uuid"

// TrackRequest is one funnel checkpoint reported by the intake form.
type TrackRequest struct {
	SessionID        string     `json:"sessionId" validate:"required,min=8,max=100"`
	LeadID           *uuid.UUID `json:"leadId,omitempty"`
	StepReached      int        `json:"stepReached" validate:"min=1,max=20"`
	Completed        bool       `json:"completed"`
	AbandonedAtStep  *int       `json:"abandonedAtStep,omitempty" validate:"omitempty,min=1,max=20"`
	TimeSpentSeconds *int       `json:"timeSpentSeconds,omitempty" validate:"omitempty,min=0,max=86400"`
	TestVariant      string     `json:"testVariant,omitempty" validate:"max=50"`
}

type TrackResponse struct {
	ID uuid.UUID `json:"id"`
}
