package transport

import (
	"time"

	"lead_broker_backend/internal/geo"
)

// ListBuyersRequest holds the optional buyer listing filters.
type ListBuyersRequest struct {
	Active *bool  `form:"active"`
	Tier   string `form:"tier" validate:"omitempty,max=32"`
	Region string `form:"region" validate:"omitempty,max=100"`
}

type ServiceAreaResponse struct {
	Center       *geo.Point `json:"center,omitempty"`
	RadiusMiles  float64    `json:"radiusMiles,omitempty"`
	Regions      []string   `json:"regions"`
	MaxTripMiles *float64   `json:"maxTripMiles,omitempty"`
}

type BuyerResponse struct {
	ID                string              `json:"id"`
	CompanyName       string              `json:"companyName"`
	ContactEmail      string              `json:"contactEmail"`
	ContactPhone      string              `json:"contactPhone,omitempty"`
	BaseAddress       string              `json:"baseAddress,omitempty"`
	ServiceArea       ServiceAreaResponse `json:"serviceArea"`
	AcceptedTiers     []string            `json:"acceptedTiers"`
	Specialties       []string            `json:"specialties"`
	Capacity          int                 `json:"capacity"`
	RemainingCapacity int                 `json:"remainingCapacity"`
	Active            bool                `json:"active"`
	Rating            float64             `json:"rating"`
	ResponseTimeMins  int                 `json:"responseTimeMins"`
	ConversionRate    float64             `json:"conversionRate"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

type ListBuyersResponse struct {
	Items []BuyerResponse `json:"items"`
	Total int             `json:"total"`
}

// SeedBuyersResponse reports how many sample buyers were newly created.
// Count is zero when every sample buyer already existed.
type SeedBuyersResponse struct {
	Count int `json:"count"`
	Total int `json:"total"`
}
