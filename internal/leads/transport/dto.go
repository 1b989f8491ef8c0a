package transport

import (
	"time"

	"lead_broker_backend/internal/geo"
	"lead_broker_backend/internal/leads/estimate"

	"github.com/google/uuid"
)

// LocationRequest is an address with optional coordinates from the form's
// address picker.
type LocationRequest struct {
	Address string   `json:"address" validate:"required,min=3,max=300"`
	Lat     *float64 `json:"lat,omitempty" validate:"omitempty,latitude"`
	Lon     *float64 `json:"lon,omitempty" validate:"omitempty,longitude"`
}

// SubmitLeadRequest is the public intake form. Email and phone are optional
// and are not rejected when malformed; they simply earn no contact points.
type SubmitLeadRequest struct {
	Name         string          `json:"name" validate:"required,min=1,max=100"`
	Email        string          `json:"email,omitempty" validate:"max=254"`
	Phone        string          `json:"phone,omitempty" validate:"max=32"`
	Category     string          `json:"category" validate:"required,max=50"`
	Size         string          `json:"size,omitempty" validate:"max=50"`
	Timeline     string          `json:"timeline,omitempty" validate:"max=50"`
	MoveDate     string          `json:"moveDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	SpecialItems []string        `json:"specialItems,omitempty" validate:"max=20,dive,max=100"`
	Origin       LocationRequest `json:"origin"`
	Destination  LocationRequest `json:"destination"`
}

type ListLeadsRequest struct {
	Status    string `form:"status" validate:"omitempty,oneof=new distributed unmatched sold expired"`
	Tier      string `form:"tier" validate:"omitempty,max=32"`
	Category  string `form:"category" validate:"omitempty,max=50"`
	Search    string `form:"search" validate:"max=100"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	PageSize  int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
	SortBy    string `form:"sortBy" validate:"omitempty,oneof=createdAt score price distance status"`
	SortOrder string `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

// UpdateLeadStatusRequest moves a lead to a post-distribution state.
type UpdateLeadStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=sold expired"`
}

type MatchedBuyerResponse struct {
	BuyerID      string   `json:"buyerId"`
	CompanyName  string   `json:"companyName"`
	ContactEmail string   `json:"contactEmail"`
	Rank         int      `json:"rank"`
	CenterMiles  *float64 `json:"centerMiles,omitempty"`
}

type LocationResponse struct {
	Address string     `json:"address"`
	Point   *geo.Point `json:"point,omitempty"`
}

// SubmitLeadResponse is returned for every accepted submission, including
// leads that found no buyer (status "unmatched", empty matchedBuyers).
type SubmitLeadResponse struct {
	LeadID           uuid.UUID              `json:"leadId"`
	Score            int                    `json:"score"`
	ScoreBreakdown   map[string]int         `json:"scoreBreakdown"`
	Tier             string                 `json:"tier"`
	Price            float64                `json:"price"`
	PriceCents       int64                  `json:"priceCents"`
	MatchedBuyers    []MatchedBuyerResponse `json:"matchedBuyers"`
	Status           string                 `json:"status"`
	DistanceMiles    float64                `json:"distanceMiles"`
	DistanceFallback bool                   `json:"distanceFallback"`
	Estimate         estimate.Estimate      `json:"estimate"`
}

type LeadResponse struct {
	ID               uuid.UUID              `json:"id"`
	Name             string                 `json:"name"`
	Email            string                 `json:"email,omitempty"`
	Phone            string                 `json:"phone,omitempty"`
	Category         string                 `json:"category"`
	Size             string                 `json:"size,omitempty"`
	Timeline         string                 `json:"timeline,omitempty"`
	MoveDate         *string                `json:"moveDate,omitempty"`
	SpecialItems     []string               `json:"specialItems"`
	Origin           LocationResponse       `json:"origin"`
	Destination      LocationResponse       `json:"destination"`
	Score            int                    `json:"score"`
	ScoreBreakdown   map[string]int         `json:"scoreBreakdown"`
	Tier             string                 `json:"tier"`
	PriceCents       int64                  `json:"priceCents"`
	DistanceMiles    float64                `json:"distanceMiles"`
	DistanceFallback bool                   `json:"distanceFallback"`
	Estimate         estimate.Estimate      `json:"estimate"`
	Status           string                 `json:"status"`
	MatchedBuyers    []MatchedBuyerResponse `json:"matchedBuyers,omitempty"`
	CreatedAt        time.Time              `json:"createdAt"`
	UpdatedAt        time.Time              `json:"updatedAt"`
}

type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

// RetryUnmatchedResponse summarizes one pass over unmatched leads.
type RetryUnmatchedResponse struct {
	Attempted   int `json:"attempted"`
	Distributed int `json:"distributed"`
}
