package notification

import (
	"context"
	"errors"
	"fmt"

	buyerdomain "lead_broker_backend/internal/buyers/domain"
	"lead_broker_backend/internal/email"
	leaddomain "lead_broker_backend/internal/leads/domain"
	leadrepo "lead_broker_backend/internal/leads/repository"
	"lead_broker_backend/platform/logger"

	"github.com/google/uuid"
)

const moveDateLayout = "January 2, 2006"

// ErrUndeliverable marks a delivery that can never succeed, such as one whose
// lead or buyer no longer exists. Retrying it is pointless.
var ErrUndeliverable = errors.New("lead delivery cannot be completed")

// LeadReader loads a stored lead.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (leaddomain.Lead, error)
}

// BuyerReader loads a buyer by ID.
type BuyerReader interface {
	Get(ctx context.Context, id string) (buyerdomain.Buyer, error)
}

// Deliverer sends purchased leads and capacity notices to buyers.
type Deliverer struct {
	leads  LeadReader
	buyers BuyerReader
	sender email.Sender
	log    *logger.Logger
}

func NewDeliverer(leads LeadReader, buyers BuyerReader, sender email.Sender, log *logger.Logger) *Deliverer {
	return &Deliverer{leads: leads, buyers: buyers, sender: sender, log: log}
}

// DeliverLead e-mails the lead's contact details to one of its buyers.
// Expired leads are skipped.
func (d *Deliverer) DeliverLead(ctx context.Context, leadID uuid.UUID, buyerID string, rank int) error {
	lead, err := d.leads.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, leadrepo.ErrNotFound) {
			return fmt.Errorf("lead %s: %w", leadID, ErrUndeliverable)
		}
		return fmt.Errorf("load lead %s: %w", leadID, err)
	}
	if lead.Status == leaddomain.StatusExpired {
		d.log.WithContext(ctx).Info("lead expired before delivery", "lead_id", leadID.String(), "buyer_id", buyerID)
		return nil
	}

	buyer, err := d.buyers.Get(ctx, buyerID)
	if err != nil {
		if errors.Is(err, buyerdomain.ErrNotFound) {
			return fmt.Errorf("buyer %s: %w", buyerID, ErrUndeliverable)
		}
		return fmt.Errorf("load buyer %s: %w", buyerID, err)
	}
	if buyer.ContactEmail == "" {
		d.log.WithContext(ctx).Warn("buyer has no contact email", "buyer_id", buyerID)
		return nil
	}

	if err := d.sender.SendLeadDelivery(ctx, buildLeadDelivery(lead, buyer, rank)); err != nil {
		return fmt.Errorf("send lead %s to %s: %w", leadID, buyerID, err)
	}
	d.log.WithContext(ctx).Info("lead delivered", "lead_id", leadID.String(), "buyer_id", buyerID, "rank", rank)
	return nil
}

// NotifyCapacityExhausted tells a buyer it will receive no further leads
// until its capacity is topped up.
func (d *Deliverer) NotifyCapacityExhausted(ctx context.Context, buyerID string) error {
	buyer, err := d.buyers.Get(ctx, buyerID)
	if err != nil {
		if errors.Is(err, buyerdomain.ErrNotFound) {
			return fmt.Errorf("buyer %s: %w", buyerID, ErrUndeliverable)
		}
		return fmt.Errorf("load buyer %s: %w", buyerID, err)
	}
	if buyer.ContactEmail == "" {
		return nil
	}
	return d.sender.SendCapacityExhausted(ctx, buyer.ContactEmail, buyer.CompanyName, buyer.Capacity)
}

func buildLeadDelivery(lead leaddomain.Lead, buyer buyerdomain.Buyer, rank int) email.LeadDelivery {
	moveDate := ""
	if lead.MoveDate != nil {
		moveDate = lead.MoveDate.Format(moveDateLayout)
	}
	return email.LeadDelivery{
		BuyerEmail:        buyer.ContactEmail,
		CompanyName:       buyer.CompanyName,
		Rank:              rank,
		Tier:              lead.Tier,
		PriceCents:        lead.PriceCents,
		CustomerName:      lead.Name,
		CustomerPhone:     lead.Phone,
		CustomerEmail:     lead.Email,
		Category:          lead.Category,
		Size:              lead.Size,
		Origin:            lead.Origin.Address,
		Destination:       lead.Destination.Address,
		DistanceMiles:     lead.DistanceMiles,
		DistanceFallback:  lead.DistanceFallback,
		Timeline:          lead.Timeline,
		MoveDate:          moveDate,
		EstimateLowCents:  lead.Estimate.LowCents,
		EstimateHighCents: lead.Estimate.HighCents,
	}
}
