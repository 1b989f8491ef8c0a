// Package email delivers buyer notifications over SMTP.
package email

import (
	"context"

	"lead_broker_backend/platform/config"
	"lead_broker_backend/platform/logger"
)

// LeadDelivery is everything a buyer needs to act on a purchased lead.
type LeadDelivery struct {
	BuyerEmail        string
	CompanyName       string
	Rank              int
	Tier              string
	PriceCents        int64
	CustomerName      string
	CustomerPhone     string
	CustomerEmail     string
	Category          string
	Size              string
	Origin            string
	Destination       string
	DistanceMiles     float64
	DistanceFallback  bool
	Timeline          string
	MoveDate          string
	EstimateLowCents  int64
	EstimateHighCents int64
}

type Sender interface {
	SendLeadDelivery(ctx context.Context, delivery LeadDelivery) error
	SendCapacityExhausted(ctx context.Context, toEmail, companyName string, capacity int) error
}

// NoopSender logs instead of sending. It is used when e-mail is disabled.
type NoopSender struct {
	log *logger.Logger
}

func NewNoopSender(log *logger.Logger) NoopSender {
	return NoopSender{log: log}
}

func (s NoopSender) SendLeadDelivery(ctx context.Context, d LeadDelivery) error {
	if s.log != nil {
		s.log.WithContext(ctx).Debug("email disabled, lead delivery skipped", "to", d.BuyerEmail, "tier", d.Tier)
	}
	return nil
}

func (s NoopSender) SendCapacityExhausted(ctx context.Context, toEmail, _ string, _ int) error {
	if s.log != nil {
		s.log.WithContext(ctx).Debug("email disabled, capacity notice skipped", "to", toEmail)
	}
	return nil
}

// NewSender returns an SMTP sender when e-mail is enabled and configured,
// otherwise a NoopSender.
func NewSender(cfg config.EmailConfig, log *logger.Logger) Sender {
	if !cfg.GetEmailEnabled() || cfg.GetSMTPHost() == "" {
		return NewNoopSender(log)
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}
