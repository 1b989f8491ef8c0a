package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements Sender over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSender) SendLeadDelivery(ctx context.Context, d LeadDelivery) error {
	subject, content, err := renderLeadDelivery(d)
	if err != nil {
		return err
	}
	return s.send(ctx, d.BuyerEmail, subject, content)
}

func (s *SMTPSender) SendCapacityExhausted(ctx context.Context, toEmail, companyName string, capacity int) error {
	content, err := renderEmailTemplate("capacity_exhausted.html", capacityExhaustedEmailData{
		baseEmailData: baseEmailData{
			Title:   subjectCapacityExhausted,
			Heading: "Lead delivery paused",
		},
		CompanyName: companyName,
		Capacity:    capacity,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectCapacityExhausted, content)
}

func renderLeadDelivery(d LeadDelivery) (string, string, error) {
	distance := fmt.Sprintf("%.1f miles", d.DistanceMiles)
	if d.DistanceFallback {
		distance = "unknown (address could not be located)"
	}

	subject := fmt.Sprintf(subjectLeadDeliveryFmt, d.Tier, d.Category)
	content, err := renderEmailTemplate("lead_delivery.html", leadDeliveryEmailData{
		baseEmailData: baseEmailData{
			Title:   subject,
			Heading: "You have a new lead",
		},
		CompanyName:   d.CompanyName,
		Rank:          d.Rank,
		Tier:          d.Tier,
		CustomerName:  d.CustomerName,
		CustomerPhone: d.CustomerPhone,
		CustomerEmail: d.CustomerEmail,
		Category:      d.Category,
		Size:          d.Size,
		Origin:        d.Origin,
		Destination:   d.Destination,
		Distance:      distance,
		Timeline:      d.Timeline,
		MoveDate:      d.MoveDate,
		EstimateRange: formatCurrencyUSD(d.EstimateLowCents) + " - " + formatCurrencyUSD(d.EstimateHighCents),
		Price:         formatCurrencyUSD(d.PriceCents),
	})
	if err != nil {
		return "", "", err
	}
	return subject, content, nil
}

var _ Sender = (*SMTPSender)(nil)
