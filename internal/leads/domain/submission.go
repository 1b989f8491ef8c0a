package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"lead_broker_backend/internal/geo"
	"lead_broker_backend/platform/sanitize"
)

const (
	maxNameLen     = 100
	maxAddressLen  = 300
	maxFieldLen    = 50
	maxSpecialItem = 20
)

// Submission is a raw lead as received from the intake form.
type Submission struct {
	Name               string
	Email              string
	Phone              string
	Category           string
	Size               string
	Timeline           string
	MoveDate           *time.Time
	SpecialItems       []string
	OriginAddress      string
	DestinationAddress string
	OriginPoint        *geo.Point
	DestinationPoint   *geo.Point
}

// ValidationError lists the fields that make a submission unusable.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid lead submission: " + strings.Join(parts, "; ")
}

// Normalize returns a copy with text fields sanitized and trimmed.
func (s Submission) Normalize() Submission {
	out := s
	out.Name = sanitize.Text(s.Name)
	out.Email = strings.ToLower(strings.TrimSpace(s.Email))
	out.Phone = strings.TrimSpace(s.Phone)
	out.Category = sanitize.Text(s.Category)
	out.Size = sanitize.Text(s.Size)
	out.Timeline = sanitize.Text(s.Timeline)
	out.SpecialItems = sanitize.TextSlice(s.SpecialItems)
	out.OriginAddress = sanitize.Text(s.OriginAddress)
	out.DestinationAddress = sanitize.Text(s.DestinationAddress)
	return out
}

// Validate rejects submissions that miss a required field or carry malformed
// structure. Optional contact fields that are merely invalid are not
// rejected; they score zero instead.
func (s Submission) Validate() error {
	fields := make(map[string]string)

	requireText(fields, "name", s.Name, maxNameLen)
	requireText(fields, "category", s.Category, maxFieldLen)
	requireText(fields, "originAddress", s.OriginAddress, maxAddressLen)
	requireText(fields, "destinationAddress", s.DestinationAddress, maxAddressLen)

	limitText(fields, "email", s.Email, maxNameLen)
	limitText(fields, "phone", s.Phone, maxFieldLen)
	limitText(fields, "size", s.Size, maxFieldLen)
	limitText(fields, "timeline", s.Timeline, maxFieldLen)

	if len(s.SpecialItems) > maxSpecialItem {
		fields["specialItems"] = fmt.Sprintf("at most %d items", maxSpecialItem)
	}
	if s.OriginPoint != nil && !s.OriginPoint.Valid() {
		fields["origin"] = "coordinates out of range"
	}
	if s.DestinationPoint != nil && !s.DestinationPoint.Valid() {
		fields["destination"] = "coordinates out of range"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func requireText(fields map[string]string, name, value string, max int) {
	if strings.TrimSpace(value) == "" {
		fields[name] = "required"
		return
	}
	limitText(fields, name, value, max)
}

func limitText(fields map[string]string, name, value string, max int) {
	if len([]rune(value)) > max {
		fields[name] = fmt.Sprintf("must be at most %d characters", max)
	}
}
