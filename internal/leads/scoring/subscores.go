package scoring

import (
	"math"
	"strings"
	"time"
	"unicode"

	"lead_broker_backend/internal/geo"
	"lead_broker_backend/platform/phone"
	"lead_broker_backend/platform/validator"
)

var fieldValidator = validator.New()

// Categories the marketplace sells leads for. Anything else scores as "other".
var knownCategories = map[string]struct{}{
	"local":         {},
	"local-move":    {},
	"long-distance": {},
	"international": {},
	"commercial":    {},
	"office":        {},
	"storage":       {},
}

// Move sizes used by the estimator and the intake form.
var knownSizes = map[string]struct{}{
	"studio": {},
	"1br":    {},
	"2-3br":  {},
	"4+br":   {},
	"office": {},
}

// NormalizeCategory lower-cases and hyphenates a category so that
// "Long Distance" and "long_distance" are the same value.
func NormalizeCategory(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	c = strings.NewReplacer("_", "-", " ", "-").Replace(c)
	if c == "long-distance-move" {
		return "long-distance"
	}
	return c
}

// NormalizeSize lower-cases a size and strips spaces.
func NormalizeSize(size string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(size)), " ", "")
}

// KnownCategory reports whether category is one of the sold categories.
func KnownCategory(category string) bool {
	_, ok := knownCategories[NormalizeCategory(category)]
	return ok
}

// KnownSize reports whether size is one of the standard move sizes.
func KnownSize(size string) bool {
	_, ok := knownSizes[NormalizeSize(size)]
	return ok
}

// ValidName reports whether name carries at least two letters.
func ValidName(name string) bool {
	letters := 0
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters >= 2
}

// ValidEmail reports whether email is a syntactically valid address.
func ValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	return fieldValidator.Var(email, "email") == nil
}

// ContactScore awards 10 points each for a usable name, phone and e-mail.
func ContactScore(name, phoneNumber, email string) int {
	score := 0
	if ValidName(name) {
		score += 10
	}
	if phone.IsPlausible(phoneNumber) {
		score += 10
	}
	if ValidEmail(email) {
		score += 10
	}
	return score
}

// DetailScore rewards a complete request: category (10), size (15) and how
// precisely the move is scheduled (15).
func DetailScore(category, size, timeline string, moveDate *time.Time) int {
	score := 0

	switch {
	case KnownCategory(category):
		score += 10
	case strings.TrimSpace(category) != "":
		score += 5
	}

	switch {
	case KnownSize(size):
		score += 15
	case strings.TrimSpace(size) != "":
		score += 8
	}

	if moveDate != nil {
		score += 15
	} else {
		score += ClassifyTimeline(timeline).specificityPoints()
	}

	return score
}

// DistanceScore maps the trip length onto fixed bands. Regional and
// mid-distance moves are the most valuable; very short hops and unknown
// distances are worth little.
func DistanceScore(d geo.Distance) int {
	miles := d.Miles
	if d.Fallback || math.IsNaN(miles) || math.IsInf(miles, 0) || miles < 0 {
		return 0
	}
	switch {
	case miles < 5:
		return 4
	case miles < 25:
		return 12
	case miles <= 150:
		return 20
	case miles <= 500:
		return 15
	case miles <= 1500:
		return 10
	default:
		return 5
	}
}

// UrgencyScore measures how soon the move happens. A concrete move date wins
// over the timeline keyword.
func UrgencyScore(timeline string, moveDate *time.Time, submittedAt time.Time) int {
	if moveDate != nil && !submittedAt.IsZero() {
		days := daysUntil(*moveDate, submittedAt)
		switch {
		case days < 0:
			return 0
		case days <= 7:
			return 10
		case days <= 14:
			return 8
		case days <= 30:
			return 6
		case days <= 60:
			return 4
		case days <= 120:
			return 2
		default:
			return 1
		}
	}
	return ClassifyTimeline(timeline).urgencyPoints()
}
