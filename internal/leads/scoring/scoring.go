// Package scoring computes the 0-100 qualification score of a lead from four
// independent sub-scores: contact completeness, request details, trip
// distance, and urgency.
package scoring

import (
	"math"
	"time"

	"lead_broker_backend/internal/geo"
)

const (
	// scoreVersion tracks the scoring model for debugging and analysis.
	// Bump this when changing scoring logic significantly.
	scoreVersion = "2026-moves-v1"

	MaxContact  = 30
	MaxDetails  = 40
	MaxDistance = 20
	MaxUrgency  = 10
)

// Breakdown keys.
const (
	FactorContact  = "contact"
	FactorDetails  = "details"
	FactorDistance = "distance"
	FactorUrgency  = "urgency"
)

// Input is everything the scorer looks at. It is a plain value so scoring
// stays a pure function of the submission.
type Input struct {
	Name     string
	Phone    string
	Email    string
	Category string
	Size     string
	Timeline string
	MoveDate *time.Time
	Distance geo.Distance
	// SubmittedAt anchors date-based urgency.
	SubmittedAt time.Time
}

// Result is the total score plus the contribution of each sub-scorer.
type Result struct {
	Total     int            `json:"total"`
	Breakdown map[string]int `json:"breakdown"`
	Version   string         `json:"version"`
}

// Score runs all sub-scorers and clamps the sum to [0,100].
func Score(in Input) Result {
	breakdown := map[string]int{
		FactorContact:  ContactScore(in.Name, in.Phone, in.Email),
		FactorDetails:  DetailScore(in.Category, in.Size, in.Timeline, effectiveMoveDate(in)),
		FactorDistance: DistanceScore(in.Distance),
		FactorUrgency:  UrgencyScore(in.Timeline, effectiveMoveDate(in), in.SubmittedAt),
	}

	sum := 0
	for _, v := range breakdown {
		sum += v
	}

	return Result{
		Total:     clampScore(float64(sum)),
		Breakdown: breakdown,
		Version:   scoreVersion,
	}
}

// effectiveMoveDate drops move dates that lie before the submission day; the
// timeline keyword is used instead.
func effectiveMoveDate(in Input) *time.Time {
	if in.MoveDate == nil || in.SubmittedAt.IsZero() {
		return in.MoveDate
	}
	if daysUntil(*in.MoveDate, in.SubmittedAt) < 0 {
		return nil
	}
	return in.MoveDate
}

func daysUntil(moveDate, from time.Time) int {
	move := truncateDay(moveDate)
	start := truncateDay(from)
	return int(math.Round(move.Sub(start).Hours() / 24))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func clampScore(value float64) int {
	rounded := int(math.Round(value))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}
