package scoring

import (
	"math"
	"testing"
	"time"

	"lead_broker_backend/internal/geo"
)

var submitted = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

func fullInput() Input {
	return Input{
		Name:        "Jane Doe",
		Phone:       "(512) 555-0142",
		Email:       "jane@example.com",
		Category:    "local-move",
		Size:        "2-3br",
		Timeline:    "within 2 weeks",
		Distance:    geo.Distance{Miles: 50},
		SubmittedAt: submitted,
	}
}

func TestContactScoreBounds(t *testing.T) {
	if got := ContactScore("Jane Doe", "+1 512 555 0142", "jane@example.com"); got != MaxContact {
		t.Fatalf("expected %d for complete contact, got %d", MaxContact, got)
	}
	if got := ContactScore("", "", ""); got != 0 {
		t.Fatalf("expected 0 for no contact, got %d", got)
	}
	if got := ContactScore("J", "123", "not-an-email"); got != 0 {
		t.Fatalf("expected invalid fields to score 0, got %d", got)
	}
}

func TestDistanceBands(t *testing.T) {
	tests := []struct {
		d    geo.Distance
		want int
	}{
		{geo.Distance{Miles: 0}, 4},
		{geo.Distance{Miles: 4.99}, 4},
		{geo.Distance{Miles: 5}, 12},
		{geo.Distance{Miles: 24.99}, 12},
		{geo.Distance{Miles: 25}, 20},
		{geo.Distance{Miles: 150}, 20},
		{geo.Distance{Miles: 150.01}, 15},
		{geo.Distance{Miles: 500}, 15},
		{geo.Distance{Miles: 1500}, 10},
		{geo.Distance{Miles: 2500}, 5},
		{geo.Distance{Miles: geo.DefaultFallbackMiles, Fallback: true}, 0},
		{geo.Distance{Miles: -1}, 0},
		{geo.Distance{Miles: math.NaN()}, 0},
	}
	for _, tt := range tests {
		if got := DistanceScore(tt.d); got != tt.want {
			t.Fatalf("DistanceScore(%+v) = %d, want %d", tt.d, got, tt.want)
		}
	}
}

func TestClassifyTimeline(t *testing.T) {
	tests := map[string]TimelineClass{
		"":               TimelineAbsent,
		"ASAP":           TimelineASAP,
		"within a week":  TimelineWithinWeek,
		"within 2 weeks": TimelineOneToTwoWeeks,
		"1-2weeks":       TimelineOneToTwoWeeks,
		"2-4 weeks":      TimelineTwoToFourWeeks,
		"1-2months":      TimelineOneToTwoMonths,
		"3+months":       TimelineThreePlusMonths,
		"not sure yet":   TimelineVague,
		"7 days":         TimelineWithinWeek,
		"17 days":        TimelineTwoToFourWeeks,
		"27 days":        TimelineTwoToFourWeeks,
		"114 days":       TimelineThreePlusMonths,
		"3 weeks":        TimelineTwoToFourWeeks,
		"12 weeks":       TimelineThreePlusMonths,
		"4 months":       TimelineThreePlusMonths,
		"12 months":      TimelineThreePlusMonths,
		"within a month": TimelineTwoToFourWeeks,
		"2 to 4 weeks":   TimelineTwoToFourWeeks,
		"next month":     TimelineOneToTwoMonths,
		"not urgent":     TimelineVague,
		"no rush":        TimelineVague,
	}
	for in, want := range tests {
		if got := ClassifyTimeline(in); got != want {
			t.Fatalf("ClassifyTimeline(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTimelineUrgencyFollowsHorizon(t *testing.T) {
	order := []string{"asap", "7 days", "14 days", "3 weeks", "27 days", "6 weeks", "114 days"}
	prev := 11
	for _, in := range order {
		got := UrgencyScore(in, nil, submitted)
		if got > prev {
			t.Fatalf("UrgencyScore(%q) = %d, expected at most %d", in, got, prev)
		}
		prev = got
	}
	if UrgencyScore("114 days", nil, submitted) >= UrgencyScore("3 weeks", nil, submitted) {
		t.Fatalf("expected 114 days to be less urgent than 3 weeks")
	}
}

func TestUrgencyPrefersMoveDate(t *testing.T) {
	soon := submitted.AddDate(0, 0, 3)
	if got := UrgencyScore("3+months", &soon, submitted); got != 10 {
		t.Fatalf("expected move date in 3 days to score 10, got %d", got)
	}
	far := submitted.AddDate(0, 6, 0)
	if got := UrgencyScore("asap", &far, submitted); got != 1 {
		t.Fatalf("expected move date in 6 months to score 1, got %d", got)
	}
	if got := UrgencyScore("", nil, submitted); got != 0 {
		t.Fatalf("expected absent timeline to score 0, got %d", got)
	}
}

func TestPastMoveDateFallsBackToKeyword(t *testing.T) {
	in := fullInput()
	past := submitted.AddDate(0, 0, -10)
	in.MoveDate = &past
	in.Timeline = "asap"

	res := Score(in)
	if res.Breakdown[FactorUrgency] != 10 {
		t.Fatalf("expected keyword urgency for a past date, got %d", res.Breakdown[FactorUrgency])
	}
}

func TestScoreIsClampedAndSumsBreakdown(t *testing.T) {
	res := Score(fullInput())
	sum := 0
	for _, v := range res.Breakdown {
		sum += v
	}
	if res.Total != sum {
		t.Fatalf("total %d does not equal breakdown sum %d", res.Total, sum)
	}
	if res.Total < 0 || res.Total > 100 {
		t.Fatalf("score out of range: %d", res.Total)
	}
	if res.Breakdown[FactorContact] > MaxContact || res.Breakdown[FactorDetails] > MaxDetails ||
		res.Breakdown[FactorDistance] > MaxDistance || res.Breakdown[FactorUrgency] > MaxUrgency {
		t.Fatalf("sub-score exceeds its maximum: %v", res.Breakdown)
	}
}

func TestScoreIsMonotonicInFieldCompleteness(t *testing.T) {
	base := Input{Name: "Jo", Category: "local-move", SubmittedAt: submitted, Distance: geo.Distance{Miles: 50}}
	prev := Score(base).Total

	steps := []func(*Input){
		func(in *Input) { in.Email = "jo@example.com" },
		func(in *Input) { in.Phone = "512-555-0199" },
		func(in *Input) { in.Size = "studio" },
		func(in *Input) { in.Timeline = "1-2 months" },
	}
	for i, step := range steps {
		step(&base)
		next := Score(base).Total
		if next < prev {
			t.Fatalf("step %d decreased the score from %d to %d", i, prev, next)
		}
		prev = next
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	a := Score(fullInput())
	b := Score(fullInput())
	if a.Total != b.Total {
		t.Fatalf("expected identical scores, got %d and %d", a.Total, b.Total)
	}
}

func TestHighQualityScenario(t *testing.T) {
	in := fullInput()
	in.Size = ""

	res := Score(in)
	if res.Total < 80 {
		t.Fatalf("expected high-quality lead to score >= 80, got %d (%v)", res.Total, res.Breakdown)
	}
}

func TestLowQualityScenario(t *testing.T) {
	in := Input{
		Name:        "Sam Lee",
		Category:    "local-move",
		Size:        "2-3br",
		Timeline:    "not sure",
		Distance:    geo.Distance{Miles: geo.DefaultFallbackMiles, Fallback: true},
		SubmittedAt: submitted,
	}

	res := Score(in)
	if res.Total >= 40 {
		t.Fatalf("expected low-quality lead to score < 40, got %d (%v)", res.Total, res.Breakdown)
	}
	if res.Breakdown[FactorDistance] != 0 {
		t.Fatalf("expected fallback distance to score 0, got %d", res.Breakdown[FactorDistance])
	}
}
