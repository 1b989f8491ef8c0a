package scoring

import (
	"regexp"
	"strconv"
	"strings"
)

// TimelineClass is the normalized reading of a free-text timeline.
type TimelineClass int

const (
	TimelineAbsent TimelineClass = iota
	TimelineVague
	TimelineASAP
	TimelineWithinWeek
	TimelineOneToTwoWeeks
	TimelineTwoToFourWeeks
	TimelineOneToTwoMonths
	TimelineThreePlusMonths
)

var (
	// quantityPattern reads "<n> <unit>" and ranges such as "1-2 weeks",
	// "2 to 4 weeks" or "3+ months". The upper bound of a range wins.
	quantityPattern = regexp.MustCompile(`(?:^|\s)(\d+|a|an|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve)(?:\s*(?:-|to)\s*(\d+|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve))?\s*\+?\s*(day|week|month|year)s?\b`)
	wordPattern     = regexp.MustCompile(`[a-z0-9+]+`)
)

var numberWords = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
}

var unitDays = map[string]int{"day": 1, "week": 7, "month": 30, "year": 365}

var negations = map[string]bool{"not": true, "no": true, "non": true, "dont": true}

// Keyword phrases are matched on whole words, in order.
var timelineKeywords = []struct {
	class   TimelineClass
	phrases []string
}{
	{TimelineASAP, []string{"asap", "immediately", "urgent", "urgently", "this week", "right away"}},
	{TimelineWithinWeek, []string{"next week"}},
	{TimelineTwoToFourWeeks, []string{"this month"}},
	{TimelineOneToTwoMonths, []string{"next month"}},
	{TimelineThreePlusMonths, []string{"later", "next year"}},
}

// ClassifyTimeline interprets a free-text timeline. Explicit quantities are
// converted to days and banded; negated phrases ("not urgent") and
// unrecognised non-empty values are vague.
func ClassifyTimeline(timeline string) TimelineClass {
	text := strings.ToLower(strings.TrimSpace(timeline))
	if text == "" {
		return TimelineAbsent
	}
	text = strings.ReplaceAll(text, "_", " ")

	words := wordPattern.FindAllString(text, -1)
	for _, w := range words {
		if negations[w] {
			return TimelineVague
		}
	}

	if days, ok := timelineDays(text); ok {
		return classifyDays(days)
	}

	padded := " " + strings.Join(words, " ") + " "
	for _, entry := range timelineKeywords {
		for _, phrase := range entry.phrases {
			if strings.Contains(padded, " "+phrase+" ") {
				return entry.class
			}
		}
	}
	return TimelineVague
}

// timelineDays returns the horizon of the first quantity in text.
func timelineDays(text string) (int, bool) {
	m := quantityPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, ok := parseCount(m[1])
	if !ok {
		return 0, false
	}
	if m[2] != "" {
		upper, ok := parseCount(m[2])
		if !ok {
			return 0, false
		}
		n = max(n, upper)
	}
	return n * unitDays[m[3]], true
}

func parseCount(s string) (int, bool) {
	if n, ok := numberWords[s]; ok {
		return n, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func classifyDays(days int) TimelineClass {
	switch {
	case days <= 7:
		return TimelineWithinWeek
	case days <= 14:
		return TimelineOneToTwoWeeks
	case days <= 31:
		return TimelineTwoToFourWeeks
	case days <= 62:
		return TimelineOneToTwoMonths
	default:
		return TimelineThreePlusMonths
	}
}

func (c TimelineClass) specificityPoints() int {
	switch c {
	case TimelineASAP, TimelineWithinWeek, TimelineOneToTwoWeeks:
		return 15
	case TimelineTwoToFourWeeks, TimelineOneToTwoMonths, TimelineThreePlusMonths:
		return 10
	case TimelineVague:
		return 3
	default:
		return 0
	}
}

func (c TimelineClass) urgencyPoints() int {
	switch c {
	case TimelineASAP:
		return 10
	case TimelineWithinWeek:
		return 9
	case TimelineOneToTwoWeeks:
		return 8
	case TimelineTwoToFourWeeks:
		return 6
	case TimelineOneToTwoMonths:
		return 4
	case TimelineThreePlusMonths:
		return 2
	default:
		return 0
	}
}

// String returns the canonical keyword for the class.
func (c TimelineClass) String() string {
	switch c {
	case TimelineASAP:
		return "asap"
	case TimelineWithinWeek:
		return "within-a-week"
	case TimelineOneToTwoWeeks:
		return "1-2weeks"
	case TimelineTwoToFourWeeks:
		return "2-4weeks"
	case TimelineOneToTwoMonths:
		return "1-2months"
	case TimelineThreePlusMonths:
		return "3+months"
	case TimelineVague:
		return "vague"
	default:
		return ""
	}
}
