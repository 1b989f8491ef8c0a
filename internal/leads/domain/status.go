// Package domain provides core business rules for the leads bounded context.
package domain

// Status is the lifecycle state of a lead.
type Status string

const (
	StatusNew         Status = "new"
	StatusDistributed Status = "distributed"
	StatusUnmatched   Status = "unmatched"
	StatusSold        Status = "sold"
	StatusExpired     Status = "expired"
)

// allowedTransitions lists the legal next states. Unmatched leads may be
// distributed later when capacity frees up.
var allowedTransitions = map[Status][]Status{
	StatusNew:         {StatusDistributed, StatusUnmatched},
	StatusUnmatched:   {StatusDistributed, StatusExpired},
	StatusDistributed: {StatusSold, StatusExpired},
}

// terminalStatuses are states no lead leaves.
var terminalStatuses = map[Status]bool{
	StatusSold:    true,
	StatusExpired: true,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusDistributed, StatusUnmatched, StatusSold, StatusExpired:
		return true
	}
	return false
}

// IsTerminal returns true if no further transition is possible.
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// CanTransition reports whether a lead in from may move to to.
func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
