package distribution

import (
	"strings"

	"lead_broker_backend/platform/config"
)

// Mode selects how many buyers receive a lead.
type Mode string

const (
	// ModeExclusive sells each lead to the single best buyer.
	ModeExclusive Mode = "exclusive"
	// ModeShared sells each lead to up to SharedLimit buyers.
	ModeShared Mode = "shared"

	DefaultSharedLimit = 5
	DefaultMaxAttempts = 10
)

// Policy is the buyer selection configuration.
type Policy struct {
	Mode        Mode
	SharedLimit int
	// MaxAttempts bounds the number of match passes per allocation when
	// reservations keep losing races.
	MaxAttempts int
}

// DefaultPolicy returns shared distribution to five buyers.
func DefaultPolicy() Policy {
	return Policy{Mode: ModeShared, SharedLimit: DefaultSharedLimit, MaxAttempts: DefaultMaxAttempts}
}

// PolicyFromConfig reads the selection policy from configuration.
func PolicyFromConfig(cfg config.DistributionConfig) Policy {
	p := Policy{
		Mode:        Mode(strings.ToLower(cfg.GetDistributionMode())),
		SharedLimit: cfg.GetDistributionSharedLimit(),
		MaxAttempts: cfg.GetDistributionMaxAttempts(),
	}
	return p.withDefaults()
}

// SelectionCount is how many buyers one lead should be reserved with.
func (p Policy) SelectionCount() int {
	p = p.withDefaults()
	if p.Mode == ModeExclusive {
		return 1
	}
	return p.SharedLimit
}

func (p Policy) withDefaults() Policy {
	if p.Mode != ModeExclusive && p.Mode != ModeShared {
		p.Mode = ModeShared
	}
	if p.SharedLimit < 1 {
		p.SharedLimit = DefaultSharedLimit
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	return p
}
