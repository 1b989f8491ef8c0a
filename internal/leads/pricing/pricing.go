// Package pricing assigns a lead's tier and price from its score.
package pricing

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	TierPlatinum = "platinum"
	TierGold     = "gold"
	TierSilver   = "silver"
	TierBronze   = "bronze"
)

// ErrScoreOutOfRange is returned for scores outside [0,100].
var ErrScoreOutOfRange = errors.New("score must be between 0 and 100")

// Tier is one price band. A score belongs to the tier with the highest
// MinScore not above it.
type Tier struct {
	Name       string `yaml:"name" json:"name"`
	MinScore   int    `yaml:"min_score" json:"minScore"`
	PriceCents int64  `yaml:"price_cents" json:"priceCents"`
}

// Table is an ordered set of tiers plus optional per-category prices.
// CategoryPrices maps category -> tier name -> price in cents.
type Table struct {
	Tiers          []Tier                      `yaml:"tiers" json:"tiers"`
	CategoryPrices map[string]map[string]int64 `yaml:"category_prices,omitempty" json:"categoryPrices,omitempty"`
}

// Assignment is the tier and price decided for one lead.
type Assignment struct {
	Tier       string `json:"tier"`
	PriceCents int64  `json:"priceCents"`
}

// DefaultTable returns the stock marketplace pricing.
func DefaultTable() Table {
	return Table{
		Tiers: []Tier{
			{Name: TierPlatinum, MinScore: 85, PriceCents: 7500},
			{Name: TierGold, MinScore: 70, PriceCents: 5000},
			{Name: TierSilver, MinScore: 50, PriceCents: 3500},
			{Name: TierBronze, MinScore: 0, PriceCents: 2500},
		},
	}
}

// LoadTable reads a YAML tier table from path. An empty path yields the
// default table.
func LoadTable(path string) (Table, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultTable(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read tier table: %w", err)
	}
	return ParseTable(raw)
}

// ParseTable decodes and validates a YAML tier table.
func ParseTable(raw []byte) (Table, error) {
	var t Table
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return Table{}, fmt.Errorf("decode tier table: %w", err)
	}
	t.normalize()
	if err := t.Validate(); err != nil {
		return Table{}, err
	}
	return t, nil
}

func (t *Table) normalize() {
	for i := range t.Tiers {
		t.Tiers[i].Name = strings.ToLower(strings.TrimSpace(t.Tiers[i].Name))
	}
	sort.SliceStable(t.Tiers, func(i, j int) bool {
		return t.Tiers[i].MinScore > t.Tiers[j].MinScore
	})
	if len(t.CategoryPrices) == 0 {
		return
	}
	normalized := make(map[string]map[string]int64, len(t.CategoryPrices))
	for category, prices := range t.CategoryPrices {
		inner := make(map[string]int64, len(prices))
		for tier, cents := range prices {
			inner[strings.ToLower(strings.TrimSpace(tier))] = cents
		}
		normalized[strings.ToLower(strings.TrimSpace(category))] = inner
	}
	t.CategoryPrices = normalized
}

// Validate checks that the tiers partition [0,100]: the lowest MinScore is 0,
// thresholds strictly descend within range, names are unique and all prices
// are positive.
func (t Table) Validate() error {
	if len(t.Tiers) == 0 {
		return errors.New("tier table is empty")
	}
	names := make(map[string]struct{}, len(t.Tiers))
	for i, tier := range t.Tiers {
		if tier.Name == "" {
			return fmt.Errorf("tier %d has no name", i)
		}
		if _, dup := names[tier.Name]; dup {
			return fmt.Errorf("tier %q defined twice", tier.Name)
		}
		names[tier.Name] = struct{}{}
		if tier.MinScore < 0 || tier.MinScore > 100 {
			return fmt.Errorf("tier %q min_score %d outside [0,100]", tier.Name, tier.MinScore)
		}
		if tier.PriceCents <= 0 {
			return fmt.Errorf("tier %q must have a positive price", tier.Name)
		}
		if i > 0 && tier.MinScore >= t.Tiers[i-1].MinScore {
			return fmt.Errorf("tier %q min_score must be below %q", tier.Name, t.Tiers[i-1].Name)
		}
	}
	if last := t.Tiers[len(t.Tiers)-1]; last.MinScore != 0 {
		return fmt.Errorf("lowest tier %q must start at 0", last.Name)
	}
	for category, prices := range t.CategoryPrices {
		for tier, cents := range prices {
			if _, ok := names[tier]; !ok {
				return fmt.Errorf("category %q prices unknown tier %q", category, tier)
			}
			if cents <= 0 {
				return fmt.Errorf("category %q tier %q must have a positive price", category, tier)
			}
		}
	}
	return nil
}

// Assign returns the tier and price for score. The first tier whose MinScore
// the score reaches wins, so a score equal to a threshold gets the higher tier.
func (t Table) Assign(score int, category string) (Assignment, error) {
	if score < 0 || score > 100 {
		return Assignment{}, fmt.Errorf("%w: got %d", ErrScoreOutOfRange, score)
	}
	for _, tier := range t.Tiers {
		if score >= tier.MinScore {
			return Assignment{Tier: tier.Name, PriceCents: t.price(tier, category)}, nil
		}
	}
	return Assignment{}, fmt.Errorf("no tier covers score %d", score)
}

// Names returns tier names from highest to lowest.
func (t Table) Names() []string {
	out := make([]string, len(t.Tiers))
	for i, tier := range t.Tiers {
		out[i] = tier.Name
	}
	return out
}

// Has reports whether name is a tier of this table.
func (t Table) Has(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, tier := range t.Tiers {
		if tier.Name == name {
			return true
		}
	}
	return false
}

func (t Table) price(tier Tier, category string) int64 {
	if prices, ok := t.CategoryPrices[strings.ToLower(strings.TrimSpace(category))]; ok {
		if cents, ok := prices[tier.Name]; ok {
			return cents
		}
	}
	return tier.PriceCents
}
