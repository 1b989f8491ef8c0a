package pricing

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultTableIsValid(t *testing.T) {
	if err := DefaultTable().Validate(); err != nil {
		t.Fatalf("default table invalid: %v", err)
	}
}

func TestAssignBoundariesResolveToHigherTier(t *testing.T) {
	table := DefaultTable()
	tests := []struct {
		score int
		tier  string
		price int64
	}{
		{100, TierPlatinum, 7500},
		{85, TierPlatinum, 7500},
		{84, TierGold, 5000},
		{70, TierGold, 5000},
		{69, TierSilver, 3500},
		{50, TierSilver, 3500},
		{49, TierBronze, 2500},
		{0, TierBronze, 2500},
	}
	for _, tt := range tests {
		got, err := table.Assign(tt.score, "local-move")
		if err != nil {
			t.Fatalf("Assign(%d): %v", tt.score, err)
		}
		if got.Tier != tt.tier || got.PriceCents != tt.price {
			t.Fatalf("Assign(%d) = %+v, want %s/%d", tt.score, got, tt.tier, tt.price)
		}
	}
}

func TestAssignIsTotalAndMonotone(t *testing.T) {
	table := DefaultTable()
	rank := map[string]int{TierBronze: 0, TierSilver: 1, TierGold: 2, TierPlatinum: 3}
	prevRank := -1
	var prevPrice int64
	for score := 0; score <= 100; score++ {
		got, err := table.Assign(score, "")
		if err != nil {
			t.Fatalf("score %d not covered: %v", score, err)
		}
		r := rank[got.Tier]
		if r < prevRank || got.PriceCents < prevPrice {
			t.Fatalf("score %d moved to a lower tier or price: %+v", score, got)
		}
		prevRank, prevPrice = r, got.PriceCents
	}
}

func TestAssignRejectsOutOfRange(t *testing.T) {
	for _, score := range []int{-1, 101} {
		if _, err := DefaultTable().Assign(score, ""); !errors.Is(err, ErrScoreOutOfRange) {
			t.Fatalf("expected ErrScoreOutOfRange for %d, got %v", score, err)
		}
	}
}

func TestParseTableWithCategoryOverrides(t *testing.T) {
	raw := []byte(`
tiers:
  - name: Bronze
    min_score: 0
    price_cents: 2000
  - name: gold
    min_score: 60
    price_cents: 6000
category_prices:
  long-distance:
    gold: 9000
`)
	table, err := ParseTable(raw)
	if err != nil {
		t.Fatalf("ParseTable: %v", err)
	}
	if names := table.Names(); names[0] != "gold" || names[1] != "bronze" {
		t.Fatalf("expected tiers sorted high to low, got %v", names)
	}
	got, _ := table.Assign(60, "Long-Distance")
	if got.PriceCents != 9000 {
		t.Fatalf("expected category override price, got %+v", got)
	}
	got, _ = table.Assign(60, "local-move")
	if got.PriceCents != 6000 {
		t.Fatalf("expected tier price, got %+v", got)
	}
}

func TestValidateRejectsBrokenTables(t *testing.T) {
	tests := map[string]Table{
		"empty":          {},
		"gap at zero":    {Tiers: []Tier{{Name: "a", MinScore: 50, PriceCents: 1}}},
		"duplicate name": {Tiers: []Tier{{Name: "a", MinScore: 50, PriceCents: 1}, {Name: "a", MinScore: 0, PriceCents: 1}}},
		"same threshold": {Tiers: []Tier{{Name: "a", MinScore: 0, PriceCents: 1}, {Name: "b", MinScore: 0, PriceCents: 1}}},
		"free tier":      {Tiers: []Tier{{Name: "a", MinScore: 0, PriceCents: 0}}},
		"unknown override": {
			Tiers:          []Tier{{Name: "a", MinScore: 0, PriceCents: 1}},
			CategoryPrices: map[string]map[string]int64{"x": {"b": 5}},
		},
	}
	for name, table := range tests {
		if err := table.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadTable(t *testing.T) {
	table, err := LoadTable("")
	if err != nil || len(table.Tiers) != 4 {
		t.Fatalf("expected default table for empty path, got %+v, %v", table, err)
	}

	path := filepath.Join(t.TempDir(), "tiers.yaml")
	if err := os.WriteFile(path, []byte("tiers:\n  - name: only\n    min_score: 0\n    price_cents: 100\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	table, err = LoadTable(path)
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	if got, _ := table.Assign(99, ""); got.Tier != "only" {
		t.Fatalf("expected single tier, got %+v", got)
	}

	if _, err := LoadTable(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
