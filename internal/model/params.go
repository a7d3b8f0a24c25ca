package model

import (
	"fmt"
	"math"
	"strings"
)

// TerminalAge is the age at which every simulated life ends.
const TerminalAge = 110

// Demographic groups available in the life tables.
const (
	GroupTotal       = "total"
	GroupMale        = "male"
	GroupFemale      = "female"
	GroupWhite       = "white"
	GroupWhiteMale   = "white-male"
	GroupWhiteFemale = "white-female"
	GroupBlack       = "black"
	GroupBlackMale   = "black-male"
	GroupBlackFemale = "black-female"
)

// Groups lists every recognised demographic group.
var Groups = []string{
	GroupTotal, GroupMale, GroupFemale,
	GroupWhite, GroupWhiteMale, GroupWhiteFemale,
	GroupBlack, GroupBlackMale, GroupBlackFemale,
}

var groupAliases = map[string]string{
	"wm":           GroupWhiteMale,
	"wf":           GroupWhiteFemale,
	"bm":           GroupBlackMale,
	"bf":           GroupBlackFemale,
	"white male":   GroupWhiteMale,
	"white female": GroupWhiteFemale,
	"black male":   GroupBlackMale,
	"black female": GroupBlackFemale,
	"male white":   GroupWhiteMale,
	"female white": GroupWhiteFemale,
	"male black":   GroupBlackMale,
	"female black": GroupBlackFemale,
	"white_male":   GroupWhiteMale,
	"white_female": GroupWhiteFemale,
	"black_male":   GroupBlackMale,
	"black_female": GroupBlackFemale,
}

// NormalizeGroup maps a demographic group label to its canonical name.
// The second result is false when the label is not recognised.
func NormalizeGroup(group string) (string, bool) {
	g := strings.ToLower(strings.TrimSpace(group))
	if alias, ok := groupAliases[g]; ok {
		return alias, true
	}
	for _, known := range Groups {
		if g == known {
			return g, true
		}
	}
	return g, false
}

// MortalityKey selects a life table.
type MortalityKey struct {
	Region string `json:"region" yaml:"region"` // two-letter postal code
	Group  string `json:"group" yaml:"group"`
}

func (k MortalityKey) String() string {
	return fmt.Sprintf("%s/%s", strings.ToUpper(k.Region), k.Group)
}

// SimulationParameters describes one retiree and how many histories to draw.
type SimulationParameters struct {
	StartingAssets float64      `json:"starting_assets"`
	YearlyExpense  float64      `json:"yearly_expense"`
	StockFraction  float64      `json:"stock_fraction"` // remainder is held in bonds
	StartingAge    float64      `json:"starting_age"`
	Mortality      MortalityKey `json:"mortality"`
	SampleCount    int          `json:"sample_count"`
}

// Validate reports the first out-of-range field wrapped in ErrInvalidParameter.
func (p SimulationParameters) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"starting assets", p.StartingAssets},
		{"yearly expense", p.YearlyExpense},
		{"stock fraction", p.StockFraction},
		{"starting age", p.StartingAge},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s is %v", ErrInvalidParameter, f.name, f.v)
		}
	}
	switch {
	case p.StartingAssets <= 0:
		return fmt.Errorf("%w: starting assets must be positive, got %v", ErrInvalidParameter, p.StartingAssets)
	case p.YearlyExpense <= 0:
		return fmt.Errorf("%w: yearly expense must be positive, got %v", ErrInvalidParameter, p.YearlyExpense)
	case p.StockFraction < 0 || p.StockFraction > 1:
		return fmt.Errorf("%w: stock fraction %v outside [0,1]", ErrInvalidParameter, p.StockFraction)
	case p.StartingAge < 0 || p.StartingAge >= TerminalAge:
		return fmt.Errorf("%w: starting age %v outside [0,%d)", ErrInvalidParameter, p.StartingAge, TerminalAge)
	case p.SampleCount < 1:
		return fmt.Errorf("%w: sample count must be at least 1, got %d", ErrInvalidParameter, p.SampleCount)
	}
	return nil
}

// ValidateRisk checks that an acceptable depletion risk is a probability.
func ValidateRisk(risk float64) error {
	if math.IsNaN(risk) || risk < 0 || risk > 1 {
		return fmt.Errorf("%w: target risk %v outside [0,1]", ErrInvalidParameter, risk)
	}
	return nil
}

// DefaultMaxSamples bounds the sample count accepted from users.
const DefaultMaxSamples = 1_000_000

// ValidateSampleLimit rejects sample counts above limit. A limit of 0 or
// less disables the check.
func ValidateSampleLimit(n, limit int) error {
	if limit > 0 && n > limit {
		return fmt.Errorf("%w: sample count %d above the limit of %d", ErrInvalidParameter, n, limit)
	}
	return nil
}
