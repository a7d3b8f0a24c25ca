package sensitivity

import (
	"fmt"
	"strings"
	"unicode"

	"RetireRisk/internal/calculator"
	"RetireRisk/internal/model"
)

// Factor names accepted by Sweep.
const (
	StockFraction  = "stock_fraction"
	AcceptableRisk = "acceptable_risk"
	YearlyExpense  = "yearly_expense"
	StartingAge    = "starting_age"
)

// Point is a plan together with the depletion risk its owner accepts.
type Point struct {
	Params model.SimulationParameters
	Risk   float64
}

// Factor is one plan input a sweep can vary.
type Factor struct {
	Name  string
	Label string
	// Grid returns the default sweep values.
	Grid  func() []float64
	Value func(Point) float64
	Set   func(*Point, float64)
}

// Factors lists the sweepable inputs in report order.
var Factors = []Factor{
	{
		Name:  StockFraction,
		Label: "Stock fraction",
		Grid:  func() []float64 { return calculator.Linspace(0, 1, 11) },
		Value: func(p Point) float64 { return p.Params.StockFraction },
		Set:   func(p *Point, v float64) { p.Params.StockFraction = v },
	},
	{
		Name:  AcceptableRisk,
		Label: "Acceptable risk",
		Grid:  func() []float64 { return calculator.Logspace(-3, -0.2, 7) },
		Value: func(p Point) float64 { return p.Risk },
		Set:   func(p *Point, v float64) { p.Risk = v },
	},
	{
		Name:  YearlyExpense,
		Label: "Yearly expense",
		Grid:  func() []float64 { return calculator.Logspace(3.69897, 5, 10) },
		Value: func(p Point) float64 { return p.Params.YearlyExpense },
		Set:   func(p *Point, v float64) { p.Params.YearlyExpense = v },
	},
	{
		Name:  StartingAge,
		Label: "Starting age",
		Grid:  func() []float64 { return calculator.Linspace(40, 85, 10) },
		Value: func(p Point) float64 { return p.Params.StartingAge },
		Set:   func(p *Point, v float64) { p.Params.StartingAge = v },
	},
}

// Lookup finds a factor by name. camelCase and dashed spellings
// (stockFraction, stock-fraction) are accepted.
func Lookup(name string) (Factor, error) {
	key := canonicalName(name)
	for _, f := range Factors {
		if f.Name == key {
			return f, nil
		}
	}
	return Factor{}, fmt.Errorf("%w: unknown sensitivity factor %q", model.ErrInvalidParameter, name)
}

// DefaultGrid returns the default sweep values for a factor.
func DefaultGrid(name string) ([]float64, error) {
	f, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return f.Grid(), nil
}

// Names returns every factor name in report order.
func Names() []string {
	names := make([]string, len(Factors))
	for i, f := range Factors {
		names[i] = f.Name
	}
	return names
}

func canonicalName(name string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(name) {
		switch {
		case r == '-' || r == ' ':
			b.WriteByte('_')
		case unicode.IsUpper(r):
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
