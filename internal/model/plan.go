package model

import "time"

// PlanState is the persisted retirement plan and the latest results computed for it.
type PlanState struct {
	Revision       string  `json:"revision"`
	StartingAssets float64 `json:"starting_assets"`
	YearlyExpense  float64 `json:"yearly_expense"`
	StockFraction  float64 `json:"stock_fraction"`
	StartingAge    float64 `json:"starting_age"`
	Region         string  `json:"region"`
	Group          string  `json:"group"`
	SampleCount    int     `json:"sample_count"`
	AcceptableRisk float64 `json:"acceptable_risk"`

	LastRisk            float64   `json:"last_risk"`
	LastRiskStdErr      float64   `json:"last_risk_stderr"`
	RecentRisks         []float64 `json:"recent_risks"`
	ConsecutiveOverRisk int       `json:"consecutive_over_risk"`
	LastRequiredSavings float64   `json:"last_required_savings"`
	LastCheckAt         time.Time `json:"last_check_at"`
	LastSolveAt         time.Time `json:"last_solve_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Params returns the simulation parameters described by the plan.
func (s PlanState) Params() SimulationParameters {
	return SimulationParameters{
		StartingAssets: s.StartingAssets,
		YearlyExpense:  s.YearlyExpense,
		StockFraction:  s.StockFraction,
		StartingAge:    s.StartingAge,
		Mortality:      MortalityKey{Region: s.Region, Group: s.Group},
		SampleCount:    s.SampleCount,
	}
}

// OverRisk reports whether the last check exceeded the acceptable risk.
func (s PlanState) OverRisk() bool {
	return s.LastRisk > s.AcceptableRisk
}
