package model

// Outcome says how a simulated life ended.
type Outcome string

const (
	OutcomeDied     Outcome = "DIED"
	OutcomeDepleted Outcome = "DEPLETED"
)

// HistoryTrajectory is the asset path of one simulated life.
type HistoryTrajectory struct {
	Balances    []float64 `json:"balances"` // Balances[0] is the starting assets
	StartAge    float64   `json:"start_age"`
	TerminalAge float64   `json:"terminal_age"`
	Outcome     Outcome   `json:"outcome"`
}

// FinalBalance is the last recorded balance.
func (h HistoryTrajectory) FinalBalance() float64 {
	return h.Balances[len(h.Balances)-1]
}

// Depleted reports whether the money ran out before death.
func (h HistoryTrajectory) Depleted() bool {
	return h.FinalBalance() < 0
}

// AgePercentiles summarises the distribution of terminal ages.
type AgePercentiles struct {
	P10    float64 `json:"p10"`
	Median float64 `json:"median"`
	P90    float64 `json:"p90"`
}

// SimulationResult is the aggregate over SampleCount independent histories.
type SimulationResult struct {
	DepletionProbability float64             `json:"depletion_probability"`
	StandardError        float64             `json:"standard_error"`
	SampleCount          int                 `json:"sample_count"`
	Depleted             int                 `json:"depleted"`
	MeanTerminalAge      float64             `json:"mean_terminal_age"`
	TerminalAges         AgePercentiles      `json:"terminal_ages"`
	FinalAssetsMedian    float64             `json:"final_assets_median"`
	AgeHistogram         map[int]int         `json:"age_histogram,omitempty"`
	Trajectories         []HistoryTrajectory `json:"trajectories,omitempty"`
}

// SweepPoint is one point of a sensitivity sweep.
type SweepPoint struct {
	Value           float64 `json:"value"`
	RequiredSavings float64 `json:"required_savings"`
}

// RiskPoint is one point of a depletion-risk curve over starting assets.
type RiskPoint struct {
	StartingAssets       float64 `json:"starting_assets"`
	DepletionProbability float64 `json:"depletion_probability"`
	StandardError        float64 `json:"standard_error"`
}
