package recorder

import (
	"time"

	"RetireRisk/internal/model"
)

// Sources of a recorded run.
const (
	SourceCLI      = "cli"
	SourceAPI      = "api"
	SourceSchedule = "schedule"
	SourceCommand  = "command"
)

// SimulationRun holds one depletion-risk estimate.
type SimulationRun struct {
	Source  string
	Params  model.SimulationParameters
	Result  *model.SimulationResult
	Elapsed time.Duration
}

// SolverRun holds one required-savings solve.
type SolverRun struct {
	ID              string
	Timestamp       time.Time
	Source          string
	TargetRisk      float64
	Params          model.SimulationParameters
	RequiredSavings float64
	Risk            float64
	Attempts        int
	SampleCount     int
	Iterations      int
	Elapsed         time.Duration
	Error           string // empty on success
}

// SweepRun holds one sensitivity sweep.
type SweepRun struct {
	Source     string
	Factor     string
	TargetRisk float64
	Params     model.SimulationParameters
	Points     []model.SweepPoint
}

// PlanEvent records a change to the stored plan.
type PlanEvent struct {
	Revision string
	Action   string // "SET", "MORTALITY", "RISK_ALERT"
	Field    string
	Value    float64
	Note     string
}

// Recorder persists historical runs for analysis.
type Recorder interface {
	RecordSimulation(run *SimulationRun) (string, error)
	RecordSolve(run *SolverRun) (string, error)
	RecordSweep(run *SweepRun) (string, error)
	RecordPlanEvent(evt *PlanEvent) error
	RecentSolves(limit int) ([]SolverRun, error)
	Close() error
}
