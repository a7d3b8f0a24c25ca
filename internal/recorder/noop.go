package recorder

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSimulation(_ *SimulationRun) (string, error) { return "", nil }
func (n *NoopRecorder) RecordSolve(_ *SolverRun) (string, error)          { return "", nil }
func (n *NoopRecorder) RecordSweep(_ *SweepRun) (string, error)           { return "", nil }
func (n *NoopRecorder) RecordPlanEvent(_ *PlanEvent) error                { return nil }
func (n *NoopRecorder) RecentSolves(_ int) ([]SolverRun, error)           { return nil, nil }
func (n *NoopRecorder) Close() error                                      { return nil }
