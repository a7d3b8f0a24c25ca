package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RetireRisk/internal/model"
)

func openTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func testParams() model.SimulationParameters {
	return model.SimulationParameters{
		StartingAssets: 1e6,
		YearlyExpense:  40e3,
		StockFraction:  0.5,
		StartingAge:    65,
		Mortality:      model.MortalityKey{Region: "CA", Group: "total"},
		SampleCount:    500,
	}
}

func TestSQLiteRecorder_Simulation(t *testing.T) {
	r := openTestRecorder(t)
	id, err := r.RecordSimulation(&SimulationRun{
		Source: SourceCLI,
		Params: testParams(),
		Result: &model.SimulationResult{DepletionProbability: 0.12, StandardError: 0.01, SampleCount: 500, Depleted: 60},
	})
	require.NoError(t, err)
	assert.Len(t, id, 36)

	var count int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM simulation_runs WHERE depleted = 60`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSQLiteRecorder_RecentSolves(t *testing.T) {
	r := openTestRecorder(t)
	for i, savings := range []float64{1e6, 1.1e6, 1.2e6} {
		_, err := r.RecordSolve(&SolverRun{
			Source:          SourceSchedule,
			TargetRisk:      0.02,
			Params:          testParams(),
			RequiredSavings: savings,
			Risk:            0.021,
			Attempts:        1,
			SampleCount:     500,
			Iterations:      7 + i,
			Elapsed:         1500 * time.Millisecond,
		})
		require.NoError(t, err)
	}

	runs, err := r.RecentSolves(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 1.2e6, runs[0].RequiredSavings)
	assert.Equal(t, 1.1e6, runs[1].RequiredSavings)
	assert.Equal(t, "CA", runs[0].Params.Mortality.Region)
	assert.Equal(t, 1500*time.Millisecond, runs[0].Elapsed)
	assert.Empty(t, runs[0].Error)
}

func TestSQLiteRecorder_Sweep(t *testing.T) {
	r := openTestRecorder(t)
	points := []model.SweepPoint{{Value: 0.9, RequiredSavings: 2e6}, {Value: 0.1, RequiredSavings: 1e6}}
	id, err := r.RecordSweep(&SweepRun{Source: SourceAPI, Factor: "stock_fraction", TargetRisk: 0.02, Params: testParams(), Points: points})
	require.NoError(t, err)

	got, err := r.SweepPoints(id)
	require.NoError(t, err)
	assert.Equal(t, points, got)
}

func TestSQLiteRecorder_PlanEvent(t *testing.T) {
	r := openTestRecorder(t)
	require.NoError(t, r.RecordPlanEvent(&PlanEvent{Revision: "r1", Action: "SET", Field: "stock_fraction", Value: 0.6}))

	var field string
	require.NoError(t, r.db.QueryRow(`SELECT field FROM plan_events WHERE revision = 'r1'`).Scan(&field))
	assert.Equal(t, "stock_fraction", field)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	id, err := r.RecordSimulation(&SimulationRun{})
	assert.NoError(t, err)
	assert.Empty(t, id)
	runs, err := r.RecentSolves(5)
	assert.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, r.Close())
}
