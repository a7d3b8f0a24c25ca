package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSimulation(t *testing.T) {
	m := NewMetrics("test")
	m.RecordSimulation(500, 25, 0.05, 0.01, 20*time.Millisecond, nil)
	m.RecordSimulation(0, 0, 0, 0, 0, errors.New("boom"))

	assert.Equal(t, 500.0, testutil.ToFloat64(m.HistoriesSimulated))
	assert.Equal(t, 25.0, testutil.ToFloat64(m.HistoriesDepleted))
	assert.Equal(t, 0.05, testutil.ToFloat64(m.LastDepletionRisk))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SimulationsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SimulationsTotal.WithLabelValues("error")))
}

func TestRecordAttempt(t *testing.T) {
	m := NewMetrics("test")
	m.RecordAttempt(false)
	m.RecordAttempt(true)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SolverAttempts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BracketFailures))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordSimulation(1, 1, 1, 0, time.Second, nil)
		m.RecordAttempt(false)
		m.RecordSolve(1, time.Second, nil)
		m.RecordSweepPoint("stock_fraction")
		m.RecordJob("risk", nil)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics("test")
	m.RecordSolve(1.2e6, time.Second, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "test_solver_last_required_savings 1.2e+06"))
}
