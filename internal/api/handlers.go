// Package api exposes simulation, savings goals and sensitivity sweeps over HTTP.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"RetireRisk/internal/collector"
	"RetireRisk/internal/logging"
	"RetireRisk/internal/model"
	"RetireRisk/internal/recorder"
	"RetireRisk/internal/sensitivity"
	"RetireRisk/internal/simulator"
	"RetireRisk/internal/solver"
)

// DefaultSampleCount is used when a request leaves sample_count unset.
const DefaultSampleCount = 500

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// SimulateRequest asks for the depletion risk of one plan.
type SimulateRequest struct {
	model.SimulationParameters
	KeepTrajectories bool `json:"keep_trajectories"`
}

// SimulateResponse wraps a simulation result.
type SimulateResponse struct {
	RunID  string                  `json:"run_id,omitempty"`
	Result *model.SimulationResult `json:"result"`
}

// SolveRequest asks for the savings that reach TargetRisk.
// starting_assets is ignored.
type SolveRequest struct {
	model.SimulationParameters
	TargetRisk float64 `json:"target_risk"`
}

// SolveResponse wraps a solver solution.
type SolveResponse struct {
	RunID    string           `json:"run_id,omitempty"`
	Solution *solver.Solution `json:"solution"`
}

// SweepRequest asks for the required savings along one factor. Values
// default to the factor's standard grid.
type SweepRequest struct {
	model.SimulationParameters
	TargetRisk float64   `json:"target_risk"`
	Factor     string    `json:"factor"`
	Values     []float64 `json:"values,omitempty"`
}

// SweepResponse holds the points of a sweep in request order.
type SweepResponse struct {
	RunID  string             `json:"run_id,omitempty"`
	Factor string             `json:"factor"`
	Points []model.SweepPoint `json:"points"`
}

// CascadeRequest asks for risk curves over starting assets.
type CascadeRequest struct {
	model.SimulationParameters
	StockFractions []float64 `json:"stock_fractions,omitempty"`
	Assets         []float64 `json:"assets,omitempty"`
}

// CascadeResponse holds one curve per stock fraction.
type CascadeResponse struct {
	Curves []sensitivity.CascadeCurve `json:"curves"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// Handlers serves the HTTP endpoints. Requests asking for more than
// MaxSamples histories are rejected.
type Handlers struct {
	MaxSamples int

	collector   *collector.Collector
	sim         *simulator.Simulator
	solver      *solver.Solver
	sensitivity *sensitivity.Runner
	recorder    recorder.Recorder
	logger      *slog.Logger
}

// NewHandlers creates Handlers. A nil recorder records nothing.
func NewHandlers(col *collector.Collector, sim *simulator.Simulator, slv *solver.Solver, runner *sensitivity.Runner, rec recorder.Recorder, logger *slog.Logger) *Handlers {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Handlers{
		MaxSamples:  model.DefaultMaxSamples,
		collector:   col,
		sim:         sim,
		solver:      slv,
		sensitivity: runner,
		recorder:    rec,
		logger:      logging.OrDefault(logger),
	}
}

// prepare fills request defaults and enforces the sample limit.
func (h *Handlers) prepare(c *gin.Context, p model.SimulationParameters) (model.SimulationParameters, bool) {
	if p.SampleCount == 0 {
		p.SampleCount = DefaultSampleCount
	}
	if p.Mortality.Group == "" {
		p.Mortality.Group = model.GroupTotal
	}
	if err := model.ValidateSampleLimit(p.SampleCount, h.MaxSamples); err != nil {
		h.fail(c, err)
		return p, false
	}
	return p, true
}

// HandleSimulate estimates the depletion risk of one plan.
func (h *Handlers) HandleSimulate(c *gin.Context) {
	var req SimulateRequest
	if !h.bind(c, &req) {
		return
	}
	params, ok := h.prepare(c, req.SimulationParameters)
	if !ok {
		return
	}

	data, ok := h.load(c, params.Mortality)
	if !ok {
		return
	}
	start := time.Now()
	res, err := h.sim.WithTrajectories(req.KeepTrajectories).Simulate(c.Request.Context(), params, data.Tables, data.Market)
	if err != nil {
		h.fail(c, err)
		return
	}
	id, err := h.recorder.RecordSimulation(&recorder.SimulationRun{
		Source:  recorder.SourceAPI,
		Params:  params,
		Result:  res,
		Elapsed: time.Since(start),
	})
	if err != nil {
		h.logger.Error("record simulation", "err", err)
	}
	c.JSON(http.StatusOK, SimulateResponse{RunID: id, Result: res})
}

// HandleSolve finds the savings that reach the target risk.
func (h *Handlers) HandleSolve(c *gin.Context) {
	var req SolveRequest
	if !h.bind(c, &req) {
		return
	}
	params, ok := h.prepare(c, req.SimulationParameters)
	if !ok {
		return
	}

	data, ok := h.load(c, params.Mortality)
	if !ok {
		return
	}
	start := time.Now()
	sol, err := h.solver.RequiredSavings(c.Request.Context(), req.TargetRisk, params, data.Tables, data.Market)
	run := &recorder.SolverRun{
		Source:     recorder.SourceAPI,
		TargetRisk: req.TargetRisk,
		Params:     params,
		Elapsed:    time.Since(start),
	}
	if err != nil {
		run.Error = err.Error()
	} else {
		run.RequiredSavings = sol.RequiredSavings
		run.Risk = sol.Risk
		run.Attempts = sol.Attempts
		run.SampleCount = sol.SampleCount
		run.Iterations = sol.Iterations
	}
	id, rerr := h.recorder.RecordSolve(run)
	if rerr != nil {
		h.logger.Error("record solve", "err", rerr)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SolveResponse{RunID: id, Solution: sol})
}

// HandleSweep solves the required savings along one factor.
func (h *Handlers) HandleSweep(c *gin.Context) {
	var req SweepRequest
	if !h.bind(c, &req) {
		return
	}
	params, ok := h.prepare(c, req.SimulationParameters)
	if !ok {
		return
	}

	f, err := sensitivity.Lookup(req.Factor)
	if err != nil {
		h.fail(c, err)
		return
	}
	values := req.Values
	if len(values) == 0 {
		values = f.Grid()
	}
	data, ok := h.load(c, params.Mortality)
	if !ok {
		return
	}
	points, err := h.sensitivity.Sweep(c.Request.Context(), f.Name, values, params, req.TargetRisk, data.Tables, data.Market)
	if err != nil {
		h.fail(c, err)
		return
	}
	id, err := h.recorder.RecordSweep(&recorder.SweepRun{
		Source:     recorder.SourceAPI,
		Factor:     f.Name,
		TargetRisk: req.TargetRisk,
		Params:     params,
		Points:     points,
	})
	if err != nil {
		h.logger.Error("record sweep", "err", err)
	}
	c.JSON(http.StatusOK, SweepResponse{RunID: id, Factor: f.Name, Points: points})
}

// HandleCascade computes risk curves over starting assets.
func (h *Handlers) HandleCascade(c *gin.Context) {
	var req CascadeRequest
	if !h.bind(c, &req) {
		return
	}
	params, ok := h.prepare(c, req.SimulationParameters)
	if !ok {
		return
	}
	data, ok := h.load(c, params.Mortality)
	if !ok {
		return
	}
	curves, err := h.sensitivity.Cascade(c.Request.Context(), params, req.StockFractions, req.Assets, data.Tables, data.Market)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, CascadeResponse{Curves: curves})
}

// HandleHealth reports liveness.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Time: time.Now().UTC().Format(time.RFC3339)})
}

func (h *Handlers) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.logger.Warn("invalid request body", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return false
	}
	return true
}

func (h *Handlers) load(c *gin.Context, key model.MortalityKey) (*collector.Data, bool) {
	data, err := h.collector.Collect(key)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return data, true
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.FullPath(), "err", err)
	} else {
		h.logger.Info("request rejected", "path", c.FullPath(), "code", code, "err", err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

// classify maps domain errors to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrInvalidParameter):
		return http.StatusBadRequest, "INVALID_PARAMETER"
	case errors.Is(err, model.ErrUnknownMortalityKey):
		return http.StatusBadRequest, "UNKNOWN_MORTALITY_KEY"
	case errors.Is(err, model.ErrEmptyMarketRecord):
		return http.StatusBadRequest, "EMPTY_MARKET_RECORD"
	case errors.Is(err, model.ErrSolverDidNotConverge):
		return http.StatusUnprocessableEntity, "DID_NOT_CONVERGE"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}
