// Package sensitivity shows how the required savings respond to each plan
// input, one input at a time.
package sensitivity

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"RetireRisk/internal/calculator"
	"RetireRisk/internal/logging"
	"RetireRisk/internal/model"
	"RetireRisk/internal/observability"
	"RetireRisk/internal/simulator"
	"RetireRisk/internal/solver"
)

// CascadeStopRisk ends a cascade curve once the risk falls below it.
const CascadeStopRisk = 0.01

// DefaultCascadeFractions are the stock fractions drawn by Cascade when none are given.
var DefaultCascadeFractions = []float64{0.25, 0.5, 0.75}

// DefaultCascadeAssets is the starting-asset grid of a cascade.
func DefaultCascadeAssets() []float64 {
	return calculator.Linspace(1e5, 1e7, 100)
}

// Options configures a Runner.
type Options struct {
	// Parallel bounds how many sweep points are solved at once. Each solve
	// already runs its histories in parallel, so the default is 1.
	Parallel int
	Metrics  *observability.Metrics
	Logger   *slog.Logger
}

// Runner sweeps factors through the savings solver.
type Runner struct {
	sim      *simulator.Simulator
	solver   *solver.Solver
	parallel int
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(sim *simulator.Simulator, slv *solver.Solver, opts Options) *Runner {
	if opts.Parallel <= 0 {
		opts.Parallel = 1
	}
	return &Runner{
		sim:      sim.WithTrajectories(false),
		solver:   slv,
		parallel: opts.Parallel,
		metrics:  opts.Metrics,
		logger:   logging.OrDefault(opts.Logger),
	}
}

// Sweep solves the required savings once per value, with the named factor
// set to that value and everything else taken from base and targetRisk.
// Points come back in the order of values.
func (r *Runner) Sweep(ctx context.Context, factor string, values []float64, base model.SimulationParameters, targetRisk float64, tables simulator.LifeTables, market *model.MarketRecord) ([]model.SweepPoint, error) {
	f, err := Lookup(factor)
	if err != nil {
		return nil, err
	}

	points := make([]model.SweepPoint, len(values))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallel)
	for i, v := range values {
		g.Go(func() error {
			pt := Point{Params: base, Risk: targetRisk}
			f.Set(&pt, v)
			sol, err := r.solver.RequiredSavings(gctx, pt.Risk, pt.Params, tables, market)
			if err != nil {
				return fmt.Errorf("%s=%g: %w", f.Name, v, err)
			}
			points[i] = model.SweepPoint{Value: v, RequiredSavings: sol.RequiredSavings}
			r.metrics.RecordSweepPoint(f.Name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	r.logger.Info("sweep finished", "factor", f.Name, "points", len(points))
	return points, nil
}

// FactorSweep is one factor's sweep in a Report.
type FactorSweep struct {
	Factor    string             `json:"factor"`
	BaseValue float64            `json:"base_value"`
	Points    []model.SweepPoint `json:"points"`
}

// Report is the base plan's required savings plus a default sweep of every factor.
type Report struct {
	Base   *solver.Solution `json:"base"`
	Sweeps []FactorSweep    `json:"sweeps"`
}

// SweepAll solves the base plan and then sweeps every factor over its
// default grid.
func (r *Runner) SweepAll(ctx context.Context, base model.SimulationParameters, targetRisk float64, tables simulator.LifeTables, market *model.MarketRecord) (*Report, error) {
	sol, err := r.solver.RequiredSavings(ctx, targetRisk, base, tables, market)
	if err != nil {
		return nil, fmt.Errorf("base plan: %w", err)
	}
	report := &Report{Base: sol}
	origin := Point{Params: base, Risk: targetRisk}
	for _, f := range Factors {
		points, err := r.Sweep(ctx, f.Name, f.Grid(), base, targetRisk, tables, market)
		if err != nil {
			return nil, err
		}
		report.Sweeps = append(report.Sweeps, FactorSweep{Factor: f.Name, BaseValue: f.Value(origin), Points: points})
	}
	return report, nil
}

// CascadeCurve is the depletion risk over starting assets at one stock fraction.
type CascadeCurve struct {
	StockFraction float64           `json:"stock_fraction"`
	Points        []model.RiskPoint `json:"points"`
}

// Cascade simulates the depletion risk along assets for each stock fraction.
// A curve stops at the first point whose risk is below CascadeStopRisk; that
// point is kept.
func (r *Runner) Cascade(ctx context.Context, base model.SimulationParameters, fractions, assets []float64, tables simulator.LifeTables, market *model.MarketRecord) ([]CascadeCurve, error) {
	if len(fractions) == 0 {
		fractions = DefaultCascadeFractions
	}
	if len(assets) == 0 {
		assets = DefaultCascadeAssets()
	}

	curves := make([]CascadeCurve, 0, len(fractions))
	for _, fraction := range fractions {
		curve := CascadeCurve{StockFraction: fraction}
		params := base
		params.StockFraction = fraction
		for _, x := range assets {
			params.StartingAssets = x
			res, err := r.sim.Simulate(ctx, params, tables, market)
			if err != nil {
				return nil, fmt.Errorf("cascade at %g: %w", x, err)
			}
			curve.Points = append(curve.Points, model.RiskPoint{
				StartingAssets:       x,
				DepletionProbability: res.DepletionProbability,
				StandardError:        res.StandardError,
			})
			if res.DepletionProbability < CascadeStopRisk {
				break
			}
		}
		curves = append(curves, curve)
	}
	return curves, nil
}
