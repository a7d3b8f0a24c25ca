// Package solver inverts the depletion simulation: it finds the starting
// assets at which the chance of running out of money equals a target.
package solver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"RetireRisk/internal/logging"
	"RetireRisk/internal/model"
	"RetireRisk/internal/observability"
	"RetireRisk/internal/simulator"
)

const (
	defaultMaxRetries   = 10
	defaultLowMultiple  = 5
	defaultHighMultiple = 40
)

// Options configures a Solver.
type Options struct {
	// MaxRetries bounds how many times the bracket is widened after a
	// bracketing failure. Defaults to 10.
	MaxRetries int
	// LowMultiple and HighMultiple set the first bracket as multiples of the
	// yearly expense. Default 5 and 40.
	LowMultiple  float64
	HighMultiple float64
	Brent        BrentOptions
	Metrics      *observability.Metrics
	Logger       *slog.Logger
}

// Solution is the required savings and how the search got there.
type Solution struct {
	RequiredSavings float64 `json:"required_savings"`
	Attempts        int     `json:"attempts"`
	SampleCount     int     `json:"sample_count"`
	Lo              float64 `json:"lo"`
	Hi              float64 `json:"hi"`
	Iterations      int     `json:"iterations"`
	Risk            float64 `json:"risk"` // depletion probability at RequiredSavings
}

// Solver searches starting assets with Brent's method over simulated risk.
type Solver struct {
	sim          *simulator.Simulator
	maxRetries   int
	lowMultiple  float64
	highMultiple float64
	brent        BrentOptions
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// New creates a Solver around sim.
func New(sim *simulator.Simulator, opts Options) *Solver {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.LowMultiple <= 0 {
		opts.LowMultiple = defaultLowMultiple
	}
	if opts.HighMultiple <= opts.LowMultiple {
		opts.HighMultiple = defaultHighMultiple
	}
	if opts.Brent == (BrentOptions{}) {
		opts.Brent = DefaultBrentOptions()
	}
	return &Solver{
		sim:          sim.WithTrajectories(false),
		maxRetries:   opts.MaxRetries,
		lowMultiple:  opts.LowMultiple,
		highMultiple: opts.HighMultiple,
		brent:        opts.Brent,
		metrics:      opts.Metrics,
		logger:       logging.OrDefault(opts.Logger),
	}
}

// RequiredSavings returns the starting assets x with p(x) = targetRisk, where
// p is the simulated depletion probability for base with StartingAssets = x.
// base.StartingAssets is ignored.
//
// When the first bracket [5E, 40E] (E the yearly expense) does not straddle
// the target, the sample count doubles, the lower bound halves and the upper
// bound doubles, up to MaxRetries times.
func (s *Solver) RequiredSavings(ctx context.Context, targetRisk float64, base model.SimulationParameters, tables simulator.LifeTables, market *model.MarketRecord) (*Solution, error) {
	start := time.Now()
	sol, err := s.solve(ctx, targetRisk, base, tables, market)
	if err != nil {
		s.metrics.RecordSolve(0, time.Since(start), err)
		return nil, err
	}
	s.metrics.RecordSolve(sol.RequiredSavings, time.Since(start), nil)
	s.logger.Info("required savings solved",
		"target_risk", targetRisk,
		"savings", sol.RequiredSavings,
		"risk", sol.Risk,
		"attempts", sol.Attempts,
		"samples", sol.SampleCount,
		"elapsed", time.Since(start))
	return sol, nil
}

func (s *Solver) solve(ctx context.Context, targetRisk float64, base model.SimulationParameters, tables simulator.LifeTables, market *model.MarketRecord) (*Solution, error) {
	if err := model.ValidateRisk(targetRisk); err != nil {
		return nil, err
	}
	lo := s.lowMultiple * base.YearlyExpense
	hi := s.highMultiple * base.YearlyExpense
	probe := base
	probe.StartingAssets = 1
	if err := probe.Validate(); err != nil {
		return nil, err
	}

	n := base.SampleCount
	for attempt := 1; attempt <= s.maxRetries+1; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		params := base
		params.SampleCount = n
		risk := func(x float64) (float64, error) {
			params.StartingAssets = x
			res, err := s.sim.Simulate(ctx, params, tables, market)
			if err != nil {
				return 0, err
			}
			return res.DepletionProbability, nil
		}
		objective := func(x float64) (float64, error) {
			p, err := risk(x)
			return targetRisk - p, err
		}

		root, iters, err := Brent(objective, lo, hi, s.brent)
		if errors.Is(err, model.ErrBracketingFailure) {
			s.metrics.RecordAttempt(false)
			s.logger.Info("target risk not bracketed, widening",
				"attempt", attempt, "lo", lo, "hi", hi, "samples", n)
			n *= 2
			lo /= 2
			hi *= 2
			continue
		}
		if err != nil {
			return nil, err
		}
		s.metrics.RecordAttempt(true)

		p, err := risk(root)
		if err != nil {
			return nil, err
		}
		return &Solution{
			RequiredSavings: root,
			Attempts:        attempt,
			SampleCount:     n,
			Lo:              lo,
			Hi:              hi,
			Iterations:      iters,
			Risk:            p,
		}, nil
	}
	return nil, fmt.Errorf("%w: target risk %v not bracketed after %d attempts (last bracket [%g, %g])",
		model.ErrSolverDidNotConverge, targetRisk, s.maxRetries+1, lo*2, hi/2)
}
