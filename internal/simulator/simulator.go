// Package simulator estimates the probability of outliving one's savings by
// Monte Carlo: life-table mortality coupled with i.i.d. resampling of
// historical inflation, stock and bond returns.
package simulator

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"RetireRisk/internal/calculator"
	"RetireRisk/internal/logging"
	"RetireRisk/internal/model"
	"RetireRisk/internal/observability"
)

const defaultChunkSize = 256

// LifeTables resolves a mortality key to a life table.
type LifeTables interface {
	LifeTable(key model.MortalityKey) (*model.MortalityTable, error)
}

// Options configures a Simulator.
type Options struct {
	// Workers bounds the number of goroutines running histories. Defaults to GOMAXPROCS.
	Workers int
	// ChunkSize is the number of histories handed to a worker at a time.
	ChunkSize int
	// Streams supplies per-history randomness. Defaults to PCGStreams with a fresh seed.
	Streams Streams
	// KeepTrajectories retains every asset path in the result.
	KeepTrajectories bool
	Metrics          *observability.Metrics
	Logger           *slog.Logger
}

// Simulator runs retirement histories. It holds no per-run state and is safe
// for concurrent use.
type Simulator struct {
	workers   int
	chunkSize int
	streams   Streams
	keep      bool
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// New creates a Simulator, filling unset options with defaults.
func New(opts Options) *Simulator {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	if opts.Streams == nil {
		opts.Streams = PCGStreams{Seed: NewSeed()}
	}
	return &Simulator{
		workers:   opts.Workers,
		chunkSize: opts.ChunkSize,
		streams:   opts.Streams,
		keep:      opts.KeepTrajectories,
		metrics:   opts.Metrics,
		logger:    logging.OrDefault(opts.Logger),
	}
}

// WithTrajectories returns a copy that does or does not retain asset paths.
// The solver turns them off so repeated objective calls stay cheap.
func (s *Simulator) WithTrajectories(keep bool) *Simulator {
	c := *s
	c.keep = keep
	return &c
}

// Simulate runs params.SampleCount independent histories and aggregates them.
// Validation happens before any history is drawn.
func (s *Simulator) Simulate(ctx context.Context, params model.SimulationParameters, tables LifeTables, market *model.MarketRecord) (*model.SimulationResult, error) {
	start := time.Now()
	res, err := s.simulate(ctx, params, tables, market)
	if err != nil {
		s.metrics.RecordSimulation(0, 0, 0, 0, time.Since(start), err)
		return nil, err
	}
	s.metrics.RecordSimulation(res.SampleCount, res.Depleted, res.DepletionProbability, res.StandardError, time.Since(start), nil)
	s.logger.Debug("simulation finished",
		"starting_assets", params.StartingAssets,
		"samples", res.SampleCount,
		"p", res.DepletionProbability,
		"stderr", res.StandardError,
		"elapsed", time.Since(start))
	return res, nil
}

func (s *Simulator) simulate(ctx context.Context, params model.SimulationParameters, tables LifeTables, market *model.MarketRecord) (*model.SimulationResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if market == nil || market.Len() == 0 {
		return nil, model.ErrEmptyMarketRecord
	}
	if tables == nil {
		return nil, fmt.Errorf("%w: no life tables", model.ErrInvalidParameter)
	}
	table, err := tables.LifeTable(params.Mortality)
	if err != nil {
		return nil, fmt.Errorf("life table %s: %w", params.Mortality, err)
	}

	n := params.SampleCount
	finals := make([]float64, n)
	ages := make([]float64, n)
	var trajectories []model.HistoryTrajectory
	if s.keep {
		trajectories = make([]model.HistoryTrajectory, n)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for lo := 0; lo < n; lo += s.chunkSize {
		hi := min(lo+s.chunkSize, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				h := RunHistory(params, table, market, s.streams.Stream(i), s.keep)
				finals[i] = h.FinalBalance
				ages[i] = h.TerminalAge
				if s.keep {
					trajectories[i] = h.Trajectory(params.StartingAge)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return aggregate(finals, ages, trajectories)
}

func aggregate(finals, ages []float64, trajectories []model.HistoryTrajectory) (*model.SimulationResult, error) {
	depleted := 0
	for _, f := range finals {
		if f < 0 {
			depleted++
		}
	}
	p, stderr, err := calculator.BernoulliEstimate(depleted, len(finals))
	if err != nil {
		return nil, err
	}

	sortedAges := calculator.SortedCopy(ages)
	return &model.SimulationResult{
		DepletionProbability: p,
		StandardError:        stderr,
		SampleCount:          len(finals),
		Depleted:             depleted,
		MeanTerminalAge:      calculator.Mean(ages),
		TerminalAges: model.AgePercentiles{
			P10:    calculator.Percentile(sortedAges, 0.10),
			Median: calculator.Percentile(sortedAges, 0.50),
			P90:    calculator.Percentile(sortedAges, 0.90),
		},
		FinalAssetsMedian: calculator.Percentile(calculator.SortedCopy(finals), 0.50),
		AgeHistogram:      calculator.AgeHistogram(ages),
		Trajectories:      trajectories,
	}, nil
}
