package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"RetireRisk/internal/collector"
	"RetireRisk/internal/config"
	"RetireRisk/internal/logging"
	"RetireRisk/internal/model"
	"RetireRisk/internal/observability"
	"RetireRisk/internal/recorder"
	"RetireRisk/internal/sensitivity"
	"RetireRisk/internal/simulator"
	"RetireRisk/internal/solver"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "retirerisk",
		Short: "Monte Carlo retirement depletion risk",
		Long: `retirerisk estimates the chance of running out of money in retirement by
replaying historical market years against sampled lifetimes, and solves for
the savings that bring that chance down to an acceptable level.`,
		SilenceUsage: true,
	}

	defaultConfig := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultConfig = v
	}
	rootCmd.PersistentFlags().String("config", defaultConfig, "Path to YAML config")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSimulateCmd(),
		newSolveCmd(),
		newSweepCmd(),
		newCascadeCmd(),
		newServeCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "retirerisk version %s\n", version)
		},
	}
}

// app is the wiring shared by every subcommand.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	collector *collector.Collector
	metrics   *observability.Metrics
	sim       *simulator.Simulator
	solver    *solver.Solver
	runner    *sensitivity.Runner
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	logger := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	slog.SetDefault(logger)

	col, err := collector.New(cfg.Data.Source, cfg.Data.LifeTableDir, cfg.Data.MarketCSV, logger)
	if err != nil {
		return nil, err
	}

	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = simulator.NewSeed()
	}
	logger.Debug("simulation seed", "seed", seed)

	metrics := observability.NewMetrics("retirerisk")
	sim := simulator.New(simulator.Options{
		Workers:          cfg.Simulation.Workers,
		Streams:          simulator.PCGStreams{Seed: seed},
		KeepTrajectories: cfg.Simulation.KeepTrajectories,
		Metrics:          metrics,
		Logger:           logger,
	})
	slv := solver.New(sim, solver.Options{
		MaxRetries: cfg.Simulation.MaxRetries,
		Metrics:    metrics,
		Logger:     logger,
	})
	runner := sensitivity.NewRunner(sim, slv, sensitivity.Options{
		Parallel: cfg.Simulation.SweepParallel,
		Metrics:  metrics,
		Logger:   logger,
	})

	return &app{
		cfg:       cfg,
		logger:    logger,
		collector: col,
		metrics:   metrics,
		sim:       sim,
		solver:    slv,
		runner:    runner,
	}, nil
}

// addPlanFlags registers flags that override the configured plan.
func addPlanFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("assets", 0, "Starting assets in dollars")
	cmd.Flags().Float64("expense", 0, "Yearly expense in today's dollars")
	cmd.Flags().Float64("stocks", 0, "Fraction of assets held in stocks, 0 to 1")
	cmd.Flags().Float64("age", 0, "Age at retirement")
	cmd.Flags().String("region", "", "Two-letter state code of the life table")
	cmd.Flags().String("group", "", "Demographic group of the life table")
	cmd.Flags().Int("samples", 0, "Number of simulated lives")
	cmd.Flags().Float64("risk", 0, "Acceptable chance of running out of money")
}

// planFromFlags starts from the configured plan and applies every flag the
// user set explicitly, so --stocks 0 means all bonds.
func planFromFlags(cmd *cobra.Command, cfg *config.Config) (model.PlanState, error) {
	st := cfg.PlanDefaults()
	flags := cmd.Flags()
	if flags.Changed("assets") {
		st.StartingAssets, _ = flags.GetFloat64("assets")
	}
	if flags.Changed("expense") {
		st.YearlyExpense, _ = flags.GetFloat64("expense")
	}
	if flags.Changed("stocks") {
		st.StockFraction, _ = flags.GetFloat64("stocks")
	}
	if flags.Changed("age") {
		st.StartingAge, _ = flags.GetFloat64("age")
	}
	if flags.Changed("region") {
		st.Region, _ = flags.GetString("region")
	}
	if flags.Changed("group") {
		group, _ := flags.GetString("group")
		canonical, ok := model.NormalizeGroup(group)
		if !ok {
			return st, fmt.Errorf("%w: unknown group %q", model.ErrUnknownMortalityKey, group)
		}
		st.Group = canonical
	}
	if flags.Changed("samples") {
		st.SampleCount, _ = flags.GetInt("samples")
	}
	if flags.Changed("risk") {
		st.AcceptableRisk, _ = flags.GetFloat64("risk")
	}
	if err := st.Params().Validate(); err != nil {
		return st, err
	}
	if err := model.ValidateSampleLimit(st.SampleCount, cfg.Simulation.MaxSamples); err != nil {
		return st, err
	}
	return st, model.ValidateRisk(st.AcceptableRisk)
}

// openRecorder opens the SQLite history, falling back to a no-op recorder
// when the path is empty or the database cannot be opened.
func openRecorder(cfg *config.Config, logger *slog.Logger) recorder.Recorder {
	path := cfg.Database.SQLitePath
	if path == "" {
		return recorder.NewNoopRecorder()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger.Warn("create database directory failed, using noop recorder", "err", err)
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(path, logger)
	if err != nil {
		logger.Warn("init sqlite recorder failed, using noop recorder", "err", err)
		return recorder.NewNoopRecorder()
	}
	return sr
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
