package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"RetireRisk/internal/notifier"
	"RetireRisk/internal/recorder"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Estimate the chance of running out of money",
		Long: `Simulates many lifetimes of the configured plan against historical market
years and prints the fraction that ran out of money.

Examples:
  retirerisk simulate --assets 1200000 --expense 40000 --stocks 0.6
  retirerisk simulate --region NY --group female --samples 2000 --json`,
		RunE: runSimulate,
	}
	addPlanFlags(cmd)
	cmd.Flags().Bool("trajectories", false, "Include every asset path in JSON output")
	return cmd
}

func runSimulate(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	st, err := planFromFlags(cmd, a.cfg)
	if err != nil {
		return err
	}
	params := st.Params()
	jsonOut, _ := cmd.Flags().GetBool("json")
	keep, _ := cmd.Flags().GetBool("trajectories")

	data, err := a.collector.Collect(params.Mortality)
	if err != nil {
		return err
	}
	rec := openRecorder(a.cfg, a.logger)
	defer rec.Close()

	start := time.Now()
	res, err := a.sim.WithTrajectories(keep && jsonOut).Simulate(cmd.Context(), params, data.Tables, data.Market)
	if err != nil {
		return err
	}
	if _, err := rec.RecordSimulation(&recorder.SimulationRun{
		Source:  recorder.SourceCLI,
		Params:  params,
		Result:  res,
		Elapsed: time.Since(start),
	}); err != nil {
		a.logger.Warn("record simulation", "err", err)
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, res)
	}
	fmt.Fprintf(out, "Chance of running out of money is %.2f%% (± %.2f%%, %d lives).\n",
		100*res.DepletionProbability, 100*res.StandardError, res.SampleCount)
	fmt.Fprintf(out, "Age at end: median %.0f, 10%% %.0f, 90%% %.0f\n",
		res.TerminalAges.Median, res.TerminalAges.P10, res.TerminalAges.P90)
	fmt.Fprintf(out, "Median final assets: %s\n", notifier.Money(res.FinalAssetsMedian))
	if res.DepletionProbability > st.AcceptableRisk {
		fmt.Fprintf(out, "Above the acceptable risk of %.2f%%.\n", 100*st.AcceptableRisk)
	}
	return nil
}
