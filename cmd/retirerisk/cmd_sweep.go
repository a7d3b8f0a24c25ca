package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"RetireRisk/internal/model"
	"RetireRisk/internal/notifier"
	"RetireRisk/internal/recorder"
	"RetireRisk/internal/sensitivity"
)

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep [factor]",
		Short: "Required savings as one factor varies",
		Long: `Solves the required savings across a grid of values for one factor, or for
every factor when none is given.

Factors: ` + strings.Join(sensitivity.Names(), ", ") + `

Examples:
  retirerisk sweep stock_fraction
  retirerisk sweep yearly_expense --values 30000,40000,60000
  retirerisk sweep --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSweep,
	}
	addPlanFlags(cmd)
	cmd.Flags().Float64Slice("values", nil, "Factor values (defaults to the factor's grid)")
	return cmd
}

func runSweep(cmd *cobra.Command, args []string) error {
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
	out := cmd.OutOrStdout()

	data, err := a.collector.Collect(params.Mortality)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		report, err := a.runner.SweepAll(cmd.Context(), params, st.AcceptableRisk, data.Tables, data.Market)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(out, report)
		}
		fmt.Fprintf(out, "Base plan: you should save %s.\n", notifier.Millions(report.Base.RequiredSavings))
		for _, s := range report.Sweeps {
			fmt.Fprintf(out, "\n%s (base %.4g)\n", s.Factor, s.BaseValue)
			printSweepPoints(cmd, s.Points)
		}
		return nil
	}

	f, err := sensitivity.Lookup(args[0])
	if err != nil {
		return err
	}
	values, _ := cmd.Flags().GetFloat64Slice("values")
	if len(values) == 0 {
		values = f.Grid()
	}
	points, err := a.runner.Sweep(cmd.Context(), f.Name, values, params, st.AcceptableRisk, data.Tables, data.Market)
	if err != nil {
		return err
	}

	rec := openRecorder(a.cfg, a.logger)
	defer rec.Close()
	if _, err := rec.RecordSweep(&recorder.SweepRun{
		Source:     recorder.SourceCLI,
		Factor:     f.Name,
		TargetRisk: st.AcceptableRisk,
		Params:     params,
		Points:     points,
	}); err != nil {
		a.logger.Warn("record sweep", "err", err)
	}

	if jsonOut {
		return printJSON(out, points)
	}
	fmt.Fprintln(out, f.Label)
	printSweepPoints(cmd, points)
	return nil
}

func printSweepPoints(cmd *cobra.Command, points []model.SweepPoint) {
	for _, pt := range points {
		fmt.Fprintf(cmd.OutOrStdout(), "  %10.4g  %s\n", pt.Value, notifier.Millions(pt.RequiredSavings))
	}
}

func newCascadeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cascade",
		Short: "Risk as starting assets grow, for several stock fractions",
		Long: `Simulates the plan at increasing starting assets for each stock fraction,
stopping a curve once the risk falls below 1%.

Examples:
  retirerisk cascade
  retirerisk cascade --fractions 0,0.5,1 --json`,
		RunE: runCascade,
	}
	addPlanFlags(cmd)
	cmd.Flags().Float64Slice("fractions", nil, "Stock fractions (default 0 to 1 in tenths)")
	cmd.Flags().Float64Slice("asset-grid", nil, "Starting assets to try (default 100k to 10M)")
	return cmd
}

func runCascade(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	st, err := planFromFlags(cmd, a.cfg)
	if err != nil {
		return err
	}
	params := st.Params()
	fractions, _ := cmd.Flags().GetFloat64Slice("fractions")
	assets, _ := cmd.Flags().GetFloat64Slice("asset-grid")
	jsonOut, _ := cmd.Flags().GetBool("json")

	data, err := a.collector.Collect(params.Mortality)
	if err != nil {
		return err
	}
	start := time.Now()
	curves, err := a.runner.Cascade(cmd.Context(), params, fractions, assets, data.Tables, data.Market)
	if err != nil {
		return err
	}
	a.logger.Info("cascade finished", "curves", len(curves), "elapsed", time.Since(start))

	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, curves)
	}
	for _, c := range curves {
		fmt.Fprintf(out, "%.0f%% stocks\n", 100*c.StockFraction)
		for _, pt := range c.Points {
			fmt.Fprintf(out, "  %s  %6.2f%%\n", notifier.Millions(pt.StartingAssets), 100*pt.DepletionProbability)
		}
	}
	return nil
}
