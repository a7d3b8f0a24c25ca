package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"RetireRisk/internal/notifier"
	"RetireRisk/internal/recorder"
)

func newSolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Find the savings needed for an acceptable risk",
		Long: `Searches starting assets until the simulated chance of running out of
money equals the acceptable risk. --assets is ignored.

Examples:
  retirerisk solve --expense 50000 --risk 0.05
  retirerisk solve --age 60 --stocks 0.8 --json`,
		RunE: runSolve,
	}
	addPlanFlags(cmd)
	return cmd
}

func runSolve(cmd *cobra.Command, args []string) error {
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

	data, err := a.collector.Collect(params.Mortality)
	if err != nil {
		return err
	}
	rec := openRecorder(a.cfg, a.logger)
	defer rec.Close()

	start := time.Now()
	sol, err := a.solver.RequiredSavings(cmd.Context(), st.AcceptableRisk, params, data.Tables, data.Market)
	run := &recorder.SolverRun{
		Source:     recorder.SourceCLI,
		TargetRisk: st.AcceptableRisk,
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
	if _, rerr := rec.RecordSolve(run); rerr != nil {
		a.logger.Warn("record solve", "err", rerr)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, sol)
	}
	fmt.Fprintf(out, "You should save %s.\n", notifier.Millions(sol.RequiredSavings))
	fmt.Fprintf(out, "Chance of running out of money there is %.2f%% (%d attempt(s), %d lives).\n",
		100*sol.Risk, sol.Attempts, sol.SampleCount)
	return nil
}
