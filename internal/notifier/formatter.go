package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"RetireRisk/internal/model"
	"RetireRisk/internal/recorder"
	"RetireRisk/internal/sensitivity"
	"RetireRisk/internal/solver"
)

// Money renders whole dollars with thousands separators.
func Money(v float64) string {
	if v < 0 {
		return "-$" + humanize.FormatFloat("#,###.", -v)
	}
	return "$" + humanize.FormatFloat("#,###.", v)
}

// Millions renders an amount the way the savings goal is usually quoted.
func Millions(v float64) string {
	return fmt.Sprintf("$%.2f million", v/1e6)
}

func percent(p float64) string {
	return fmt.Sprintf("%.2f%%", 100*p)
}

func describe(p model.SimulationParameters) string {
	return fmt.Sprintf("%s, age %.0f, %s/year, %.0f%% stocks",
		html.EscapeString(p.Mortality.String()), p.StartingAge, Money(p.YearlyExpense), 100*p.StockFraction)
}

// FormatRiskReport formats a depletion-risk estimate.
func FormatRiskReport(p model.SimulationParameters, res *model.SimulationResult, acceptable float64) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>Retirement risk check</b> | %s\n\n", time.Now().Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Plan: %s\n", describe(p)))
	b.WriteString(fmt.Sprintf("Starting assets: %s\n\n", Money(p.StartingAssets)))

	b.WriteString(fmt.Sprintf("Chance of running out of money is %s ± %s\n",
		percent(res.DepletionProbability), percent(res.StandardError)))
	b.WriteString(fmt.Sprintf("  %s of %s histories ran dry\n",
		humanize.Comma(int64(res.Depleted)), humanize.Comma(int64(res.SampleCount))))
	b.WriteString(fmt.Sprintf("  Age at end: median %.0f (10%%: %.0f, 90%%: %.0f)\n",
		res.TerminalAges.Median, res.TerminalAges.P10, res.TerminalAges.P90))
	b.WriteString(fmt.Sprintf("  Median final assets: %s\n", Money(res.FinalAssetsMedian)))

	if acceptable > 0 && res.DepletionProbability > acceptable {
		b.WriteString(fmt.Sprintf("\n⚠️ Above your acceptable risk of %s\n", percent(acceptable)))
	}
	return b.String()
}

// FormatGoalReport formats a required-savings solve.
func FormatGoalReport(p model.SimulationParameters, targetRisk float64, sol *solver.Solution) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🎯 <b>Savings goal</b> | %s\n\n", time.Now().Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Plan: %s\n", describe(p)))
	b.WriteString(fmt.Sprintf("Acceptable risk: %s\n\n", percent(targetRisk)))
	b.WriteString(fmt.Sprintf("You should save %s (%s).\n", Millions(sol.RequiredSavings), Money(sol.RequiredSavings)))
	b.WriteString(fmt.Sprintf("  Simulated risk there: %s\n", percent(sol.Risk)))
	b.WriteString(fmt.Sprintf("  %d attempt(s), %s histories, %d iterations\n",
		sol.Attempts, humanize.Comma(int64(sol.SampleCount)), sol.Iterations))
	if p.StartingAssets > 0 {
		gap := sol.RequiredSavings - p.StartingAssets
		if gap > 0 {
			b.WriteString(fmt.Sprintf("\nShortfall against current assets: %s\n", Money(gap)))
		} else {
			b.WriteString(fmt.Sprintf("\nCurrent assets exceed the goal by %s ✅\n", Money(-gap)))
		}
	}
	return b.String()
}

// FormatSweep formats one factor's sweep.
func FormatSweep(factor string, points []model.SweepPoint) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>Sensitivity: %s</b>\n\n", html.EscapeString(factor)))
	for _, pt := range points {
		b.WriteString(fmt.Sprintf("  %10.4g → %s\n", pt.Value, Millions(pt.RequiredSavings)))
	}
	return b.String()
}

// FormatSweepReport formats a full sensitivity report.
func FormatSweepReport(report *sensitivity.Report) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🧭 <b>Sensitivity report</b> | %s\n\n", time.Now().Format("2006-01-02")))
	if report.Base != nil {
		b.WriteString(fmt.Sprintf("Base plan: save %s\n\n", Millions(report.Base.RequiredSavings)))
	}
	for _, s := range report.Sweeps {
		b.WriteString(FormatSweep(fmt.Sprintf("%s (base %.4g)", s.Factor, s.BaseValue), s.Points))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatCascade formats cascade curves.
func FormatCascade(curves []sensitivity.CascadeCurve) string {
	var b strings.Builder
	b.WriteString("🌊 <b>Risk by starting assets</b>\n")
	for _, c := range curves {
		b.WriteString(fmt.Sprintf("\n%.0f%% stocks:\n", 100*c.StockFraction))
		for _, pt := range c.Points {
			b.WriteString(fmt.Sprintf("  %s: %s ± %s\n",
				Millions(pt.StartingAssets), percent(pt.DepletionProbability), percent(pt.StandardError)))
		}
	}
	return b.String()
}

// FormatPlan formats the stored plan for display.
func FormatPlan(state *model.PlanState) string {
	var b strings.Builder
	b.WriteString("📦 <b>Current plan</b>\n\n")
	b.WriteString(fmt.Sprintf("Starting assets: %s\n", Money(state.StartingAssets)))
	b.WriteString(fmt.Sprintf("Yearly expense: %s\n", Money(state.YearlyExpense)))
	b.WriteString(fmt.Sprintf("Stock fraction: %.0f%%\n", 100*state.StockFraction))
	b.WriteString(fmt.Sprintf("Starting age: %.0f\n", state.StartingAge))
	b.WriteString(fmt.Sprintf("Life table: %s/%s\n", html.EscapeString(state.Region), html.EscapeString(state.Group)))
	b.WriteString(fmt.Sprintf("Histories: %s\n", humanize.Comma(int64(state.SampleCount))))
	b.WriteString(fmt.Sprintf("Acceptable risk: %s\n", percent(state.AcceptableRisk)))
	if !state.LastCheckAt.IsZero() {
		b.WriteString(fmt.Sprintf("\nLast risk: %s ± %s (%s)\n",
			percent(state.LastRisk), percent(state.LastRiskStdErr), humanize.Time(state.LastCheckAt)))
	}
	if state.ConsecutiveOverRisk > 0 {
		b.WriteString(fmt.Sprintf("Checks above acceptable risk in a row: %d\n", state.ConsecutiveOverRisk))
	}
	if !state.LastSolveAt.IsZero() {
		b.WriteString(fmt.Sprintf("Last goal: %s (%s)\n", Millions(state.LastRequiredSavings), humanize.Time(state.LastSolveAt)))
	}
	b.WriteString(fmt.Sprintf("Revision: %s\n", state.Revision))
	return b.String()
}

// FormatRecentSolves lists recorded savings goals, newest first.
func FormatRecentSolves(runs []recorder.SolverRun) string {
	if len(runs) == 0 {
		return "No savings goals recorded yet."
	}
	var b strings.Builder
	b.WriteString("🗂 <b>Recent goals</b>\n\n")
	for _, r := range runs {
		if r.Error != "" {
			b.WriteString(fmt.Sprintf("  %s: failed (%s)\n", humanize.Time(r.Timestamp), html.EscapeString(r.Error)))
			continue
		}
		b.WriteString(fmt.Sprintf("  %s: %s at %s risk\n", humanize.Time(r.Timestamp), Millions(r.RequiredSavings), percent(r.TargetRisk)))
	}
	return b.String()
}

// FormatError formats a failed job for delivery.
func FormatError(job string, err error) string {
	return fmt.Sprintf("❌ <b>%s failed</b>\n%s", html.EscapeString(job), html.EscapeString(err.Error()))
}

// HelpText lists the chat commands.
const HelpText = `<b>Commands</b>
/risk - depletion risk of the current plan
/goal - savings needed at the acceptable risk
/plan - show the current plan
/set &lt;field&gt; &lt;value&gt; - change stock_fraction, acceptable_risk, yearly_expense, starting_age, starting_assets or samples
/table &lt;region&gt; &lt;group&gt; - change the life table
/sweep &lt;factor&gt; - sweep one factor over its default grid
/report - sweep every factor
/history - recent savings goals
/help - this message`
