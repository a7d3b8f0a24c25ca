// Package scheduler runs the periodic risk checks, savings goals and
// sensitivity reports, and answers chat commands about the stored plan.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"RetireRisk/internal/collector"
	"RetireRisk/internal/logging"
	"RetireRisk/internal/notifier"
	"RetireRisk/internal/observability"
	"RetireRisk/internal/plan"
	"RetireRisk/internal/recorder"
	"RetireRisk/internal/sensitivity"
	"RetireRisk/internal/simulator"
	"RetireRisk/internal/solver"
)

// Job names used in logs and metrics.
const (
	JobRisk  = "risk"
	JobGoal  = "goal"
	JobSweep = "sweep"
)

// Sender delivers a report. *notifier.TelegramNotifier implements it.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Components are the collaborators a Scheduler drives.
type Components struct {
	Collector   *collector.Collector
	Plan        *plan.Manager
	Simulator   *simulator.Simulator
	Solver      *solver.Solver
	Sensitivity *sensitivity.Runner
	Notifier    Sender
	Recorder    recorder.Recorder
	Metrics     *observability.Metrics
	Logger      *slog.Logger
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Components
	Cron *cron.Cron
	Ctx  context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, c Components) *Scheduler {
	c.Logger = logging.OrDefault(c.Logger)
	if c.Recorder == nil {
		c.Recorder = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Components: c,
		Cron:       cron.New(cron.WithSeconds()),
		Ctx:        ctx,
	}
}

// RegisterAll registers the risk, goal and sweep tasks. An empty spec skips that task.
func (s *Scheduler) RegisterAll(riskCron, goalCron, sweepCron string) error {
	tasks := []struct {
		name string
		spec string
		fn   func()
	}{
		{JobRisk, riskCron, func() { s.riskTask(s.Ctx) }},
		{JobGoal, goalCron, func() { s.goalTask(s.Ctx) }},
		{JobSweep, sweepCron, func() { s.sweepTask(s.Ctx) }},
	}
	for _, t := range tasks {
		if t.spec == "" {
			continue
		}
		if _, err := s.Cron.AddFunc(t.spec, t.fn); err != nil {
			return fmt.Errorf("register %s task: %w", t.name, err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info("scheduler started", "entries", len(s.Cron.Entries()))
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Logger.Info("scheduler stopped")
}

// RunRiskNow executes the risk check immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunRiskNow() {
	s.riskTask(s.Ctx)
}

func (s *Scheduler) riskTask(ctx context.Context) {
	s.Logger.Info("running risk check")
	err := s.checkRisk(ctx)
	s.finish(ctx, JobRisk, err)
}

func (s *Scheduler) checkRisk(ctx context.Context) error {
	state := s.Plan.State()
	params := state.Params()
	data, err := s.Collector.Collect(params.Mortality)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := s.Simulator.Simulate(ctx, params, data.Tables, data.Market)
	if err != nil {
		return err
	}
	over := s.Plan.RecordRisk(res.DepletionProbability, res.StandardError)
	s.trySend(ctx, notifier.FormatRiskReport(params, res, state.AcceptableRisk))

	if _, err := s.Recorder.RecordSimulation(&recorder.SimulationRun{
		Source:  recorder.SourceSchedule,
		Params:  params,
		Result:  res,
		Elapsed: time.Since(start),
	}); err != nil {
		s.Logger.Error("record simulation", "err", err)
	}
	if over {
		s.recordPlanEvent("RISK_ALERT", "", res.DepletionProbability,
			fmt.Sprintf("risk %.4f above %.4f", res.DepletionProbability, state.AcceptableRisk))
	}
	return nil
}

func (s *Scheduler) goalTask(ctx context.Context) {
	s.Logger.Info("running goal solve")
	err := s.solveGoal(ctx)
	s.finish(ctx, JobGoal, err)
}

func (s *Scheduler) solveGoal(ctx context.Context) error {
	state := s.Plan.State()
	params := state.Params()
	data, err := s.Collector.Collect(params.Mortality)
	if err != nil {
		return err
	}

	start := time.Now()
	sol, err := s.Solver.RequiredSavings(ctx, state.AcceptableRisk, params, data.Tables, data.Market)
	run := &recorder.SolverRun{
		Source:     recorder.SourceSchedule,
		TargetRisk: state.AcceptableRisk,
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
	if _, rerr := s.Recorder.RecordSolve(run); rerr != nil {
		s.Logger.Error("record solve", "err", rerr)
	}
	if err != nil {
		return err
	}

	s.Plan.RecordGoal(sol.RequiredSavings)
	s.trySend(ctx, notifier.FormatGoalReport(params, state.AcceptableRisk, sol))
	return nil
}

func (s *Scheduler) sweepTask(ctx context.Context) {
	s.Logger.Info("running sensitivity report")
	err := s.sweepAll(ctx)
	s.finish(ctx, JobSweep, err)
}

func (s *Scheduler) sweepAll(ctx context.Context) error {
	state := s.Plan.State()
	params := state.Params()
	data, err := s.Collector.Collect(params.Mortality)
	if err != nil {
		return err
	}

	report, err := s.Sensitivity.SweepAll(ctx, params, state.AcceptableRisk, data.Tables, data.Market)
	if err != nil {
		return err
	}
	for _, sw := range report.Sweeps {
		if _, err := s.Recorder.RecordSweep(&recorder.SweepRun{
			Source:     recorder.SourceSchedule,
			Factor:     sw.Factor,
			TargetRisk: state.AcceptableRisk,
			Params:     params,
			Points:     sw.Points,
		}); err != nil {
			s.Logger.Error("record sweep", "factor", sw.Factor, "err", err)
		}
	}
	s.trySend(ctx, notifier.FormatSweepReport(report))
	return nil
}

// HandleCommand processes a user command and returns a reply. Commands that
// run a job deliver their own report and return an empty reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.HelpText
	}
	switch strings.ToLower(fields[0]) {
	case "/risk":
		s.riskTask(ctx)
		return ""
	case "/goal":
		s.goalTask(ctx)
		return ""
	case "/report":
		s.sweepTask(ctx)
		return ""
	case "/plan":
		state := s.Plan.State()
		return notifier.FormatPlan(&state)
	case "/set":
		if len(fields) != 3 {
			return "Usage: /set &lt;field&gt; &lt;value&gt;"
		}
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return fmt.Sprintf("Not a number: %s", fields[2])
		}
		if err := s.Plan.Set(fields[1], v); err != nil {
			return "❌ " + err.Error()
		}
		s.recordPlanEvent("SET", fields[1], v, "")
		state := s.Plan.State()
		return notifier.FormatPlan(&state)
	case "/table":
		if len(fields) < 3 {
			return "Usage: /table &lt;region&gt; &lt;group&gt;"
		}
		group := strings.Join(fields[2:], " ")
		if err := s.Plan.SetMortality(fields[1], group); err != nil {
			return "❌ " + err.Error()
		}
		s.recordPlanEvent("MORTALITY", fields[1], 0, group)
		state := s.Plan.State()
		return notifier.FormatPlan(&state)
	case "/sweep":
		if len(fields) != 2 {
			return "Usage: /sweep &lt;factor&gt;"
		}
		return s.sweepOne(ctx, fields[1])
	case "/history":
		runs, err := s.Recorder.RecentSolves(5)
		if err != nil {
			return "❌ " + err.Error()
		}
		return notifier.FormatRecentSolves(runs)
	default:
		return notifier.HelpText
	}
}

func (s *Scheduler) sweepOne(ctx context.Context, name string) string {
	f, err := sensitivity.Lookup(name)
	if err != nil {
		return "❌ " + err.Error()
	}
	factor, grid := f.Name, f.Grid()
	state := s.Plan.State()
	params := state.Params()
	data, err := s.Collector.Collect(params.Mortality)
	if err != nil {
		return "❌ " + err.Error()
	}
	points, err := s.Sensitivity.Sweep(ctx, factor, grid, params, state.AcceptableRisk, data.Tables, data.Market)
	s.Metrics.RecordJob(JobSweep, err)
	if err != nil {
		return "❌ " + err.Error()
	}
	if _, err := s.Recorder.RecordSweep(&recorder.SweepRun{
		Source:     recorder.SourceCommand,
		Factor:     factor,
		TargetRisk: state.AcceptableRisk,
		Params:     params,
		Points:     points,
	}); err != nil {
		s.Logger.Error("record sweep", "factor", factor, "err", err)
	}
	return notifier.FormatSweep(factor, points)
}

func (s *Scheduler) finish(ctx context.Context, job string, err error) {
	s.Metrics.RecordJob(job, err)
	if err != nil {
		s.Logger.Error("job failed", "job", job, "err", err)
		s.trySend(ctx, notifier.FormatError(job, err))
	}
}

func (s *Scheduler) recordPlanEvent(action, field string, value float64, note string) {
	if err := s.Recorder.RecordPlanEvent(&recorder.PlanEvent{
		Revision: s.Plan.State().Revision,
		Action:   action,
		Field:    field,
		Value:    value,
		Note:     note,
	}); err != nil {
		s.Logger.Error("record plan event", "err", err)
	}
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(ctx, text, 3); err != nil {
		s.Logger.Error("send notification", "err", err)
	}
}
