package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"RetireRisk/internal/api"
	"RetireRisk/internal/notifier"
	"RetireRisk/internal/plan"
	"RetireRisk/internal/scheduler"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, scheduled checks and Telegram bot",
		Long: `Starts the JSON API, registers the cron jobs that re-check the stored plan,
and listens for Telegram commands when a bot token is configured.

Set RUN_ON_START=true to run a risk check immediately.`,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "HTTP listen address (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		a.cfg.HTTP.Addr = addr
	}
	logger := a.logger
	logger.Info("RetireRisk starting", "version", version, "data_source", a.cfg.Data.Source)

	pm, err := plan.NewManager(a.cfg.Plan.StateFile, a.cfg.PlanDefaults(), logger)
	if err != nil {
		return err
	}
	pm.SetMaxSamples(a.cfg.Simulation.MaxSamples)

	rec := openRecorder(a.cfg, logger)
	defer rec.Close()

	tn := notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.Proxy, logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sched := scheduler.NewScheduler(ctx, scheduler.Components{
		Collector:   a.collector,
		Plan:        pm,
		Simulator:   a.sim,
		Solver:      a.solver,
		Sensitivity: a.runner,
		Notifier:    tn,
		Recorder:    rec,
		Metrics:     a.metrics,
		Logger:      logger,
	})
	if err := sched.RegisterAll(a.cfg.Schedule.RiskCron, a.cfg.Schedule.GoalCron, a.cfg.Schedule.SweepCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn.Enabled() {
		go tn.StartPolling(ctx, sched.HandleCommand)
		logger.Info("telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		logger.Info("RUN_ON_START enabled, executing risk check now")
		go sched.RunRiskNow()
	}

	if a.cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	handlers := api.NewHandlers(a.collector, a.sim, a.solver, a.runner, rec, logger)
	handlers.MaxSamples = a.cfg.Simulation.MaxSamples
	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           api.NewRouter(handlers, a.metrics.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		logger.Info("shutdown signal received, stopping")
	case err := <-serveErr:
		logger.Error("http server failed", "err", err)
		cancel()
		return err
	}

	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "err", err)
	}
	logger.Info("RetireRisk stopped")
	return nil
}
