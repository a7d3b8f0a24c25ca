package recorder

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"RetireRisk/internal/logging"
	"RetireRisk/internal/model"
)

var _ Recorder = (*SQLiteRecorder)(nil)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *slog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *slog.Logger) (*SQLiteRecorder, error) {
	logger = logging.OrDefault(logger)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while runs are being written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", "path", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS simulation_runs (
			id                    TEXT PRIMARY KEY,
			timestamp             INTEGER NOT NULL,
			source                TEXT,
			starting_assets       REAL,
			yearly_expense        REAL,
			stock_fraction        REAL,
			starting_age          REAL,
			region                TEXT,
			demographic_group     TEXT,
			sample_count          INTEGER,
			depletion_probability REAL,
			standard_error        REAL,
			depleted              INTEGER,
			mean_terminal_age     REAL,
			final_assets_median   REAL,
			elapsed_ms            INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_simulation_ts ON simulation_runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS solver_runs (
			id                TEXT PRIMARY KEY,
			timestamp         INTEGER NOT NULL,
			source            TEXT,
			target_risk       REAL,
			yearly_expense    REAL,
			stock_fraction    REAL,
			starting_age      REAL,
			region            TEXT,
			demographic_group TEXT,
			sample_count      INTEGER,
			required_savings  REAL,
			risk              REAL,
			attempts          INTEGER,
			final_samples     INTEGER,
			iterations        INTEGER,
			elapsed_ms        INTEGER,
			error             TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_solver_ts ON solver_runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS sweep_points (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			sweep_id         TEXT NOT NULL,
			timestamp        INTEGER NOT NULL,
			source           TEXT,
			factor           TEXT,
			target_risk      REAL,
			position         INTEGER,
			value            REAL,
			required_savings REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sweep_id ON sweep_points(sweep_id)`,

		`CREATE TABLE IF NOT EXISTS plan_events (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			revision  TEXT,
			action    TEXT,
			field     TEXT,
			value     REAL,
			note      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_plan_ts ON plan_events(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordSimulation(run *SimulationRun) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	p, res := run.Params, run.Result
	_, err := r.db.Exec(`INSERT INTO simulation_runs
		(id, timestamp, source, starting_assets, yearly_expense, stock_fraction, starting_age,
		 region, demographic_group, sample_count,
		 depletion_probability, standard_error, depleted, mean_terminal_age, final_assets_median,
		 elapsed_ms)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		id, time.Now().Unix(), run.Source,
		p.StartingAssets, p.YearlyExpense, p.StockFraction, p.StartingAge,
		p.Mortality.Region, p.Mortality.Group, p.SampleCount,
		res.DepletionProbability, res.StandardError, res.Depleted, res.MeanTerminalAge, res.FinalAssetsMedian,
		run.Elapsed.Milliseconds(),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *SQLiteRecorder) RecordSolve(run *SolverRun) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	p := run.Params
	_, err := r.db.Exec(`INSERT INTO solver_runs
		(id, timestamp, source, target_risk, yearly_expense, stock_fraction, starting_age,
		 region, demographic_group, sample_count,
		 required_savings, risk, attempts, final_samples, iterations, elapsed_ms, error)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		id, time.Now().Unix(), run.Source, run.TargetRisk,
		p.YearlyExpense, p.StockFraction, p.StartingAge,
		p.Mortality.Region, p.Mortality.Group, p.SampleCount,
		run.RequiredSavings, run.Risk, run.Attempts, run.SampleCount, run.Iterations,
		run.Elapsed.Milliseconds(), run.Error,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *SQLiteRecorder) RecordSweep(run *SweepRun) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	id := uuid.NewString()
	now := time.Now().Unix()
	for i, pt := range run.Points {
		if _, err := tx.Exec(`INSERT INTO sweep_points
			(sweep_id, timestamp, source, factor, target_risk, position, value, required_savings)
			VALUES (?,?,?,?,?,?,?,?)`,
			id, now, run.Source, run.Factor, run.TargetRisk, i, pt.Value, pt.RequiredSavings,
		); err != nil {
			return "", err
		}
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

func (r *SQLiteRecorder) RecordPlanEvent(evt *PlanEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO plan_events
		(timestamp, revision, action, field, value, note)
		VALUES (?,?,?,?,?,?)`,
		time.Now().Unix(), evt.Revision, evt.Action, evt.Field, evt.Value, evt.Note,
	)
	return err
}

// RecentSolves returns the latest solves, newest first.
func (r *SQLiteRecorder) RecentSolves(limit int) ([]SolverRun, error) {
	rows, err := r.db.Query(`SELECT id, timestamp, source, target_risk,
		yearly_expense, stock_fraction, starting_age, region, demographic_group, sample_count,
		required_savings, risk, attempts, final_samples, iterations, elapsed_ms, error
		FROM solver_runs ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SolverRun
	for rows.Next() {
		var (
			run    SolverRun
			ts, ms int64
			region string
			group  string
			p      model.SimulationParameters
		)
		if err := rows.Scan(&run.ID, &ts, &run.Source, &run.TargetRisk,
			&p.YearlyExpense, &p.StockFraction, &p.StartingAge, &region, &group, &p.SampleCount,
			&run.RequiredSavings, &run.Risk, &run.Attempts, &run.SampleCount, &run.Iterations, &ms, &run.Error,
		); err != nil {
			return nil, err
		}
		p.Mortality = model.MortalityKey{Region: region, Group: group}
		run.Params = p
		run.Timestamp = time.Unix(ts, 0)
		run.Elapsed = time.Duration(ms) * time.Millisecond
		out = append(out, run)
	}
	return out, rows.Err()
}

// SweepPoints returns the points of a recorded sweep in order.
func (r *SQLiteRecorder) SweepPoints(sweepID string) ([]model.SweepPoint, error) {
	rows, err := r.db.Query(`SELECT value, required_savings FROM sweep_points
		WHERE sweep_id = ? ORDER BY position`, sweepID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SweepPoint
	for rows.Next() {
		var pt model.SweepPoint
		if err := rows.Scan(&pt.Value, &pt.RequiredSavings); err != nil {
			return nil, err
		}
		out = append(out, pt)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}
