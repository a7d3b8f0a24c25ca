// Package plan keeps the user's retirement plan on disk together with the
// results of the latest risk check and savings goal.
package plan

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"RetireRisk/internal/collector"
	"RetireRisk/internal/logging"
	"RetireRisk/internal/model"
	"RetireRisk/internal/sensitivity"
)

const (
	// FieldStartingAssets and FieldSamples can be set besides the sensitivity factors.
	FieldStartingAssets = "starting_assets"
	FieldSamples        = "samples"

	recentRiskWindow = 12
)

// Manager guards the plan state and persists every change.
type Manager struct {
	mu         sync.Mutex
	state      *model.PlanState
	filePath   string
	maxSamples int
	logger     *slog.Logger
}

// NewManager creates a Manager, loading state from disk or starting from defaults.
func NewManager(filePath string, defaults model.PlanState, logger *slog.Logger) (*Manager, error) {
	state, err := LoadState(filePath)
	if err != nil {
		return nil, err
	}

	// Initialize if fresh state
	if state.YearlyExpense == 0 {
		recent := state.RecentRisks
		*state = defaults
		state.RecentRisks = recent
		state.Revision = uuid.NewString()
	}

	m := &Manager{
		state:      state,
		filePath:   filePath,
		maxSamples: model.DefaultMaxSamples,
		logger:     logging.OrDefault(logger),
	}
	if err := m.save(); err != nil {
		return nil, err
	}
	return m, nil
}

// SetMaxSamples bounds the sample count Set accepts. Zero or less removes the bound.
func (m *Manager) SetMaxSamples(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxSamples = n
}

// State returns a copy of the current plan state.
func (m *Manager) State() model.PlanState {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := *m.state
	s.RecentRisks = append([]float64(nil), m.state.RecentRisks...)
	return s
}

// Params returns the simulation parameters of the current plan.
func (m *Manager) Params() model.SimulationParameters {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Params()
}

// RecordRisk stores the result of a risk check and reports whether it is
// above the acceptable risk.
func (m *Manager) RecordRisk(p, stderr float64) (overRisk bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.LastRisk = p
	m.state.LastRiskStdErr = stderr
	m.state.LastCheckAt = time.Now()

	m.state.RecentRisks = append(m.state.RecentRisks, p)
	if len(m.state.RecentRisks) > recentRiskWindow {
		m.state.RecentRisks = m.state.RecentRisks[len(m.state.RecentRisks)-recentRiskWindow:]
	}

	overRisk = m.state.OverRisk()
	if overRisk {
		m.state.ConsecutiveOverRisk++
	} else {
		m.state.ConsecutiveOverRisk = 0
	}

	if err := m.save(); err != nil {
		m.logger.Error("failed to save plan state", "err", err)
	}
	return overRisk
}

// RecordGoal stores the latest required savings.
func (m *Manager) RecordGoal(savings float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.LastRequiredSavings = savings
	m.state.LastSolveAt = time.Now()

	if err := m.save(); err != nil {
		m.logger.Error("failed to save plan state after goal", "err", err)
	}
}

// Set changes one numeric plan field. Field names are the sensitivity
// factors plus starting_assets and samples. The change is rejected when the
// resulting plan is invalid.
func (m *Manager) Set(field string, value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := *m.state
	switch strings.ToLower(strings.TrimSpace(field)) {
	case FieldStartingAssets, "assets":
		next.StartingAssets = value
	case FieldSamples, "sample_count":
		if m.maxSamples > 0 && value > float64(m.maxSamples) {
			return fmt.Errorf("%w: samples %v above the limit of %d", model.ErrInvalidParameter, value, m.maxSamples)
		}
		if value != math.Trunc(value) || value > math.MaxInt32 {
			return fmt.Errorf("%w: samples must be a whole number, got %v", model.ErrInvalidParameter, value)
		}
		next.SampleCount = int(value)
	default:
		f, err := sensitivity.Lookup(field)
		if err != nil {
			return err
		}
		pt := sensitivity.Point{Params: next.Params(), Risk: next.AcceptableRisk}
		f.Set(&pt, value)
		next.StockFraction = pt.Params.StockFraction
		next.YearlyExpense = pt.Params.YearlyExpense
		next.StartingAge = pt.Params.StartingAge
		next.AcceptableRisk = pt.Risk
	}

	if err := validate(next); err != nil {
		return err
	}
	if err := model.ValidateSampleLimit(next.SampleCount, m.maxSamples); err != nil {
		return err
	}
	return m.commit(next, "field", field, "value", value)
}

// SetMortality changes the life table the plan uses.
func (m *Manager) SetMortality(region, group string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := collector.StateName(region); !ok {
		return fmt.Errorf("%w: region %q", model.ErrUnknownMortalityKey, region)
	}
	g, ok := model.NormalizeGroup(group)
	if !ok {
		return fmt.Errorf("%w: group %q", model.ErrUnknownMortalityKey, group)
	}

	next := *m.state
	next.Region = strings.ToUpper(strings.TrimSpace(region))
	next.Group = g
	return m.commit(next, "region", next.Region, "group", next.Group)
}

func (m *Manager) commit(next model.PlanState, attrs ...any) error {
	next.Revision = uuid.NewString()
	// Results computed for the old plan no longer apply.
	next.ConsecutiveOverRisk = 0
	next.RecentRisks = nil
	prev := m.state
	m.state = &next
	if err := m.save(); err != nil {
		m.state = prev
		return fmt.Errorf("save plan: %w", err)
	}
	m.logger.Info("plan updated", append(attrs, "revision", next.Revision)...)
	return nil
}

func validate(s model.PlanState) error {
	if err := s.Params().Validate(); err != nil {
		return err
	}
	return model.ValidateRisk(s.AcceptableRisk)
}

func (m *Manager) save() error {
	return SaveState(m.filePath, m.state)
}
