package model

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validParams() SimulationParameters {
	return SimulationParameters{
		StartingAssets: 1e6,
		YearlyExpense:  40e3,
		StockFraction:  0.5,
		StartingAge:    65,
		Mortality:      MortalityKey{Region: "CA", Group: GroupTotal},
		SampleCount:    100,
	}
}

func TestSimulationParameters_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *SimulationParameters)
		ok     bool
	}{
		{"valid", func(p *SimulationParameters) {}, true},
		{"all stocks", func(p *SimulationParameters) { p.StockFraction = 1 }, true},
		{"all bonds", func(p *SimulationParameters) { p.StockFraction = 0 }, true},
		{"zero assets", func(p *SimulationParameters) { p.StartingAssets = 0 }, false},
		{"negative expense", func(p *SimulationParameters) { p.YearlyExpense = -1 }, false},
		{"stock fraction above one", func(p *SimulationParameters) { p.StockFraction = 1.01 }, false},
		{"stock fraction below zero", func(p *SimulationParameters) { p.StockFraction = -0.1 }, false},
		{"age at terminal", func(p *SimulationParameters) { p.StartingAge = TerminalAge }, false},
		{"negative age", func(p *SimulationParameters) { p.StartingAge = -1 }, false},
		{"no samples", func(p *SimulationParameters) { p.SampleCount = 0 }, false},
		{"nan assets", func(p *SimulationParameters) { p.StartingAssets = math.NaN() }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)
			err := p.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidParameter), "got %v", err)
		})
	}
}

func TestValidateRisk(t *testing.T) {
	assert.NoError(t, ValidateRisk(0))
	assert.NoError(t, ValidateRisk(1))
	assert.ErrorIs(t, ValidateRisk(1.5), ErrInvalidParameter)
	assert.ErrorIs(t, ValidateRisk(-0.01), ErrInvalidParameter)
	assert.ErrorIs(t, ValidateRisk(math.NaN()), ErrInvalidParameter)
}

func TestValidateSampleLimit(t *testing.T) {
	assert.NoError(t, ValidateSampleLimit(DefaultMaxSamples, DefaultMaxSamples))
	assert.ErrorIs(t, ValidateSampleLimit(DefaultMaxSamples+1, DefaultMaxSamples), ErrInvalidParameter)
	assert.NoError(t, ValidateSampleLimit(2_000_000_000, 0))
}

func TestMortalityTable_QFloorsAge(t *testing.T) {
	q := make([]float64, TerminalAge)
	for i := range q {
		q[i] = float64(i) / 1000
	}
	table, err := NewMortalityTable(q)
	require.NoError(t, err)

	assert.Equal(t, 0.065, table.Q(65))
	assert.Equal(t, 0.064, table.Q(64.999))
	assert.Equal(t, 0.065, table.Q(65.5))
	assert.Equal(t, 0.109, table.Q(109.9))
	assert.Equal(t, 1.0, table.Q(110))
	assert.Equal(t, 1.0, table.Q(250))
}

func TestNewMortalityTable_Rejects(t *testing.T) {
	_, err := NewMortalityTable(make([]float64, 50))
	assert.ErrorIs(t, err, ErrInvalidParameter)

	q := make([]float64, TerminalAge)
	q[10] = 1.2
	_, err = NewMortalityTable(q)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestNewMortalityTable_IgnoresOpenEndedRow(t *testing.T) {
	q := make([]float64, TerminalAge+1)
	q[TerminalAge] = 1
	table, err := NewMortalityTable(q)
	require.NoError(t, err)
	assert.Len(t, table.Probabilities(), TerminalAge)
}

func TestNewMarketRecord(t *testing.T) {
	_, err := NewMarketRecord(nil)
	assert.ErrorIs(t, err, ErrEmptyMarketRecord)

	_, err = NewMarketRecord([]YearRecord{{InflationRate: math.NaN()}})
	assert.ErrorIs(t, err, ErrInvalidParameter)

	m, err := NewMarketRecord([]YearRecord{
		{Year: "1990", InflationRate: 0.02, StockReturn: 0.10, BondRate: 0.04},
		{Year: "1991", InflationRate: 0.04, StockReturn: -0.02, BondRate: 0.06},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, "1991", m.At(1).Year)
	// (0.07+0.02) - 0.03 averaged over two years at 50/50
	assert.InDelta(t, 0.015, m.MeanRealReturn(0.5), 1e-12)
}

func TestNormalizeGroup(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"total", GroupTotal, true},
		{"Female", GroupFemale, true},
		{"wf", GroupWhiteFemale, true},
		{"White male", GroupWhiteMale, true},
		{"black-female", GroupBlackFemale, true},
		{"martian", "martian", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeGroup(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestHistoryTrajectory_Depleted(t *testing.T) {
	h := HistoryTrajectory{Balances: []float64{100, 50, -1}}
	assert.True(t, h.Depleted())
	h = HistoryTrajectory{Balances: []float64{100, 0}}
	assert.False(t, h.Depleted())
}
