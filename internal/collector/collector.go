package collector

import (
	"fmt"
	"log/slog"
	"math"

	"RetireRisk/internal/logging"
	"RetireRisk/internal/model"
)

// Data sources understood by New.
const (
	SourceCSV  = "csv"
	SourceMock = "mock"
)

// MockLifeTables returns a Gompertz-Makeham table for every known key, for
// development and testing without the CDC files.
type MockLifeTables struct {
	A, B, C float64 // q(age) = A + B*exp(C*age), capped at 1
}

// NewMockLifeTables returns a table shaped roughly like a US total population.
func NewMockLifeTables() *MockLifeTables {
	return &MockLifeTables{A: 0.0002, B: 0.00003, C: 0.095}
}

func (m *MockLifeTables) Name() string { return "mock" }

func (m *MockLifeTables) LifeTable(key model.MortalityKey) (*model.MortalityTable, error) {
	if _, ok := normalizeKey(key); !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownMortalityKey, key)
	}
	return GompertzTable(m.A, m.B, m.C), nil
}

// GompertzTable builds q(age) = a + b*exp(c*age), capped at 1.
func GompertzTable(a, b, c float64) *model.MortalityTable {
	q := make([]float64, model.TerminalAge)
	for age := range q {
		q[age] = math.Min(1, a+b*math.Exp(c*float64(age)))
	}
	t, _ := model.NewMortalityTable(q)
	return t
}

// MockMarket serves a fixed set of synthetic years, or Years when set.
type MockMarket struct {
	Years []model.YearRecord
}

func (m *MockMarket) Name() string { return "mock" }

func (m *MockMarket) Market() (*model.MarketRecord, error) {
	if m.Years != nil {
		return model.NewMarketRecord(m.Years)
	}
	return model.NewMarketRecord(mockYears)
}

var mockYears = []model.YearRecord{
	{Year: "Y01", InflationRate: 0.021, StockReturn: 0.154, BondRate: 0.041},
	{Year: "Y02", InflationRate: 0.034, StockReturn: -0.082, BondRate: 0.052},
	{Year: "Y03", InflationRate: 0.018, StockReturn: 0.231, BondRate: 0.037},
	{Year: "Y04", InflationRate: 0.062, StockReturn: -0.143, BondRate: 0.071},
	{Year: "Y05", InflationRate: 0.027, StockReturn: 0.112, BondRate: 0.046},
	{Year: "Y06", InflationRate: 0.011, StockReturn: 0.064, BondRate: 0.029},
	{Year: "Y07", InflationRate: 0.039, StockReturn: 0.187, BondRate: 0.058},
	{Year: "Y08", InflationRate: -0.004, StockReturn: -0.262, BondRate: 0.033},
	{Year: "Y09", InflationRate: 0.025, StockReturn: 0.093, BondRate: 0.044},
	{Year: "Y10", InflationRate: 0.031, StockReturn: 0.042, BondRate: 0.049},
	{Year: "Y11", InflationRate: 0.087, StockReturn: 0.018, BondRate: 0.082},
	{Year: "Y12", InflationRate: 0.023, StockReturn: 0.276, BondRate: 0.040},
	{Year: "Y13", InflationRate: 0.015, StockReturn: 0.128, BondRate: 0.031},
	{Year: "Y14", InflationRate: 0.029, StockReturn: -0.037, BondRate: 0.047},
	{Year: "Y15", InflationRate: 0.019, StockReturn: 0.165, BondRate: 0.036},
	{Year: "Y16", InflationRate: 0.044, StockReturn: 0.071, BondRate: 0.061},
	{Year: "Y17", InflationRate: 0.026, StockReturn: 0.209, BondRate: 0.043},
	{Year: "Y18", InflationRate: 0.033, StockReturn: -0.118, BondRate: 0.055},
	{Year: "Y19", InflationRate: 0.017, StockReturn: 0.136, BondRate: 0.034},
	{Year: "Y20", InflationRate: 0.022, StockReturn: 0.081, BondRate: 0.039},
}

// Data is everything a simulation reads besides its parameters.
type Data struct {
	Tables LifeTableProvider
	Market *model.MarketRecord
}

// Collector loads life tables and market history from the configured providers.
type Collector struct {
	Tables  LifeTableProvider
	Markets MarketProvider
	logger  *slog.Logger
}

// NewCollector creates a new Collector.
func NewCollector(tables LifeTableProvider, markets MarketProvider, logger *slog.Logger) *Collector {
	return &Collector{Tables: tables, Markets: markets, logger: logging.OrDefault(logger)}
}

// New builds a Collector for a data source name. CSV life tables are cached
// after the first read.
func New(source, lifeTableDir, marketCSV string, logger *slog.Logger) (*Collector, error) {
	switch source {
	case SourceCSV, "":
		return NewCollector(
			NewCachedLifeTables(NewCSVLifeTables(lifeTableDir)),
			&ShillerMarket{Path: marketCSV},
			logger,
		), nil
	case SourceMock:
		return NewCollector(NewMockLifeTables(), &MockMarket{}, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown data source %q", model.ErrInvalidParameter, source)
	}
}

// Collect loads the market record and checks that the table for key exists,
// so configuration mistakes surface before the first simulation.
func (c *Collector) Collect(key model.MortalityKey) (*Data, error) {
	market, err := c.Markets.Market()
	if err != nil {
		return nil, fmt.Errorf("load market from %s: %w", c.Markets.Name(), err)
	}
	if _, err := c.Tables.LifeTable(key); err != nil {
		return nil, fmt.Errorf("load life table from %s: %w", c.Tables.Name(), err)
	}

	years := market.Years()
	c.logger.Info("data loaded",
		"tables", c.Tables.Name(),
		"market", c.Markets.Name(),
		"years", market.Len(),
		"first", years[0].Year,
		"last", years[len(years)-1].Year,
		"mean_real_return_60_40", market.MeanRealReturn(0.6))
	return &Data{Tables: c.Tables, Market: market}, nil
}
