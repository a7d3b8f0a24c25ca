package model

import (
	"fmt"
	"math"
)

// YearRecord is one historical year of market data, as fractions (0.03 == 3%).
type YearRecord struct {
	Year          string  `json:"year,omitempty"`
	InflationRate float64 `json:"inflation_rate"`
	StockReturn   float64 `json:"stock_return"`
	BondRate      float64 `json:"bond_rate"`
}

// MarketRecord is an ordered, non-empty, read-only sequence of historical years.
type MarketRecord struct {
	years []YearRecord
}

// NewMarketRecord validates and copies the given years.
func NewMarketRecord(years []YearRecord) (*MarketRecord, error) {
	if len(years) == 0 {
		return nil, ErrEmptyMarketRecord
	}
	out := make([]YearRecord, len(years))
	for i, y := range years {
		for _, v := range []float64{y.InflationRate, y.StockReturn, y.BondRate} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: market year %d (%s) has missing value", ErrInvalidParameter, i, y.Year)
			}
		}
		out[i] = y
	}
	return &MarketRecord{years: out}, nil
}

// Len returns the number of years.
func (m *MarketRecord) Len() int { return len(m.years) }

// At returns year i, 0 <= i < Len().
func (m *MarketRecord) At(i int) YearRecord { return m.years[i] }

// Years returns a copy of all records.
func (m *MarketRecord) Years() []YearRecord {
	out := make([]YearRecord, len(m.years))
	copy(out, m.years)
	return out
}

// MeanRealReturn averages the blended return minus inflation over all years.
func (m *MarketRecord) MeanRealReturn(stockFraction float64) float64 {
	sum := 0.0
	for _, y := range m.years {
		sum += stockFraction*y.StockReturn + (1-stockFraction)*y.BondRate - y.InflationRate
	}
	return sum / float64(len(m.years))
}
