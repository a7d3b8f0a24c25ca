package collector

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"RetireRisk/internal/model"
)

// ShillerMarket reads Robert Shiller's annual series from a local CSV with
// columns Date, P, D, CPI and RLONG.
type ShillerMarket struct {
	Path string
}

func (s *ShillerMarket) Name() string { return "shiller" }

func (s *ShillerMarket) Market() (*model.MarketRecord, error) {
	return LoadShillerCSV(s.Path)
}

// LoadShillerCSV derives one year record per row:
//
//	inflation    = (CPI[t] - CPI[t-1]) / CPI[t]
//	stock return = (P[t] - P[t-1] + D[t]) / P[t]
//	bond rate    = RLONG[t] / 100
//
// The first row has no previous year and the last row is a partial year, so
// both are dropped.
func LoadShillerCSV(path string) (*model.MarketRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open market data: %w", err)
	}
	defer f.Close()
	return ParseShiller(f)
}

// ParseShiller is LoadShillerCSV over an arbitrary reader.
func ParseShiller(r io.Reader) (*model.MarketRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToUpper(strings.TrimSpace(h))] = i
	}
	for _, name := range []string{"P", "D", "CPI", "RLONG"} {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: market data has no %s column", model.ErrInvalidParameter, name)
		}
	}

	type row struct {
		date            string
		p, d, cpi, rate float64
	}
	var rows []row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		get := func(name string) float64 {
			i := cols[name]
			if i >= len(rec) {
				return math.NaN()
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
			if err != nil {
				return math.NaN()
			}
			return v
		}
		rows = append(rows, row{
			date: strings.TrimSpace(rec[0]),
			p:    get("P"),
			d:    get("D"),
			cpi:  get("CPI"),
			rate: get("RLONG"),
		})
	}
	if len(rows) < 3 {
		return nil, model.ErrEmptyMarketRecord
	}

	years := make([]model.YearRecord, 0, len(rows)-2)
	for t := 1; t < len(rows)-1; t++ {
		cur, prev := rows[t], rows[t-1]
		years = append(years, model.YearRecord{
			Year:          cur.date,
			InflationRate: (cur.cpi - prev.cpi) / cur.cpi,
			StockReturn:   (cur.p - prev.p + cur.d) / cur.p,
			BondRate:      cur.rate / 100,
		})
	}
	return model.NewMarketRecord(years)
}
