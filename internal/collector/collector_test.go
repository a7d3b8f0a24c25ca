package collector

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RetireRisk/internal/model"
)

func writeLifeTable(t *testing.T, dir, name string, rows int, q func(age int) float64) {
	t.Helper()
	var b strings.Builder
	b.WriteString("age,qx,lx,dx\n")
	for age := 0; age < rows; age++ {
		fmt.Fprintf(&b, "%d-%d,%g,100000,10\n", age, age+1, q(age))
	}
	b.WriteString("110 and over,1,5,5\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(b.String()), 0o644))
}

func TestStatesTable(t *testing.T) {
	assert.Equal(t, 51, Regions())

	name, ok := StateName("dc")
	require.True(t, ok)
	assert.Equal(t, "district_of_columbia", fileStem(name))

	_, ok = StateName("XX")
	assert.False(t, ok)
}

func TestCSVLifeTables_Path(t *testing.T) {
	c := NewCSVLifeTables("data")

	p, err := c.Path(model.MortalityKey{Region: "pa", Group: "white-female"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("data", "pennsylvania_wf.csv"), p)

	p, err = c.Path(model.MortalityKey{Region: "NY", Group: "Total"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("data", "new_york_total.csv"), p)

	_, err = c.Path(model.MortalityKey{Region: "ZZ", Group: "total"})
	assert.ErrorIs(t, err, model.ErrUnknownMortalityKey)

	_, err = c.Path(model.MortalityKey{Region: "CA", Group: "martian"})
	assert.ErrorIs(t, err, model.ErrUnknownMortalityKey)
}

func TestCSVLifeTables_LifeTable(t *testing.T) {
	dir := t.TempDir()
	writeLifeTable(t, dir, "california_total.csv", model.TerminalAge, func(age int) float64 {
		return float64(age) / 200
	})

	c := NewCSVLifeTables(dir)
	table, err := c.LifeTable(model.MortalityKey{Region: "CA", Group: "total"})
	require.NoError(t, err)
	assert.InDelta(t, 0.325, table.Q(65), 1e-12)
	assert.InDelta(t, 109.0/200, table.Q(109.5), 1e-12)
	assert.Equal(t, 1.0, table.Q(110))

	_, err = c.LifeTable(model.MortalityKey{Region: "CA", Group: "black"})
	assert.ErrorIs(t, err, model.ErrUnknownMortalityKey)
}

func TestCSVLifeTables_ShortTable(t *testing.T) {
	dir := t.TempDir()
	writeLifeTable(t, dir, "texas_male.csv", 50, func(int) float64 { return 0.01 })

	_, err := NewCSVLifeTables(dir).LifeTable(model.MortalityKey{Region: "TX", Group: "male"})
	assert.ErrorIs(t, err, model.ErrInvalidParameter)
}

func TestCSVLifeTables_MissingQxColumn(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ohio_total.csv"), []byte("age,lx\n0,100000\n"), 0o644))

	_, err := NewCSVLifeTables(dir).LifeTable(model.MortalityKey{Region: "OH", Group: "total"})
	assert.ErrorIs(t, err, model.ErrInvalidParameter)
}

type countingProvider struct {
	LifeTableProvider
	calls int
}

func (c *countingProvider) LifeTable(key model.MortalityKey) (*model.MortalityTable, error) {
	c.calls++
	return c.LifeTableProvider.LifeTable(key)
}

func TestCachedLifeTables(t *testing.T) {
	inner := &countingProvider{LifeTableProvider: NewMockLifeTables()}
	cache := NewCachedLifeTables(inner)

	for i := 0; i < 3; i++ {
		_, err := cache.LifeTable(model.MortalityKey{Region: "ca", Group: "wm"})
		require.NoError(t, err)
	}
	_, err := cache.LifeTable(model.MortalityKey{Region: "CA", Group: "white-male"})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, cache.Len())

	_, err = cache.LifeTable(model.MortalityKey{Region: "QQ", Group: "total"})
	assert.ErrorIs(t, err, model.ErrUnknownMortalityKey)
	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, "cached-mock", cache.Name())
}

func TestMemoryLifeTables(t *testing.T) {
	m := NewMemoryLifeTables()
	table := GompertzTable(0, 0.0001, 0.09)
	m.Put(model.MortalityKey{Region: "wa", Group: "Female"}, table)

	got, err := m.LifeTable(model.MortalityKey{Region: "WA", Group: "female"})
	require.NoError(t, err)
	assert.Same(t, table, got)

	_, err = m.LifeTable(model.MortalityKey{Region: "WA", Group: "male"})
	assert.ErrorIs(t, err, model.ErrUnknownMortalityKey)
}

func TestGompertzTable(t *testing.T) {
	table := GompertzTable(0.0002, 0.00003, 0.095)
	assert.Less(t, table.Q(30), table.Q(65))
	assert.Less(t, table.Q(65), table.Q(90))
	assert.LessOrEqual(t, table.Q(109), 1.0)
}

const shillerFixture = `Date,P,D,E,CPI,RLONG
1871,4.44,0.26,0.4,12.46,5.32
1872,4.86,0.30,0.4,12.65,5.36
1873,5.11,0.33,0.5,12.65,5.58
1874,4.66,0.33,0.4,11.86,5.47
`

func TestParseShiller(t *testing.T) {
	rec, err := ParseShiller(strings.NewReader(shillerFixture))
	require.NoError(t, err)
	require.Equal(t, 2, rec.Len())

	y := rec.At(0)
	assert.Equal(t, "1872", y.Year)
	assert.InDelta(t, (12.65-12.46)/12.65, y.InflationRate, 1e-12)
	assert.InDelta(t, (4.86-4.44+0.30)/4.86, y.StockReturn, 1e-12)
	assert.InDelta(t, 0.0536, y.BondRate, 1e-12)

	y = rec.At(1)
	assert.Equal(t, "1873", y.Year)
	assert.InDelta(t, 0.0, y.InflationRate, 1e-12)
}

func TestParseShiller_Errors(t *testing.T) {
	_, err := ParseShiller(strings.NewReader("Date,P,D,CPI\n1871,1,1,1\n"))
	assert.ErrorIs(t, err, model.ErrInvalidParameter)

	_, err = ParseShiller(strings.NewReader("Date,P,D,CPI,RLONG\n1871,1,1,1,1\n1872,1,1,1,1\n"))
	assert.ErrorIs(t, err, model.ErrEmptyMarketRecord)

	_, err = ParseShiller(strings.NewReader("Date,P,D,CPI,RLONG\n1871,1,1,1,1\n1872,x,1,1,1\n1873,1,1,1,1\n"))
	assert.ErrorIs(t, err, model.ErrInvalidParameter)
}

func TestLoadShillerCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shiller.csv")
	require.NoError(t, os.WriteFile(path, []byte(shillerFixture), 0o644))

	rec, err := (&ShillerMarket{Path: path}).Market()
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Len())

	_, err = LoadShillerCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestCollector_Collect(t *testing.T) {
	c, err := New(SourceMock, "", "", nil)
	require.NoError(t, err)

	data, err := c.Collect(model.MortalityKey{Region: "CA", Group: "total"})
	require.NoError(t, err)
	assert.Equal(t, len(mockYears), data.Market.Len())
	assert.Greater(t, data.Market.MeanRealReturn(0.5), 0.0)

	_, err = c.Collect(model.MortalityKey{Region: "CA", Group: "nobody"})
	assert.ErrorIs(t, err, model.ErrUnknownMortalityKey)

	_, err = New("ftp", "", "", nil)
	assert.ErrorIs(t, err, model.ErrInvalidParameter)
}

func TestCollector_CSVSource(t *testing.T) {
	dir := t.TempDir()
	writeLifeTable(t, dir, "oregon_total.csv", model.TerminalAge, func(int) float64 { return 0.02 })
	csvPath := filepath.Join(dir, "shiller.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(shillerFixture), 0o644))

	c, err := New(SourceCSV, dir, csvPath, nil)
	require.NoError(t, err)
	data, err := c.Collect(model.MortalityKey{Region: "OR", Group: "total"})
	require.NoError(t, err)
	assert.Equal(t, 2, data.Market.Len())
}
