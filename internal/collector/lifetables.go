package collector

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"RetireRisk/internal/model"
)

// MemoryLifeTables serves tables held in memory, keyed by region and group.
type MemoryLifeTables struct {
	mu     sync.RWMutex
	tables map[model.MortalityKey]*model.MortalityTable
}

// NewMemoryLifeTables creates an empty in-memory provider.
func NewMemoryLifeTables() *MemoryLifeTables {
	return &MemoryLifeTables{tables: make(map[model.MortalityKey]*model.MortalityTable)}
}

func (m *MemoryLifeTables) Name() string { return "memory" }

// Put registers a table. The key is normalised the same way lookups are.
func (m *MemoryLifeTables) Put(key model.MortalityKey, table *model.MortalityTable) {
	k, _ := normalizeKey(key)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[k] = table
}

func (m *MemoryLifeTables) LifeTable(key model.MortalityKey) (*model.MortalityTable, error) {
	k, _ := normalizeKey(key)
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[k]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownMortalityKey, key)
	}
	return t, nil
}

// CSVLifeTables reads tables from a directory of <state_name>_<group>.csv
// files, each carrying a qx column with one row per age.
type CSVLifeTables struct {
	Dir string
}

// NewCSVLifeTables creates a provider reading from dir.
func NewCSVLifeTables(dir string) *CSVLifeTables {
	return &CSVLifeTables{Dir: dir}
}

func (c *CSVLifeTables) Name() string { return "csv" }

// Path returns the file that holds the table for key.
func (c *CSVLifeTables) Path(key model.MortalityKey) (string, error) {
	k, ok := normalizeKey(key)
	if !ok {
		return "", fmt.Errorf("%w: %s", model.ErrUnknownMortalityKey, key)
	}
	state, _ := StateName(k.Region)
	return filepath.Join(c.Dir, fmt.Sprintf("%s_%s.csv", fileStem(state), groupFiles[k.Group])), nil
}

func (c *CSVLifeTables) LifeTable(key model.MortalityKey) (*model.MortalityTable, error) {
	path, err := c.Path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s has no table for group %s", model.ErrUnknownMortalityKey, strings.ToUpper(key.Region), key.Group)
	}
	if err != nil {
		return nil, fmt.Errorf("open life table: %w", err)
	}
	defer f.Close()

	q, err := readQx(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return model.NewMortalityTable(q)
}

func readQx(r io.Reader) ([]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), "qx") {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("%w: no qx column", model.ErrInvalidParameter)
	}

	var q []float64
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if col >= len(rec) || strings.TrimSpace(rec[col]) == "" {
			// Trailing notes in the source spreadsheets.
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[col]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: qx %q", model.ErrInvalidParameter, line, rec[col])
		}
		q = append(q, v)
	}
	return q, nil
}

// normalizeKey upper-cases the region and maps the group to its canonical name.
// The second result is false when either part is unknown.
func normalizeKey(key model.MortalityKey) (model.MortalityKey, bool) {
	group, groupOK := model.NormalizeGroup(key.Group)
	region := strings.ToUpper(strings.TrimSpace(key.Region))
	_, regionOK := stateNames[region]
	return model.MortalityKey{Region: region, Group: group}, groupOK && regionOK
}

// CachedLifeTables memoises successful lookups of another provider.
type CachedLifeTables struct {
	next LifeTableProvider

	mu     sync.RWMutex
	tables map[model.MortalityKey]*model.MortalityTable
}

// NewCachedLifeTables wraps next with a cache.
func NewCachedLifeTables(next LifeTableProvider) *CachedLifeTables {
	return &CachedLifeTables{next: next, tables: make(map[model.MortalityKey]*model.MortalityTable)}
}

func (c *CachedLifeTables) Name() string { return "cached-" + c.next.Name() }

func (c *CachedLifeTables) LifeTable(key model.MortalityKey) (*model.MortalityTable, error) {
	k, _ := normalizeKey(key)
	c.mu.RLock()
	t, ok := c.tables[k]
	c.mu.RUnlock()
	if ok {
		return t, nil
	}

	t, err := c.next.LifeTable(key)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.tables[k] = t
	c.mu.Unlock()
	return t, nil
}

// Len returns the number of cached tables.
func (c *CachedLifeTables) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}
