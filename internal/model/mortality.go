package model

import (
	"fmt"
	"math"
)

// MortalityTable holds the annual probability of death for ages 0..109.
// It is read-only after construction and safe for concurrent use.
type MortalityTable struct {
	q [TerminalAge]float64
}

// NewMortalityTable copies the first TerminalAge probabilities from q.
// Extra entries (for example an open-ended "110+" row) are ignored.
func NewMortalityTable(q []float64) (*MortalityTable, error) {
	if len(q) < TerminalAge {
		return nil, fmt.Errorf("%w: life table has %d ages, need %d", ErrInvalidParameter, len(q), TerminalAge)
	}
	t := &MortalityTable{}
	for age := 0; age < TerminalAge; age++ {
		v := q[age]
		if math.IsNaN(v) || v < 0 || v > 1 {
			return nil, fmt.Errorf("%w: death probability %v at age %d", ErrInvalidParameter, v, age)
		}
		t.q[age] = v
	}
	return t, nil
}

// Q returns the probability of dying within the year at the given age.
// Fractional ages are floored; ages at or past TerminalAge are certain death.
func (t *MortalityTable) Q(age float64) float64 {
	if age >= TerminalAge {
		return 1
	}
	idx := int(math.Floor(age))
	if idx < 0 {
		idx = 0
	}
	return t.q[idx]
}

// Probabilities returns a copy of the per-age table.
func (t *MortalityTable) Probabilities() []float64 {
	out := make([]float64, TerminalAge)
	copy(out, t.q[:])
	return out
}
