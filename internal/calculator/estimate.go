package calculator

import (
	"errors"
	"math"
	"sort"
)

// BernoulliEstimate returns the sample proportion of hits over n trials and its
// standard error sqrt(p(1-p)/n).
func BernoulliEstimate(hits, n int) (p, stderr float64, err error) {
	if n <= 0 {
		return 0, 0, errors.New("trial count must be positive")
	}
	if hits < 0 || hits > n {
		return 0, 0, errors.New("hits must be within [0, n]")
	}
	p = float64(hits) / float64(n)
	stderr = math.Sqrt(p * (1 - p) / float64(n))
	return p, stderr, nil
}

// Mean computes the arithmetic mean. Returns 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Percentile interpolates linearly between closest ranks.
// sorted must be ascending; p is a fraction (0.10 == 10th percentile).
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 || p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// SortedCopy returns an ascending copy of xs.
func SortedCopy(xs []float64) []float64 {
	out := make([]float64, len(xs))
	copy(out, xs)
	sort.Float64s(out)
	return out
}

// AgeHistogram counts ages by whole year (floored).
func AgeHistogram(ages []float64) map[int]int {
	hist := make(map[int]int)
	for _, a := range ages {
		hist[int(math.Floor(a))]++
	}
	return hist
}
