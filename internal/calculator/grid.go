package calculator

import "math"

// Linspace returns n evenly spaced values over [start, stop], both ends included.
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}

// Logspace returns n values spaced evenly on a log scale from 10^start to 10^stop.
func Logspace(start, stop float64, n int) []float64 {
	exps := Linspace(start, stop, n)
	for i, e := range exps {
		exps[i] = math.Pow(10, e)
	}
	return exps
}
