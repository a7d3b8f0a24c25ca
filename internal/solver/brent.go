package solver

import (
	"fmt"
	"math"

	"RetireRisk/internal/model"
)

// BrentOptions sets the stopping rule of Brent. The search stops once the
// bracket is narrower than (Xtol + Rtol*|x|)/2.
type BrentOptions struct {
	Xtol          float64
	Rtol          float64
	MaxIterations int
}

// DefaultBrentOptions stops at one percent relative accuracy.
func DefaultBrentOptions() BrentOptions {
	return BrentOptions{Xtol: 2e-12, Rtol: 1e-2, MaxIterations: 100}
}

// Brent finds a root of f in [a, b] combining bisection, secant and inverse
// quadratic steps. f(a) and f(b) must differ in sign, otherwise the error
// wraps ErrBracketingFailure. An error from f aborts the search.
func Brent(f func(float64) (float64, error), a, b float64, opts BrentOptions) (root float64, iterations int, err error) {
	xpre, xcur := a, b
	fpre, err := f(xpre)
	if err != nil {
		return 0, 0, err
	}
	fcur, err := f(xcur)
	if err != nil {
		return 0, 0, err
	}
	if fpre*fcur > 0 {
		return 0, 0, fmt.Errorf("%w: f(%g)=%g, f(%g)=%g", model.ErrBracketingFailure, a, fpre, b, fcur)
	}
	if fpre == 0 {
		return xpre, 0, nil
	}
	if fcur == 0 {
		return xcur, 0, nil
	}

	var xblk, fblk, spre, scur float64
	for i := 1; i <= opts.MaxIterations; i++ {
		if fpre*fcur < 0 {
			xblk, fblk = xpre, fpre
			spre = xcur - xpre
			scur = spre
		}
		if math.Abs(fblk) < math.Abs(fcur) {
			xpre, xcur, xblk = xcur, xblk, xcur
			fpre, fcur, fblk = fcur, fblk, fcur
		}

		delta := (opts.Xtol + opts.Rtol*math.Abs(xcur)) / 2
		sbis := (xblk - xcur) / 2
		if fcur == 0 || math.Abs(sbis) < delta {
			return xcur, i, nil
		}

		if math.Abs(spre) > delta && math.Abs(fcur) < math.Abs(fpre) {
			var stry float64
			if xpre == xblk {
				// secant
				stry = -fcur * (xcur - xpre) / (fcur - fpre)
			} else {
				// inverse quadratic
				dpre := (fpre - fcur) / (xpre - xcur)
				dblk := (fblk - fcur) / (xblk - xcur)
				stry = -fcur * (fblk*dblk - fpre*dpre) / (dblk * dpre * (fblk - fpre))
			}
			if 2*math.Abs(stry) < math.Min(math.Abs(spre), 3*math.Abs(sbis)-delta) {
				spre, scur = scur, stry
			} else {
				spre, scur = sbis, sbis
			}
		} else {
			spre, scur = sbis, sbis
		}

		xpre, fpre = xcur, fcur
		if math.Abs(scur) > delta {
			xcur += scur
		} else if sbis > 0 {
			xcur += delta
		} else {
			xcur -= delta
		}

		fcur, err = f(xcur)
		if err != nil {
			return 0, i, err
		}
	}
	return xcur, opts.MaxIterations, fmt.Errorf("%w: no root within %d iterations", model.ErrSolverDidNotConverge, opts.MaxIterations)
}
