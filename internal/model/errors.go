package model

import "errors"

// Errors shared by the simulator, solver and data providers.
var (
	// ErrInvalidParameter is returned for malformed input before any simulation work starts.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrUnknownMortalityKey is returned when no life table exists for a region/group pair.
	ErrUnknownMortalityKey = errors.New("unknown mortality key")

	// ErrEmptyMarketRecord is returned when a market record holds no years.
	ErrEmptyMarketRecord = errors.New("empty market record")

	// ErrBracketingFailure means both ends of a search interval have the same sign.
	// The savings solver recovers from it by widening the interval.
	ErrBracketingFailure = errors.New("root not bracketed")

	// ErrSolverDidNotConverge is returned when the retry or iteration budget runs out.
	ErrSolverDidNotConverge = errors.New("solver did not converge")
)
