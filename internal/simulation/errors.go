package simulation

import "errors"

// NoForecast is returned by percentile queries on a distribution that could
// not be simulated.
const NoForecast = -1

var (
	// ErrInvalidInput marks inputs rejected before any trial runs.
	ErrInvalidInput = errors.New("invalid forecast input")

	// ErrInsufficientData marks a distribution for work that can never be
	// completed with the throughput at hand (no history, only zero days, or no
	// WIP capacity on any team holding the work).
	ErrInsufficientData = errors.New("insufficient throughput data to forecast")
)
