package simulation

import (
	"maps"
	"slices"
	"sort"
)

// Kind tells which question a distribution answers, and therefore in which
// direction a confidence level is read.
type Kind string

const (
	// KindWhen outcomes are days until the work is done. Higher confidence
	// means more days.
	KindWhen Kind = "when"
	// KindHowMany outcomes are items completed in a fixed number of days.
	// Higher confidence means fewer items.
	KindHowMany Kind = "how_many"
)

// Forecast pairs a confidence level with the forecast value at that level.
type Forecast struct {
	Probability int `json:"probability"`
	Value       int `json:"value"`
}

// Distribution is the immutable set of trial outcomes of one simulation.
type Distribution struct {
	kind         Kind
	outcomes     []int // ascending
	censored     int
	ignoredTeams []string
	err          error
}

func newDistribution(kind Kind, outcomes []int, censored int) *Distribution {
	slices.Sort(outcomes)
	return &Distribution{kind: kind, outcomes: outcomes, censored: censored}
}

func constantDistribution(kind Kind, trials, value int) *Distribution {
	outcomes := make([]int, trials)
	for i := range outcomes {
		outcomes[i] = value
	}
	return &Distribution{kind: kind, outcomes: outcomes}
}

func insufficientDistribution(kind Kind) *Distribution {
	return &Distribution{kind: kind, err: ErrInsufficientData}
}

// Kind returns the question this distribution answers.
func (d *Distribution) Kind() Kind { return d.kind }

// Err is ErrInsufficientData when no forecast could be produced, nil otherwise.
func (d *Distribution) Err() error { return d.err }

// Trials returns the number of recorded outcomes.
func (d *Distribution) Trials() int { return len(d.outcomes) }

// Censored returns how many trials stopped at the day cap. Their outcome is
// the cap itself and only a lower bound of the real duration.
func (d *Distribution) Censored() int { return d.censored }

// IgnoredTeams lists teams whose remaining work was left out of the
// simulation because they cannot make progress.
func (d *Distribution) IgnoredTeams() []string { return slices.Clone(d.ignoredTeams) }

// Outcomes returns a sorted copy of all trial outcomes.
func (d *Distribution) Outcomes() []int { return slices.Clone(d.outcomes) }

// Percentile returns the smallest outcome such that at least p percent of
// trials are less than or equal to it (nearest rank).
func (d *Distribution) Percentile(p int) int {
	n := len(d.outcomes)
	if d.err != nil || n == 0 {
		return NoForecast
	}
	return d.outcomes[rank(p, n)-1]
}

// AtLeast returns the largest outcome that at least p percent of trials
// reach or exceed. This is how a "how many" forecast is read.
func (d *Distribution) AtLeast(p int) int {
	n := len(d.outcomes)
	if d.err != nil || n == 0 {
		return NoForecast
	}
	return d.outcomes[n-rank(p, n)]
}

// Value reads the forecast at confidence p in the direction of the
// distribution's kind.
func (d *Distribution) Value(p int) int {
	if d.kind == KindHowMany {
		return d.AtLeast(p)
	}
	return d.Percentile(p)
}

// Forecasts returns Value for each of the given confidence levels.
func (d *Distribution) Forecasts(percentiles ...int) []Forecast {
	out := make([]Forecast, 0, len(percentiles))
	for _, p := range percentiles {
		out = append(out, Forecast{Probability: p, Value: d.Value(p)})
	}
	return out
}

// Likelihood returns the percentage of trials with an outcome of at most value.
func (d *Distribution) Likelihood(value int) float64 {
	n := len(d.outcomes)
	if d.err != nil || n == 0 {
		return 0
	}
	idx := sort.Search(n, func(i int) bool { return d.outcomes[i] > value })
	return float64(idx) * 100 / float64(n)
}

// Histogram returns how many trials produced each outcome.
func (d *Distribution) Histogram() map[int]int {
	h := make(map[int]int)
	for _, v := range d.outcomes {
		h[v]++
	}
	return h
}

// HistogramKeys returns the distinct outcomes in ascending order.
func (d *Distribution) HistogramKeys() []int {
	return slices.Sorted(maps.Keys(d.Histogram()))
}

// Mean returns the average outcome.
func (d *Distribution) Mean() float64 {
	if len(d.outcomes) == 0 {
		return 0
	}
	total := 0
	for _, v := range d.outcomes {
		total += v
	}
	return float64(total) / float64(len(d.outcomes))
}

// Median returns the middle outcome, averaging the two central values for an
// even number of trials.
func (d *Distribution) Median() float64 {
	n := len(d.outcomes)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return float64(d.outcomes[n/2])
	}
	return float64(d.outcomes[n/2-1]+d.outcomes[n/2]) / 2.0
}

// rank converts a percentage into a 1-based nearest rank over n outcomes.
func rank(p, n int) int {
	p = min(max(p, 0), 100)
	r := (p*n + 99) / 100
	return max(r, 1)
}
