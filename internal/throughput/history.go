// Package throughput holds a team's daily completed-item history and samples
// simulated days from it.
package throughput

import (
	"fmt"
	"slices"

	"lighthouse/internal/random"
)

// History is a run of daily completed-item counts. Index 0 is the oldest day
// of the window; the order does not influence sampling.
type History struct {
	counts []int
}

// NewHistory copies counts into a History. Negative counts are rejected.
func NewHistory(counts []int) (History, error) {
	for i, c := range counts {
		if c < 0 {
			return History{}, fmt.Errorf("throughput on day %d is negative (%d)", i, c)
		}
	}
	return History{counts: slices.Clone(counts)}, nil
}

// MustHistory is NewHistory for literals known to be valid.
func MustHistory(counts ...int) History {
	h, err := NewHistory(counts)
	if err != nil {
		panic(err)
	}
	return h
}

// Len returns the number of days in the window.
func (h History) Len() int { return len(h.counts) }

// IsEmpty reports whether the window contains no days.
func (h History) IsEmpty() bool { return len(h.counts) == 0 }

// Counts returns a copy of the daily counts.
func (h History) Counts() []int { return slices.Clone(h.counts) }

// Total is the number of items completed over the whole window.
func (h History) Total() int {
	total := 0
	for _, c := range h.counts {
		total += c
	}
	return total
}

// HasThroughput reports whether at least one day completed an item.
func (h History) HasThroughput() bool {
	return slices.ContainsFunc(h.counts, func(c int) bool { return c > 0 })
}

// Average returns the mean daily throughput.
func (h History) Average() float64 {
	if len(h.counts) == 0 {
		return 0
	}
	return float64(h.Total()) / float64(len(h.counts))
}

// Capped returns a History where no day exceeds limit. A limit <= 0 leaves
// the history untouched.
func (h History) Capped(limit int) History {
	if limit <= 0 {
		return h
	}
	out := make([]int, len(h.counts))
	for i, c := range h.counts {
		out[i] = min(c, limit)
	}
	return History{counts: out}
}

// Window returns the days in [from, to) as a new History.
func (h History) Window(from, to int) History {
	from = max(from, 0)
	to = min(to, len(h.counts))
	if from >= to {
		return History{}
	}
	return History{counts: slices.Clone(h.counts[from:to])}
}

// SampleOneDay draws a random day from the window and returns its count.
// An empty window always yields 0.
func (h History) SampleOneDay(src random.Source) int {
	if len(h.counts) == 0 {
		return 0
	}
	return h.counts[src.Next(0, len(h.counts))]
}
