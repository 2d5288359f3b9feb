// Package random provides the uniform integer sources the simulations draw from.
package random

import (
	"math/rand/v2"
	"time"
)

// Source produces uniformly distributed integers.
type Source interface {
	// Next returns an integer in [lo, hi). It returns lo when hi <= lo.
	Next(lo, hi int) int
}

// Factory hands out one independent Source per trial. The same trial index
// must always yield the same stream so runs are reproducible.
type Factory func(trial int) Source

// Seeded is a PCG backed Source.
type Seeded struct {
	rng *rand.Rand
}

// NewSeeded creates a Source for the given seed and stream.
func NewSeeded(seed uint64, stream uint64) *Seeded {
	return &Seeded{rng: rand.New(rand.NewPCG(seed, stream))}
}

func (s *Seeded) Next(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.rng.IntN(hi-lo)
}

// NewFactory returns a Factory whose trial streams derive from seed.
// A zero seed picks one from the clock.
func NewFactory(seed uint64) Factory {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return func(trial int) Source {
		return NewSeeded(seed, uint64(trial))
	}
}

// Sequence replays a fixed list of values. Each value is folded into the
// requested range with a modulo, so Sequence{0} always picks the lowest index.
type Sequence struct {
	values []int
	pos    int
}

// NewSequence creates a Sequence over values. An empty list behaves like {0}.
func NewSequence(values ...int) *Sequence {
	if len(values) == 0 {
		values = []int{0}
	}
	v := make([]int, len(values))
	copy(v, values)
	return &Sequence{values: v}
}

func (s *Sequence) Next(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	v := s.values[s.pos%len(s.values)]
	s.pos++
	if v < 0 {
		v = -v
	}
	return lo + v%(hi-lo)
}

// Constant always returns the same value, clamped into the requested range.
type Constant int

func (c Constant) Next(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return min(max(int(c), lo), hi-1)
}

// Replay returns a Factory where every trial replays the same fixed sequence.
func Replay(values ...int) Factory {
	return func(int) Source {
		return NewSequence(values...)
	}
}
