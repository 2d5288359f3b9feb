package simulation

import (
	"errors"
	"math"
	"testing"
)

func oneToTen() *Distribution {
	return newDistribution(KindWhen, []int{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}, 0)
}

func TestDistribution_PercentileNearestRank(t *testing.T) {
	d := oneToTen()

	tests := []struct {
		p, expected int
	}{
		{0, 1},
		{10, 1},
		{11, 2},
		{50, 5},
		{70, 7},
		{85, 9},
		{95, 10},
		{100, 10},
		{150, 10},
	}

	for _, tt := range tests {
		if got := d.Percentile(tt.p); got != tt.expected {
			t.Errorf("Percentile(%d) = %d, want %d", tt.p, got, tt.expected)
		}
	}
}

func TestDistribution_AtLeast(t *testing.T) {
	d := newDistribution(KindHowMany, []int{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}, 0)

	if got := d.AtLeast(85); got != 2 {
		t.Errorf("AtLeast(85) = %d, want 2", got)
	}
	if got := d.AtLeast(50); got != 6 {
		t.Errorf("AtLeast(50) = %d, want 6", got)
	}
	if got := d.Value(95); got != 1 {
		t.Errorf("Value(95) for how many = %d, want 1", got)
	}
}

func TestDistribution_Likelihood(t *testing.T) {
	d := oneToTen()

	if got := d.Likelihood(5); got != 50 {
		t.Errorf("Likelihood(5) = %.1f, want 50", got)
	}
	if got := d.Likelihood(0); got != 0 {
		t.Errorf("Likelihood(0) = %.1f, want 0", got)
	}
	if got := d.Likelihood(42); got != 100 {
		t.Errorf("Likelihood(42) = %.1f, want 100", got)
	}
	if got := d.Likelihood(math.MaxInt); got != 100 {
		t.Errorf("Likelihood(MaxInt) = %.1f, want 100", got)
	}
	if got := d.Likelihood(math.MinInt); got != 0 {
		t.Errorf("Likelihood(MinInt) = %.1f, want 0", got)
	}
}

func TestDistribution_LikelihoodIsMonotonic(t *testing.T) {
	d := newDistribution(KindWhen, []int{3, 3, 4, 7, 7, 7, 9, 12, 15, 15, 21}, 0)

	prev := -1.0
	for v := 0; v <= 25; v++ {
		l := d.Likelihood(v)
		if l < prev {
			t.Fatalf("Likelihood decreased at %d: %.2f < %.2f", v, l, prev)
		}
		prev = l
	}
}

func TestDistribution_LikelihoodOfPercentileCoversP(t *testing.T) {
	d := newDistribution(KindWhen, []int{3, 3, 4, 7, 7, 7, 9, 12, 15, 15, 21}, 0)

	for p := 0; p <= 100; p++ {
		if l := d.Likelihood(d.Percentile(p)); l < float64(p) {
			t.Errorf("Likelihood(Percentile(%d)) = %.2f, want >= %d", p, l, p)
		}
	}
}

func TestDistribution_Insufficient(t *testing.T) {
	d := insufficientDistribution(KindWhen)

	if !errors.Is(d.Err(), ErrInsufficientData) {
		t.Errorf("Expected ErrInsufficientData, got %v", d.Err())
	}
	if d.Percentile(50) != NoForecast || d.AtLeast(50) != NoForecast {
		t.Errorf("Expected NoForecast for every read")
	}

	s := d.Summarize(50, 85)
	if s.Status != StatusInsufficientData {
		t.Errorf("Expected status %s, got %s", StatusInsufficientData, s.Status)
	}
	if s.Forecasts[1].Value != NoForecast {
		t.Errorf("Expected summary values to be NoForecast, got %d", s.Forecasts[1].Value)
	}
}

func TestDistribution_HistogramAndMoments(t *testing.T) {
	d := newDistribution(KindWhen, []int{2, 4, 4, 6}, 0)

	h := d.Histogram()
	if h[4] != 2 || h[2] != 1 || h[6] != 1 {
		t.Errorf("Unexpected histogram %v", h)
	}
	keys := d.HistogramKeys()
	if len(keys) != 3 || keys[0] != 2 || keys[2] != 6 {
		t.Errorf("Unexpected histogram keys %v", keys)
	}
	if d.Mean() != 4 {
		t.Errorf("Mean() = %v, want 4", d.Mean())
	}
	if d.Median() != 4 {
		t.Errorf("Median() = %v, want 4", d.Median())
	}
}

func TestDistribution_OutcomesAreCopied(t *testing.T) {
	d := oneToTen()
	out := d.Outcomes()
	out[0] = 999
	if d.Percentile(0) != 1 {
		t.Errorf("Expected distribution to be immutable, got %d", d.Percentile(0))
	}
}
