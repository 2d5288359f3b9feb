package throughput

import (
	"testing"

	"lighthouse/internal/random"
)

func TestNewHistory_RejectsNegative(t *testing.T) {
	if _, err := NewHistory([]int{1, -2, 3}); err == nil {
		t.Errorf("Expected error for negative throughput")
	}
}

func TestNewHistory_CopiesInput(t *testing.T) {
	counts := []int{1, 2, 3}
	h, err := NewHistory(counts)
	if err != nil {
		t.Fatalf("NewHistory failed: %v", err)
	}
	counts[0] = 99
	if h.Counts()[0] != 1 {
		t.Errorf("Expected history to be isolated from caller slice, got %v", h.Counts())
	}
}

func TestHistory_SampleOneDay(t *testing.T) {
	h := MustHistory(4, 7, 9)
	src := random.NewSequence(0, 1, 2)
	for i, want := range []int{4, 7, 9, 4} {
		if got := h.SampleOneDay(src); got != want {
			t.Errorf("sample %d: expected %d, got %d", i, want, got)
		}
	}
}

func TestHistory_SampleEmptyIsZero(t *testing.T) {
	var h History
	if got := h.SampleOneDay(random.NewSeeded(1, 1)); got != 0 {
		t.Errorf("Expected 0 from empty history, got %d", got)
	}
}

func TestHistory_Aggregates(t *testing.T) {
	tests := []struct {
		name          string
		counts        []int
		total         int
		hasThroughput bool
		median        float64
	}{
		{"Empty", nil, 0, false, 0},
		{"AllZero", []int{0, 0, 0}, 0, false, 0},
		{"Mixed", []int{2, 0, 5, 1}, 8, true, 1.5},
		{"Odd", []int{3, 1, 2}, 6, true, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := MustHistory(tt.counts...)
			if got := h.Total(); got != tt.total {
				t.Errorf("Total() = %d, want %d", got, tt.total)
			}
			if got := h.HasThroughput(); got != tt.hasThroughput {
				t.Errorf("HasThroughput() = %v, want %v", got, tt.hasThroughput)
			}
			if got := h.Median(); got != tt.median {
				t.Errorf("Median() = %v, want %v", got, tt.median)
			}
		})
	}
}

func TestHistory_CappedAndWindow(t *testing.T) {
	h := MustHistory(1, 5, 3, 8)

	capped := h.Capped(4).Counts()
	expected := []int{1, 4, 3, 4}
	for i := range expected {
		if capped[i] != expected[i] {
			t.Errorf("Capped day %d: expected %d, got %d", i, expected[i], capped[i])
		}
	}

	w := h.Window(1, 3)
	if w.Len() != 2 || w.Total() != 8 {
		t.Errorf("Expected window [5 3], got %v", w.Counts())
	}
	if !h.Window(3, 1).IsEmpty() {
		t.Errorf("Expected inverted window to be empty")
	}
}

func TestHistory_FatTail(t *testing.T) {
	stable := MustHistory(1, 1, 1, 1, 1, 1, 1, 1, 1, 1)
	if v := stable.FatTail(); v > 1.1 {
		t.Errorf("Expected low volatility for stable process, got %.2f", v)
	}

	chaotic := MustHistory(1, 1, 1, 1, 1, 1, 1, 1, 1, 10)
	if v := chaotic.FatTail(); v < 5.6 {
		t.Errorf("Expected high volatility for chaotic process, got %.2f", v)
	}
}
