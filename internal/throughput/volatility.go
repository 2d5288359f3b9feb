package throughput

import "slices"

// FatTailThreshold is the P98/P50 ratio above which delivery is considered
// dominated by outliers.
const FatTailThreshold = 5.6

// Median returns the median daily throughput.
func (h History) Median() float64 {
	if len(h.counts) == 0 {
		return 0
	}
	temp := slices.Clone(h.counts)
	slices.Sort(temp)

	n := len(temp)
	if n%2 == 1 {
		return float64(temp[n/2])
	}
	return float64(temp[n/2-1]+temp[n/2]) / 2.0
}

// FatTail returns the P98/P50 ratio of the daily counts. Values well above 1
// mean a few bursty days dominate delivery and forecasts will be wide.
func (h History) FatTail() float64 {
	if len(h.counts) == 0 {
		return 0
	}
	sorted := slices.Clone(h.counts)
	slices.Sort(sorted)

	p50 := float64(sorted[int(float64(len(sorted))*0.50)])
	p98 := float64(sorted[int(float64(len(sorted))*0.98)])

	if p50 == 0 {
		if p98 > 0 {
			return 10.0 // Symbolic high value for sparse processes
		}
		return 1.0
	}
	return p98 / p50
}
