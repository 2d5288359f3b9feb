package visuals

import (
	"fmt"
	"math"
	"strings"

	"lighthouse/internal/simulation"
)

// maxPoints is roughly where Mermaid's xychart starts overlapping labels.
const maxPoints = 60

// GenerateConfidenceChart creates a Mermaid bar chart of the forecast value at each confidence level.
func GenerateConfidenceChart(d *simulation.Distribution, percentiles []int) string {
	if d == nil || d.Err() != nil || len(percentiles) == 0 {
		return ""
	}

	yAxisLabel := "Days"
	if d.Kind() == simulation.KindHowMany {
		yAxisLabel = "Items Delivered"
	}

	var labels []string
	var values []string
	maxVal := 0
	for _, f := range d.Forecasts(percentiles...) {
		labels = append(labels, fmt.Sprintf("\"%d%%\"", f.Probability))
		values = append(values, fmt.Sprintf("%d", f.Value))
		maxVal = max(maxVal, f.Value)
	}
	if maxVal == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Monte Carlo Forecast (Confidence Levels)\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"%s\" 0 --> %d\n", yAxisLabel, int(math.Ceil(float64(maxVal)*1.1))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateDistributionChart creates a Mermaid bar chart of how often each outcome occurred.
// Wide ranges are grouped into equal buckets.
func GenerateDistributionChart(d *simulation.Distribution) string {
	if d == nil || d.Err() != nil || d.Trials() == 0 {
		return ""
	}

	outcomes := d.Outcomes()
	lo, hi := outcomes[0], outcomes[len(outcomes)-1]
	width := max(1, int(math.Ceil(float64(hi-lo+1)/maxPoints)))
	buckets := make([]int, (hi-lo)/width+1)
	for _, v := range outcomes {
		buckets[(v-lo)/width]++
	}

	var labels []string
	var values []string
	maxVal := 0
	for i, count := range buckets {
		start := lo + i*width
		if width == 1 {
			labels = append(labels, fmt.Sprintf("\"%d\"", start))
		} else {
			labels = append(labels, fmt.Sprintf("\"%d-%d\"", start, start+width-1))
		}
		values = append(values, fmt.Sprintf("%d", count))
		maxVal = max(maxVal, count)
	}

	xAxisLabel := "Days"
	if d.Kind() == simulation.KindHowMany {
		xAxisLabel = "Items"
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"Outcome Frequency (%s)\"\n", xAxisLabel))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Trials\" 0 --> %d\n", maxVal+int(math.Max(1, float64(maxVal)*0.2))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateThroughputChart creates a Mermaid bar chart of daily throughput, oldest day first.
func GenerateThroughputChart(counts []int) string {
	if len(counts) == 0 {
		return ""
	}

	// Sum neighbouring days if the chart is too wide for Mermaid's layout engine
	groupSize := 1
	if len(counts) > maxPoints {
		groupSize = int(math.Ceil(float64(len(counts)) / maxPoints))
	}

	var labels []string
	var values []string
	maxVal := 0
	for start := 0; start < len(counts); start += groupSize {
		end := min(start+groupSize, len(counts))
		total := 0
		for _, c := range counts[start:end] {
			total += c
		}
		if groupSize == 1 {
			labels = append(labels, fmt.Sprintf("\"%d\"", start+1))
		} else {
			labels = append(labels, fmt.Sprintf("\"%d-%d\"", start+1, end))
		}
		values = append(values, fmt.Sprintf("%d", total))
		maxVal = max(maxVal, total)
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Delivery Cadence (Throughput)\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Items Delivered\" 0 --> %d\n", maxVal+int(math.Max(1, float64(maxVal)*0.2))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateFeatureChart creates a Mermaid bar chart of the forecast completion day of each
// feature at one confidence level. Features without a forecast are left out.
func GenerateFeatureChart(names []string, forecasts []*simulation.Distribution, confidence int) string {
	var labels []string
	var values []string
	maxVal := 0
	for i, d := range forecasts {
		if i >= len(names) || d == nil || d.Err() != nil {
			continue
		}
		v := d.Value(confidence)
		labels = append(labels, fmt.Sprintf("\"%s\"", mermaidLabel(names[i])))
		values = append(values, fmt.Sprintf("%d", v))
		maxVal = max(maxVal, v)
	}
	if len(values) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"Feature Completion (%d%% Confidence)\"\n", confidence))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Days\" 0 --> %d\n", max(1, int(math.Ceil(float64(maxVal)*1.1)))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateTrendChart creates a Mermaid line chart of one value over successive forecasts.
func GenerateTrendChart(title string, labels []string, values []int) string {
	if len(values) == 0 || len(labels) != len(values) {
		return ""
	}

	step := 1
	if len(values) > maxPoints {
		step = int(math.Ceil(float64(len(values)) / maxPoints))
	}

	var xs []string
	var ys []string
	maxVal := 0
	for i, v := range values {
		if i%step == 0 || i == len(values)-1 {
			xs = append(xs, fmt.Sprintf("\"%s\"", mermaidLabel(labels[i])))
			ys = append(ys, fmt.Sprintf("%d", v))
		}
		maxVal = max(maxVal, v)
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"%s\"\n", mermaidLabel(title)))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(xs, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Days\" 0 --> %d\n", max(1, int(math.Ceil(float64(maxVal)*1.2)))))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(ys, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// mermaidLabel strips characters that break a quoted Mermaid label.
func mermaidLabel(s string) string {
	return strings.NewReplacer("\"", "'", "\n", " ", "[", "(", "]", ")").Replace(s)
}

// Unfence removes the markdown code fence around a generated chart.
func Unfence(chart string) string {
	chart = strings.TrimPrefix(chart, "```mermaid\n")
	return strings.TrimSuffix(chart, "```")
}
