package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"lighthouse/internal/archive"
	"lighthouse/internal/forecast"
	"lighthouse/internal/simulation"

	"github.com/fatih/color"
)

func init() {
	color.NoColor = true
}

func TestFormatValue(t *testing.T) {
	if got := formatValue(simulation.NoForecast); got != "n/a" {
		t.Errorf("Expected n/a, got %s", got)
	}
	if got := formatValue(42); got != "42" {
		t.Errorf("Expected 42, got %s", got)
	}
}

func TestValueAt(t *testing.T) {
	forecasts := []simulation.Forecast{{Probability: 50, Value: 3}, {Probability: 85, Value: 7}}
	if got := valueAt(forecasts, 85); got != 7 {
		t.Errorf("Expected 7, got %d", got)
	}
	if got := valueAt(forecasts, 95); got != simulation.NoForecast {
		t.Errorf("Expected no forecast for a missing level, got %d", got)
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	s := simulation.Summary{Status: simulation.StatusOK, Trials: 100, Forecasts: []simulation.Forecast{{Probability: 85, Value: 12}}}
	if err := printSummary(&buf, "Days to finish 10 items", s); err != nil {
		t.Fatalf("printSummary failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Days to finish 10 items (100 trials, ok)", "85%", "12"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	if err := printHistory(&buf, nil); err != nil {
		t.Fatalf("printHistory failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No archived forecasts") {
		t.Errorf("Expected empty history message, got %q", buf.String())
	}

	buf.Reset()
	entries := []archive.Entry{
		{FeatureID: "F1", ForecastedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Remaining: 10, Summary: simulation.Summary{Status: simulation.StatusOK, Forecasts: []simulation.Forecast{{Probability: 85, Value: 9}}}},
		{FeatureID: "F1", ForecastedAt: time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC), Remaining: 4, Summary: simulation.Summary{Status: simulation.StatusInsufficientData, Forecasts: []simulation.Forecast{{Probability: 85, Value: -1}}}},
	}
	if err := printHistory(&buf, entries); err != nil {
		t.Fatalf("printHistory failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"P85", "insufficient_data", "n/a", "9"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestFeatureSummaries_JSON(t *testing.T) {
	features := []*forecast.Feature{
		{ID: "F1", Name: "Login", Remaining: map[string]int{"t1": 3, "t2": 2}},
	}
	var buf bytes.Buffer
	if err := printJSON(&buf, featureSummaries(features, []int{50})); err != nil {
		t.Fatalf("printJSON failed: %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Failed to decode output: %v", err)
	}
	if len(decoded) != 1 || decoded[0]["id"] != "F1" || decoded[0]["remaining"] != float64(5) {
		t.Errorf("Unexpected JSON output: %s", buf.String())
	}
}

func TestLikelihoodLabel(t *testing.T) {
	if got := likelihoodLabel(87.25); got != "87.2%" && got != "87.3%" {
		t.Errorf("Expected a one decimal percentage, got %s", got)
	}
}
