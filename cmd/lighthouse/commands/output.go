package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"lighthouse/internal/archive"
	"lighthouse/internal/forecast"
	"lighthouse/internal/simulation"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

var (
	okColor      = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow, color.Bold)
	missingColor = color.New(color.FgRed, color.Bold)
)

// featureSummary is the JSON shape of one forecast feature.
type featureSummary struct {
	ID        string             `json:"id"`
	Name      string             `json:"name,omitempty"`
	Remaining int                `json:"remaining"`
	Summary   simulation.Summary `json:"summary"`
}

func featureSummaries(features []*forecast.Feature, ps []int) []featureSummary {
	out := make([]featureSummary, 0, len(features))
	for _, f := range features {
		fs := featureSummary{ID: f.ID, Name: f.Name, Remaining: f.TotalRemaining()}
		if f.Forecast != nil {
			fs.Summary = f.Forecast.Summarize(ps...)
		}
		out = append(out, fs)
	}
	return out
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func percentileHeaders(ps []int) []string {
	headers := make([]string, 0, len(ps))
	for _, p := range ps {
		headers = append(headers, fmt.Sprintf("P%d", p))
	}
	return headers
}

func formatValue(v int) string {
	if v == simulation.NoForecast {
		return "n/a"
	}
	return strconv.Itoa(v)
}

func statusLabel(status string) string {
	switch status {
	case simulation.StatusOK:
		return okColor.Sprint(status)
	case simulation.StatusCensored:
		return warnColor.Sprint(status)
	default:
		return missingColor.Sprint(status)
	}
}

func likelihoodLabel(l float64) string {
	label := fmt.Sprintf("%.1f%%", l)
	switch {
	case l >= 85:
		return okColor.Sprint(label)
	case l >= 50:
		return warnColor.Sprint(label)
	default:
		return missingColor.Sprint(label)
	}
}

func printSummary(w io.Writer, title string, s simulation.Summary) error {
	fmt.Fprintf(w, "%s (%d trials, %s)\n", title, s.Trials, statusLabel(s.Status))

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Confidence", "Forecast"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, f := range s.Forecasts {
		data = append(data, []string{fmt.Sprintf("%d%%", f.Probability), formatValue(f.Value)})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func printFeatureTable(w io.Writer, features []*forecast.Feature, ps []int) error {
	table := tablewriter.NewWriter(w)
	headers := append([]string{"Feature", "Remaining", "Status"}, percentileHeaders(ps)...)
	table.Header(append(headers, "Ignored Teams"))
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, fs := range featureSummaries(features, ps) {
		label := fs.ID
		if fs.Name != "" {
			label = fmt.Sprintf("%s %s", fs.ID, fs.Name)
		}
		row := []string{label, strconv.Itoa(fs.Remaining), statusLabel(fs.Summary.Status)}
		for _, f := range fs.Summary.Forecasts {
			row = append(row, formatValue(f.Value))
		}
		data = append(data, append(row, strings.Join(fs.Summary.IgnoredTeams, ", ")))
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func printBacktest(w io.Writer, res *forecast.BacktestResult) error {
	verdict := okColor.Sprint("within the forecast cone")
	if !res.WithinCone {
		verdict = missingColor.Sprint("outside the forecast cone")
	}
	fmt.Fprintf(w, "Trained on %d days, forecast %d days: delivered %d items, %s (likelihood %.1f%%)\n",
		res.TrainingDays, res.HorizonDays, res.Actual, verdict, res.ActualLikelihood)

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Confidence", "Forecast", "Actual"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, f := range res.Forecasts {
		data = append(data, []string{fmt.Sprintf("%d%%", f.Probability), formatValue(f.Value), strconv.Itoa(res.Actual)})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func printHistory(w io.Writer, entries []archive.Entry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No archived forecasts.")
		return nil
	}

	var ps []int
	for _, f := range entries[len(entries)-1].Summary.Forecasts {
		ps = append(ps, f.Probability)
	}

	table := tablewriter.NewWriter(w)
	table.Header(append([]string{"Forecasted At", "Remaining", "Status"}, percentileHeaders(ps)...))
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, e := range entries {
		row := []string{e.ForecastedAt.Local().Format(time.DateTime), strconv.Itoa(e.Remaining), statusLabel(e.Summary.Status)}
		for _, p := range ps {
			row = append(row, formatValue(valueAt(e.Summary.Forecasts, p)))
		}
		data = append(data, row)
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// valueAt finds the forecast at confidence p; entries archived with other
// levels report no forecast.
func valueAt(forecasts []simulation.Forecast, p int) int {
	for _, f := range forecasts {
		if f.Probability == p {
			return f.Value
		}
	}
	return simulation.NoForecast
}
