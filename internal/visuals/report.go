package visuals

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"strings"
	"time"

	"lighthouse/internal/forecast"
	"lighthouse/internal/simulation"
)

// FeatureRow is one line of the report's feature table.
type FeatureRow struct {
	ID           string
	Name         string
	Remaining    int
	Status       string
	Values       []int
	IgnoredTeams string
}

// Chart is a titled Mermaid diagram without its markdown fence.
type Chart struct {
	Title   string
	Mermaid string
}

// Report is a standalone HTML page summarising a forecast run.
type Report struct {
	Title       string
	GeneratedAt time.Time
	Percentiles []int
	Features    []FeatureRow
	Charts      []Chart
}

// BuildReport collects the feature forecasts and team throughput into a report.
func BuildReport(title string, features []*forecast.Feature, teams []forecast.Team, percentiles []int, now time.Time) Report {
	r := Report{Title: title, GeneratedAt: now, Percentiles: percentiles}

	var names []string
	var dists []*simulation.Distribution
	for _, f := range features {
		row := FeatureRow{ID: f.ID, Name: f.Name, Remaining: f.TotalRemaining(), Status: "not forecast"}
		if f.Forecast != nil {
			s := f.Forecast.Summarize(percentiles...)
			row.Status = s.Status
			for _, fc := range s.Forecasts {
				row.Values = append(row.Values, fc.Value)
			}
			row.IgnoredTeams = strings.Join(s.IgnoredTeams, ", ")
		}
		r.Features = append(r.Features, row)

		name := f.Name
		if name == "" {
			name = f.ID
		}
		names = append(names, name)
		dists = append(dists, f.Forecast)
	}

	if len(percentiles) > 0 {
		confidence := percentiles[len(percentiles)-1]
		r.addChart("Feature completion", GenerateFeatureChart(names, dists, confidence))
	}
	for _, f := range features {
		r.addChart(fmt.Sprintf("Outcomes for %s", f.ID), GenerateDistributionChart(f.Forecast))
	}
	for _, t := range teams {
		r.addChart(fmt.Sprintf("Throughput of %s", t.ID), GenerateThroughputChart(t.Throughput))
	}
	return r
}

func (r *Report) addChart(title, chart string) {
	if chart == "" {
		return
	}
	r.Charts = append(r.Charts, Chart{Title: title, Mermaid: Unfence(chart)})
}

// Render writes the report as HTML.
func (r Report) Render(w io.Writer) error {
	if err := reportTemplate.Execute(w, r); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// WriteFile renders the report into path.
func (r Report) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := r.Render(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}
	return nil
}

func formatValue(v int) string {
	if v == simulation.NoForecast {
		return "n/a"
	}
	return fmt.Sprintf("%d", v)
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"value": formatValue,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; color: #222; }
table { border-collapse: collapse; margin-bottom: 2rem; }
th, td { border: 1px solid #ccc; padding: 0.3rem 0.8rem; text-align: right; }
th:first-child, td:first-child, td.text { text-align: left; }
.insufficient_data { color: #b00; }
.censored { color: #b60; }
</style>
<script type="module">
import mermaid from "https://cdn.jsdelivr.net/npm/mermaid@11/dist/mermaid.esm.min.mjs";
mermaid.initialize({ startOnLoad: true });
</script>
</head>
<body>
<h1>{{.Title}}</h1>
<p>Generated {{.GeneratedAt.Format "2006-01-02 15:04"}}</p>
<table>
<thead>
<tr><th>Feature</th><th>Remaining</th>{{range .Percentiles}}<th>{{.}}%</th>{{end}}<th>Status</th><th>Ignored teams</th></tr>
</thead>
<tbody>
{{range .Features}}<tr class="{{.Status}}"><td>{{.ID}}{{if .Name}} {{.Name}}{{end}}</td><td>{{.Remaining}}</td>{{range .Values}}<td>{{value .}}</td>{{end}}<td class="text">{{.Status}}</td><td class="text">{{.IgnoredTeams}}</td></tr>
{{end}}</tbody>
</table>
{{range .Charts}}<h2>{{.Title}}</h2>
<pre class="mermaid">
{{.Mermaid}}
</pre>
{{end}}</body>
</html>
`))
