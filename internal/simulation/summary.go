package simulation

// Summary is the serialisable view of a distribution used by archives, the
// CLI and the MCP tools.
type Summary struct {
	Kind         Kind       `json:"kind"`
	Status       string     `json:"status"`
	Trials       int        `json:"trials"`
	Censored     int        `json:"censored,omitempty"`
	Mean         float64    `json:"mean"`
	Forecasts    []Forecast `json:"forecasts"`
	IgnoredTeams []string   `json:"ignored_teams,omitempty"`
}

const (
	StatusOK               = "ok"
	StatusInsufficientData = "insufficient_data"
	StatusCensored         = "censored"
)

// Summarize reads d at the given confidence levels.
func (d *Distribution) Summarize(percentiles ...int) Summary {
	s := Summary{
		Kind:         d.kind,
		Status:       StatusOK,
		Trials:       d.Trials(),
		Censored:     d.censored,
		Mean:         d.Mean(),
		Forecasts:    d.Forecasts(percentiles...),
		IgnoredTeams: d.IgnoredTeams(),
	}
	switch {
	case d.err != nil:
		s.Status = StatusInsufficientData
	case d.censored > 0:
		s.Status = StatusCensored
	}
	return s
}
