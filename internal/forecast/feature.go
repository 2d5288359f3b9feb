// Package forecast keeps the forecasts of features up to date. It snapshots
// features and teams from its collaborators, runs the joint simulation and
// hands the results back for saving and archiving.
package forecast

import (
	"context"
	"errors"
	"time"

	"lighthouse/internal/simulation"
	"lighthouse/internal/throughput"
)

// ErrTeamNotFound is returned by a TeamProvider for an unknown team ID.
var ErrTeamNotFound = errors.New("team not found")

// Team is a delivery team and the snapshot of its recent throughput.
type Team struct {
	ID            string `json:"id" yaml:"id"`
	Name          string `json:"name,omitempty" yaml:"name,omitempty"`
	Throughput    []int  `json:"throughput" yaml:"throughput"`
	FeatureWIP    int    `json:"feature_wip" yaml:"feature_wip"`
	DailyCapacity int    `json:"daily_capacity,omitempty" yaml:"daily_capacity,omitempty"`
}

// History returns the team's throughput with its daily capacity applied.
func (t Team) History() (throughput.History, error) {
	h, err := throughput.NewHistory(t.Throughput)
	if err != nil {
		return throughput.History{}, err
	}
	return h.Capped(t.DailyCapacity), nil
}

// Feature is a unit of planned work spread over one or more teams.
type Feature struct {
	ID         string         `json:"id" yaml:"id"`
	Name       string         `json:"name,omitempty" yaml:"name,omitempty"`
	Order      int            `json:"order,omitempty" yaml:"order,omitempty"`
	ProjectIDs []string       `json:"projects,omitempty" yaml:"projects,omitempty"`
	Remaining  map[string]int `json:"remaining" yaml:"remaining"`

	// Written by the Service on every run.
	Forecast     *simulation.Distribution `json:"-" yaml:"-"`
	ForecastedAt time.Time                `json:"-" yaml:"-"`
}

// TotalRemaining sums the remaining work over all teams.
func (f *Feature) TotalRemaining() int {
	total := 0
	for _, r := range f.Remaining {
		total += r
	}
	return total
}

// InProject reports whether the feature belongs to projectID.
func (f *Feature) InProject(projectID string) bool {
	for _, p := range f.ProjectIDs {
		if p == projectID {
			return true
		}
	}
	return false
}

// FeatureRepository loads and stores features.
type FeatureRepository interface {
	FeaturesWithRemainingWork(ctx context.Context) ([]*Feature, error)
	FeaturesForProject(ctx context.Context, projectID string) ([]*Feature, error)
	Save(ctx context.Context, features []*Feature) error
}

// TeamProvider resolves team snapshots by ID.
type TeamProvider interface {
	Team(ctx context.Context, id string) (Team, error)
}

// Archiver keeps a history of feature forecasts.
type Archiver interface {
	ArchiveFeature(ctx context.Context, f *Feature) error
}
