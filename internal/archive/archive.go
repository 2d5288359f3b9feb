// Package archive keeps the history of feature forecasts so that a
// forecast's evolution can be read back later.
package archive

import (
	"context"
	"fmt"
	"slices"
	"time"

	"lighthouse/internal/forecast"
	"lighthouse/internal/simulation"
)

// Backend names a storage backend.
type Backend string

const (
	NoneBackend     Backend = "none"
	JSONLBackend    Backend = "jsonl"
	SQLiteBackend   Backend = "sqlite"
	PostgresBackend Backend = "postgres"
	MySQLBackend    Backend = "mysql"
)

// Entry is one archived forecast of a feature.
type Entry struct {
	FeatureID    string             `json:"feature_id"`
	FeatureName  string             `json:"feature_name,omitempty"`
	ForecastedAt time.Time          `json:"forecasted_at"`
	Remaining    int                `json:"remaining"`
	Summary      simulation.Summary `json:"summary"`
}

// Store archives feature forecasts and reads them back.
type Store interface {
	forecast.Archiver
	// History returns every archived entry of a feature, oldest first.
	History(ctx context.Context, featureID string) ([]Entry, error)
	Close() error
}

// Open creates the store for backend. percentiles selects the confidence
// levels kept for each archived forecast.
func Open(backend Backend, dsn string, percentiles []int) (Store, error) {
	switch backend {
	case NoneBackend, "":
		return noneStore{}, nil
	case JSONLBackend:
		return OpenJSONL(dsn, percentiles)
	case SQLiteBackend, PostgresBackend, MySQLBackend:
		return OpenSQL(backend, dsn, percentiles)
	}
	return nil, fmt.Errorf("unsupported archive backend: %s", backend)
}

// NewEntry snapshots the current forecast of f.
func NewEntry(f *forecast.Feature, percentiles []int) (Entry, error) {
	if f.Forecast == nil {
		return Entry{}, fmt.Errorf("feature %s has no forecast to archive", f.ID)
	}
	return Entry{
		FeatureID:    f.ID,
		FeatureName:  f.Name,
		ForecastedAt: f.ForecastedAt.UTC(),
		Remaining:    f.TotalRemaining(),
		Summary:      f.Forecast.Summarize(percentiles...),
	}, nil
}

func sortEntries(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return a.ForecastedAt.Compare(b.ForecastedAt)
	})
}

// noneStore drops everything.
type noneStore struct{}

func (noneStore) ArchiveFeature(ctx context.Context, f *forecast.Feature) error { return nil }

func (noneStore) History(ctx context.Context, featureID string) ([]Entry, error) { return nil, nil }

func (noneStore) Close() error { return nil }
