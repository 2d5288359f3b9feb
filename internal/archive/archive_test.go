package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lighthouse/internal/forecast"
	"lighthouse/internal/random"
	"lighthouse/internal/simulation"
	"lighthouse/internal/throughput"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPercentiles = []int{50, 85}

func forecastFeature(t *testing.T, id string, remaining int, at time.Time) *forecast.Feature {
	t.Helper()
	engine, err := simulation.NewEngine(simulation.Options{Trials: 50, DayCap: 100, Workers: 1, Random: random.NewFactory(1)})
	require.NoError(t, err)

	d, err := engine.When(context.Background(), throughput.MustHistory(2), remaining)
	require.NoError(t, err)

	return &forecast.Feature{
		ID:           id,
		Name:         "Feature " + id,
		Remaining:    map[string]int{"t1": remaining},
		Forecast:     d,
		ForecastedAt: at,
	}
}

func insufficientFeature(t *testing.T, id string, at time.Time) *forecast.Feature {
	t.Helper()
	engine, err := simulation.NewEngine(simulation.Options{Trials: 50, DayCap: 100, Workers: 1})
	require.NoError(t, err)

	res, err := engine.ForecastFeatures(context.Background(), []simulation.FeatureInput{{
		ID:             id,
		Remaining:      map[string]int{"idle": 4},
		TeamFeatureWIP: map[string]int{"idle": 1},
		TeamThroughput: map[string][]int{"idle": {0}},
	}})
	require.NoError(t, err)

	return &forecast.Feature{ID: id, Remaining: map[string]int{"idle": 4}, Forecast: res[id], ForecastedAt: at}
}

// exerciseStore runs the behaviour every persistent backend shares.
func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, store.ArchiveFeature(ctx, forecastFeature(t, "F1", 10, base.Add(48*time.Hour))))
	require.NoError(t, store.ArchiveFeature(ctx, forecastFeature(t, "F1", 20, base)))
	require.NoError(t, store.ArchiveFeature(ctx, forecastFeature(t, "F2", 4, base)))
	require.NoError(t, store.ArchiveFeature(ctx, insufficientFeature(t, "F3", base)))

	history, err := store.History(ctx, "F1")
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.True(t, history[0].ForecastedAt.Equal(base), "oldest entry first")
	assert.Equal(t, 20, history[0].Remaining)
	assert.Equal(t, "Feature F1", history[0].FeatureName)
	assert.Equal(t, simulation.KindWhen, history[0].Summary.Kind)
	assert.Equal(t, simulation.StatusOK, history[0].Summary.Status)
	assert.Equal(t, 50, history[0].Summary.Trials)
	assert.Equal(t, []simulation.Forecast{{Probability: 50, Value: 10}, {Probability: 85, Value: 10}}, history[0].Summary.Forecasts)
	assert.Equal(t, []simulation.Forecast{{Probability: 50, Value: 5}, {Probability: 85, Value: 5}}, history[1].Summary.Forecasts)

	stuck, err := store.History(ctx, "F3")
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, simulation.StatusInsufficientData, stuck[0].Summary.Status)
	assert.Equal(t, []string{"idle"}, stuck[0].Summary.IgnoredTeams)
	assert.Equal(t, simulation.NoForecast, stuck[0].Summary.Forecasts[0].Value)

	none, err := store.History(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteStore(t *testing.T) {
	store, err := Open(SQLiteBackend, ":memory:", testPercentiles)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	exerciseStore(t, store)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forecasts.db")
	ctx := context.Background()

	store, err := OpenSQL(SQLiteBackend, path, testPercentiles)
	require.NoError(t, err)
	require.NoError(t, store.ArchiveFeature(ctx, forecastFeature(t, "F1", 6, time.Now())))
	require.NoError(t, store.Close())

	reopened, err := OpenSQL(SQLiteBackend, path, testPercentiles)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	history, err := reopened.History(ctx, "F1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestJSONLStore(t *testing.T) {
	store, err := Open(JSONLBackend, filepath.Join(t.TempDir(), "archive", "forecasts.jsonl"), testPercentiles)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	exerciseStore(t, store)
}

func TestJSONLStore_ReloadSkipsCorruptLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forecasts.jsonl")
	ctx := context.Background()

	store, err := OpenJSONL(path, testPercentiles)
	require.NoError(t, err)
	require.NoError(t, store.ArchiveFeature(ctx, forecastFeature(t, "F1", 6, time.Now())))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, store.ArchiveFeature(ctx, forecastFeature(t, "F1", 4, time.Now())))

	reloaded, err := OpenJSONL(path, testPercentiles)
	require.NoError(t, err)
	history, err := reloaded.History(ctx, "F1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestJSONLStore_Compact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forecasts.jsonl")
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	store, err := OpenJSONL(path, testPercentiles)
	require.NoError(t, err)
	for i := range 5 {
		require.NoError(t, store.ArchiveFeature(ctx, forecastFeature(t, "F1", 10-i, base.AddDate(0, 0, i))))
	}
	require.NoError(t, store.ArchiveFeature(ctx, forecastFeature(t, "F2", 2, base)))

	require.NoError(t, store.Compact(2))

	reloaded, err := OpenJSONL(path, testPercentiles)
	require.NoError(t, err)

	f1, err := reloaded.History(ctx, "F1")
	require.NoError(t, err)
	require.Len(t, f1, 2)
	assert.Equal(t, 7, f1[0].Remaining)
	assert.Equal(t, 6, f1[1].Remaining)

	f2, err := reloaded.History(ctx, "F2")
	require.NoError(t, err)
	assert.Len(t, f2, 1)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")
}

func TestJSONLStore_FailedCompactKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forecasts.jsonl")
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	store, err := OpenJSONL(path, testPercentiles)
	require.NoError(t, err)
	for i := range 3 {
		require.NoError(t, store.ArchiveFeature(ctx, forecastFeature(t, "F1", 10-i, base.AddDate(0, 0, i))))
	}

	// A directory in place of the temp file makes the rewrite fail.
	require.NoError(t, os.Mkdir(path+".tmp", 0755))
	require.Error(t, store.Compact(1))

	history, err := store.History(ctx, "F1")
	require.NoError(t, err)
	assert.Len(t, history, 3)

	reloaded, err := OpenJSONL(path, testPercentiles)
	require.NoError(t, err)
	onDisk, err := reloaded.History(ctx, "F1")
	require.NoError(t, err)
	assert.Len(t, onDisk, 3)
}

func TestNoneStore(t *testing.T) {
	store, err := Open(NoneBackend, "", testPercentiles)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.ArchiveFeature(ctx, forecastFeature(t, "F1", 6, time.Now())))
	history, err := store.History(ctx, "F1")
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.NoError(t, store.Close())
}

func TestOpen_Rejects(t *testing.T) {
	_, err := Open("mongo", "", testPercentiles)
	assert.Error(t, err)

	_, err = Open(PostgresBackend, "", testPercentiles)
	assert.Error(t, err)

	_, err = Open(JSONLBackend, "", testPercentiles)
	assert.Error(t, err)
}

func TestNewEntry_RequiresForecast(t *testing.T) {
	_, err := NewEntry(&forecast.Feature{ID: "F1"}, testPercentiles)
	assert.Error(t, err)
}
