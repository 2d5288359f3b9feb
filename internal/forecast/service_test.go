package forecast

import (
	"context"
	"errors"
	"testing"
	"time"

	"lighthouse/internal/random"
	"lighthouse/internal/simulation"
)

var fixedNow = time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC)

type recordingArchiver struct {
	archived []string
	fail     bool
}

func (a *recordingArchiver) ArchiveFeature(ctx context.Context, f *Feature) error {
	a.archived = append(a.archived, f.ID)
	if a.fail {
		return errors.New("archive unavailable")
	}
	return nil
}

func newTestService(t *testing.T, sc *Scenario, archiver Archiver) (*Service, *ScenarioRepository) {
	t.Helper()
	engine, err := simulation.NewEngine(simulation.Options{Trials: 200, DayCap: simulation.DefaultDayCap, Workers: 2, Random: random.NewFactory(9)})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	repo, err := NewScenarioRepository(sc)
	if err != nil {
		t.Fatalf("NewScenarioRepository failed: %v", err)
	}
	svc := NewService(engine, repo, repo, archiver)
	svc.now = func() time.Time { return fixedNow }
	return svc, repo
}

func twoFeatureScenario() *Scenario {
	return &Scenario{
		Teams: []Team{
			{ID: "t1", Name: "Team One", Throughput: []int{1}, FeatureWIP: 1},
			{ID: "t2", Name: "Team Two", Throughput: []int{1}, FeatureWIP: 1},
		},
		Features: []*Feature{
			{ID: "F2", Order: 2, ProjectIDs: []string{"p1"}, Remaining: map[string]int{"t1": 20}},
			{ID: "F1", Order: 1, ProjectIDs: []string{"p1"}, Remaining: map[string]int{"t1": 35}},
			{ID: "F3", Order: 3, ProjectIDs: []string{"p2"}, Remaining: map[string]int{"t2": 15}},
			{ID: "Done", Order: 0, ProjectIDs: []string{"p2"}, Remaining: map[string]int{"t2": 0}},
		},
	}
}

func TestService_UpdateAll_UsesFeatureOrder(t *testing.T) {
	archiver := &recordingArchiver{}
	svc, repo := newTestService(t, twoFeatureScenario(), archiver)

	updated, err := svc.UpdateAll(context.Background())
	if err != nil {
		t.Fatalf("UpdateAll failed: %v", err)
	}
	if len(updated) != 3 {
		t.Fatalf("Expected 3 features with remaining work, got %d", len(updated))
	}

	expected := map[string]int{"F1": 35, "F2": 55, "F3": 15}
	for _, f := range repo.Features() {
		want, ok := expected[f.ID]
		if !ok {
			if f.Forecast != nil {
				t.Errorf("Expected %s to be left alone", f.ID)
			}
			continue
		}
		if f.Forecast == nil {
			t.Fatalf("Expected a forecast for %s", f.ID)
		}
		if got := f.Forecast.Percentile(85); got != want {
			t.Errorf("%s: expected P85 %d, got %d", f.ID, want, got)
		}
		if !f.ForecastedAt.Equal(fixedNow) {
			t.Errorf("%s: expected ForecastedAt %v, got %v", f.ID, fixedNow, f.ForecastedAt)
		}
	}

	if len(archiver.archived) != 3 || archiver.archived[0] != "F1" || archiver.archived[1] != "F2" || archiver.archived[2] != "F3" {
		t.Errorf("Expected features archived in priority order, got %v", archiver.archived)
	}
}

func TestService_UpdateForProject(t *testing.T) {
	archiver := &recordingArchiver{}
	svc, repo := newTestService(t, twoFeatureScenario(), archiver)

	updated, err := svc.UpdateForProject(context.Background(), "p2")
	if err != nil {
		t.Fatalf("UpdateForProject failed: %v", err)
	}
	if len(updated) != 1 || updated[0].ID != "F3" {
		t.Fatalf("Expected only the open feature F3 of p2, got %d features", len(updated))
	}

	for _, f := range repo.Features() {
		switch f.ID {
		case "F3":
			if f.Forecast == nil || f.Forecast.Percentile(50) != 15 {
				t.Errorf("Expected F3 to be forecast at day 15")
			}
		default:
			if f.Forecast != nil {
				t.Errorf("Expected %s to be left alone", f.ID)
			}
		}
	}
	if len(archiver.archived) != 1 || archiver.archived[0] != "F3" {
		t.Errorf("Expected only F3 to be archived, got %v", archiver.archived)
	}
}

func TestService_ArchiveFailureIsNotFatal(t *testing.T) {
	archiver := &recordingArchiver{fail: true}
	svc, _ := newTestService(t, twoFeatureScenario(), archiver)

	if _, err := svc.UpdateAll(context.Background()); err != nil {
		t.Fatalf("Expected archive failures to be swallowed, got %v", err)
	}
	if len(archiver.archived) != 3 {
		t.Errorf("Expected every feature to be offered to the archive, got %v", archiver.archived)
	}
}

func TestService_UnknownTeam(t *testing.T) {
	sc := &Scenario{
		Features: []*Feature{{ID: "F1", Remaining: map[string]int{"ghost": 3}}},
	}
	svc, _ := newTestService(t, sc, nil)

	_, err := svc.UpdateAll(context.Background())
	if !errors.Is(err, ErrTeamNotFound) {
		t.Errorf("Expected ErrTeamNotFound, got %v", err)
	}
}

func TestService_InvalidSnapshotIsReported(t *testing.T) {
	sc := &Scenario{
		Teams:    []Team{{ID: "t1", Throughput: []int{1, -2}, FeatureWIP: 1}},
		Features: []*Feature{{ID: "F1", Remaining: map[string]int{"t1": 3}}},
	}
	svc, _ := newTestService(t, sc, nil)

	_, err := svc.UpdateAll(context.Background())
	if !errors.Is(err, simulation.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestNewScenarioRepository_RejectsDuplicateTeams(t *testing.T) {
	sc := &Scenario{Teams: []Team{{ID: "t1"}, {ID: "t1"}}}
	if _, err := NewScenarioRepository(sc); err == nil {
		t.Errorf("Expected duplicate teams to be rejected")
	}
}

func TestNewScenarioRepository_RejectsBrokenFeatures(t *testing.T) {
	tests := []struct {
		name     string
		features []*Feature
	}{
		{"NullFeature", []*Feature{{ID: "F1", Remaining: map[string]int{"t1": 1}}, nil}},
		{"MissingID", []*Feature{{Remaining: map[string]int{"t1": 1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := &Scenario{Teams: []Team{{ID: "t1", Throughput: []int{1}, FeatureWIP: 1}}, Features: tt.features}
			if _, err := NewScenarioRepository(sc); !errors.Is(err, simulation.ErrInvalidInput) {
				t.Errorf("Expected ErrInvalidInput, got %v", err)
			}
		})
	}
}
