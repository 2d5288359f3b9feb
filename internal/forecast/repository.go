package forecast

import (
	"context"
	"fmt"
	"sync"

	"lighthouse/internal/simulation"
)

// ScenarioRepository serves a Scenario as both FeatureRepository and
// TeamProvider. Saved forecasts stay in memory.
type ScenarioRepository struct {
	mu       sync.RWMutex
	teams    map[string]Team
	features []*Feature
}

// NewScenarioRepository indexes the scenario's teams. Duplicate team IDs,
// null features and features without an ID are rejected.
func NewScenarioRepository(sc *Scenario) (*ScenarioRepository, error) {
	if sc == nil {
		return nil, fmt.Errorf("%w: no scenario", simulation.ErrInvalidInput)
	}
	for i, f := range sc.Features {
		if f == nil {
			return nil, fmt.Errorf("%w: feature %d is null", simulation.ErrInvalidInput, i)
		}
		if f.ID == "" {
			return nil, fmt.Errorf("%w: feature %d has no ID", simulation.ErrInvalidInput, i)
		}
	}
	r := &ScenarioRepository{teams: make(map[string]Team, len(sc.Teams))}
	for _, t := range sc.Teams {
		if _, dup := r.teams[t.ID]; dup {
			return nil, fmt.Errorf("duplicate team %q in scenario", t.ID)
		}
		r.teams[t.ID] = t
	}
	r.features = append(r.features, sc.Features...)
	return r, nil
}

func (r *ScenarioRepository) FeaturesWithRemainingWork(ctx context.Context) ([]*Feature, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Feature
	for _, f := range r.features {
		if f.TotalRemaining() > 0 {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *ScenarioRepository) FeaturesForProject(ctx context.Context, projectID string) ([]*Feature, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Feature
	for _, f := range r.features {
		if f.InProject(projectID) && f.TotalRemaining() > 0 {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *ScenarioRepository) Save(ctx context.Context, features []*Feature) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	index := make(map[string]int, len(r.features))
	for i, f := range r.features {
		index[f.ID] = i
	}
	for _, f := range features {
		if i, ok := index[f.ID]; ok {
			r.features[i] = f
			continue
		}
		r.features = append(r.features, f)
	}
	return nil
}

func (r *ScenarioRepository) Team(ctx context.Context, id string) (Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.teams[id]
	if !ok {
		return Team{}, fmt.Errorf("%w: %s", ErrTeamNotFound, id)
	}
	return t, nil
}

// Features returns every feature in scenario order.
func (r *ScenarioRepository) Features() []*Feature {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Feature(nil), r.features...)
}
