package forecast

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"lighthouse/internal/simulation"

	"github.com/rs/zerolog/log"
)

// Service recomputes feature forecasts.
type Service struct {
	engine   *simulation.Engine
	features FeatureRepository
	teams    TeamProvider
	archiver Archiver
	now      func() time.Time
}

// NewService wires a Service. A nil archiver disables archiving.
func NewService(engine *simulation.Engine, features FeatureRepository, teams TeamProvider, archiver Archiver) *Service {
	return &Service{
		engine:   engine,
		features: features,
		teams:    teams,
		archiver: archiver,
		now:      time.Now,
	}
}

// Engine returns the simulation engine the service runs on.
func (s *Service) Engine() *simulation.Engine { return s.engine }

// UpdateAll forecasts every feature that still has remaining work.
func (s *Service) UpdateAll(ctx context.Context) ([]*Feature, error) {
	features, err := s.features.FeaturesWithRemainingWork(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load features: %w", err)
	}
	log.Info().Int("features", len(features)).Msg("Updating forecasts for all features")
	return s.update(ctx, features)
}

// UpdateForProject forecasts the features of a single project.
func (s *Service) UpdateForProject(ctx context.Context, projectID string) ([]*Feature, error) {
	features, err := s.features.FeaturesForProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load features for project %s: %w", projectID, err)
	}
	log.Info().Str("project", projectID).Int("features", len(features)).Msg("Updating forecasts for project")
	return s.update(ctx, features)
}

func (s *Service) update(ctx context.Context, features []*Feature) ([]*Feature, error) {
	if len(features) == 0 {
		return features, nil
	}

	ordered := slices.Clone(features)
	slices.SortStableFunc(ordered, func(a, b *Feature) int {
		return cmp.Or(cmp.Compare(a.Order, b.Order), cmp.Compare(a.ID, b.ID))
	})

	inputs, err := s.snapshot(ctx, ordered)
	if err != nil {
		return nil, err
	}

	results, err := s.engine.ForecastFeatures(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to forecast features: %w", err)
	}

	now := s.now()
	for _, f := range ordered {
		f.Forecast = results[f.ID]
		f.ForecastedAt = now
	}

	if err := s.features.Save(ctx, ordered); err != nil {
		return nil, fmt.Errorf("failed to save forecasts: %w", err)
	}

	if s.archiver != nil {
		for _, f := range ordered {
			if err := s.archiver.ArchiveFeature(ctx, f); err != nil {
				log.Warn().Err(err).Str("feature", f.ID).Msg("Failed to archive feature forecast")
			}
		}
	}

	return ordered, nil
}

// snapshot resolves each team once and builds the simulation inputs.
func (s *Service) snapshot(ctx context.Context, features []*Feature) ([]simulation.FeatureInput, error) {
	teams := make(map[string]Team)
	inputs := make([]simulation.FeatureInput, 0, len(features))

	for _, f := range features {
		in := simulation.FeatureInput{
			ID:             f.ID,
			Remaining:      maps.Clone(f.Remaining),
			TeamFeatureWIP: make(map[string]int),
			TeamThroughput: make(map[string][]int),
			TeamCapacity:   make(map[string]int),
		}
		for teamID, r := range f.Remaining {
			if r == 0 {
				continue
			}
			team, ok := teams[teamID]
			if !ok {
				var err error
				team, err = s.teams.Team(ctx, teamID)
				if err != nil {
					return nil, fmt.Errorf("failed to resolve team %s for feature %s: %w", teamID, f.ID, err)
				}
				teams[teamID] = team
			}
			in.TeamFeatureWIP[teamID] = team.FeatureWIP
			in.TeamThroughput[teamID] = team.Throughput
			in.TeamCapacity[teamID] = team.DailyCapacity
		}
		inputs = append(inputs, in)
	}

	return inputs, nil
}
