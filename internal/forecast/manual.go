package forecast

import (
	"context"
	"fmt"
	"time"

	"lighthouse/internal/simulation"

	"github.com/rs/zerolog/log"
)

// ManualForecast answers both questions for one team at once: when will the
// remaining items be done, and how many items fit until the target date.
type ManualForecast struct {
	TeamID     string
	Remaining  int
	TargetDate time.Time
	Days       int // whole days from today to TargetDate
	When       *simulation.Distribution
	HowMany    *simulation.Distribution
	// Likelihood is the percentage of trials finishing Remaining items by
	// TargetDate. It is 0 when no items remain or the team cannot deliver.
	Likelihood float64
}

// Manual runs an ad-hoc forecast for a team.
func (s *Service) Manual(ctx context.Context, teamID string, remaining int, targetDate time.Time) (*ManualForecast, error) {
	if s.teams == nil {
		return nil, fmt.Errorf("%w: looking up team %s needs a scenario", simulation.ErrInvalidInput, teamID)
	}
	team, err := s.teams.Team(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve team %s: %w", teamID, err)
	}
	history, err := team.History()
	if err != nil {
		return nil, fmt.Errorf("%w: team %s: %v", simulation.ErrInvalidInput, teamID, err)
	}

	days := DaysBetween(s.now(), targetDate)
	if days < 0 {
		return nil, fmt.Errorf("%w: target date %s is in the past", simulation.ErrInvalidInput, targetDate.Format(time.DateOnly))
	}

	log.Info().Str("team", teamID).Int("remaining", remaining).Int("days", days).Msg("Running manual forecast")

	when, err := s.engine.When(ctx, history, remaining)
	if err != nil {
		return nil, err
	}
	howMany, err := s.engine.HowMany(ctx, history, days)
	if err != nil {
		return nil, err
	}

	result := &ManualForecast{
		TeamID:     teamID,
		Remaining:  remaining,
		TargetDate: targetDate,
		Days:       days,
		When:       when,
		HowMany:    howMany,
	}
	if remaining > 0 {
		result.Likelihood = when.Likelihood(days)
	}
	return result, nil
}

// DaysBetween counts calendar days from the date of from to the date of to.
func DaysBetween(from, to time.Time) int {
	y1, m1, d1 := from.Date()
	y2, m2, d2 := to.Date()
	a := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	b := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
