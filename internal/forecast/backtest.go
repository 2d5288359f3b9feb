package forecast

import (
	"context"
	"fmt"

	"lighthouse/internal/simulation"
	"lighthouse/internal/throughput"

	"github.com/rs/zerolog/log"
)

const (
	// MinBacktestHorizon is the shortest forecast window worth validating.
	MinBacktestHorizon = 14
	// MaxTrainingDays bounds the history window fed into a backtest.
	MaxTrainingDays = 365
	// coneConfidence spans the band an actual value must fall into.
	coneConfidence = 95
)

// BacktestRequest describes a "how many" forecast made in the past.
// Throughput is the daily history, oldest first. The forecast is made at
// index Split from the TrainingDays before it and compared with what was
// actually delivered in the HorizonDays after it. When Throughput is empty
// the team's own history is used.
type BacktestRequest struct {
	TeamID       string
	Throughput   []int
	Split        int
	TrainingDays int // 0 uses everything before Split, capped at MaxTrainingDays
	HorizonDays  int
}

// BacktestResult compares the forecast with the actual outcome.
type BacktestResult struct {
	TeamID       string                   `json:"team_id,omitempty"`
	TrainingDays int                      `json:"training_days"`
	HorizonDays  int                      `json:"horizon_days"`
	Actual       int                      `json:"actual"`
	Forecast     *simulation.Distribution `json:"-"`
	Forecasts    []simulation.Forecast    `json:"forecasts"`
	// ActualLikelihood is the share of trials that delivered no more than Actual.
	ActualLikelihood float64 `json:"actual_likelihood"`
	// WithinCone is true when Actual lies inside the central 90% of outcomes.
	WithinCone bool `json:"within_cone"`
}

// Backtest validates the forecasting model against a team's own past.
func (s *Service) Backtest(ctx context.Context, req BacktestRequest, percentiles ...int) (*BacktestResult, error) {
	counts := req.Throughput
	if len(counts) == 0 {
		if req.TeamID == "" {
			return nil, fmt.Errorf("%w: backtest needs a team or a throughput history", simulation.ErrInvalidInput)
		}
		if s.teams == nil {
			return nil, fmt.Errorf("%w: looking up team %s needs a scenario", simulation.ErrInvalidInput, req.TeamID)
		}
		team, err := s.teams.Team(ctx, req.TeamID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve team %s: %w", req.TeamID, err)
		}
		counts = team.Throughput
	}

	full, err := throughput.NewHistory(counts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", simulation.ErrInvalidInput, err)
	}

	training, err := backtestWindow(full.Len(), req)
	if err != nil {
		return nil, err
	}

	trainingHistory := full.Window(req.Split-training, req.Split)
	actual := full.Window(req.Split, req.Split+req.HorizonDays).Total()

	log.Info().
		Str("team", req.TeamID).
		Int("training_days", training).
		Int("horizon_days", req.HorizonDays).
		Msg("Running forecast backtest")

	d, err := s.engine.HowMany(ctx, trainingHistory, req.HorizonDays)
	if err != nil {
		return nil, err
	}

	result := &BacktestResult{
		TeamID:       req.TeamID,
		TrainingDays: training,
		HorizonDays:  req.HorizonDays,
		Actual:       actual,
		Forecast:     d,
		Forecasts:    d.Forecasts(percentiles...),
	}
	if d.Err() == nil {
		result.ActualLikelihood = d.Likelihood(actual)
		result.WithinCone = actual >= d.AtLeast(coneConfidence) && actual <= d.Percentile(coneConfidence)
	}
	return result, nil
}

// backtestWindow validates the request and returns the effective training length.
func backtestWindow(length int, req BacktestRequest) (int, error) {
	if req.HorizonDays < MinBacktestHorizon {
		return 0, fmt.Errorf("%w: backtest horizon must be at least %d days, got %d", simulation.ErrInvalidInput, MinBacktestHorizon, req.HorizonDays)
	}
	if req.Split <= 0 || req.Split+req.HorizonDays > length {
		return 0, fmt.Errorf("%w: split %d with a %d day horizon does not fit a %d day history", simulation.ErrInvalidInput, req.Split, req.HorizonDays, length)
	}
	if req.TrainingDays < 0 || req.TrainingDays > MaxTrainingDays {
		return 0, fmt.Errorf("%w: training window must be between 1 and %d days, got %d", simulation.ErrInvalidInput, MaxTrainingDays, req.TrainingDays)
	}

	training := req.TrainingDays
	if training == 0 {
		training = min(req.Split, MaxTrainingDays)
	}
	if training > req.Split {
		return 0, fmt.Errorf("%w: training window of %d days exceeds the %d days before the split", simulation.ErrInvalidInput, training, req.Split)
	}
	return training, nil
}
