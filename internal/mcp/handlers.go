package mcp

import (
	"context"
	"fmt"
	"time"

	"lighthouse/internal/forecast"
	"lighthouse/internal/simulation"
	"lighthouse/internal/throughput"
	"lighthouse/internal/visuals"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) handleHowMany(ctx context.Context, _ *sdk.CallToolRequest, in HowManyInput) (*sdk.CallToolResult, ResponseEnvelope[simulation.Summary], error) {
	var env ResponseEnvelope[simulation.Summary]
	percentiles := s.resolvePercentiles(in.Percentiles)
	if err := validatePercentiles(percentiles); err != nil {
		return nil, env, err
	}

	history, err := throughput.NewHistory(in.Throughput)
	if err != nil {
		return nil, env, fmt.Errorf("%w: %v", simulation.ErrInvalidInput, err)
	}
	d, err := s.engine.HowMany(ctx, history, in.Days)
	if err != nil {
		return nil, env, err
	}

	env.Data = d.Summarize(percentiles...)
	env.Warnings = distributionWarnings(d)
	if volatility := history.FatTail(); history.Len() > 0 && volatility >= throughput.FatTailThreshold {
		env.Warnings = append(env.Warnings, fmt.Sprintf("Throughput is highly volatile (P98/P50 = %.1f); treat the forecast with care.", volatility))
	}
	if s.enableMermaidCharts {
		env.Charts = nonEmpty(visuals.GenerateConfidenceChart(d, percentiles), visuals.GenerateThroughputChart(in.Throughput))
	}
	return nil, env, nil
}

func (s *Server) handleWhen(ctx context.Context, _ *sdk.CallToolRequest, in WhenInput) (*sdk.CallToolResult, ResponseEnvelope[WhenOutput], error) {
	var env ResponseEnvelope[WhenOutput]
	percentiles := s.resolvePercentiles(in.Percentiles)
	if err := validatePercentiles(percentiles); err != nil {
		return nil, env, err
	}

	history, err := throughput.NewHistory(in.Throughput)
	if err != nil {
		return nil, env, fmt.Errorf("%w: %v", simulation.ErrInvalidInput, err)
	}
	d, err := s.engine.When(ctx, history, in.Remaining)
	if err != nil {
		return nil, env, err
	}

	env.Data.Summary = d.Summarize(percentiles...)
	if in.TargetDate != "" {
		target, err := time.Parse(time.DateOnly, in.TargetDate)
		if err != nil {
			return nil, env, fmt.Errorf("%w: invalid target_date format: %v", simulation.ErrInvalidInput, err)
		}
		days := forecast.DaysBetween(s.now(), target)
		if days < 0 {
			return nil, env, fmt.Errorf("%w: target_date must not be in the past", simulation.ErrInvalidInput)
		}
		likelihood := d.Likelihood(days)
		env.Data.TargetDays = days
		env.Data.Likelihood = &likelihood
	}
	env.Warnings = distributionWarnings(d)
	if s.enableMermaidCharts {
		env.Charts = nonEmpty(visuals.GenerateConfidenceChart(d, percentiles), visuals.GenerateDistributionChart(d))
	}
	return nil, env, nil
}

func (s *Server) handleFeatures(ctx context.Context, _ *sdk.CallToolRequest, in FeaturesInput) (*sdk.CallToolResult, ResponseEnvelope[FeaturesOutput], error) {
	var env ResponseEnvelope[FeaturesOutput]
	percentiles := s.resolvePercentiles(in.Percentiles)
	if err := validatePercentiles(percentiles); err != nil {
		return nil, env, err
	}

	repo, err := forecast.NewScenarioRepository(&forecast.Scenario{Teams: in.Teams, Features: in.Features})
	if err != nil {
		return nil, env, err
	}

	var archiver forecast.Archiver
	if in.Archive && s.archive != nil {
		archiver = s.archive
	}
	service := forecast.NewService(s.engine, repo, repo, archiver)

	var updated []*forecast.Feature
	if in.ProjectID != "" {
		updated, err = service.UpdateForProject(ctx, in.ProjectID)
	} else {
		updated, err = service.UpdateAll(ctx)
	}
	if err != nil {
		return nil, env, err
	}

	env.Data.Features = make([]FeatureForecast, 0, len(updated))
	var names []string
	var dists []*simulation.Distribution
	for _, f := range updated {
		env.Data.Features = append(env.Data.Features, FeatureForecast{
			ID:        f.ID,
			Name:      f.Name,
			Remaining: f.TotalRemaining(),
			Summary:   f.Forecast.Summarize(percentiles...),
		})
		for _, w := range distributionWarnings(f.Forecast) {
			env.Warnings = append(env.Warnings, fmt.Sprintf("%s: %s", f.ID, w))
		}
		names = append(names, f.ID)
		dists = append(dists, f.Forecast)
	}
	if s.enableMermaidCharts && len(percentiles) > 0 {
		env.Charts = nonEmpty(visuals.GenerateFeatureChart(names, dists, percentiles[len(percentiles)-1]))
	}
	return nil, env, nil
}

func (s *Server) handleBacktest(ctx context.Context, _ *sdk.CallToolRequest, in BacktestInput) (*sdk.CallToolResult, ResponseEnvelope[forecast.BacktestResult], error) {
	var env ResponseEnvelope[forecast.BacktestResult]
	percentiles := s.resolvePercentiles(in.Percentiles)
	if err := validatePercentiles(percentiles); err != nil {
		return nil, env, err
	}

	service := forecast.NewService(s.engine, nil, nil, nil)
	res, err := service.Backtest(ctx, forecast.BacktestRequest{
		Throughput:   in.Throughput,
		Split:        in.Split,
		TrainingDays: in.TrainingDays,
		HorizonDays:  in.HorizonDays,
	}, percentiles...)
	if err != nil {
		return nil, env, err
	}

	env.Data = *res
	env.Warnings = distributionWarnings(res.Forecast)
	if res.Forecast.Err() == nil && !res.WithinCone {
		env.Warnings = append(env.Warnings, "The actual outcome fell outside the central 90% of the forecast; the process may have changed since the split.")
	}
	if s.enableMermaidCharts {
		env.Charts = nonEmpty(visuals.GenerateDistributionChart(res.Forecast))
	}
	return nil, env, nil
}

func (s *Server) handleHistory(ctx context.Context, _ *sdk.CallToolRequest, in HistoryInput) (*sdk.CallToolResult, ResponseEnvelope[HistoryOutput], error) {
	var env ResponseEnvelope[HistoryOutput]
	if in.FeatureID == "" {
		return nil, env, fmt.Errorf("%w: feature_id is required", simulation.ErrInvalidInput)
	}
	if s.archive == nil {
		return nil, env, fmt.Errorf("forecast archive is disabled")
	}

	entries, err := s.archive.History(ctx, in.FeatureID)
	if err != nil {
		return nil, env, err
	}

	env.Data.FeatureID = in.FeatureID
	env.Data.Entries = make([]HistoryPoint, 0, len(entries))
	var labels []string
	var values []int
	for _, e := range entries {
		env.Data.Entries = append(env.Data.Entries, HistoryPoint{
			ForecastedAt: e.ForecastedAt.Format(time.RFC3339),
			Remaining:    e.Remaining,
			Status:       e.Summary.Status,
			Forecasts:    e.Summary.Forecasts,
		})
		if n := len(e.Summary.Forecasts); n > 0 && e.Summary.Forecasts[n-1].Value != simulation.NoForecast {
			labels = append(labels, e.ForecastedAt.Format("Jan02"))
			values = append(values, e.Summary.Forecasts[n-1].Value)
		}
	}
	if len(entries) == 0 {
		env.Warnings = append(env.Warnings, "No archived forecasts for this feature.")
	}
	if s.enableMermaidCharts {
		env.Charts = nonEmpty(visuals.GenerateTrendChart("Forecast trend of "+in.FeatureID, labels, values))
	}
	return nil, env, nil
}

// distributionWarnings explains distributions that are not a plain forecast.
func distributionWarnings(d *simulation.Distribution) []string {
	if d == nil {
		return nil
	}
	var warnings []string
	if d.Err() != nil {
		warnings = append(warnings, "Not enough throughput data to forecast: the team delivered nothing in the history window or cannot take on work.")
	}
	if c := d.Censored(); c > 0 {
		warnings = append(warnings, fmt.Sprintf("%d of %d trials hit the day cap; the forecast is a lower bound.", c, d.Trials()))
	}
	if ignored := d.IgnoredTeams(); len(ignored) > 0 {
		warnings = append(warnings, fmt.Sprintf("Remaining work of teams %v was ignored because they cannot make progress.", ignored))
	}
	return warnings
}

func nonEmpty(charts ...string) []string {
	var out []string
	for _, c := range charts {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}
