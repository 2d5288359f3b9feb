package mcp

import (
	"context"
	"fmt"

	"lighthouse/internal/forecast"
	"lighthouse/internal/simulation"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// ResponseEnvelope wraps every tool result with optional warnings and charts.
type ResponseEnvelope[T any] struct {
	Data     T        `json:"data"`
	Warnings []string `json:"warnings,omitempty"`
	Charts   []string `json:"charts,omitempty"`
}

type HowManyInput struct {
	Throughput  []int `json:"throughput" jsonschema:"daily completed item counts, oldest day first"`
	Days        int   `json:"days" jsonschema:"number of days to forecast"`
	Percentiles []int `json:"percentiles,omitempty" jsonschema:"confidence levels to report, defaults to the configured ones"`
}

type WhenInput struct {
	Throughput  []int  `json:"throughput" jsonschema:"daily completed item counts, oldest day first"`
	Remaining   int    `json:"remaining" jsonschema:"number of items left to do"`
	TargetDate  string `json:"target_date,omitempty" jsonschema:"optional YYYY-MM-DD date to compute the likelihood of finishing by"`
	Percentiles []int  `json:"percentiles,omitempty" jsonschema:"confidence levels to report, defaults to the configured ones"`
}

type WhenOutput struct {
	Summary    simulation.Summary `json:"summary"`
	TargetDays int                `json:"target_days,omitempty"`
	Likelihood *float64           `json:"likelihood,omitempty"`
}

type FeaturesInput struct {
	Teams       []forecast.Team     `json:"teams" jsonschema:"teams with their throughput history and feature WIP limit"`
	Features    []*forecast.Feature `json:"features" jsonschema:"features in priority order with remaining items per team"`
	ProjectID   string              `json:"project_id,omitempty" jsonschema:"only forecast the features of this project"`
	Percentiles []int               `json:"percentiles,omitempty" jsonschema:"confidence levels to report, defaults to the configured ones"`
	Archive     bool                `json:"archive,omitempty" jsonschema:"keep the forecasts in the forecast history"`
}

type FeatureForecast struct {
	ID        string             `json:"id"`
	Name      string             `json:"name,omitempty"`
	Remaining int                `json:"remaining"`
	Summary   simulation.Summary `json:"summary"`
}

type FeaturesOutput struct {
	Features []FeatureForecast `json:"features"`
}

type BacktestInput struct {
	Throughput   []int `json:"throughput" jsonschema:"daily completed item counts, oldest day first"`
	Split        int   `json:"split" jsonschema:"index of the day the forecast is made on"`
	TrainingDays int   `json:"training_days,omitempty" jsonschema:"days before the split used as history, 0 for all"`
	HorizonDays  int   `json:"horizon_days" jsonschema:"days after the split to forecast, at least 14"`
	Percentiles  []int `json:"percentiles,omitempty" jsonschema:"confidence levels to report, defaults to the configured ones"`
}

type HistoryInput struct {
	FeatureID string `json:"feature_id" jsonschema:"feature to read the forecast history of"`
}

type HistoryPoint struct {
	ForecastedAt string                `json:"forecasted_at"`
	Remaining    int                   `json:"remaining"`
	Status       string                `json:"status"`
	Forecasts    []simulation.Forecast `json:"forecasts"`
}

type HistoryOutput struct {
	FeatureID string         `json:"feature_id"`
	Entries   []HistoryPoint `json:"entries"`
}

func (s *Server) registerTools(server *sdk.Server) {
	sdk.AddTool(server, &sdk.Tool{
		Name:        "forecast_how_many",
		Description: "Monte-Carlo forecast of how many items a team completes within a number of days, read at each confidence level.",
	}, logged("forecast_how_many", s.handleHowMany))

	sdk.AddTool(server, &sdk.Tool{
		Name:        "forecast_when",
		Description: "Monte-Carlo forecast of how many days a team needs to finish the remaining items, optionally with the likelihood of meeting a target date.",
	}, logged("forecast_when", s.handleWhen))

	sdk.AddTool(server, &sdk.Tool{
		Name:        "forecast_features",
		Description: "Joint forecast of features sharing teams. Teams work on at most feature_wip features at once, in priority order.",
	}, logged("forecast_features", s.handleFeatures))

	sdk.AddTool(server, &sdk.Tool{
		Name:        "forecast_backtest",
		Description: "Validates the forecast model: forecasts from history before a split day and compares with what was delivered after it.",
	}, logged("forecast_backtest", s.handleBacktest))

	sdk.AddTool(server, &sdk.Tool{
		Name:        "forecast_history",
		Description: "Reads the archived forecasts of a feature, oldest first.",
	}, logged("forecast_history", s.handleHistory))
}

// logged adds request logging around a tool handler.
func logged[In, Out any](name string, h sdk.ToolHandlerFor[In, Out]) sdk.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, req *sdk.CallToolRequest, in In) (*sdk.CallToolResult, Out, error) {
		log.Info().Str("tool", name).Msg("Tool call")
		res, out, err := h(ctx, req, in)
		if err != nil {
			log.Warn().Err(err).Str("tool", name).Msg("Tool call failed")
		}
		return res, out, err
	}
}

func validatePercentiles(ps []int) error {
	for _, p := range ps {
		if p < 1 || p > 100 {
			return fmt.Errorf("%w: percentile %d must be between 1 and 100", simulation.ErrInvalidInput, p)
		}
	}
	return nil
}
