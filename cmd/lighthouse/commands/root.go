package commands

import (
	"fmt"
	"io"

	"lighthouse/internal/archive"
	"lighthouse/internal/config"
	"lighthouse/internal/logging"
	"lighthouse/internal/mcp"
	"lighthouse/internal/random"
	"lighthouse/internal/simulation"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose     bool
	asJSON      bool
	percentiles []int

	cfg     *config.AppConfig
	engine  *simulation.Engine
	store   archive.Store
	logFile io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "lighthouse",
	Short: "Lighthouse is a Monte-Carlo forecasting engine for teams and features",
	Long: `Lighthouse answers "how many items by then?" and "when will it be done?" from daily
throughput history, and forecasts whole feature portfolios where teams share their capacity.
Without a subcommand it runs as an MCP server on stdio.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Bootstrap(verbose)

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		logFile, err = logging.Init(cfg.Log, verbose)
		if err != nil {
			return err
		}

		engine, err = newEngine(cfg.Forecast)
		if err != nil {
			return err
		}

		store, err = archive.Open(archive.Backend(cfg.Archive.Backend), cfg.Archive.DSN, cfg.Forecast.Percentiles)
		if err != nil {
			return fmt.Errorf("failed to open forecast archive: %w", err)
		}

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Str("archive", cfg.Archive.Backend).
			Msg("Lighthouse starting")
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if store != nil {
			err = store.Close()
		}
		if logFile != nil {
			_ = logFile.Close()
		}
		return err
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		server := mcp.NewServer(engine, store, cfg.Forecast.Percentiles, cfg.EnableMermaidCharts)
		return server.Start(cmd.Context(), Version)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print results as JSON")
	rootCmd.PersistentFlags().IntSliceVarP(&percentiles, "percentiles", "p", nil, "confidence levels to report (default from FORECAST_PERCENTILES)")
}

func newEngine(fc config.ForecastConfig) (*simulation.Engine, error) {
	allocation, err := simulation.ParseAllocation(fc.Allocation)
	if err != nil {
		return nil, err
	}
	return simulation.NewEngine(simulation.Options{
		Trials:     fc.Trials,
		DayCap:     fc.DayCap,
		Workers:    fc.Workers,
		Allocation: allocation,
		Random:     random.NewFactory(fc.Seed),
	})
}

// reportedPercentiles returns the --percentiles flag or the configured levels.
func reportedPercentiles() ([]int, error) {
	if len(percentiles) == 0 {
		return cfg.Forecast.Percentiles, nil
	}
	for _, p := range percentiles {
		if p < 1 || p > 100 {
			return nil, fmt.Errorf("%w: percentile %d must be between 1 and 100", simulation.ErrInvalidInput, p)
		}
	}
	return percentiles, nil
}
