package commands

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"lighthouse/internal/archive"
	"lighthouse/internal/forecast"
	"lighthouse/internal/visuals"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	projectFlag   string
	noArchiveFlag bool
	outFlag       string
	openFlag      bool
	teamFlag      string
	scenarioFlag  string
	splitFlag     int
	trainingFlag  int
	horizonFlag   int
	compactFlag   int
)

var forecastCmd = &cobra.Command{
	Use:   "forecast <scenario.yaml|scenario.json>",
	Short: "Forecast every feature of a scenario file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ps, err := reportedPercentiles()
		if err != nil {
			return err
		}
		_, features, err := forecastScenario(cmd, args[0])
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), featureSummaries(features, ps))
		}
		return printFeatureTable(cmd.OutOrStdout(), features, ps)
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <scenario.yaml|scenario.json>",
	Short: "Forecast a scenario and write an HTML report with charts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ps, err := reportedPercentiles()
		if err != nil {
			return err
		}
		sc, features, err := forecastScenario(cmd, args[0])
		if err != nil {
			return err
		}

		title := sc.Name
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		}
		out := outFlag
		if out == "" {
			out = filepath.Join(cfg.DataPath, "reports", title+".html")
		}

		report := visuals.BuildReport(title, features, sc.Teams, ps, time.Now())
		if err := report.WriteFile(out); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote report to %s\n", out)

		if openFlag {
			if err := browser.OpenFile(out); err != nil {
				log.Warn().Err(err).Str("path", out).Msg("Failed to open report in browser")
			}
		}
		return nil
	},
}

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Check the forecast model against a team's own past throughput",
	RunE: func(cmd *cobra.Command, args []string) error {
		ps, err := reportedPercentiles()
		if err != nil {
			return err
		}

		var teams forecast.TeamProvider
		if scenarioFlag != "" {
			sc, err := forecast.LoadScenario(scenarioFlag)
			if err != nil {
				return err
			}
			repo, err := forecast.NewScenarioRepository(sc)
			if err != nil {
				return err
			}
			teams = repo
		}

		service := forecast.NewService(engine, nil, teams, nil)
		res, err := service.Backtest(cmd.Context(), forecast.BacktestRequest{
			TeamID:       teamFlag,
			Throughput:   throughputFlag,
			Split:        splitFlag,
			TrainingDays: trainingFlag,
			HorizonDays:  horizonFlag,
		}, ps...)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), res)
		}
		return printBacktest(cmd.OutOrStdout(), res)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <feature-id>",
	Short: "Show the archived forecasts of a feature",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if compactFlag > 0 {
			jsonl, ok := store.(*archive.JSONLStore)
			if !ok {
				return fmt.Errorf("--compact is only supported by the %s archive backend", archive.JSONLBackend)
			}
			if err := jsonl.Compact(compactFlag); err != nil {
				return err
			}
			if len(args) == 0 {
				return nil
			}
		}
		if len(args) == 0 {
			return fmt.Errorf("a feature ID is required")
		}

		entries, err := store.History(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), entries)
		}
		return printHistory(cmd.OutOrStdout(), entries)
	},
}

// forecastScenario loads a scenario file and forecasts its features,
// archiving the results unless --no-archive is set.
func forecastScenario(cmd *cobra.Command, path string) (*forecast.Scenario, []*forecast.Feature, error) {
	sc, err := forecast.LoadScenario(path)
	if err != nil {
		return nil, nil, err
	}
	repo, err := forecast.NewScenarioRepository(sc)
	if err != nil {
		return nil, nil, err
	}

	var archiver forecast.Archiver
	if !noArchiveFlag {
		archiver = store
	}
	service := forecast.NewService(engine, repo, repo, archiver)

	var features []*forecast.Feature
	if projectFlag != "" {
		features, err = service.UpdateForProject(cmd.Context(), projectFlag)
	} else {
		features, err = service.UpdateAll(cmd.Context())
	}
	if err != nil {
		return nil, nil, err
	}
	return sc, features, nil
}

func init() {
	for _, c := range []*cobra.Command{forecastCmd, reportCmd} {
		c.Flags().StringVar(&projectFlag, "project", "", "only forecast the features of this project")
		c.Flags().BoolVar(&noArchiveFlag, "no-archive", false, "do not keep the forecasts in the archive")
		rootCmd.AddCommand(c)
	}
	reportCmd.Flags().StringVarP(&outFlag, "out", "o", "", "report file (default DATA_PATH/reports/<name>.html)")
	reportCmd.Flags().BoolVar(&openFlag, "open", false, "open the report in the browser")

	backtestCmd.Flags().IntSliceVarP(&throughputFlag, "throughput", "t", nil, "daily completed item counts, oldest day first")
	backtestCmd.Flags().StringVar(&scenarioFlag, "scenario", "", "scenario file to take the team's history from")
	backtestCmd.Flags().StringVar(&teamFlag, "team", "", "team whose history is used when --throughput is not given")
	backtestCmd.Flags().IntVar(&splitFlag, "split", 0, "index of the day the forecast is made on")
	backtestCmd.Flags().IntVar(&trainingFlag, "training", 0, "days of history before the split to learn from (0 for all, up to 365)")
	backtestCmd.Flags().IntVar(&horizonFlag, "horizon", forecast.MinBacktestHorizon, "days after the split to forecast")
	_ = backtestCmd.MarkFlagRequired("split")
	rootCmd.AddCommand(backtestCmd)

	historyCmd.Flags().IntVar(&compactFlag, "compact", 0, "rewrite the archive keeping the newest N entries per feature")
	rootCmd.AddCommand(historyCmd)
}
