package commands

import (
	"fmt"
	"time"

	"lighthouse/internal/forecast"

	"github.com/spf13/cobra"
)

var manualCmd = &cobra.Command{
	Use:   "manual",
	Short: "Forecast a team of a scenario: days for the remaining items and items until a target date",
	RunE: func(cmd *cobra.Command, args []string) error {
		ps, err := reportedPercentiles()
		if err != nil {
			return err
		}
		target, err := time.ParseInLocation(time.DateOnly, targetFlag, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --target date: %w", err)
		}

		sc, err := forecast.LoadScenario(scenarioFlag)
		if err != nil {
			return err
		}
		repo, err := forecast.NewScenarioRepository(sc)
		if err != nil {
			return err
		}

		res, err := forecast.NewService(engine, repo, repo, nil).Manual(cmd.Context(), teamFlag, remainingFlag, target)
		if err != nil {
			return err
		}

		when, howMany := res.When.Summarize(ps...), res.HowMany.Summarize(ps...)
		if asJSON {
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"team_id":     res.TeamID,
				"remaining":   res.Remaining,
				"target_date": res.TargetDate.Format(time.DateOnly),
				"days":        res.Days,
				"when":        when,
				"how_many":    howMany,
				"likelihood":  res.Likelihood,
			})
		}

		out := cmd.OutOrStdout()
		if err := printSummary(out, fmt.Sprintf("Days to finish %d items", res.Remaining), when); err != nil {
			return err
		}
		if err := printSummary(out, fmt.Sprintf("Items completed by %s (%d days)", targetFlag, res.Days), howMany); err != nil {
			return err
		}
		fmt.Fprintf(out, "Likelihood of finishing by %s: %s\n", targetFlag, likelihoodLabel(res.Likelihood))
		return nil
	},
}

func init() {
	manualCmd.Flags().StringVar(&scenarioFlag, "scenario", "", "scenario file containing the team")
	manualCmd.Flags().StringVar(&teamFlag, "team", "", "team to forecast")
	manualCmd.Flags().IntVarP(&remainingFlag, "remaining", "r", 0, "number of items left to do")
	manualCmd.Flags().StringVar(&targetFlag, "target", "", "target date (YYYY-MM-DD)")
	for _, name := range []string{"scenario", "team", "target"} {
		_ = manualCmd.MarkFlagRequired(name)
	}
	rootCmd.AddCommand(manualCmd)
}
