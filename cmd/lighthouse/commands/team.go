package commands

import (
	"fmt"
	"time"

	"lighthouse/internal/forecast"
	"lighthouse/internal/throughput"

	"github.com/spf13/cobra"
)

var (
	throughputFlag []int
	daysFlag       int
	remainingFlag  int
	targetFlag     string
)

var howManyCmd = &cobra.Command{
	Use:   "howmany",
	Short: "Forecast how many items a team completes within a number of days",
	RunE: func(cmd *cobra.Command, args []string) error {
		ps, err := reportedPercentiles()
		if err != nil {
			return err
		}
		history, err := throughput.NewHistory(throughputFlag)
		if err != nil {
			return err
		}
		d, err := engine.HowMany(cmd.Context(), history, daysFlag)
		if err != nil {
			return err
		}
		summary := d.Summarize(ps...)
		if asJSON {
			return printJSON(cmd.OutOrStdout(), summary)
		}
		return printSummary(cmd.OutOrStdout(), fmt.Sprintf("Items completed in %d days", daysFlag), summary)
	},
}

var whenCmd = &cobra.Command{
	Use:   "when",
	Short: "Forecast how many days a team needs for the remaining items",
	RunE: func(cmd *cobra.Command, args []string) error {
		ps, err := reportedPercentiles()
		if err != nil {
			return err
		}
		history, err := throughput.NewHistory(throughputFlag)
		if err != nil {
			return err
		}
		d, err := engine.When(cmd.Context(), history, remainingFlag)
		if err != nil {
			return err
		}
		summary := d.Summarize(ps...)

		var likelihood *float64
		if targetFlag != "" {
			target, err := time.Parse(time.DateOnly, targetFlag)
			if err != nil {
				return fmt.Errorf("invalid --target date: %w", err)
			}
			days := forecast.DaysBetween(time.Now(), target)
			if days < 0 {
				return fmt.Errorf("--target %s is in the past", targetFlag)
			}
			l := d.Likelihood(days)
			likelihood = &l
		}

		if asJSON {
			return printJSON(cmd.OutOrStdout(), struct {
				Summary    any      `json:"summary"`
				Likelihood *float64 `json:"likelihood,omitempty"`
			}{summary, likelihood})
		}
		if err := printSummary(cmd.OutOrStdout(), fmt.Sprintf("Days to finish %d items", remainingFlag), summary); err != nil {
			return err
		}
		if likelihood != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Likelihood of finishing by %s: %s\n", targetFlag, likelihoodLabel(*likelihood))
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{howManyCmd, whenCmd} {
		c.Flags().IntSliceVarP(&throughputFlag, "throughput", "t", nil, "daily completed item counts, oldest day first")
		_ = c.MarkFlagRequired("throughput")
		rootCmd.AddCommand(c)
	}
	howManyCmd.Flags().IntVarP(&daysFlag, "days", "d", 14, "number of days to forecast")
	whenCmd.Flags().IntVarP(&remainingFlag, "remaining", "r", 0, "number of items left to do")
	whenCmd.Flags().StringVar(&targetFlag, "target", "", "target date (YYYY-MM-DD) to compute the likelihood of finishing by")
	_ = whenCmd.MarkFlagRequired("remaining")
}
