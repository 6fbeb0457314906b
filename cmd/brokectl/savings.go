package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"brokeometer/internal/cli"
	"brokeometer/internal/core"
)

var savingsCmd = &cobra.Command{
	Use:   "savings",
	Short: "Show accrued savings and the settled weeks",
	RunE:  runSavings,
}

var resetSavingsCmd = &cobra.Command{
	Use:   "reset",
	Short: "Set accrued savings back to zero",
	RunE:  runResetSavings,
}

func init() {
	savingsCmd.AddCommand(resetSavingsCmd)
	rootCmd.AddCommand(savingsCmd)
}

func runSavings(_ *cobra.Command, _ []string) error {
	return withSession(func(ctx context.Context, s *session) error {
		sv := s.tracker.SavingsHistory(ctx)

		fmt.Println()
		fmt.Print(cli.RenderField("Total saved", core.FormatAmount(sv.Total)))
		fmt.Println()
		if len(sv.Weeks) == 0 {
			fmt.Println("  No settled weeks yet.")
			fmt.Println()
			return nil
		}

		t := cli.Table{Title: "Past weeks", Headers: []string{"Week of", "Limit", "Spent", "Saved"}}
		for _, w := range sv.Weeks {
			t.Rows = append(t.Rows, []string{
				w.WeekStart,
				core.FormatAmount(w.Limit),
				core.FormatAmount(w.Spent),
				core.FormatAmount(w.Saved),
			})
		}
		fmt.Print(cli.RenderTable(t))
		fmt.Println()
		return nil
	})
}

func runResetSavings(_ *cobra.Command, _ []string) error {
	return withSession(func(ctx context.Context, s *session) error {
		if _, err := s.tracker.ResetSavings(ctx); err != nil {
			return err
		}
		fmt.Println("  Savings reset to " + core.FormatAmount(0))
		return nil
	})
}
