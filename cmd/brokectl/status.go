package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"brokeometer/internal/budget"
	"brokeometer/internal/cli"
	"brokeometer/internal/core"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show this week's and this month's spending",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	return withSession(func(ctx context.Context, s *session) error {
		snap := s.tracker.State(ctx)
		d := s.tracker.Dashboard(ctx)

		fmt.Println()
		fmt.Println(cli.RenderTitle("BROKE-O-METER"))
		fmt.Println()

		switch snap.Mode {
		case budget.ModeOnboarding:
			fmt.Println("  Nobody is logged in. Start with:")
			fmt.Println("    brokectl login --name \"Your Name\" --username you")
			fmt.Println()
			return nil
		case budget.ModeNeedsBudget:
			fmt.Printf("  Hi %s. No monthly limit is set yet:\n", snap.User.Name)
			fmt.Println("    brokectl limits set --monthly 8000 --weekly 2000")
			fmt.Println()
			return nil
		}

		fmt.Printf("  Hi %s\n\n", snap.User.Name)
		fmt.Print(cli.RenderField("Week of", d.WeekStart))
		fmt.Print(cli.RenderField("Weekly", usage(d.WeeklySpent, d.WeeklyLimit, d.WeeklyPercent)))
		fmt.Print(cli.RenderField("Weekly left", core.FormatAmount(d.WeeklyRemaining)))
		fmt.Print(cli.RenderField("Monthly", usage(d.MonthlySpent, d.MonthlyLimit, d.MonthlyPercent)))
		fmt.Print(cli.RenderField("Monthly left", core.FormatAmount(d.MonthlyRemaining)))
		fmt.Print(cli.RenderField("Savings", core.FormatAmount(d.Savings)))
		fmt.Println()

		switch {
		case d.Broke:
			fmt.Print(cli.RenderWarning("You are broke. The monthly limit is used up."))
		case d.LowBalance:
			fmt.Print(cli.RenderWarning("Survival funds running low."))
		}

		if cats := core.ByCategory(snap.Expenses); len(cats) > 0 {
			t := cli.Table{Title: "By category", Headers: []string{"Category", "Spent"}}
			for _, c := range cats {
				t.Rows = append(t.Rows, []string{string(c.Category), core.FormatAmount(c.Amount)})
			}
			fmt.Println()
			fmt.Print(cli.RenderTable(t))
		}
		fmt.Println()
		return nil
	})
}

func usage(spent, limit, percent float64) string {
	if limit == 0 {
		return core.FormatAmount(spent) + cli.RenderMuted(" (no limit)")
	}
	return fmt.Sprintf("%s of %s  %s", core.FormatAmount(spent), core.FormatAmount(limit), cli.RenderPercent(percent))
}
