package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"brokeometer/internal/cli"
	"brokeometer/internal/core"
)

var (
	flagMonthly string
	flagWeekly  string
)

var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Show the monthly and weekly limits",
	RunE:  runShowLimits,
}

var setLimitsCmd = &cobra.Command{
	Use:   "set",
	Short: "Change the limits. Savings and past weeks are kept.",
	Long: "Change the monthly and/or weekly limit. A flag that is not given keeps " +
		"its current value; an empty value clears the limit.",
	RunE: runSetLimits,
}

func init() {
	setLimitsCmd.Flags().StringVar(&flagMonthly, "monthly", "", "Monthly limit")
	setLimitsCmd.Flags().StringVar(&flagWeekly, "weekly", "", "Weekly limit")

	limitsCmd.AddCommand(setLimitsCmd)
	rootCmd.AddCommand(limitsCmd)
}

func runShowLimits(_ *cobra.Command, _ []string) error {
	return withSession(func(ctx context.Context, s *session) error {
		b := s.tracker.State(ctx).Budget
		fmt.Println()
		fmt.Print(cli.RenderField("Monthly limit", limitText(b.MonthlyLimit)))
		fmt.Print(cli.RenderField("Weekly limit", limitText(b.WeeklyLimit)))
		fmt.Print(cli.RenderField("Current week", b.CurrentWeekStart))
		fmt.Println()
		return nil
	})
}

func runSetLimits(cmd *cobra.Command, _ []string) error {
	monthlySet := cmd.Flags().Changed("monthly")
	weeklySet := cmd.Flags().Changed("weekly")
	if !monthlySet && !weeklySet {
		return errors.New("nothing to change: pass --monthly and/or --weekly")
	}

	return withSession(func(ctx context.Context, s *session) error {
		b := s.tracker.State(ctx).Budget
		monthly, weekly := b.MonthlyLimit, b.WeeklyLimit

		var err error
		if monthlySet {
			if monthly, err = core.ParseLimit(flagMonthly); err != nil {
				return fmt.Errorf("--monthly: %w", err)
			}
		}
		if weeklySet {
			if weekly, err = core.ParseLimit(flagWeekly); err != nil {
				return fmt.Errorf("--weekly: %w", err)
			}
		}

		updated, err := s.tracker.UpdateLimits(ctx, monthly, weekly)
		if err != nil {
			return err
		}
		fmt.Printf("  Limits updated: %s a month, %s a week\n", limitText(updated.MonthlyLimit), limitText(updated.WeeklyLimit))
		return nil
	})
}

func limitText(v float64) string {
	if v == 0 {
		return "not set"
	}
	return core.FormatAmount(v)
}
