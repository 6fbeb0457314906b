package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"brokeometer/internal/backend"
	"brokeometer/internal/cli"
	"brokeometer/internal/insight"
	"brokeometer/internal/storage"
)

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Show the latest spending insight",
	RunE:  runShowInsights,
}

var refreshInsightsCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Generate a new insight now and show it",
	RunE:  runRefreshInsights,
}

func init() {
	insightsCmd.AddCommand(refreshInsightsCmd)
	rootCmd.AddCommand(insightsCmd)
}

func runShowInsights(_ *cobra.Command, _ []string) error {
	return withSession(func(ctx context.Context, s *session) error {
		r, err := insight.LatestResult(ctx, s.store)
		if errors.Is(err, storage.ErrNotFound) {
			fmt.Println()
			fmt.Println("  No insight generated yet. Run: brokectl insights refresh")
			fmt.Println()
			return nil
		}
		if err != nil {
			return err
		}
		printInsight(r)
		return nil
	})
}

// runRefreshInsights generates synchronously in this process, bypassing
// the queue, so the result can be printed.
func runRefreshInsights(_ *cobra.Command, _ []string) error {
	return withSession(func(ctx context.Context, s *session) error {
		if !s.cfg.InsightsEnabled() {
			return errors.New("insights are not configured: set GEMINI_API_KEY")
		}
		bcfg, err := backend.FromAppConfig(s.cfg)
		if err != nil {
			return err
		}
		gen, err := backend.NewFactory(s.logger, nil).CreateGenerator(ctx, bcfg)
		if err != nil {
			return err
		}

		fmt.Fprintln(os.Stderr, "  Generating insight...")
		r, err := insight.NewService(s.store, gen, s.logger).Refresh(ctx, "")
		if err != nil {
			return err
		}
		printInsight(r)
		return nil
	})
}

func printInsight(r insight.Result) {
	fmt.Println()
	fmt.Println(cli.RenderTitle("Insights for " + r.Period))
	fmt.Printf("  %s\n\n", cli.RenderMuted("generated "+humanize.Time(r.GeneratedAt)))

	sections := insight.Sections(r.Text)
	if len(sections) == 0 {
		fmt.Println("  " + r.Text)
		fmt.Println()
		return
	}
	for _, sec := range sections {
		if sec.Title != "" {
			fmt.Println(cli.RenderHeading(sec.Title))
		}
		fmt.Printf("  %s\n\n", sec.Body)
	}
}
