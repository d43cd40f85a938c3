package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matheuskafuri/newsbrief/internal/config"
	"github.com/matheuskafuri/newsbrief/internal/feed"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify every configured feed is reachable and parseable",
	Long: `Fetch and parse each feed in the feed list, applying any configured
credentials, and report per-feed status. Exits non-zero if any feed fails,
so it can gate a scheduled pipeline.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		creds, err := feed.LoadCredentials(cfg.Paths.Credentials)
		if err != nil {
			return err
		}

		urls, err := feed.LoadList(cfg.Paths.Feeds)
		if err != nil {
			return err
		}
		if len(urls) == 0 {
			return fmt.Errorf("feed list %s contains no feeds", cfg.Paths.Feeds)
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		fmt.Printf("Checking %d feed(s)\n\n", len(urls))

		fetcher := feed.NewFetcher(creds, cfg.Limits.ArticlesPerFeed, 0)
		var failures, warnings int
		for i, u := range urls {
			fmt.Printf("[%d/%d] %s\n", i+1, len(urls), dimStyle.Render(u))
			title, entries, err := fetcher.Check(ctx, u)
			switch {
			case err != nil:
				failures++
				fmt.Printf("  %s %v\n", errStyle.Render("✗"), err)
			case entries == 0:
				warnings++
				fmt.Printf("  %s %s: feed has no entries\n", warnStyle.Render("⚠"), title)
			default:
				fmt.Printf("  %s %s (%d entries)\n", okStyle.Render("✓"), title, entries)
			}
		}

		fmt.Printf("\n%d ok, %d warnings, %d failures\n",
			len(urls)-failures-warnings, warnings, failures)

		if failures > 0 {
			return fmt.Errorf("%d feed(s) failed", failures)
		}
		return nil
	},
}
