package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagConfig  string
	flagDryRun  bool
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "newsbrief",
	Short: "AI-curated RSS news digest generator",
	Long: `newsbrief fetches your RSS/Atom feeds, asks a language model which
articles match your topics, and renders the relevant ones into a daily
digest (Markdown + HTML), optionally delivered by email.

Designed to run once per scheduled trigger (cron, GitHub Actions); it keeps
no state between runs beyond the digest files and the optional seen-store.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagVerbose {
			log.SetLevel(log.DebugLevel)
		}
	},
	RunE: runPipeline,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "write digest files but skip email delivery")
	runCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "write digest files but skip email delivery")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one digest run (fetch, classify, render, deliver)",
	RunE:  runPipeline,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("newsbrief %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}
