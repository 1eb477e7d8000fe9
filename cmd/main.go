package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "launchpad",
	Short: "launchpad - scheduled publishing and AI generation jobs",
	Long: `launchpad runs the job dispatch service of the token launch platform.

Available commands:
  serve   - HTTP API, task workers and cron sweepers
  worker  - task workers only
  sweep   - one due-schedule scan and retention pass, then exit
  migrate - create the schema and seed the default AI agents

Examples:
  launchpad migrate
  launchpad serve
  launchpad worker --workers 8
  launchpad sweep --retention=false`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "launchpad: %v\n", err)
		os.Exit(1)
	}
}
