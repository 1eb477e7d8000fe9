package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one due-schedule scan and retention pass, then exit",
	RunE:  runSweep,
}

var (
	retentionFlag bool
	metricsFlag   bool
)

func init() {
	sweepCmd.Flags().BoolVar(&retentionFlag, "retention", true, "Also delete expired rows")
	sweepCmd.Flags().BoolVar(&metricsFlag, "metrics", false, "Also refresh post and agent metrics")
}

func runSweep(cmd *cobra.Command, args []string) error {
	a, err := newApp(sharedQueue)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signalContext()
	defer stop()

	res := a.scheduler.ProcessDueSchedules(ctx)
	fmt.Fprintf(cmd.OutOrStdout(), "schedules: submitted=%d retried=%d failed=%d recovered=%d\n",
		res.Submitted, res.Retried, res.Failed, res.Recovered)

	if metricsFlag {
		posts := a.scheduler.RefreshPostMetrics(ctx)
		agents := a.scheduler.SyncAgentMetrics(ctx)
		fmt.Fprintf(cmd.OutOrStdout(), "metrics: posts=%d agents=%d\n", posts, agents)
	}

	if retentionFlag {
		r, err := a.scheduler.RunRetention(ctx)
		fmt.Fprintf(cmd.OutOrStdout(), "retention: failed_posts=%d interactions=%d schedules=%d\n",
			r.FailedPosts, r.Interactions, r.ProcessedEntries)
		if err != nil {
			return err
		}
	}
	return nil
}
