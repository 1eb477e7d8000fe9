package main

import (
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run task workers without the HTTP API or cron",
	RunE:  runWorker,
}

var workersFlag int

func init() {
	workerCmd.Flags().IntVar(&workersFlag, "workers", 0, "Number of workers (default from QUEUE_WORKERS)")
}

func runWorker(cmd *cobra.Command, args []string) error {
	if workersFlag > 0 {
		// Config is read from the environment.
		if err := os.Setenv("QUEUE_WORKERS", strconv.Itoa(workersFlag)); err != nil {
			return err
		}
	}
	a, err := newApp(sharedQueue)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signalContext()
	defer stop()

	a.logger.Info("Starting task workers only")
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.scheduler.ReapQueue(ctx)
			}
		}
	}()
	err = a.pool.Run(ctx)
	a.logger.Info("Workers exited", zap.Error(err))
	return err
}
