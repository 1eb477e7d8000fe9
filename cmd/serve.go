package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"launchpad/internal/router"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, task workers and cron sweepers",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(inProcessQueue)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signalContext()
	defer stop()

	// --- Echo ---
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	router.Setup(e, router.Deps{
		DB:      a.db,
		Repos:   a.repos,
		Service: a.service,
		Locker:  a.leases,
		Logger:  a.logger,
	})

	// --- Cron Scheduler ---
	if err := a.scheduler.Start(ctx); err != nil {
		return errors.Wrap(err, "start cron scheduler")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.pool.Run(gctx) })

	// --- Start Server ---
	addr := fmt.Sprintf(":%d", a.cfg.Server.Port)
	g.Go(func() error {
		a.logger.Info("Starting launchpad server", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// --- Graceful Shutdown ---
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Shutting down...")

		cronCtx := a.scheduler.Stop()
		<-cronCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("Server forced to shutdown", zap.Error(err))
		}
		return nil
	})

	err = g.Wait()
	a.logger.Info("Server exited")
	return err
}
