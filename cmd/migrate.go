package main

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"launchpad/internal/bootstrap"
	"launchpad/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the schema and seed the default AI agents",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return errors.Wrap(err, "create logger")
	}
	defer logger.Sync()

	dbCfg, err := config.LoadDatabaseOnly()
	if err != nil {
		return err
	}
	db, err := config.NewDatabase(dbCfg, logger)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	if err := bootstrap.MigrateAndSeed(db); err != nil {
		return errors.Wrap(err, "migrate")
	}
	logger.Info("Schema migration and default seed completed")
	return nil
}
