package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"relbox/config"
	"relbox/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the tables for the configured driver and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Cfg
		db, err := database.Open(cmd.Context(), cfg.DBDriver, cfg.DSN())
		if err != nil {
			return err
		}
		defer db.Close()

		if err := database.CreateTables(cmd.Context(), db, cfg.DBDriver); err != nil {
			return err
		}
		logrus.WithField("driver", cfg.DBDriver).Info("Tables ready")
		return nil
	},
}
