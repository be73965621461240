package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"teamfinance/internal/config"
	"teamfinance/internal/storage"
)

func migrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the database to the latest version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var driver, dsn string
			switch a.cfg.DataBackend {
			case config.BackendSQLite:
				if err := os.MkdirAll(filepath.Dir(a.cfg.SQLiteDBPath), 0o755); err != nil {
					return fmt.Errorf("create db directory: %w", err)
				}
				driver, dsn = storage.DriverSQLite, storage.SQLiteDSN(a.cfg.SQLiteDBPath)
			case config.BackendPostgres:
				driver, dsn = storage.DriverPostgres, a.cfg.PostgresDSN
			default:
				return fmt.Errorf("the %s backend has no schema to migrate", a.cfg.DataBackend)
			}

			if err := storage.RunMigrations(driver, dsn); err != nil {
				return fmt.Errorf("migration: %w", err)
			}
			cmd.Printf("%s schema is up to date\n", driver)
			return nil
		},
	}
}
