package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"teamfinance/internal/backend"
	"teamfinance/internal/cli"
	"teamfinance/internal/config"
	"teamfinance/internal/log"
)

// app carries what the subcommands share. The backend is opened lazily by
// the commands that need it.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	res    *backend.Result
}

func (a *app) openBackend(ctx context.Context, consume bool) error {
	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return err
	}
	bcfg.Consume = consume
	res, err := backend.NewFactory(a.logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	a.res = res
	return nil
}

func (a *app) close(*cobra.Command, []string) error {
	if a.res == nil {
		return nil
	}
	return a.res.Cleanup()
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "teamfinance-admin",
		Short:        "Administrate a teamfinance deployment",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if a.cfg != nil {
				return nil
			}
			cli.LoadEnvFile()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, "admin")
			return nil
		},
	}

	rootCmd.AddCommand(
		migrateCommand(a),
		sweepCommand(a),
		teamsCommand(a),
		tokenCommand(a),
	)
	return rootCmd
}

func main() {
	if err := newRootCommand(&app{}).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
