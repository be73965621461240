package main

import (
	"github.com/spf13/cobra"

	"teamfinance/internal/worker"
)

func sweepCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:                "sweep",
		Short:              "Delete entries whose team no longer exists",
		Args:               cobra.NoArgs,
		PersistentPostRunE: a.close,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := a.openBackend(ctx, false); err != nil {
				return err
			}

			res, err := worker.NewSweeper(a.res.Store, a.logger).Sweep(ctx)
			if err != nil {
				return err
			}
			cmd.Printf("Purged %d incomes and %d expenses\n", res.Incomes, res.Expenses)
			return nil
		},
	}
}
