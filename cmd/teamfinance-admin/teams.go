package main

import (
	"strconv"

	"github.com/caarlos0/tablewriter"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"teamfinance/internal/core"
	"teamfinance/internal/services"
)

func teamsCommand(a *app) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:                "teams",
		Aliases:            []string{"team"},
		Short:              "Inspect and delete teams on behalf of a user",
		PersistentPostRunE: a.close,
	}
	cmd.PersistentFlags().StringVarP(&user, "user", "u", "", "User id to act as")
	_ = cmd.MarkPersistentFlagRequired("user")

	service := func(cmd *cobra.Command) (*services.TeamService, error) {
		if err := a.openBackend(cmd.Context(), false); err != nil {
			return nil, err
		}
		opts := []services.Option{services.WithLogger(a.logger)}
		if a.res.Publisher != nil {
			opts = append(opts, services.WithPublisher(a.res.Publisher))
		}
		return services.NewTeamService(a.res.Store, opts...), nil
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the teams a user can access",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := service(cmd)
			if err != nil {
				return err
			}
			teams, err := svc.ListTeams(cmd.Context(), user)
			if err != nil {
				return err
			}
			if len(teams) == 0 {
				cmd.Println("No teams found")
				return nil
			}

			return tablewriter.Render(
				cmd.OutOrStdout(),
				teams,
				[]string{"ID", "Name", "Created By", "Members", "Created"},
				func(t core.Team) ([]string, error) {
					return []string{
						t.ID,
						t.TeamName,
						t.CreatedBy,
						strconv.Itoa(len(t.Members)),
						humanize.Time(t.CreatedAt),
					}, nil
				},
			)
		},
	}

	deleteCmd := &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm", "remove"},
		Short:   "Delete a team and every entry tagged with it",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service(cmd)
			if err != nil {
				return err
			}
			res, err := svc.DeleteTeam(cmd.Context(), args[0], user)
			if err != nil {
				return err
			}
			cmd.Printf("Deleted team %q with %d incomes and %d expenses\n",
				res.Team.TeamName, res.DeletedIncomes, res.DeletedExpenses)
			return nil
		},
	}

	cmd.AddCommand(listCmd, deleteCmd)
	return cmd
}
