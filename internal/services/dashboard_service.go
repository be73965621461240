package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"teamfinance/internal/access"
	"teamfinance/internal/core"
	"teamfinance/internal/log"
	"teamfinance/internal/ports"
)

// DashboardService computes totals and recent activity on every read.
type DashboardService struct {
	store  ports.Store
	access *access.Filter
	options
}

func NewDashboardService(store ports.Store, opts ...Option) *DashboardService {
	return &DashboardService{
		store:   store,
		access:  access.NewFilter(store),
		options: buildOptions(log.ComponentDashboard, opts),
	}
}

// Summary aggregates the entries visible to userID, optionally narrowed to
// one team. limit <= 0 selects core.DefaultRecentLimit.
func (s *DashboardService) Summary(ctx context.Context, userID, teamName string, limit int) (core.Dashboard, error) {
	if limit <= 0 {
		limit = core.DefaultRecentLimit
	}

	filter, teams, err := s.access.VisibleEntries(ctx, userID)
	if err != nil {
		return core.Dashboard{}, err
	}

	teamName = core.NormalizeTeamName(teamName)
	if teamName != "" {
		ok, err := s.access.CanWriteToTeam(ctx, userID, teamName)
		if err != nil {
			return core.Dashboard{}, err
		}
		if !ok {
			return core.Dashboard{}, core.ErrTeamWriteDenied
		}
		if teamName == core.DefaultTeamName {
			filter = core.EntryFilter{DefaultOwner: userID}
		} else {
			filter = core.EntryFilter{TeamNames: []string{teamName}}
		}
	}

	var incomes, expenses []core.Entry
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		incomes, err = s.store.ListEntries(gctx, core.KindIncome, filter)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = s.store.ListEntries(gctx, core.KindExpense, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Dashboard{}, fmt.Errorf("load dashboard entries: %w", err)
	}

	all := make([]core.Entry, 0, len(incomes)+len(expenses))
	all = append(all, incomes...)
	all = append(all, expenses...)

	return core.Dashboard{
		Team:   teamName,
		Totals: core.ComputeTotals(all),
		Recent: core.RecentTransactions(incomes, expenses, limit),
		Teams:  teams,
	}, nil
}
