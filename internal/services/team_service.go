package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"teamfinance/internal/access"
	"teamfinance/internal/core"
	"teamfinance/internal/events"
	"teamfinance/internal/log"
	"teamfinance/internal/metrics"
	"teamfinance/internal/ports"
)

// TeamService creates teams, grows their membership and deletes them
// together with their entries.
type TeamService struct {
	store  ports.Store
	access *access.Filter
	options
}

func NewTeamService(store ports.Store, opts ...Option) *TeamService {
	return &TeamService{
		store:   store,
		access:  access.NewFilter(store),
		options: buildOptions(log.ComponentTeam, opts),
	}
}

// ListTeams returns the teams userID can access.
func (s *TeamService) ListTeams(ctx context.Context, userID string) ([]core.Team, error) {
	return s.access.ListAccessibleTeams(ctx, userID)
}

// CreateTeam registers a new team owned by creatorID, who becomes its
// first member. Names are unique and compared exactly as stored.
func (s *TeamService) CreateTeam(ctx context.Context, teamName, creatorID string) (core.Team, error) {
	if creatorID == "" {
		return core.Team{}, core.ErrMissingIdentity
	}
	teamName = core.NormalizeTeamName(teamName)
	if err := core.ValidateTeamName(teamName); err != nil {
		return core.Team{}, err
	}

	_, err := s.store.GetTeamByName(ctx, teamName)
	switch {
	case err == nil:
		return core.Team{}, core.ErrTeamExists
	case !errors.Is(err, core.ErrNotFound):
		return core.Team{}, fmt.Errorf("check team name: %w", err)
	}

	now := s.clock()
	team := core.Team{
		ID:        uuid.NewString(),
		TeamName:  teamName,
		CreatedBy: creatorID,
		Members:   []string{creatorID},
		CreatedAt: now,
		UpdatedAt: now,
	}
	// The unique index still decides when two creates race.
	if err := s.store.CreateTeam(ctx, team); err != nil {
		if errors.Is(err, core.ErrConflict) {
			return core.Team{}, core.ErrTeamExists
		}
		return core.Team{}, fmt.Errorf("create team: %w", err)
	}

	metrics.TeamsCreated.Inc()
	s.logger.InfoContext(ctx, "Team created",
		log.NewFields().WithTeam(team.ID, team.TeamName).WithUser(creatorID).WithOperation(log.OpCreate).ToSlice()...)
	s.publish(ctx, events.ForTeam(events.TeamCreated, creatorID, team))

	return team, nil
}

// AddMember grants memberID access to the team. Only the creator may do
// this; adding an existing member is a no-op.
func (s *TeamService) AddMember(ctx context.Context, teamID, actingUserID, memberID string) (core.Team, error) {
	if actingUserID == "" {
		return core.Team{}, core.ErrMissingIdentity
	}
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return core.Team{}, core.NewFieldError("userId", "user id is required")
	}

	var team core.Team
	err := s.store.WithinTx(ctx, func(tx ports.Store) error {
		t, err := tx.GetTeam(ctx, teamID)
		if err != nil {
			return err
		}
		if !access.CanDeleteTeam(actingUserID, t) {
			return core.ErrNotTeamCreator
		}
		if err := tx.AddMember(ctx, teamID, memberID); err != nil {
			return err
		}
		team, err = tx.GetTeam(ctx, teamID)
		return err
	})
	if err != nil {
		return core.Team{}, fmt.Errorf("add member: %w", err)
	}

	s.logger.InfoContext(ctx, "Team member added",
		log.NewFields().WithTeam(team.ID, team.TeamName).WithUser(actingUserID).WithOperation(log.OpAddMember).ToSlice()...)
	ev := events.ForTeam(events.TeamMemberAdded, actingUserID, team)
	ev.MemberID = memberID
	s.publish(ctx, ev)

	return team, nil
}

// DeleteTeam removes the team and every entry tagged with its name in one
// transaction. Entries go first and the team record last, so an
// interrupted run can only leave orphans, which the sweeper purges.
func (s *TeamService) DeleteTeam(ctx context.Context, teamID, actingUserID string) (core.CascadeResult, error) {
	if actingUserID == "" {
		return core.CascadeResult{}, core.ErrMissingIdentity
	}

	var res core.CascadeResult
	err := s.store.WithinTx(ctx, func(tx ports.Store) error {
		team, err := tx.GetTeam(ctx, teamID)
		if err != nil {
			return err
		}
		if !access.CanDeleteTeam(actingUserID, team) {
			return core.ErrNotTeamCreator
		}

		incomes, err := tx.DeleteEntriesByTeam(ctx, core.KindIncome, team.TeamName)
		if err != nil {
			return err
		}
		expenses, err := tx.DeleteEntriesByTeam(ctx, core.KindExpense, team.TeamName)
		if err != nil {
			return err
		}
		if err := tx.DeleteTeam(ctx, team.ID); err != nil {
			return err
		}

		res = core.CascadeResult{Team: team, DeletedIncomes: incomes, DeletedExpenses: expenses}
		return nil
	})
	if err != nil {
		return core.CascadeResult{}, fmt.Errorf("delete team: %w", err)
	}

	metrics.TeamsDeleted.Inc()
	metrics.CascadeDeletedEntries.WithLabelValues(string(core.KindIncome)).Add(float64(res.DeletedIncomes))
	metrics.CascadeDeletedEntries.WithLabelValues(string(core.KindExpense)).Add(float64(res.DeletedExpenses))
	log.NewStructuredLogger(s.logger).LogTeamDeleted(ctx, res.Team.ID, res.Team.TeamName, actingUserID,
		res.DeletedIncomes, res.DeletedExpenses)

	ev := events.ForTeam(events.TeamDeleted, actingUserID, res.Team)
	ev.DeletedIncomes = res.DeletedIncomes
	ev.DeletedExpenses = res.DeletedExpenses
	s.publish(ctx, ev)

	return res, nil
}
