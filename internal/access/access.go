// Package access decides which teams and entries an acting user may see,
// write to, or delete. Every check fails closed when no user is known.
package access

import (
	"context"
	"errors"
	"fmt"

	"teamfinance/internal/core"
)

// TeamReader is the part of the team store the filter needs.
type TeamReader interface {
	GetTeamByName(ctx context.Context, name string) (core.Team, error)
	ListTeamsForUser(ctx context.Context, userID string) ([]core.Team, error)
}

type Filter struct {
	teams TeamReader
}

func NewFilter(teams TeamReader) *Filter {
	return &Filter{teams: teams}
}

// ListAccessibleTeams returns the teams userID created or is a member of.
func (f *Filter) ListAccessibleTeams(ctx context.Context, userID string) ([]core.Team, error) {
	if userID == "" {
		return nil, core.ErrMissingIdentity
	}
	teams, err := f.teams.ListTeamsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list accessible teams: %w", err)
	}
	// The store query already restricts by user; re-check so a store bug
	// cannot widen access.
	out := make([]core.Team, 0, len(teams))
	for _, t := range teams {
		if t.HasAccess(userID) {
			out = append(out, t)
		}
	}
	return out, nil
}

// CanWriteToTeam reports whether userID may add entries under teamName.
// The Default Team bucket is always writable; unknown teams are not.
func (f *Filter) CanWriteToTeam(ctx context.Context, userID, teamName string) (bool, error) {
	if userID == "" {
		return false, core.ErrMissingIdentity
	}
	if teamName == core.DefaultTeamName {
		return true, nil
	}
	team, err := f.teams.GetTeamByName(ctx, teamName)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("look up team %q: %w", teamName, err)
	}
	return team.HasAccess(userID), nil
}

// CanDeleteTeam reports whether userID created team. Membership is not enough.
func CanDeleteTeam(userID string, team core.Team) bool {
	return userID != "" && team.CreatedBy == userID
}

// VisibleEntries returns the filter selecting the entries userID may read:
// those of accessible teams plus the user's own Default Team entries.
func (f *Filter) VisibleEntries(ctx context.Context, userID string) (core.EntryFilter, []core.Team, error) {
	teams, err := f.ListAccessibleTeams(ctx, userID)
	if err != nil {
		return core.EntryFilter{}, nil, err
	}
	names := make([]string, len(teams))
	for i, t := range teams {
		names[i] = t.TeamName
	}
	return core.EntryFilter{TeamNames: names, DefaultOwner: userID}, teams, nil
}

// CanSeeEntry reports whether the entry is visible to userID.
func (f *Filter) CanSeeEntry(ctx context.Context, userID string, e core.Entry) (bool, error) {
	if userID == "" {
		return false, core.ErrMissingIdentity
	}
	if e.TeamName == core.DefaultTeamName {
		return e.User == userID, nil
	}
	return f.CanWriteToTeam(ctx, userID, e.TeamName)
}
