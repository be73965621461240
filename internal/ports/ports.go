// Package ports declares the persistence interfaces the services depend on.
package ports

import (
	"context"

	"teamfinance/internal/core"
)

type (
	// TeamStore persists teams and their members.
	TeamStore interface {
		// CreateTeam fails with core.ErrTeamExists when the name is taken.
		CreateTeam(ctx context.Context, t core.Team) error
		GetTeam(ctx context.Context, id string) (core.Team, error)
		GetTeamByName(ctx context.Context, name string) (core.Team, error)
		// ListTeamsForUser returns teams the user created or belongs to.
		ListTeamsForUser(ctx context.Context, userID string) ([]core.Team, error)
		AddMember(ctx context.Context, teamID, userID string) error
		DeleteTeam(ctx context.Context, id string) error
	}

	// EntryStore persists income and expense entries.
	EntryStore interface {
		CreateEntry(ctx context.Context, e core.Entry) error
		GetEntry(ctx context.Context, kind core.Kind, id string) (core.Entry, error)
		UpdateEntry(ctx context.Context, e core.Entry) error
		DeleteEntry(ctx context.Context, kind core.Kind, id string) error
		// ListEntries returns the entries admitted by the filter, newest first.
		ListEntries(ctx context.Context, kind core.Kind, f core.EntryFilter) ([]core.Entry, error)
		// DeleteEntriesByTeam removes every entry tagged with teamName and
		// returns how many were removed.
		DeleteEntriesByTeam(ctx context.Context, kind core.Kind, teamName string) (int, error)
		// PurgeOrphans removes entries whose team no longer exists. An empty
		// teamName sweeps every team; Default Team entries are never touched.
		PurgeOrphans(ctx context.Context, kind core.Kind, teamName string) (int, error)
	}

	// Store is the full persistence surface.
	Store interface {
		TeamStore
		EntryStore
		// WithinTx runs fn against a transactional view of the store. Writes
		// made through the view are committed only if fn returns nil.
		WithinTx(ctx context.Context, fn func(Store) error) error
		Ping(ctx context.Context) error
		Close() error
	}
)
