// Package memory is an in-process store used for development and tests.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"teamfinance/internal/core"
	"teamfinance/internal/ports"
)

type Store struct {
	mu sync.Mutex
	st *state
}

var _ ports.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: newState()}
}

// state holds the data. It is not safe for concurrent use; Store and tx
// provide the locking.
type state struct {
	teams   map[string]core.Team
	entries map[core.Kind]map[string]core.Entry
	seq     map[string]int64
	next    int64
}

func newState() *state {
	return &state{
		teams: map[string]core.Team{},
		entries: map[core.Kind]map[string]core.Entry{
			core.KindIncome:  {},
			core.KindExpense: {},
		},
		seq: map[string]int64{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for id, t := range s.teams {
		t.Members = slices.Clone(t.Members)
		c.teams[id] = t
	}
	for kind, m := range s.entries {
		for id, e := range m {
			c.entries[kind][id] = e
		}
	}
	for id, n := range s.seq {
		c.seq[id] = n
	}
	c.next = s.next
	return c
}

func (s *Store) CreateTeam(ctx context.Context, t core.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.createTeam(t)
}

func (s *Store) GetTeam(ctx context.Context, id string) (core.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.getTeam(id)
}

func (s *Store) GetTeamByName(ctx context.Context, name string) (core.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.getTeamByName(name)
}

func (s *Store) ListTeamsForUser(ctx context.Context, userID string) ([]core.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.listTeamsForUser(userID), nil
}

func (s *Store) AddMember(ctx context.Context, teamID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.addMember(teamID, userID)
}

func (s *Store) DeleteTeam(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.deleteTeam(id)
}

func (s *Store) CreateEntry(ctx context.Context, e core.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.createEntry(e)
}

func (s *Store) GetEntry(ctx context.Context, kind core.Kind, id string) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.getEntry(kind, id)
}

func (s *Store) UpdateEntry(ctx context.Context, e core.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.updateEntry(e)
}

func (s *Store) DeleteEntry(ctx context.Context, kind core.Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.deleteEntry(kind, id)
}

func (s *Store) ListEntries(ctx context.Context, kind core.Kind, f core.EntryFilter) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.listEntries(kind, f)
}

func (s *Store) DeleteEntriesByTeam(ctx context.Context, kind core.Kind, teamName string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.deleteEntriesByTeam(kind, teamName)
}

func (s *Store) PurgeOrphans(ctx context.Context, kind core.Kind, teamName string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.purgeOrphans(kind, teamName)
}

// WithinTx runs fn on a private copy of the data and swaps it in on
// success. The store lock is held for the whole call, so fn must only use
// the store it is given.
func (s *Store) WithinTx(ctx context.Context, fn func(ports.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	if err := fn(&tx{st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

func (s *state) createTeam(t core.Team) error {
	for _, existing := range s.teams {
		if existing.TeamName == t.TeamName {
			return core.ErrTeamExists
		}
	}
	if _, ok := s.teams[t.ID]; ok {
		return core.ErrTeamExists
	}
	t.Members = slices.Clone(t.Members)
	s.teams[t.ID] = t
	s.stamp(t.ID)
	return nil
}

func (s *state) getTeam(id string) (core.Team, error) {
	t, ok := s.teams[id]
	if !ok {
		return core.Team{}, core.ErrTeamNotFound
	}
	t.Members = slices.Clone(t.Members)
	return t, nil
}

func (s *state) getTeamByName(name string) (core.Team, error) {
	for _, t := range s.teams {
		if t.TeamName == name {
			t.Members = slices.Clone(t.Members)
			return t, nil
		}
	}
	return core.Team{}, core.ErrTeamNotFound
}

func (s *state) listTeamsForUser(userID string) []core.Team {
	out := []core.Team{}
	for _, t := range s.teams {
		if t.HasAccess(userID) {
			t.Members = slices.Clone(t.Members)
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b core.Team) int { return int(s.seq[a.ID] - s.seq[b.ID]) })
	return out
}

func (s *state) addMember(teamID, userID string) error {
	t, ok := s.teams[teamID]
	if !ok {
		return core.ErrTeamNotFound
	}
	if slices.Contains(t.Members, userID) {
		return nil
	}
	t.Members = append(slices.Clone(t.Members), userID)
	t.UpdatedAt = time.Now().UTC()
	s.teams[teamID] = t
	return nil
}

func (s *state) deleteTeam(id string) error {
	if _, ok := s.teams[id]; !ok {
		return core.ErrTeamNotFound
	}
	delete(s.teams, id)
	delete(s.seq, id)
	return nil
}

func (s *state) bucket(kind core.Kind) (map[string]core.Entry, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	return s.entries[kind], nil
}

func (s *state) createEntry(e core.Entry) error {
	m, err := s.bucket(e.Kind)
	if err != nil {
		return err
	}
	if _, ok := m[e.ID]; ok {
		return core.ErrConflict
	}
	m[e.ID] = e
	s.stamp(e.ID)
	return nil
}

func (s *state) getEntry(kind core.Kind, id string) (core.Entry, error) {
	m, err := s.bucket(kind)
	if err != nil {
		return core.Entry{}, err
	}
	e, ok := m[id]
	if !ok {
		return core.Entry{}, core.ErrEntryNotFound
	}
	return e, nil
}

func (s *state) updateEntry(e core.Entry) error {
	m, err := s.bucket(e.Kind)
	if err != nil {
		return err
	}
	if _, ok := m[e.ID]; !ok {
		return core.ErrEntryNotFound
	}
	m[e.ID] = e
	return nil
}

func (s *state) deleteEntry(kind core.Kind, id string) error {
	m, err := s.bucket(kind)
	if err != nil {
		return err
	}
	if _, ok := m[id]; !ok {
		return core.ErrEntryNotFound
	}
	delete(m, id)
	delete(s.seq, id)
	return nil
}

func (s *state) listEntries(kind core.Kind, f core.EntryFilter) ([]core.Entry, error) {
	m, err := s.bucket(kind)
	if err != nil {
		return nil, err
	}
	out := []core.Entry{}
	for _, e := range m {
		if f.Visible(e) {
			out = append(out, e)
		}
	}
	// Insertion order first so equal dates come out deterministically.
	slices.SortFunc(out, func(a, b core.Entry) int { return int(s.seq[b.ID] - s.seq[a.ID]) })
	core.SortByDateDesc(out)
	return out, nil
}

func (s *state) deleteEntriesByTeam(kind core.Kind, teamName string) (int, error) {
	m, err := s.bucket(kind)
	if err != nil {
		return 0, err
	}
	n := 0
	for id, e := range m {
		if e.TeamName == teamName {
			delete(m, id)
			delete(s.seq, id)
			n++
		}
	}
	return n, nil
}

func (s *state) purgeOrphans(kind core.Kind, teamName string) (int, error) {
	m, err := s.bucket(kind)
	if err != nil {
		return 0, err
	}
	live := map[string]bool{}
	for _, t := range s.teams {
		live[t.TeamName] = true
	}
	n := 0
	for id, e := range m {
		if e.TeamName == core.DefaultTeamName || live[e.TeamName] {
			continue
		}
		if teamName != "" && e.TeamName != teamName {
			continue
		}
		delete(m, id)
		delete(s.seq, id)
		n++
	}
	return n, nil
}

func (s *state) stamp(id string) {
	s.next++
	s.seq[id] = s.next
}

// tx is the view handed to WithinTx callbacks. The owning Store holds the
// lock for its lifetime.
type tx struct {
	st *state
}

func (t *tx) CreateTeam(_ context.Context, team core.Team) error { return t.st.createTeam(team) }

func (t *tx) GetTeam(_ context.Context, id string) (core.Team, error) { return t.st.getTeam(id) }

func (t *tx) GetTeamByName(_ context.Context, name string) (core.Team, error) {
	return t.st.getTeamByName(name)
}

func (t *tx) ListTeamsForUser(_ context.Context, userID string) ([]core.Team, error) {
	return t.st.listTeamsForUser(userID), nil
}

func (t *tx) AddMember(_ context.Context, teamID, userID string) error {
	return t.st.addMember(teamID, userID)
}

func (t *tx) DeleteTeam(_ context.Context, id string) error { return t.st.deleteTeam(id) }

func (t *tx) CreateEntry(_ context.Context, e core.Entry) error { return t.st.createEntry(e) }

func (t *tx) GetEntry(_ context.Context, kind core.Kind, id string) (core.Entry, error) {
	return t.st.getEntry(kind, id)
}

func (t *tx) UpdateEntry(_ context.Context, e core.Entry) error { return t.st.updateEntry(e) }

func (t *tx) DeleteEntry(_ context.Context, kind core.Kind, id string) error {
	return t.st.deleteEntry(kind, id)
}

func (t *tx) ListEntries(_ context.Context, kind core.Kind, f core.EntryFilter) ([]core.Entry, error) {
	return t.st.listEntries(kind, f)
}

func (t *tx) DeleteEntriesByTeam(_ context.Context, kind core.Kind, teamName string) (int, error) {
	return t.st.deleteEntriesByTeam(kind, teamName)
}

func (t *tx) PurgeOrphans(_ context.Context, kind core.Kind, teamName string) (int, error) {
	return t.st.purgeOrphans(kind, teamName)
}

// WithinTx on a view joins the enclosing transaction.
func (t *tx) WithinTx(_ context.Context, fn func(ports.Store) error) error { return fn(t) }

func (t *tx) Ping(ctx context.Context) error { return ctx.Err() }

func (t *tx) Close() error { return nil }
