// Package events defines the domain events the API emits and the transport
// interfaces that carry them.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"teamfinance/internal/core"
)

type Type string

const (
	TeamCreated     Type = "team.created"
	TeamDeleted     Type = "team.deleted"
	TeamMemberAdded Type = "team.member_added"
	EntryCreated    Type = "entry.created"
	EntryUpdated    Type = "entry.updated"
	EntryDeleted    Type = "entry.deleted"
)

// Event is the wire message. Fields that do not apply to the type are omitted.
type Event struct {
	ID              string    `json:"id"`
	Type            Type      `json:"type"`
	TeamID          string    `json:"teamId,omitempty"`
	TeamName        string    `json:"teamName,omitempty"`
	EntryID         string    `json:"entryId,omitempty"`
	Kind            core.Kind `json:"kind,omitempty"`
	ActorID         string    `json:"actorId"`
	MemberID        string    `json:"memberId,omitempty"`
	DeletedIncomes  int       `json:"deletedIncomes,omitempty"`
	DeletedExpenses int       `json:"deletedExpenses,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

var ErrInvalidEvent = errors.New("invalid event")

func New(t Type, actorID string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
	}
}

// ForTeam builds a team event.
func ForTeam(t Type, actorID string, team core.Team) Event {
	ev := New(t, actorID)
	ev.TeamID = team.ID
	ev.TeamName = team.TeamName
	return ev
}

// ForEntry builds an entry event.
func ForEntry(t Type, actorID string, e core.Entry) Event {
	ev := New(t, actorID)
	ev.EntryID = e.ID
	ev.Kind = e.Kind
	ev.TeamName = e.TeamName
	return ev
}

// ToJSON converts the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON decodes and sanity-checks an event.
func FromJSON(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("%w: missing type", ErrInvalidEvent)
	}
	if ev.Type == TeamDeleted && ev.TeamName == "" {
		return Event{}, fmt.Errorf("%w: %s without team name", ErrInvalidEvent, ev.Type)
	}
	return ev, nil
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Handler processes one delivered event. Returning an error asks the
// transport to redeliver.
type Handler func(ctx context.Context, ev Event) error

type Consumer interface {
	Consume(ctx context.Context, h Handler) error
	Close() error
}

// Recorder is a Publisher that keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

var _ Publisher = (*Recorder)(nil)

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns the recorded events of type t.
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
