package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"teamfinance/internal/access"
	"teamfinance/internal/core"
	"teamfinance/internal/events"
	"teamfinance/internal/log"
	"teamfinance/internal/metrics"
	"teamfinance/internal/ports"
)

// EntryService manages income and expense entries.
type EntryService struct {
	store  ports.Store
	access *access.Filter
	options
}

func NewEntryService(store ports.Store, opts ...Option) *EntryService {
	return &EntryService{
		store:   store,
		access:  access.NewFilter(store),
		options: buildOptions(log.ComponentEntry, opts),
	}
}

// Create validates the input, fills defaults and stores a new entry owned
// by userID. Writing to a named team requires access to it.
func (s *EntryService) Create(ctx context.Context, kind core.Kind, in core.EntryInput, userID string) (core.Entry, error) {
	if userID == "" {
		return core.Entry{}, core.ErrMissingIdentity
	}
	if err := kind.Validate(); err != nil {
		return core.Entry{}, err
	}

	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return core.Entry{}, err
	}
	now := s.clock()
	in = in.ApplyDefaults(now)

	ok, err := s.access.CanWriteToTeam(ctx, userID, in.TeamName)
	if err != nil {
		return core.Entry{}, err
	}
	if !ok {
		return core.Entry{}, core.ErrTeamWriteDenied
	}

	e := core.Entry{
		ID:           uuid.NewString(),
		Kind:         kind,
		User:         userID,
		Title:        in.Title,
		Amount:       in.Amount,
		Category:     in.Category,
		Description:  in.Description,
		Date:         in.Date,
		TeamName:     in.TeamName,
		ReceiptImage: in.ReceiptImage,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateEntry(ctx, e); err != nil {
		return core.Entry{}, fmt.Errorf("create %s: %w", kind, err)
	}

	metrics.EntriesCreated.WithLabelValues(string(kind)).Inc()
	log.NewStructuredLogger(s.logger).LogEntryCreated(ctx, string(kind), e.ID, e.Amount.String(), e.Category, e.TeamName, userID)
	s.publish(ctx, events.ForEntry(events.EntryCreated, userID, e))

	return e, nil
}

// Update replaces title, amount, category, description and date. The
// team never changes; an omitted date keeps the stored one. Entries the
// user cannot see are reported as not found.
func (s *EntryService) Update(ctx context.Context, kind core.Kind, id string, in core.EntryInput, userID string) (core.Entry, error) {
	existing, err := s.visibleEntry(ctx, kind, id, userID)
	if err != nil {
		return core.Entry{}, err
	}

	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return core.Entry{}, err
	}

	updated := existing
	updated.Title = in.Title
	updated.Amount = in.Amount
	updated.Category = in.Category
	updated.Description = in.Description
	if !in.Date.IsZero() {
		updated.Date = in.Date.UTC()
	}
	if in.ReceiptImage != nil {
		updated.ReceiptImage = in.ReceiptImage
	}
	updated.UpdatedAt = s.clock()

	if err := s.store.UpdateEntry(ctx, updated); err != nil {
		return core.Entry{}, fmt.Errorf("update %s: %w", kind, err)
	}

	s.logger.InfoContext(ctx, "Entry updated",
		log.NewFields().WithEntry(string(kind), id, updated.Amount.String(), updated.Category, updated.TeamName).
			WithUser(userID).WithOperation(log.OpUpdate).ToSlice()...)
	s.publish(ctx, events.ForEntry(events.EntryUpdated, userID, updated))

	return updated, nil
}

// Delete removes one entry and reports its id and amount.
func (s *EntryService) Delete(ctx context.Context, kind core.Kind, id, userID string) (core.DeletedEntry, error) {
	existing, err := s.visibleEntry(ctx, kind, id, userID)
	if err != nil {
		return core.DeletedEntry{}, err
	}
	if err := s.store.DeleteEntry(ctx, kind, id); err != nil {
		return core.DeletedEntry{}, fmt.Errorf("delete %s: %w", kind, err)
	}

	metrics.EntriesDeleted.WithLabelValues(string(kind)).Inc()
	s.logger.InfoContext(ctx, "Entry deleted",
		log.NewFields().WithEntry(string(kind), id, existing.Amount.String(), existing.Category, existing.TeamName).
			WithUser(userID).WithOperation(log.OpDelete).ToSlice()...)
	s.publish(ctx, events.ForEntry(events.EntryDeleted, userID, existing))

	return core.DeletedEntry{ID: existing.ID, Amount: existing.Amount}, nil
}

// List returns the entries of the kind visible to userID, newest first.
func (s *EntryService) List(ctx context.Context, kind core.Kind, userID string) ([]core.Entry, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	filter, _, err := s.access.VisibleEntries(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListEntries(ctx, kind, filter)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return entries, nil
}

func (s *EntryService) visibleEntry(ctx context.Context, kind core.Kind, id, userID string) (core.Entry, error) {
	if userID == "" {
		return core.Entry{}, core.ErrMissingIdentity
	}
	if err := kind.Validate(); err != nil {
		return core.Entry{}, err
	}
	e, err := s.store.GetEntry(ctx, kind, id)
	if err != nil {
		return core.Entry{}, err
	}
	ok, err := s.access.CanSeeEntry(ctx, userID, e)
	if err != nil {
		return core.Entry{}, err
	}
	if !ok {
		return core.Entry{}, core.ErrEntryNotFound
	}
	return e, nil
}
