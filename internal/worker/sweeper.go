// Package worker holds the background jobs that keep the ledger consistent.
package worker

import (
	"context"
	"fmt"
	"time"

	"teamfinance/internal/core"
	"teamfinance/internal/events"
	"teamfinance/internal/log"
	"teamfinance/internal/metrics"
	"teamfinance/internal/ports"
)

// Sweeper removes entries whose team no longer exists. Such orphans appear
// when an entry is written while its team is being deleted, or when a
// cascade on a non-transactional store is interrupted.
type Sweeper struct {
	store  ports.EntryStore
	logger *log.Logger
}

// SweepResult counts purged entries per kind.
type SweepResult struct {
	Incomes  int
	Expenses int
}

func NewSweeper(store ports.EntryStore, logger *log.Logger) *Sweeper {
	if logger == nil {
		logger = log.Discard()
	}
	return &Sweeper{store: store, logger: logger.WithComponent(log.ComponentWorker)}
}

// HandleEvent purges stragglers of a deleted team. Other event types are
// acknowledged and ignored. Purging is idempotent, so redelivery is safe.
func (w *Sweeper) HandleEvent(ctx context.Context, ev events.Event) error {
	if ev.Type != events.TeamDeleted {
		w.logger.DebugContext(ctx, "Ignoring event", log.FieldEventType, ev.Type)
		return nil
	}
	if ev.TeamName == "" || ev.TeamName == core.DefaultTeamName {
		return nil
	}

	res, err := w.purge(ctx, ev.TeamName)
	if err != nil {
		return fmt.Errorf("purge team %q: %w", ev.TeamName, err)
	}

	w.logger.InfoContext(ctx, "Processed team deletion",
		log.FieldTeamID, ev.TeamID,
		log.FieldTeamName, ev.TeamName,
		"purged_incomes", res.Incomes,
		"purged_expenses", res.Expenses)
	return nil
}

// Sweep purges orphans of every team.
func (w *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	res, err := w.purge(ctx, "")
	if err != nil {
		w.logger.ErrorContext(ctx, "Orphan sweep failed", log.FieldError, err, log.FieldOperation, log.OpSweep)
		return res, err
	}
	w.logger.InfoContext(ctx, "Orphan sweep completed",
		log.FieldOperation, log.OpSweep,
		"purged_incomes", res.Incomes,
		"purged_expenses", res.Expenses,
		log.FieldDuration, time.Since(start).Milliseconds())
	return res, nil
}

func (w *Sweeper) purge(ctx context.Context, teamName string) (SweepResult, error) {
	var res SweepResult
	var err error
	if res.Incomes, err = w.store.PurgeOrphans(ctx, core.KindIncome, teamName); err != nil {
		return res, err
	}
	metrics.OrphansPurged.WithLabelValues(string(core.KindIncome)).Add(float64(res.Incomes))
	if res.Expenses, err = w.store.PurgeOrphans(ctx, core.KindExpense, teamName); err != nil {
		return res, err
	}
	metrics.OrphansPurged.WithLabelValues(string(core.KindExpense)).Add(float64(res.Expenses))
	return res, nil
}
