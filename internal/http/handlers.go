package http

import (
	"context"
	"net/http"
	"time"

	"teamfinance/internal/core"
	"teamfinance/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().Data(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports whether the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"store": "ok"}
	if err := s.store.Ping(ctx); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		checks["store"] = "unavailable"
		NewResponse().
			Status(http.StatusServiceUnavailable).
			Fail("not ready").
			Data(map[string]any{"status": "not_ready", "checks": checks}).
			Write(w)
		return
	}

	NewResponse().Data(map[string]any{"status": "ready", "checks": checks}).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	NewResponse().Data(categoriesResponse{
		Income:  core.KindIncome.Categories(),
		Expense: core.KindExpense.Categories(),
	}).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseLimit(q, s.cfg.RecentLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	d, err := s.dashboard.Summary(r.Context(), actingUser(r), q.Get("team"), limit)
	if err != nil {
		s.writeReadError(w, r, err, toDashboardResponse(core.Dashboard{}))
		return
	}
	NewResponse().Data(toDashboardResponse(d)).Write(w)
}
