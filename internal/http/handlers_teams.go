package http

import (
	"net/http"

	"teamfinance/internal/core"
)

func (s *Server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.teams.ListTeams(r.Context(), actingUser(r))
	if err != nil {
		s.writeReadError(w, r, err, []core.Team{})
		return
	}
	NewResponse().Data(teams).Count(len(teams)).Write(w)
}

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	team, err := s.teams.CreateTeam(r.Context(), sanitizeInput(req.TeamName), actingUser(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).Data(team).Write(w)
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	team, err := s.teams.AddMember(r.Context(), r.PathValue("id"), actingUser(r), sanitizeInput(req.UserID))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewResponse().Data(team).Write(w)
}

// handleDeleteTeam removes the team and every entry filed under it.
func (s *Server) handleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	res, err := s.teams.DeleteTeam(r.Context(), r.PathValue("id"), actingUser(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewResponse().Data(cascadeResponse{
		Team:            res.Team,
		DeletedIncomes:  res.DeletedIncomes,
		DeletedExpenses: res.DeletedExpenses,
	}).Write(w)
}
