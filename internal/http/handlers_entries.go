package http

import (
	"net/http"

	"teamfinance/internal/core"
)

// handleListEntries answers with data: [] even on failure so clients can
// always iterate the payload.
func (s *Server) handleListEntries(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := s.entries.List(r.Context(), kind, actingUser(r))
		if err != nil {
			s.writeReadError(w, r, err, []entryResponse{})
			return
		}
		NewResponse().Data(toEntryResponses(entries)).Count(len(entries)).Write(w)
	}
}

func (s *Server) handleCreateEntry(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := s.readEntry(w, r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		e, err := s.entries.Create(r.Context(), kind, in, actingUser(r))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		NewResponse().Status(http.StatusCreated).Data(toEntryResponse(e)).Write(w)
	}
}

func (s *Server) handleUpdateEntry(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := s.readEntry(w, r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		e, err := s.entries.Update(r.Context(), kind, r.PathValue("id"), in, actingUser(r))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		NewResponse().Data(toEntryResponse(e)).Write(w)
	}
}

func (s *Server) handleDeleteEntry(kind core.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deleted, err := s.entries.Delete(r.Context(), kind, r.PathValue("id"), actingUser(r))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		NewResponse().Data(deletedEntryResponse{ID: deleted.ID, Amount: amountJSON(deleted.Amount)}).Write(w)
	}
}

func (s *Server) readEntry(w http.ResponseWriter, r *http.Request) (core.EntryInput, error) {
	var req entryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return core.EntryInput{}, err
	}
	return req.toInput()
}
