package http

import (
	"net/http"

	"tally/internal/core"
)

type incomeSourceResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	IsArchived bool   `json:"isArchived"`
}

func (s *Server) handleListIncomeSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.repo.ListIncomeSources(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]incomeSourceResponse, 0, len(sources))
	for _, src := range sources {
		out = append(out, incomeSourceResponse{ID: src.ID, Name: src.Name, IsArchived: src.IsArchived})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateIncomeSource(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	source := core.IncomeSource{UserID: userID(r.Context()), Name: req.Name}
	if err := source.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.repo.CreateIncomeSource(r.Context(), source)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, incomeSourceResponse{ID: created.ID, Name: created.Name})
}

func (s *Server) handleArchiveIncomeSource(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.repo.ArchiveIncomeSource(r.Context(), userID(r.Context()), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBulkDeleteIncomeSources(w http.ResponseWriter, r *http.Request) {
	n, err := s.repo.DeleteAllIncomeSources(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
