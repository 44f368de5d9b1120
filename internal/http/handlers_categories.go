package http

import (
	"net/http"

	"tally/internal/core"
)

type categoryRequest struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

type categoryResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Color      string `json:"color,omitempty"`
	Icon       string `json:"icon,omitempty"`
	IsArchived bool   `json:"isArchived"`
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{
		ID:         c.ID,
		Name:       c.Name,
		Kind:       string(c.Kind),
		Color:      c.Color,
		Icon:       c.Icon,
		IsArchived: c.IsArchived,
	}
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	kind := core.TransactionType(r.URL.Query().Get("kind"))
	if kind != "" && !core.ValidTransactionType(kind) {
		s.writeError(w, r, core.FieldErrors{"kind": "must be INCOME or EXPENSE"})
		return
	}

	categories, err := s.repo.ListCategories(r.Context(), userID(r.Context()), kind)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, toCategoryResponse(c))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	category := core.Category{
		UserID: userID(r.Context()),
		Name:   req.Name,
		Kind:   core.TransactionType(req.Kind),
		Color:  req.Color,
		Icon:   req.Icon,
	}
	if err := category.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.repo.CreateCategory(r.Context(), category)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toCategoryResponse(created))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req categoryRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	category := core.Category{
		ID:     id,
		UserID: userID(r.Context()),
		Name:   req.Name,
		Kind:   core.TransactionType(req.Kind),
		Color:  req.Color,
		Icon:   req.Icon,
	}
	if err := category.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.repo.UpdateCategory(r.Context(), category); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toCategoryResponse(category))
}

func (s *Server) handleArchiveCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.repo.ArchiveCategory(r.Context(), userID(r.Context()), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBulkDeleteCategories(w http.ResponseWriter, r *http.Request) {
	n, err := s.repo.DeleteAllCategories(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
