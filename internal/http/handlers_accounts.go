package http

import (
	"net/http"

	"tally/internal/core"
)

type accountRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Provider string `json:"provider"`
	LastFour string `json:"lastFour"`
}

type accountResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Provider   string `json:"provider,omitempty"`
	LastFour   string `json:"lastFour,omitempty"`
	IsArchived bool   `json:"isArchived"`
}

func toAccountResponse(a core.Account) accountResponse {
	return accountResponse{
		ID:         a.ID,
		Name:       a.Name,
		Type:       string(a.Type),
		Provider:   a.Provider,
		LastFour:   a.LastFour,
		IsArchived: a.IsArchived,
	}
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.repo.ListAccounts(r.Context(), userID(r.Context()), queryBool(r, "includeArchived"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	s.writeJSON(w, http.StatusOK, out)
}

// accountTypeOrDefault treats an omitted type as OTHER.
func accountTypeOrDefault(t string) core.AccountType {
	if t == "" {
		return core.AccountOther
	}
	return core.AccountType(t)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	account := core.Account{
		UserID:   userID(r.Context()),
		Name:     req.Name,
		Type:     accountTypeOrDefault(req.Type),
		Provider: req.Provider,
		LastFour: req.LastFour,
	}
	if err := account.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.repo.CreateAccount(r.Context(), account)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toAccountResponse(created))
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req accountRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	account := core.Account{
		ID:       id,
		UserID:   userID(r.Context()),
		Name:     req.Name,
		Type:     accountTypeOrDefault(req.Type),
		Provider: req.Provider,
		LastFour: req.LastFour,
	}
	if err := account.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.repo.UpdateAccount(r.Context(), account); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func (s *Server) handleArchiveAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.repo.ArchiveAccount(r.Context(), userID(r.Context()), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBulkDeleteAccounts(w http.ResponseWriter, r *http.Request) {
	n, err := s.repo.DeleteAllAccounts(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
