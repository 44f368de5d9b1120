package http

import (
	"net/http"
	"strconv"
	"time"

	"tally/internal/core"
	"tally/internal/storage"
)

type transactionRequest struct {
	Type           string `json:"type"`
	Amount         string `json:"amount"`
	OccurredAt     string `json:"occurredAt"`
	Description    string `json:"description"`
	CategoryID     *int64 `json:"categoryId"`
	AccountID      *int64 `json:"accountId"`
	IncomeSourceID *int64 `json:"incomeSourceId"`
}

type transactionResponse struct {
	ID             int64  `json:"id"`
	Type           string `json:"type"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	OccurredAt     string `json:"occurredAt"`
	Description    string `json:"description,omitempty"`
	CategoryID     *int64 `json:"categoryId,omitempty"`
	AccountID      *int64 `json:"accountId,omitempty"`
	IncomeSourceID *int64 `json:"incomeSourceId,omitempty"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:             t.ID,
		Type:           string(t.Type),
		Amount:         t.Amount.String(),
		Currency:       t.Currency,
		OccurredAt:     t.OccurredAt.UTC().Format(time.RFC3339),
		Description:    t.Description,
		CategoryID:     t.CategoryID,
		AccountID:      t.AccountID,
		IncomeSourceID: t.IncomeSourceID,
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter := storage.TransactionFilter{
		Type:  core.TransactionType(r.URL.Query().Get("type")),
		Limit: queryInt(r, "limit", 100),
	}
	if filter.Type != "" && !core.ValidTransactionType(filter.Type) {
		s.writeError(w, r, core.FieldErrors{"type": "must be INCOME or EXPENSE"})
		return
	}
	if v := r.URL.Query().Get("categoryId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.writeError(w, r, core.FieldErrors{"categoryId": "must be an integer"})
			return
		}
		filter.CategoryID = id
	}
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := parseTimeField("from", v)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		filter.From = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := parseTimeField("to", v)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		filter.To = t
	}

	txns, err := s.repo.ListTransactions(r.Context(), userID(r.Context()), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]transactionResponse, 0, len(txns))
	for _, t := range txns {
		out = append(out, toTransactionResponse(t))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	amount, err := parseAmountField("amount", req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	occurredAt, err := parseTimeField("occurredAt", req.OccurredAt)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	uid := userID(r.Context())
	currency, err := s.repo.UserCurrency(r.Context(), uid)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.ledger.CreateTransaction(r.Context(), core.Transaction{
		UserID:         uid,
		Type:           core.TransactionType(req.Type),
		Amount:         amount,
		Currency:       currency,
		OccurredAt:     occurredAt,
		Description:    req.Description,
		CategoryID:     req.CategoryID,
		AccountID:      req.AccountID,
		IncomeSourceID: req.IncomeSourceID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toTransactionResponse(created))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.ledger.DeleteTransaction(r.Context(), userID(r.Context()), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBulkDeleteTransactions(w http.ResponseWriter, r *http.Request) {
	n, err := s.ledger.DeleteAllTransactions(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
