package http

import (
	"net/http"

	"tally/internal/importer"
)

type importRequest struct {
	Content string `json:"content"`
	Mapping struct {
		Date        string `json:"date"`
		Amount      string `json:"amount"`
		Category    string `json:"category"`
		Merchant    string `json:"merchant"`
		Description string `json:"description"`
		Account     string `json:"account"`
	} `json:"mapping"`
}

// handleImport accepts a raw CSV statement plus a column mapping and runs it
// through the import pipeline. The response is the run summary, including
// per-row skip reasons.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := s.decodeJSONLimit(w, r, &req, s.cfg.ImportMaxBodyBytes); err != nil {
		s.writeError(w, r, err)
		return
	}

	summary, err := s.ledger.ImportStatement(r.Context(), userID(r.Context()), req.Content, importer.Mapping{
		Date:        req.Mapping.Date,
		Amount:      req.Mapping.Amount,
		Category:    req.Mapping.Category,
		Merchant:    req.Mapping.Merchant,
		Description: req.Mapping.Description,
		Account:     req.Mapping.Account,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}
