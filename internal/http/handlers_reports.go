package http

import (
	"net/http"
	"time"

	"tally/internal/core"
)

type categoryAmountResponse struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

type monthSummaryResponse struct {
	Year       int                      `json:"year"`
	Month      int                      `json:"month"`
	Income     string                   `json:"income"`
	Expenses   string                   `json:"expenses"`
	Net        string                   `json:"net"`
	ByCategory []categoryAmountResponse `json:"byCategory"`
}

func toMonthSummaryResponse(s core.MonthSummary) monthSummaryResponse {
	resp := monthSummaryResponse{
		Year:       s.Year,
		Month:      s.Month,
		Income:     s.Income.String(),
		Expenses:   s.Expenses.String(),
		Net:        s.Net.String(),
		ByCategory: make([]categoryAmountResponse, 0, len(s.ByCategory)),
	}
	for _, c := range s.ByCategory {
		resp.ByCategory = append(resp.ByCategory, categoryAmountResponse{Name: c.Name, Amount: c.Amount.String()})
	}
	return resp
}

// handleMonthSummary serves the monthly report. Year and month default to the
// current calendar month.
func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	year := queryInt(r, "year", now.Year())
	month := queryInt(r, "month", int(now.Month()))
	if month < 1 || month > 12 {
		s.writeError(w, r, core.FieldErrors{"month": "must be between 1 and 12"})
		return
	}
	if year < 1970 || year > 9999 {
		s.writeError(w, r, core.FieldErrors{"year": "must be a four-digit year"})
		return
	}

	summary, err := s.ledger.MonthSummary(r.Context(), userID(r.Context()), year, month)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toMonthSummaryResponse(summary))
}
