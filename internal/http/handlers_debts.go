package http

import (
	"net/http"
	"time"

	"tally/internal/core"
)

type debtRequest struct {
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	Balance        string   `json:"balance"`
	APR            *float64 `json:"apr"`
	MinimumPayment string   `json:"minimumPayment"`
	Lender         string   `json:"lender"`
	DueDay         *int     `json:"dueDay"`
	IsClosed       bool     `json:"isClosed"`
}

type debtResponse struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	Balance        string   `json:"balance"`
	APR            *float64 `json:"apr,omitempty"`
	MinimumPayment string   `json:"minimumPayment"`
	Lender         string   `json:"lender,omitempty"`
	DueDay         *int     `json:"dueDay,omitempty"`
	IsClosed       bool     `json:"isClosed"`
}

func toDebtResponse(d core.Debt) debtResponse {
	return debtResponse{
		ID:             d.ID,
		Name:           d.Name,
		Type:           string(d.Type),
		Balance:        d.Balance.String(),
		APR:            d.APR,
		MinimumPayment: d.MinimumPayment.String(),
		Lender:         d.Lender,
		DueDay:         d.DueDay,
		IsClosed:       d.IsClosed,
	}
}

// debtFromRequest builds the domain object shared by create and update. The
// balance is only read on create; updates never touch it.
func (s *Server) debtFromRequest(r *http.Request, req debtRequest, withBalance bool) (core.Debt, error) {
	debtType := core.DebtType(req.Type)
	if req.Type == "" {
		debtType = core.DebtOtherType
	}
	debt := core.Debt{
		UserID: userID(r.Context()),
		Name:   req.Name,
		Type:   debtType,
		APR:    req.APR,
		Lender: req.Lender,
		DueDay: req.DueDay,
	}
	if withBalance && req.Balance != "" {
		balance, err := parseAmountField("balance", req.Balance)
		if err != nil {
			return core.Debt{}, err
		}
		debt.Balance = balance
	}
	if req.MinimumPayment != "" {
		minPayment, err := parseAmountField("minimumPayment", req.MinimumPayment)
		if err != nil {
			return core.Debt{}, err
		}
		debt.MinimumPayment = minPayment
	}
	return debt, debt.Validate()
}

func (s *Server) handleListDebts(w http.ResponseWriter, r *http.Request) {
	debts, err := s.repo.ListDebts(r.Context(), userID(r.Context()), queryBool(r, "includeClosed"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]debtResponse, 0, len(debts))
	for _, d := range debts {
		out = append(out, toDebtResponse(d))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateDebt(w http.ResponseWriter, r *http.Request) {
	var req debtRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	debt, err := s.debtFromRequest(r, req, true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.repo.CreateDebt(r.Context(), debt)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toDebtResponse(created))
}

func (s *Server) handleGetDebt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	debt, err := s.repo.GetDebt(r.Context(), userID(r.Context()), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toDebtResponse(debt))
}

func (s *Server) handleUpdateDebt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req debtRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	debt, err := s.debtFromRequest(r, req, false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	debt.ID = id
	debt.IsClosed = req.IsClosed

	if err := s.repo.UpdateDebt(r.Context(), debt); err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := s.repo.GetDebt(r.Context(), userID(r.Context()), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toDebtResponse(updated))
}

func (s *Server) handleDeleteDebt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.repo.DeleteDebt(r.Context(), userID(r.Context()), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type paymentRequest struct {
	Amount    string `json:"amount"`
	PaidAt    string `json:"paidAt"`
	Principal string `json:"principal"`
	Interest  string `json:"interest"`
	Note      string `json:"note"`
}

func (s *Server) handleBulkDeleteDebts(w http.ResponseWriter, r *http.Request) {
	n, err := s.repo.DeleteAllDebts(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

type paymentResponse struct {
	ID        int64  `json:"id"`
	DebtID    int64  `json:"debtId"`
	Amount    string `json:"amount"`
	PaidAt    string `json:"paidAt"`
	Principal string `json:"principal,omitempty"`
	Interest  string `json:"interest,omitempty"`
	Note      string `json:"note,omitempty"`
}

func toPaymentResponse(p core.DebtPayment) paymentResponse {
	resp := paymentResponse{
		ID:     p.ID,
		DebtID: p.DebtID,
		Amount: p.Amount.String(),
		PaidAt: p.PaidAt.UTC().Format(time.RFC3339),
		Note:   p.Note,
	}
	if p.Principal != nil {
		resp.Principal = p.Principal.String()
	}
	if p.Interest != nil {
		resp.Interest = p.Interest.String()
	}
	return resp
}

func (s *Server) paymentFromRequest(r *http.Request, req paymentRequest, debtID int64) (core.DebtPayment, error) {
	amount, err := parseAmountField("amount", req.Amount)
	if err != nil {
		return core.DebtPayment{}, err
	}
	paidAt, err := parseTimeField("paidAt", req.PaidAt)
	if err != nil {
		return core.DebtPayment{}, err
	}

	payment := core.DebtPayment{
		UserID: userID(r.Context()),
		DebtID: debtID,
		Amount: amount,
		PaidAt: paidAt,
		Note:   req.Note,
	}
	if req.Principal != "" {
		principal, err := parseAmountField("principal", req.Principal)
		if err != nil {
			return core.DebtPayment{}, err
		}
		payment.Principal = &principal
	}
	if req.Interest != "" {
		interest, err := parseAmountField("interest", req.Interest)
		if err != nil {
			return core.DebtPayment{}, err
		}
		payment.Interest = &interest
	}
	return payment, nil
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	debtID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	payments, err := s.repo.ListPayments(r.Context(), userID(r.Context()), debtID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentResponse(p))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	debtID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req paymentRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	payment, err := s.paymentFromRequest(r, req, debtID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.ledger.RecordPayment(r.Context(), payment)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toPaymentResponse(created))
}

func (s *Server) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	debtID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	paymentID, err := pathID(r, "paymentID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req paymentRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	payment, err := s.paymentFromRequest(r, req, debtID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	payment.ID = paymentID

	if err := s.ledger.UpdatePayment(r.Context(), payment); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toPaymentResponse(payment))
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	debtID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	paymentID, err := pathID(r, "paymentID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.ledger.DeletePayment(r.Context(), userID(r.Context()), debtID, paymentID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
