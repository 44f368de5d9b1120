package http

import (
	"net/http"
	"time"

	"tally/internal/core"
)

type goalRequest struct {
	Name         string `json:"name"`
	TargetAmount string `json:"targetAmount"`
	Deadline     string `json:"deadline"`
	IsArchived   bool   `json:"isArchived"`
}

type goalResponse struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	TargetAmount  string `json:"targetAmount"`
	CurrentAmount string `json:"currentAmount"`
	Deadline      string `json:"deadline,omitempty"`
	IsArchived    bool   `json:"isArchived"`
}

func toGoalResponse(g core.SavingsGoal) goalResponse {
	resp := goalResponse{
		ID:            g.ID,
		Name:          g.Name,
		TargetAmount:  g.TargetAmount.String(),
		CurrentAmount: g.CurrentAmount.String(),
		IsArchived:    g.IsArchived,
	}
	if g.Deadline != nil {
		resp.Deadline = g.Deadline.UTC().Format(time.RFC3339)
	}
	return resp
}

func (s *Server) goalFromRequest(r *http.Request, req goalRequest) (core.SavingsGoal, error) {
	target, err := parseAmountField("targetAmount", req.TargetAmount)
	if err != nil {
		return core.SavingsGoal{}, err
	}

	goal := core.SavingsGoal{
		UserID:       userID(r.Context()),
		Name:         req.Name,
		TargetAmount: target,
		IsArchived:   req.IsArchived,
	}
	if req.Deadline != "" {
		deadline, err := parseTimeField("deadline", req.Deadline)
		if err != nil {
			return core.SavingsGoal{}, err
		}
		goal.Deadline = &deadline
	}
	return goal, goal.Validate()
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.repo.ListGoals(r.Context(), userID(r.Context()), queryBool(r, "includeArchived"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]goalResponse, 0, len(goals))
	for _, g := range goals {
		out = append(out, toGoalResponse(g))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	goal, err := s.goalFromRequest(r, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.repo.CreateGoal(r.Context(), goal)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toGoalResponse(created))
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	goal, err := s.repo.GetGoal(r.Context(), userID(r.Context()), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toGoalResponse(goal))
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req goalRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	goal, err := s.goalFromRequest(r, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	goal.ID = id

	if err := s.repo.UpdateGoal(r.Context(), goal); err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := s.repo.GetGoal(r.Context(), userID(r.Context()), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toGoalResponse(updated))
}

func (s *Server) handleArchiveGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.repo.ArchiveGoal(r.Context(), userID(r.Context()), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBulkDeleteGoals(w http.ResponseWriter, r *http.Request) {
	n, err := s.repo.DeleteAllGoals(r.Context(), userID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

type contributionRequest struct {
	Amount string `json:"amount"`
	MadeAt string `json:"madeAt"`
	Note   string `json:"note"`
}

type contributionResponse struct {
	ID     int64  `json:"id"`
	GoalID int64  `json:"goalId"`
	Amount string `json:"amount"`
	MadeAt string `json:"madeAt"`
	Note   string `json:"note,omitempty"`
}

func toContributionResponse(c core.GoalContribution) contributionResponse {
	return contributionResponse{
		ID:     c.ID,
		GoalID: c.GoalID,
		Amount: c.Amount.String(),
		MadeAt: c.MadeAt.UTC().Format(time.RFC3339),
		Note:   c.Note,
	}
}

func (s *Server) handleListContributions(w http.ResponseWriter, r *http.Request) {
	goalID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	contributions, err := s.repo.ListContributions(r.Context(), userID(r.Context()), goalID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]contributionResponse, 0, len(contributions))
	for _, c := range contributions {
		out = append(out, toContributionResponse(c))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRecordContribution(w http.ResponseWriter, r *http.Request) {
	goalID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req contributionRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	amount, err := parseAmountField("amount", req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	madeAt, err := parseTimeField("madeAt", req.MadeAt)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.ledger.RecordContribution(r.Context(), core.GoalContribution{
		UserID: userID(r.Context()),
		GoalID: goalID,
		Amount: amount,
		MadeAt: madeAt,
		Note:   req.Note,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toContributionResponse(created))
}

func (s *Server) handleDeleteContribution(w http.ResponseWriter, r *http.Request) {
	goalID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	contributionID, err := pathID(r, "contributionID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.ledger.DeleteContribution(r.Context(), userID(r.Context()), goalID, contributionID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
