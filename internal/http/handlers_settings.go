package http

import (
	"net/http"

	"gastos/internal/core"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Budgets())
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	category, err := parseCategory(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := s.ledger.SetBudget(r.Context(), category, amountOrZero(req.Limit))
	s.writeMutation(w, r, http.StatusOK, b, err)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	category, err := parseCategory(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	deleted, err := s.ledger.DeleteBudget(r.Context(), category)
	s.writeMutation(w, r, http.StatusOK, map[string]any{
		"category": category,
		"deleted":  deleted,
	}, err)
}

// handleCategories lists the suggested categories of each kind.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]core.Category{
		"expense":    core.Categories(core.KindExpense),
		"receivable": core.Categories(core.KindReceivable),
	})
}

func (s *Server) handleSetInitialAmount(w http.ResponseWriter, r *http.Request) {
	var req initialAmountRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Amount == nil {
		s.writeError(w, r, core.Invalid("amount", core.ErrInvalidAmount))
		return
	}
	v, err := s.ledger.SetInitialAmount(r.Context(), req.Amount.Decimal)
	s.writeMutation(w, r, http.StatusOK, map[string]any{"initialAmount": v}, err)
}

func (s *Server) handleSetUserName(w http.ResponseWriter, r *http.Request) {
	var req userNameRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	name, err := s.ledger.SetUserName(r.Context(), deref(req.UserName))
	s.writeMutation(w, r, http.StatusOK, map[string]string{"userName": name}, err)
}

func (s *Server) handleClearLedger(w http.ResponseWriter, r *http.Request) {
	err := s.ledger.ClearAll(r.Context())
	s.writeMutation(w, r, http.StatusOK, map[string]bool{"cleared": true}, err)
}
