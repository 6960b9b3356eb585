package http

import (
	"net/http"
)

type deleteResult struct {
	ID      int64 `json:"id"`
	Deleted bool  `json:"deleted"`
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.ListExpenses())
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	e, err := s.ledger.Expense(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	e, err := s.ledger.AddExpense(r.Context(), in)
	s.writeMutation(w, r, http.StatusCreated, e, err)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := req.patch()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	e, err := s.ledger.UpdateExpense(r.Context(), id, p)
	s.writeMutation(w, r, http.StatusOK, e, err)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	deleted, err := s.ledger.DeleteExpense(r.Context(), id)
	s.writeMutation(w, r, http.StatusOK, deleteResult{ID: id, Deleted: deleted}, err)
}

func (s *Server) handleListReceivables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.ListReceivables())
}

func (s *Server) handleGetReceivable(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.ledger.Receivable(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCreateReceivable(w http.ResponseWriter, r *http.Request) {
	var req receivableRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.ledger.AddReceivable(r.Context(), in)
	s.writeMutation(w, r, http.StatusCreated, rec, err)
}

func (s *Server) handleUpdateReceivable(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req receivableRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := req.patch()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.ledger.UpdateReceivable(r.Context(), id, p)
	s.writeMutation(w, r, http.StatusOK, rec, err)
}

func (s *Server) handleDeleteReceivable(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	deleted, err := s.ledger.DeleteReceivable(r.Context(), id)
	s.writeMutation(w, r, http.StatusOK, deleteResult{ID: id, Deleted: deleted}, err)
}
