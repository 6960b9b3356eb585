package http

import (
	"bytes"
	"fmt"
	"net/http"

	"gastos/internal/aggregate"
	"gastos/internal/export"
)

const maxTrendMonths = 60

// Views are recomputed from a fresh snapshot on every request.

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, aggregate.BuildDashboard(s.ledger.Snapshot(), s.now(), s.views))
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, aggregate.Summarize(s.ledger.Snapshot()))
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	months, err := queryInt(r, "months", s.trendMonths())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if months > maxTrendMonths {
		s.writeError(w, r, badRequest("months must be at most %d", maxTrendMonths))
		return
	}
	writeJSON(w, http.StatusOK, aggregate.MonthlyTrend(s.ledger.Snapshot().Expenses, s.now(), months))
}

func (s *Server) handleBudgetRisk(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", s.atRiskLimit())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap := s.ledger.Snapshot()
	statuses := aggregate.BudgetRisk(snap.Budgets, aggregate.TotalsByCategory(snap.Expenses))
	writeJSON(w, http.StatusOK, map[string][]aggregate.BudgetStatus{
		"budgets": statuses,
		"atRisk":  aggregate.AtRisk(statuses, limit, nil),
	})
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", s.recentLimit())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, aggregate.RecentActivity(s.ledger.Snapshot(), limit))
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, s.ledger.Snapshot()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeAttachment(w, "text/csv; charset=utf-8", export.CSVFilename, buf.Bytes())
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := export.WriteJSON(&buf, s.ledger.Snapshot(), s.now()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeAttachment(w, "application/json; charset=utf-8", export.JSONFilename, buf.Bytes())
}

// writeAttachment buffers the whole file so a failed export never sends
// a truncated download with a 200 status.
func writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) trendMonths() int {
	if s.views.TrendMonths > 0 {
		return s.views.TrendMonths
	}
	return aggregate.DefaultTrendMonths
}

func (s *Server) recentLimit() int {
	if s.views.RecentLimit > 0 {
		return s.views.RecentLimit
	}
	return aggregate.DefaultRecentLimit
}

func (s *Server) atRiskLimit() int {
	if s.views.AtRiskLimit > 0 {
		return s.views.AtRiskLimit
	}
	return aggregate.DefaultAtRiskLimit
}
