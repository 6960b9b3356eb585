// Package http serves the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"gastos/internal/aggregate"
	"gastos/internal/core"
	"gastos/internal/ledger"
	applog "gastos/internal/log"
	"gastos/internal/middleware/security"
	"gastos/internal/middleware/trace"
)

// Ledger is the subset of *ledger.Store the API drives.
type Ledger interface {
	AddExpense(ctx context.Context, in ledger.ExpenseInput) (core.Expense, error)
	UpdateExpense(ctx context.Context, id int64, p ledger.ExpensePatch) (core.Expense, error)
	DeleteExpense(ctx context.Context, id int64) (bool, error)
	Expense(id int64) (core.Expense, error)
	ListExpenses() []core.Expense

	AddReceivable(ctx context.Context, in ledger.ReceivableInput) (core.Receivable, error)
	UpdateReceivable(ctx context.Context, id int64, p ledger.ReceivablePatch) (core.Receivable, error)
	DeleteReceivable(ctx context.Context, id int64) (bool, error)
	Receivable(id int64) (core.Receivable, error)
	ListReceivables() []core.Receivable

	SetInitialAmount(ctx context.Context, v decimal.Decimal) (decimal.Decimal, error)
	SetUserName(ctx context.Context, name string) (string, error)
	SetBudget(ctx context.Context, category core.Category, limit decimal.Decimal) (core.Budget, error)
	DeleteBudget(ctx context.Context, category core.Category) (bool, error)
	Budgets() []core.Budget
	ClearAll(ctx context.Context) error

	Snapshot() core.Snapshot
}

type Server struct {
	http.Server
	ledger Ledger
	logger *applog.Logger
	now    func() time.Time
	views  aggregate.Options
}

type Option func(*Server)

func WithLogger(l *applog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l.WithComponent(applog.ComponentHTTP)
		}
	}
}

// WithClock overrides the clock used for trends and export stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithViewOptions sets the default trend length and list limits.
func WithViewOptions(o aggregate.Options) Option {
	return func(s *Server) { s.views = o }
}

func NewServer(addr string, l Ledger, opts ...Option) *Server {
	s := &Server{
		ledger: l,
		logger: applog.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(trace.NewMiddleware(s.logger).Middleware)
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErrorMessage(w, http.StatusNotFound, errTypeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErrorMessage(w, http.StatusMethodNotAllowed, errTypeBadRequest, "method not allowed")
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", s.handleListExpenses)
			r.Post("/", s.handleCreateExpense)
			r.Get("/{id}", s.handleGetExpense)
			r.Put("/{id}", s.handleUpdateExpense)
			r.Delete("/{id}", s.handleDeleteExpense)
		})
		r.Route("/receivables", func(r chi.Router) {
			r.Get("/", s.handleListReceivables)
			r.Post("/", s.handleCreateReceivable)
			r.Get("/{id}", s.handleGetReceivable)
			r.Put("/{id}", s.handleUpdateReceivable)
			r.Delete("/{id}", s.handleDeleteReceivable)
		})
		r.Route("/budgets", func(r chi.Router) {
			r.Get("/", s.handleListBudgets)
			r.Put("/{category}", s.handleSetBudget)
			r.Delete("/{category}", s.handleDeleteBudget)
		})
		r.Get("/categories", s.handleCategories)
		r.Put("/initial-amount", s.handleSetInitialAmount)
		r.Put("/user-name", s.handleSetUserName)
		r.Delete("/ledger", s.handleClearLedger)

		r.Get("/dashboard", s.handleDashboard)
		r.Get("/balance", s.handleBalance)
		r.Get("/trend", s.handleTrend)
		r.Get("/budget-risk", s.handleBudgetRisk)
		r.Get("/recent", s.handleRecent)

		r.Get("/export.csv", s.handleExportCSV)
		r.Get("/export.json", s.handleExportJSON)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports the ledger size; it only fails if the ledger is
// not wired.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeErrorMessage(w, http.StatusServiceUnavailable, errTypeInternal, "ledger not ready")
		return
	}
	snap := s.ledger.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ready",
		"expenses":    len(snap.Expenses),
		"receivables": len(snap.Receivables),
	})
}
