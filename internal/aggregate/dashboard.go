package aggregate

import (
	"time"

	"github.com/shopspring/decimal"

	"gastos/internal/core"
)

// Summary holds the headline figures of the ledger.
type Summary struct {
	UserName       string          `json:"userName"`
	InitialAmount  decimal.Decimal `json:"initialAmount"`
	Balance        decimal.Decimal `json:"balance"`
	TotalSpent     decimal.Decimal `json:"totalSpent"`
	TotalReceived  decimal.Decimal `json:"totalReceived"`
	SpentPercent   decimal.Decimal `json:"spentPercent"`
	ExpenseCount   int             `json:"expenseCount"`
	IncomeCount    int             `json:"incomeCount"`
	AverageExpense decimal.Decimal `json:"averageExpense"`
}

// Summarize computes the headline figures. SpentPercent is the share of
// the initial amount already spent, zero when there is no initial amount.
func Summarize(s core.Snapshot) Summary {
	spent := Sum(s.Expenses)
	pct := decimal.Zero
	if s.InitialAmount.IsPositive() {
		pct = spent.Div(s.InitialAmount).Mul(hundred)
	}
	return Summary{
		UserName:       s.UserName,
		InitialAmount:  s.InitialAmount,
		Balance:        CurrentBalance(s),
		TotalSpent:     spent,
		TotalReceived:  Sum(s.Receivables),
		SpentPercent:   pct,
		ExpenseCount:   len(s.Expenses),
		IncomeCount:    len(s.Receivables),
		AverageExpense: AveragePerRecord(s.Expenses),
	}
}

// Options tunes BuildDashboard; zero values select the defaults.
type Options struct {
	TrendMonths int
	RecentLimit int
	AtRiskLimit int
}

// Dashboard bundles every derived view of a snapshot.
type Dashboard struct {
	Summary          Summary               `json:"summary"`
	ExpensesByCat    []core.CategoryAmount `json:"expensesByCategory"`
	ReceivablesByCat []core.CategoryAmount `json:"receivablesByCategory"`
	Trend            []core.MonthTotal     `json:"trend"`
	Budgets          []BudgetStatus        `json:"budgets"`
	AtRisk           []BudgetStatus        `json:"atRisk"`
	Recent           []core.Activity       `json:"recent"`
	GeneratedAt      time.Time             `json:"generatedAt"`
}

func BuildDashboard(s core.Snapshot, now time.Time, opts Options) Dashboard {
	statuses := BudgetRisk(s.Budgets, TotalsByCategory(s.Expenses))
	return Dashboard{
		Summary:          Summarize(s),
		ExpensesByCat:    CategoryBreakdown(s.Expenses),
		ReceivablesByCat: CategoryBreakdown(s.Receivables),
		Trend:            MonthlyTrend(s.Expenses, now, opts.TrendMonths),
		Budgets:          statuses,
		AtRisk:           AtRisk(statuses, opts.AtRiskLimit, nil),
		Recent:           RecentActivity(s, opts.RecentLimit),
		GeneratedAt:      now,
	}
}
