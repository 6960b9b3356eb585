package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Category Category        `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// MonthTotal is the expense total of one calendar month.
type MonthTotal struct {
	Year  int             `json:"year"`
	Month time.Month      `json:"month"`
	Label string          `json:"label"`
	Total decimal.Decimal `json:"total"`
}

// Activity is one entry of the merged recent-activity feed.
type Activity struct {
	Kind     RecordKind      `json:"kind"`
	ID       int64           `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Category Category        `json:"category"`
	Name     string          `json:"name"`
	Date     Date            `json:"date"`
}

// Snapshot is a read-only copy of the whole ledger.
type Snapshot struct {
	UserName      string          `json:"userName"`
	InitialAmount decimal.Decimal `json:"initialAmount"`
	Expenses      []Expense       `json:"expenses"`
	Receivables   []Receivable    `json:"receivables"`
	Budgets       []Budget        `json:"budgets"`
}
