// Package aggregate derives balances, breakdowns, trends and budget risk
// from a ledger snapshot. Every function is pure and recomputes from its
// inputs; nothing here is cached.
package aggregate

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"gastos/internal/core"
)

// CurrentBalance is initialAmount + Σ receivables − Σ expenses.
func CurrentBalance(s core.Snapshot) decimal.Decimal {
	return s.InitialAmount.Add(Sum(s.Receivables)).Sub(Sum(s.Expenses))
}

// Sum adds every amount at full precision.
func Sum[R core.Record](records []R) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Value())
	}
	return total
}

// TotalsByCategory sums amounts per category. Categories without records
// are absent from the result.
func TotalsByCategory[R core.Record](records []R) map[core.Category]decimal.Decimal {
	totals := make(map[core.Category]decimal.Decimal)
	for _, r := range records {
		totals[r.Label()] = totals[r.Label()].Add(r.Value())
	}
	return totals
}

// CategoryBreakdown returns the per-category totals ordered by amount,
// largest first, with ties broken by category name.
func CategoryBreakdown[R core.Record](records []R) []core.CategoryAmount {
	totals := TotalsByCategory(records)
	out := make([]core.CategoryAmount, 0, len(totals))
	for c, amount := range totals {
		out = append(out, core.CategoryAmount{Category: c, Amount: amount})
	}
	slices.SortFunc(out, func(a, b core.CategoryAmount) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	return out
}

// AveragePerRecord is sum/count, or zero for an empty slice.
func AveragePerRecord[R core.Record](records []R) decimal.Decimal {
	if len(records) == 0 {
		return decimal.Zero
	}
	return Sum(records).Div(decimal.NewFromInt(int64(len(records))))
}
