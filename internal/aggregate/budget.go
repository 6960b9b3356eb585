package aggregate

import (
	"cmp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"gastos/internal/core"
)

// RiskTier classifies how much of a budget has been consumed.
type RiskTier string

const (
	TierSafe     RiskTier = "safe"
	TierWarning  RiskTier = "warning"
	TierCritical RiskTier = "critical"
)

const DefaultAtRiskLimit = 3

var (
	hundred           = decimal.NewFromInt(100)
	warningThreshold  = decimal.NewFromInt(75)
	criticalThreshold = decimal.NewFromInt(91)
)

// BudgetStatus is the consumption of one budget.
type BudgetStatus struct {
	Category   core.Category   `json:"category"`
	Limit      decimal.Decimal `json:"limit"`
	Spent      decimal.Decimal `json:"spent"`
	Percentage decimal.Decimal `json:"percentage"`
	Tier       RiskTier        `json:"tier"`
}

// Tier maps a percentage to its risk tier: 91 and above is critical,
// 75 and above is warning.
func Tier(pct decimal.Decimal) RiskTier {
	switch {
	case pct.GreaterThanOrEqual(criticalThreshold):
		return TierCritical
	case pct.GreaterThanOrEqual(warningThreshold):
		return TierWarning
	default:
		return TierSafe
	}
}

// BudgetRisk computes spent/limit*100 for every budget, in budget order.
// Spending is matched to budgets case-insensitively and defaults to zero.
func BudgetRisk(budgets []core.Budget, spent map[core.Category]decimal.Decimal) []BudgetStatus {
	folded := make(map[string]decimal.Decimal, len(spent))
	for c, v := range spent {
		key := strings.ToLower(string(c))
		folded[key] = folded[key].Add(v)
	}

	out := make([]BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		s := folded[strings.ToLower(string(b.Category))]
		pct := decimal.Zero
		if b.Limit.IsPositive() {
			pct = s.Div(b.Limit).Mul(hundred)
		}
		out = append(out, BudgetStatus{
			Category:   b.Category,
			Limit:      b.Limit,
			Spent:      s,
			Percentage: pct,
			Tier:       Tier(pct),
		})
	}
	return out
}

// ByPercentageDesc orders statuses by percentage, highest first.
func ByPercentageDesc(a, b BudgetStatus) int {
	if c := b.Percentage.Cmp(a.Percentage); c != 0 {
		return c
	}
	return cmp.Compare(a.Category, b.Category)
}

// AtRisk keeps the statuses between 75% and 100% inclusive, sorts them
// with order (ByPercentageDesc when nil) and returns at most limit entries.
// Overspent budgets are not part of this view.
func AtRisk(statuses []BudgetStatus, limit int, order func(a, b BudgetStatus) int) []BudgetStatus {
	if limit <= 0 {
		limit = DefaultAtRiskLimit
	}
	if order == nil {
		order = ByPercentageDesc
	}
	out := make([]BudgetStatus, 0, len(statuses))
	for _, s := range statuses {
		if s.Percentage.GreaterThanOrEqual(warningThreshold) && s.Percentage.LessThanOrEqual(hundred) {
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, order)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
