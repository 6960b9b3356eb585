package aggregate

import (
	"time"

	"github.com/shopspring/decimal"

	"gastos/internal/core"
)

const DefaultTrendMonths = 6

// MonthlyTrend totals expenses for the trailing monthsBack months ending
// at the month of now, oldest first. Months without expenses are present
// with a zero total so the series always has monthsBack entries.
func MonthlyTrend(expenses []core.Expense, now time.Time, monthsBack int) []core.MonthTotal {
	if monthsBack <= 0 {
		monthsBack = DefaultTrendMonths
	}
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(monthsBack - 1), 0)

	out := make([]core.MonthTotal, monthsBack)
	index := make(map[[2]int]int, monthsBack)
	for i := range out {
		m := start.AddDate(0, i, 0)
		out[i] = core.MonthTotal{
			Year:  m.Year(),
			Month: m.Month(),
			Label: m.Format("2006-01"),
			Total: decimal.Zero,
		}
		index[[2]int{m.Year(), int(m.Month())}] = i
	}

	for _, e := range expenses {
		if i, ok := index[[2]int{e.Date.Year(), e.Date.Month()}]; ok {
			out[i].Total = out[i].Total.Add(e.Amount)
		}
	}
	return out
}
