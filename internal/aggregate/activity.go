package aggregate

import (
	"cmp"
	"slices"

	"gastos/internal/core"
)

const DefaultRecentLimit = 5

// RecentActivity merges expenses and receivables, newest id first, and
// returns at most limit entries.
func RecentActivity(s core.Snapshot, limit int) []core.Activity {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	out := make([]core.Activity, 0, len(s.Expenses)+len(s.Receivables))
	out = appendActivity(out, s.Expenses)
	out = appendActivity(out, s.Receivables)
	slices.SortFunc(out, func(a, b core.Activity) int { return cmp.Compare(b.ID, a.ID) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func appendActivity[R core.Record](out []core.Activity, records []R) []core.Activity {
	for _, r := range records {
		out = append(out, core.Activity{
			Kind:     r.RecordKind(),
			ID:       r.RecordID(),
			Amount:   r.Value(),
			Category: r.Label(),
			Name:     r.Title(),
			Date:     r.On(),
		})
	}
	return out
}
