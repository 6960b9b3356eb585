// Package ledger owns the expense and receivable collections, the
// starting balance and the budgets. Every mutation is validated, applied,
// written through the KeyValueStore and then announced to the Notifier.
package ledger

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"gastos/internal/core"
	applog "gastos/internal/log"
)

// Store is the single owner of record identity and lifetime.
type Store struct {
	mu          sync.RWMutex
	kv          KeyValueStore
	notifier    Notifier
	logger      *applog.Logger
	now         func() time.Time
	seedBudgets []core.Budget

	userName      string
	initialAmount decimal.Decimal
	expenses      []core.Expense
	receivables   []core.Receivable
	budgets       []core.Budget
	lastID        int64
}

type Option func(*Store)

func WithLogger(l *applog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l.WithComponent(applog.ComponentLedger)
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithClock overrides the clock used for default dates and event times.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDefaultBudgets replaces the budgets seeded when none are persisted.
func WithDefaultBudgets(b []core.Budget) Option {
	return func(s *Store) {
		if len(b) > 0 {
			s.seedBudgets = slices.Clone(b)
		}
	}
}

// Open loads the persisted state from kv and returns a ready Store.
func Open(ctx context.Context, kv KeyValueStore, opts ...Option) (*Store, error) {
	s := &Store{
		kv:            kv,
		logger:        applog.FromContext(ctx).WithComponent(applog.ComponentLedger),
		now:           time.Now,
		seedBudgets:   core.DefaultBudgets(),
		initialAmount: decimal.Zero,
		expenses:      []core.Expense{},
		receivables:   []core.Receivable{},
		budgets:       []core.Budget{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) today() core.Date { return core.DateOf(s.now()) }

// AddExpense validates in, assigns a fresh id and stores the expense as
// the newest one.
func (s *Store) AddExpense(ctx context.Context, in ExpenseInput) (core.Expense, error) {
	var added core.Expense
	err := s.mutate(ctx, func() (*Event, []string, error) {
		e, err := buildExpense(s.lastID+1, in, s.today())
		if err != nil {
			return nil, nil, err
		}
		s.lastID = e.ID
		s.expenses = slices.Insert(s.expenses, 0, e)
		added = e
		return &Event{Kind: recordEventKind(core.KindExpense), Op: OpCreate, RecordID: e.ID}, []string{KeyExpenses, KeyLastID}, nil
	})
	if err != nil && !core.IsPersistence(err) {
		return core.Expense{}, err
	}
	return added, err
}

// AddReceivable validates in, assigns a fresh id and stores the
// receivable as the newest one.
func (s *Store) AddReceivable(ctx context.Context, in ReceivableInput) (core.Receivable, error) {
	var added core.Receivable
	err := s.mutate(ctx, func() (*Event, []string, error) {
		r, err := buildReceivable(s.lastID+1, in, s.today())
		if err != nil {
			return nil, nil, err
		}
		s.lastID = r.ID
		s.receivables = slices.Insert(s.receivables, 0, r)
		added = r
		return &Event{Kind: recordEventKind(core.KindReceivable), Op: OpCreate, RecordID: r.ID}, []string{KeyReceivables, KeyLastID}, nil
	})
	if err != nil && !core.IsPersistence(err) {
		return core.Receivable{}, err
	}
	return added, err
}

// UpdateExpense applies p to the expense with id. The id and the
// position in the collection never change.
func (s *Store) UpdateExpense(ctx context.Context, id int64, p ExpensePatch) (core.Expense, error) {
	var updated core.Expense
	err := s.mutate(ctx, func() (*Event, []string, error) {
		i := slices.IndexFunc(s.expenses, func(e core.Expense) bool { return e.ID == id })
		if i < 0 {
			return nil, nil, &core.NotFoundError{Kind: core.KindExpense, ID: id}
		}
		e, err := buildExpense(id, p.apply(s.expenses[i]), s.today())
		if err != nil {
			return nil, nil, err
		}
		s.expenses[i] = e
		updated = e
		return &Event{Kind: recordEventKind(core.KindExpense), Op: OpUpdate, RecordID: id}, []string{KeyExpenses}, nil
	})
	if err != nil && !core.IsPersistence(err) {
		return core.Expense{}, err
	}
	return updated, err
}

// UpdateReceivable applies p to the receivable with id.
func (s *Store) UpdateReceivable(ctx context.Context, id int64, p ReceivablePatch) (core.Receivable, error) {
	var updated core.Receivable
	err := s.mutate(ctx, func() (*Event, []string, error) {
		i := slices.IndexFunc(s.receivables, func(r core.Receivable) bool { return r.ID == id })
		if i < 0 {
			return nil, nil, &core.NotFoundError{Kind: core.KindReceivable, ID: id}
		}
		r, err := buildReceivable(id, p.apply(s.receivables[i]), s.today())
		if err != nil {
			return nil, nil, err
		}
		s.receivables[i] = r
		updated = r
		return &Event{Kind: recordEventKind(core.KindReceivable), Op: OpUpdate, RecordID: id}, []string{KeyReceivables}, nil
	})
	if err != nil && !core.IsPersistence(err) {
		return core.Receivable{}, err
	}
	return updated, err
}

// DeleteExpense removes the expense with id. Deleting an unknown id is a
// no-op and reports false.
func (s *Store) DeleteExpense(ctx context.Context, id int64) (bool, error) {
	deleted := false
	err := s.mutate(ctx, func() (*Event, []string, error) {
		i := slices.IndexFunc(s.expenses, func(e core.Expense) bool { return e.ID == id })
		if i < 0 {
			return nil, nil, nil
		}
		s.expenses = slices.Delete(s.expenses, i, i+1)
		deleted = true
		return &Event{Kind: recordEventKind(core.KindExpense), Op: OpDelete, RecordID: id}, []string{KeyExpenses}, nil
	})
	return deleted, err
}

// DeleteReceivable removes the receivable with id; unknown ids are a no-op.
func (s *Store) DeleteReceivable(ctx context.Context, id int64) (bool, error) {
	deleted := false
	err := s.mutate(ctx, func() (*Event, []string, error) {
		i := slices.IndexFunc(s.receivables, func(r core.Receivable) bool { return r.ID == id })
		if i < 0 {
			return nil, nil, nil
		}
		s.receivables = slices.Delete(s.receivables, i, i+1)
		deleted = true
		return &Event{Kind: recordEventKind(core.KindReceivable), Op: OpDelete, RecordID: id}, []string{KeyReceivables}, nil
	})
	return deleted, err
}

// SetInitialAmount replaces the starting balance. Negative values are
// rejected and large ones clamped.
func (s *Store) SetInitialAmount(ctx context.Context, v decimal.Decimal) (decimal.Decimal, error) {
	var stored decimal.Decimal
	err := s.mutate(ctx, func() (*Event, []string, error) {
		if v.IsNegative() {
			return nil, nil, core.Invalid("initialAmount", core.ErrNegativeAmount)
		}
		s.initialAmount = core.ClampAmount(v)
		stored = s.initialAmount
		return &Event{Kind: EventKindInitialAmount, Op: OpSet}, []string{KeyInitialAmount}, nil
	})
	if err != nil && !core.IsPersistence(err) {
		return decimal.Zero, err
	}
	return stored, err
}

// SetUserName stores the display name, capped at MaxUserNameLength.
func (s *Store) SetUserName(ctx context.Context, name string) (string, error) {
	var stored string
	err := s.mutate(ctx, func() (*Event, []string, error) {
		s.userName = core.Truncate(name, core.MaxUserNameLength)
		stored = s.userName
		return &Event{Kind: EventKindUserName, Op: OpSet}, []string{KeyUserName}, nil
	})
	return stored, err
}

// SetBudget inserts or replaces the budget of category.
func (s *Store) SetBudget(ctx context.Context, category core.Category, limit decimal.Decimal) (core.Budget, error) {
	var stored core.Budget
	err := s.mutate(ctx, func() (*Event, []string, error) {
		b := core.Budget{Category: core.NewCategory(string(category)), Limit: core.ClampAmount(limit)}
		if err := b.Validate(); err != nil {
			return nil, nil, err
		}
		if i := s.budgetIndex(b.Category); i >= 0 {
			s.budgets[i] = b
		} else {
			s.budgets = append(s.budgets, b)
		}
		stored = b
		return &Event{Kind: EventKindBudget, Op: OpSet}, []string{KeyBudgets}, nil
	})
	if err != nil && !core.IsPersistence(err) {
		return core.Budget{}, err
	}
	return stored, err
}

// DeleteBudget removes the budget of category; unknown categories are a no-op.
func (s *Store) DeleteBudget(ctx context.Context, category core.Category) (bool, error) {
	deleted := false
	err := s.mutate(ctx, func() (*Event, []string, error) {
		i := s.budgetIndex(core.NewCategory(string(category)))
		if i < 0 {
			return nil, nil, nil
		}
		s.budgets = slices.Delete(s.budgets, i, i+1)
		deleted = true
		return &Event{Kind: EventKindBudget, Op: OpDelete}, []string{KeyBudgets}, nil
	})
	return deleted, err
}

// ClearAll empties both collections and resets the starting balance.
// The id sequence survives so ids are never reused.
func (s *Store) ClearAll(ctx context.Context) error {
	return s.mutate(ctx, func() (*Event, []string, error) {
		s.expenses = []core.Expense{}
		s.receivables = []core.Receivable{}
		s.initialAmount = decimal.Zero
		return &Event{Kind: EventKindLedger, Op: OpClear}, []string{KeyExpenses, KeyReceivables, KeyInitialAmount}, nil
	})
}

func (s *Store) budgetIndex(c core.Category) int {
	return slices.IndexFunc(s.budgets, func(b core.Budget) bool {
		return strings.EqualFold(string(b.Category), string(c))
	})
}

// ListExpenses returns the expenses newest-first.
func (s *Store) ListExpenses() []core.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.expenses)
}

// ListReceivables returns the receivables newest-first.
func (s *Store) ListReceivables() []core.Receivable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.receivables)
}

func (s *Store) Budgets() []core.Budget {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.budgets)
}

func (s *Store) InitialAmount() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialAmount
}

func (s *Store) UserName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userName
}

func (s *Store) Expense(id int64) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.expenses {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Expense{}, &core.NotFoundError{Kind: core.KindExpense, ID: id}
}

func (s *Store) Receivable(id int64) (core.Receivable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.receivables {
		if r.ID == id {
			return r, nil
		}
	}
	return core.Receivable{}, &core.NotFoundError{Kind: core.KindReceivable, ID: id}
}

// Snapshot returns a copy of the full ledger for aggregation and export.
func (s *Store) Snapshot() core.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.Snapshot{
		UserName:      s.userName,
		InitialAmount: s.initialAmount,
		Expenses:      slices.Clone(s.expenses),
		Receivables:   slices.Clone(s.receivables),
		Budgets:       slices.Clone(s.budgets),
	}
}

// mutate runs fn under the write lock, persists the keys it names and
// notifies outside the lock. A nil event means nothing changed.
func (s *Store) mutate(ctx context.Context, fn func() (*Event, []string, error)) error {
	s.mu.Lock()
	ev, keys, err := fn()
	if err != nil || ev == nil {
		s.mu.Unlock()
		return err
	}
	perr := s.saveLocked(ctx, keys...)
	s.mu.Unlock()

	ev.Persisted = perr == nil
	ev.At = s.now()
	fields := applog.NewFields().WithRecord(ev.Kind, ev.RecordID)
	if perr != nil {
		s.logger.LogWarn(ctx, "Change kept in memory but not persisted", perr, string(ev.Op), fields)
	} else {
		s.logger.DebugContext(ctx, "Ledger change committed", fields.WithOperation(string(ev.Op)).ToSlice()...)
	}
	s.notify(ctx, *ev)
	return perr
}

func (s *Store) notify(ctx context.Context, ev Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.logger.LogWarn(ctx, "Failed to notify ledger change", err, applog.OpNotify,
			applog.NewFields().WithRecord(ev.Kind, ev.RecordID))
	}
}
