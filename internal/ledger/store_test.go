package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/core"
	applog "gastos/internal/log"
	"gastos/internal/storage/memory"
)

var fixedNow = time.Date(2026, time.October, 15, 9, 30, 0, 0, time.UTC)

// flakyKV wraps the memory store and fails writes while failing is set.
type flakyKV struct {
	*memory.Store
	mu      sync.Mutex
	failing bool
}

var errDiskFull = errors.New("disk full")

func (f *flakyKV) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	failing := f.failing
	f.mu.Unlock()
	if failing {
		return errDiskFull
	}
	return f.Store.Set(ctx, key, value)
}

func (f *flakyKV) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	failing := f.failing
	f.mu.Unlock()
	if failing {
		return errDiskFull
	}
	return f.Store.Remove(ctx, key)
}

func (f *flakyKV) setFailing(v bool) {
	f.mu.Lock()
	f.failing = v
	f.mu.Unlock()
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingNotifier) Notify(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingNotifier) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func openStore(t *testing.T, kv KeyValueStore, opts ...Option) *Store {
	t.Helper()
	base := []Option{WithLogger(applog.Discard()), WithClock(func() time.Time { return fixedNow })}
	s, err := Open(context.Background(), kv, append(base, opts...)...)
	require.NoError(t, err)
	return s
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestStoreAddExpenseDefaults(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, memory.New())

	e, err := s.AddExpense(ctx, ExpenseInput{Amount: dec("1500"), Category: core.CategoryFood})
	require.NoError(t, err)

	assert.Equal(t, int64(1), e.ID)
	assert.Equal(t, "Comida", e.Name)
	assert.Equal(t, core.DateOf(fixedNow), e.Date)
	assert.True(t, e.Amount.Equal(dec("1500")))
}

func TestStoreAddExpenseClampsAmount(t *testing.T) {
	s := openStore(t, memory.New())

	e, err := s.AddExpense(context.Background(), ExpenseInput{Amount: dec("1000000000"), Category: core.CategoryOther})
	require.NoError(t, err)
	assert.True(t, e.Amount.Equal(core.MaxAmount), "got %s", e.Amount)
}

func TestStoreAddExpenseValidation(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, memory.New())

	tests := []struct {
		name  string
		in    ExpenseInput
		field string
	}{
		{"zero amount", ExpenseInput{Amount: decimal.Zero, Category: core.CategoryFood}, "amount"},
		{"negative amount", ExpenseInput{Amount: dec("-5"), Category: core.CategoryFood}, "amount"},
		{"blank category", ExpenseInput{Amount: dec("5"), Category: "  "}, "category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddExpense(ctx, tt.in)
			require.Error(t, err)
			var verr *core.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
	assert.Empty(t, s.ListExpenses())
}

func TestStoreTruncatesNameAndNote(t *testing.T) {
	s := openStore(t, memory.New())

	long := "abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyzabcdefghij"
	e, err := s.AddExpense(context.Background(), ExpenseInput{
		Amount: dec("1"), Category: core.CategoryOther, Name: long, Note: long + long,
	})
	require.NoError(t, err)
	assert.Len(t, []rune(e.Name), core.MaxNameLength)
	assert.Len(t, []rune(e.Note), core.MaxNoteLength)
}

func TestStoreAddReceivableRequiresName(t *testing.T) {
	s := openStore(t, memory.New())

	_, err := s.AddReceivable(context.Background(), ReceivableInput{Amount: dec("2000"), Category: core.CategorySalary, Name: "  "})
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))
	assert.ErrorIs(t, err, core.ErrEmptyName)
	assert.Empty(t, s.ListReceivables())
}

func TestStoreNewestFirstAndSharedSequence(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, memory.New())

	first, err := s.AddExpense(ctx, ExpenseInput{Amount: dec("10"), Category: core.CategoryFood})
	require.NoError(t, err)
	income, err := s.AddReceivable(ctx, ReceivableInput{Amount: dec("20"), Category: core.CategoryGift, Name: "Regalo"})
	require.NoError(t, err)
	second, err := s.AddExpense(ctx, ExpenseInput{Amount: dec("30"), Category: core.CategoryTransport})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), income.ID)
	assert.Equal(t, int64(3), second.ID)

	list := s.ListExpenses()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestStoreUpdateExpense(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, memory.New())

	older, _ := s.AddExpense(ctx, ExpenseInput{Amount: dec("10"), Category: core.CategoryFood, Note: "pan"})
	_, _ = s.AddExpense(ctx, ExpenseInput{Amount: dec("20"), Category: core.CategoryHome})

	amount := dec("12.5")
	name := "Panadería"
	updated, err := s.UpdateExpense(ctx, older.ID, ExpensePatch{Amount: &amount, Name: &name})
	require.NoError(t, err)

	assert.Equal(t, older.ID, updated.ID)
	assert.True(t, updated.Amount.Equal(amount))
	assert.Equal(t, "Panadería", updated.Name)
	assert.Equal(t, "pan", updated.Note)
	assert.Equal(t, older.Date, updated.Date)

	list := s.ListExpenses()
	require.Len(t, list, 2)
	assert.Equal(t, older.ID, list[1].ID, "update keeps position")
}

func TestStoreUpdateExpenseErrors(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, memory.New())
	e, _ := s.AddExpense(ctx, ExpenseInput{Amount: dec("10"), Category: core.CategoryFood})

	amount := dec("5")
	_, err := s.UpdateExpense(ctx, 99, ExpensePatch{Amount: &amount})
	require.Error(t, err)
	assert.True(t, core.IsNotFound(err))

	zero := decimal.Zero
	_, err = s.UpdateExpense(ctx, e.ID, ExpensePatch{Amount: &zero})
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))

	got, err := s.Expense(e.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(dec("10")), "failed update leaves record untouched")
}

func TestStoreUpdateReceivable(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, memory.New())
	r, _ := s.AddReceivable(ctx, ReceivableInput{Amount: dec("2000"), Category: core.CategorySalary, Name: "Salario"})

	date := core.NewDate(2026, 9, 30)
	updated, err := s.UpdateReceivable(ctx, r.ID, ReceivablePatch{Date: &date})
	require.NoError(t, err)
	assert.Equal(t, date, updated.Date)
	assert.Equal(t, "Salario", updated.Name)

	blank := ""
	_, err = s.UpdateReceivable(ctx, r.ID, ReceivablePatch{Name: &blank})
	assert.ErrorIs(t, err, core.ErrEmptyName)

	_, err = s.UpdateReceivable(ctx, 42, ReceivablePatch{})
	assert.True(t, core.IsNotFound(err))
}

func TestStoreDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, memory.New())
	e, _ := s.AddExpense(ctx, ExpenseInput{Amount: dec("10"), Category: core.CategoryFood})

	deleted, err := s.DeleteExpense(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteExpense(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = s.DeleteReceivable(ctx, 77)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = s.Expense(e.ID)
	assert.True(t, core.IsNotFound(err))
}

func TestStoreIDsNeverReused(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	s := openStore(t, kv)

	a, _ := s.AddExpense(ctx, ExpenseInput{Amount: dec("1"), Category: core.CategoryFood})
	_, _ = s.DeleteExpense(ctx, a.ID)
	b, _ := s.AddExpense(ctx, ExpenseInput{Amount: dec("1"), Category: core.CategoryFood})
	assert.Greater(t, b.ID, a.ID)

	require.NoError(t, s.ClearAll(ctx))
	c, _ := s.AddReceivable(ctx, ReceivableInput{Amount: dec("1"), Category: core.CategoryGift, Name: "x"})
	assert.Greater(t, c.ID, b.ID)

	reopened := openStore(t, kv)
	d, _ := reopened.AddExpense(ctx, ExpenseInput{Amount: dec("1"), Category: core.CategoryFood})
	assert.Greater(t, d.ID, c.ID)
}

func TestStoreInitialAmount(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, memory.New())

	_, err := s.SetInitialAmount(ctx, dec("-1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNegativeAmount)

	v, err := s.SetInitialAmount(ctx, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, v.IsZero())

	v, err = s.SetInitialAmount(ctx, dec("5000000000"))
	require.NoError(t, err)
	assert.True(t, v.Equal(core.MaxAmount))
}

func TestStoreUserNameTruncated(t *testing.T) {
	s := openStore(t, memory.New())

	name, err := s.SetUserName(context.Background(), "  Maria Fernanda de los Angeles  ")
	require.NoError(t, err)
	assert.Equal(t, "Maria Fernanda de lo", name)
	assert.Equal(t, name, s.UserName())
}

func TestStoreBudgets(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, memory.New())

	require.Len(t, s.Budgets(), 3, "default budgets are seeded")

	b, err := s.SetBudget(ctx, "comida", dec("650"))
	require.NoError(t, err)
	assert.Equal(t, core.Category("comida"), b.Category)
	assert.Len(t, s.Budgets(), 3, "category match ignores case")

	_, err = s.SetBudget(ctx, core.CategoryHealth, dec("100"))
	require.NoError(t, err)
	assert.Len(t, s.Budgets(), 4)

	_, err = s.SetBudget(ctx, core.CategoryHealth, decimal.Zero)
	assert.ErrorIs(t, err, core.ErrInvalidLimit)

	deleted, err := s.DeleteBudget(ctx, core.CategoryHealth)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = s.DeleteBudget(ctx, core.CategoryHealth)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestStoreCustomSeedBudgets(t *testing.T) {
	s := openStore(t, memory.New(), WithDefaultBudgets([]core.Budget{{Category: core.CategoryHome, Limit: dec("900")}}))

	budgets := s.Budgets()
	require.Len(t, budgets, 1)
	assert.Equal(t, core.CategoryHome, budgets[0].Category)
}

func TestStoreClearAll(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	s := openStore(t, kv)
	_, _ = s.SetInitialAmount(ctx, dec("100"))
	_, _ = s.SetUserName(ctx, "Ana")
	_, _ = s.AddExpense(ctx, ExpenseInput{Amount: dec("10"), Category: core.CategoryFood})
	_, _ = s.AddReceivable(ctx, ReceivableInput{Amount: dec("10"), Category: core.CategoryGift, Name: "x"})

	require.NoError(t, s.ClearAll(ctx))

	assert.Empty(t, s.ListExpenses())
	assert.Empty(t, s.ListReceivables())
	assert.True(t, s.InitialAmount().IsZero())
	assert.Equal(t, "Ana", s.UserName())
	assert.Len(t, s.Budgets(), 3)

	_, ok, err := kv.Get(ctx, KeyInitialAmount)
	require.NoError(t, err)
	assert.False(t, ok, "initial amount key is removed")
	assert.Contains(t, kv.Keys(), KeyLastID)
	assert.True(t, openStore(t, kv).InitialAmount().IsZero())
}

func TestStoreReloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	s := openStore(t, kv)

	_, _ = s.SetInitialAmount(ctx, dec("10000"))
	_, _ = s.SetUserName(ctx, "Lucía")
	e, _ := s.AddExpense(ctx, ExpenseInput{Amount: dec("1500.255"), Category: core.CategoryFood, Note: "mercado"})
	r, _ := s.AddReceivable(ctx, ReceivableInput{Amount: dec("2000"), Category: core.CategorySalary, Name: "Salario"})

	reopened := openStore(t, kv)
	assert.Equal(t, s.Snapshot().UserName, reopened.UserName())
	assert.True(t, reopened.InitialAmount().Equal(dec("10000")))

	gotE, err := reopened.Expense(e.ID)
	require.NoError(t, err)
	assert.True(t, gotE.Amount.Equal(dec("1500.255")), "full precision is persisted")
	assert.Equal(t, "mercado", gotE.Note)
	assert.Equal(t, e.Date, gotE.Date)

	gotR, err := reopened.Receivable(r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.Name, gotR.Name)
}

func TestStoreLoadRepairsLegacyData(t *testing.T) {
	kv := memory.NewWithValues(map[string]string{
		KeyExpenses: `[
			{"id":4,"amount":"25","category":"Comida","name":"Cena","date":"03/04/2025"},
			{"id":4,"amount":"10","category":"Transporte","name":"Bus","date":"2025-04-02"},
			{"id":0,"amount":"0","category":"Otros","name":"broken","date":"2025-04-01"}
		]`,
		KeyReceivables:   `[{"id":2,"amount":"100","category":"Trabajo","name":"Pago","date":"2025-04-01"}]`,
		KeyInitialAmount: "not-a-number",
	})
	s := openStore(t, kv)

	expenses := s.ListExpenses()
	require.Len(t, expenses, 2, "invalid record is dropped")
	assert.Equal(t, int64(4), expenses[0].ID)
	assert.Equal(t, core.NewDate(2025, 4, 3), expenses[0].Date)
	assert.Equal(t, int64(5), expenses[1].ID, "duplicate id gets a fresh one")
	assert.True(t, s.InitialAmount().IsZero())

	raw, ok, err := kv.Get(context.Background(), KeyLastID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "5", raw)

	next, err := s.AddExpense(context.Background(), ExpenseInput{Amount: dec("1"), Category: core.CategoryFood})
	require.NoError(t, err)
	assert.Equal(t, int64(6), next.ID)
}

func TestStoreLoadsLocaleDates(t *testing.T) {
	kv := memory.NewWithValues(map[string]string{
		KeyExpenses: `[
			{"id":1760000000000,"date":"5/1/2026","name":"Pan","amount":12.5,"category":"Comida"},
			{"id":1750000000000,"date":"el lunes","name":"Taxi","amount":8,"category":"Transporte"}
		]`,
		KeyReceivables: `[{"id":1740000000000,"date":"28/2/2026","name":"Pago","amount":300,"category":"Trabajo"}]`,
	})
	s := openStore(t, kv)

	expenses := s.ListExpenses()
	require.Len(t, expenses, 2)
	assert.Equal(t, int64(1760000000000), expenses[0].ID)
	assert.Equal(t, core.NewDate(2026, 1, 5), expenses[0].Date)
	assert.True(t, expenses[0].Amount.Equal(dec("12.5")))
	assert.Equal(t, core.DateOf(fixedNow), expenses[1].Date, "unreadable date falls back to today")

	r, err := s.Receivable(1740000000000)
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2026, 2, 28), r.Date)

	raw, _, err := kv.Get(context.Background(), KeyExpenses)
	require.NoError(t, err)
	assert.Contains(t, raw, `"date":"2026-01-05"`, "repaired dates are written back")

	next, err := s.AddExpense(context.Background(), ExpenseInput{Amount: dec("1"), Category: core.CategoryFood})
	require.NoError(t, err)
	assert.Equal(t, int64(1760000000001), next.ID)
}

func TestStoreOpenRejectsCorruptCollection(t *testing.T) {
	kv := memory.NewWithValues(map[string]string{KeyExpenses: "{not json"})

	_, err := Open(context.Background(), kv, WithLogger(applog.Discard()))
	require.Error(t, err)
	assert.True(t, core.IsPersistence(err))

	raw, _, _ := kv.Get(context.Background(), KeyExpenses)
	assert.Equal(t, "{not json", raw, "corrupt data is left in place")
}

func TestStoreReseedsCorruptBudgets(t *testing.T) {
	kv := memory.NewWithValues(map[string]string{KeyBudgets: "oops"})
	s := openStore(t, kv)
	assert.Len(t, s.Budgets(), 3)
}

func TestStorePersistenceFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	kv := &flakyKV{Store: memory.New()}
	n := &recordingNotifier{}
	s := openStore(t, kv, WithNotifier(n))

	kv.setFailing(true)
	e, err := s.AddExpense(ctx, ExpenseInput{Amount: dec("40"), Category: core.CategoryFood})
	require.Error(t, err)
	assert.True(t, core.IsPersistence(err))
	assert.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, int64(1), e.ID, "record is returned with the warning")
	assert.Len(t, s.ListExpenses(), 1)

	events := n.all()
	require.Len(t, events, 1)
	assert.False(t, events[0].Persisted)

	kv.setFailing(false)
	_, err = s.AddExpense(ctx, ExpenseInput{Amount: dec("1"), Category: core.CategoryFood})
	require.NoError(t, err)

	reopened := openStore(t, kv)
	assert.Len(t, reopened.ListExpenses(), 2, "next successful write carries the full state")
}

func TestStoreNotifiesCommittedChanges(t *testing.T) {
	ctx := context.Background()
	n := &recordingNotifier{}
	s := openStore(t, memory.New(), WithNotifier(n))

	e, _ := s.AddExpense(ctx, ExpenseInput{Amount: dec("1"), Category: core.CategoryFood})
	_, _ = s.DeleteExpense(ctx, e.ID)
	_, _ = s.DeleteExpense(ctx, e.ID)
	_, _ = s.AddExpense(ctx, ExpenseInput{Amount: decimal.Zero, Category: core.CategoryFood})
	_ = s.ClearAll(ctx)

	events := n.all()
	require.Len(t, events, 3, "no-ops and rejected input are not announced")
	assert.Equal(t, OpCreate, events[0].Op)
	assert.Equal(t, "expense", events[0].Kind)
	assert.Equal(t, e.ID, events[0].RecordID)
	assert.True(t, events[0].Persisted)
	assert.Equal(t, fixedNow, events[0].At)
	assert.Equal(t, OpDelete, events[1].Op)
	assert.Equal(t, EventKindLedger, events[2].Kind)
}

func TestMultiNotifierJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	var calls int
	m := MultiNotifier{
		NotifierFunc(func(context.Context, Event) error { calls++; return boom }),
		nil,
		NotifierFunc(func(context.Context, Event) error { calls++; return nil }),
	}

	err := m.Notify(context.Background(), Event{Kind: "expense", Op: OpCreate})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestStoreConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, memory.New())

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.AddExpense(ctx, ExpenseInput{Amount: dec("1"), Category: core.CategoryFood})
		}()
	}
	wg.Wait()

	seen := map[int64]bool{}
	for _, e := range s.ListExpenses() {
		assert.False(t, seen[e.ID], "duplicate id %d", e.ID)
		seen[e.ID] = true
	}
	assert.Len(t, seen, 20)
}
