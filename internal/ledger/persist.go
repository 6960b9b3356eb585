package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"gastos/internal/core"
	applog "gastos/internal/log"
)

// Keys of the persisted layout.
const (
	KeyExpenses      = "expenses"
	KeyReceivables   = "receivables"
	KeyInitialAmount = "initialAmount"
	KeyBudgets       = "budgets"
	KeyUserName      = "userName"
	KeyLastID        = "lastId"
)

func (s *Store) saveLocked(ctx context.Context, keys ...string) error {
	var errs []error
	for _, key := range keys {
		if s.unsetLocked(key) {
			if err := s.kv.Remove(ctx, key); err != nil {
				errs = append(errs, fmt.Errorf("remove %s: %w", key, err))
			}
			continue
		}
		value, err := s.encodeLocked(key)
		if err != nil {
			errs = append(errs, fmt.Errorf("encode %s: %w", key, err))
			continue
		}
		if err := s.kv.Set(ctx, key, value); err != nil {
			errs = append(errs, fmt.Errorf("set %s: %w", key, err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &core.PersistenceError{Op: strings.Join(keys, ","), Err: errors.Join(errs...)}
}

// unsetLocked reports whether key holds its default and is stored by
// removing it. An absent initial amount loads as zero.
func (s *Store) unsetLocked(key string) bool {
	return key == KeyInitialAmount && s.initialAmount.IsZero()
}

func (s *Store) encodeLocked(key string) (string, error) {
	switch key {
	case KeyExpenses:
		return encodeJSON(s.expenses)
	case KeyReceivables:
		return encodeJSON(s.receivables)
	case KeyBudgets:
		return encodeJSON(s.budgets)
	case KeyInitialAmount:
		return s.initialAmount.String(), nil
	case KeyUserName:
		return s.userName, nil
	case KeyLastID:
		return strconv.FormatInt(s.lastID, 10), nil
	default:
		return "", fmt.Errorf("unknown key %q", key)
	}
}

func encodeJSON[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// load reads every key and repairs legacy or inconsistent records.
// Collections that cannot be decoded abort the load so they are never
// overwritten by an empty state.
func (s *Store) load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expenses, _, err := loadJSON[storedRecord](ctx, s.kv, KeyExpenses)
	if err != nil {
		return err
	}
	receivables, _, err := loadJSON[storedRecord](ctx, s.kv, KeyReceivables)
	if err != nil {
		return err
	}

	if raw, ok, err := s.get(ctx, KeyLastID); err != nil {
		return err
	} else if ok {
		if n, perr := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); perr == nil && n > 0 {
			s.lastID = n
		}
	}
	for _, e := range expenses {
		s.lastID = max(s.lastID, e.ID)
	}
	for _, r := range receivables {
		s.lastID = max(s.lastID, r.ID)
	}

	seen := make(map[int64]struct{}, len(expenses)+len(receivables))
	repaired := s.adoptExpenses(ctx, expenses, seen)
	if s.adoptReceivables(ctx, receivables, seen) {
		repaired = true
	}

	if raw, ok, err := s.get(ctx, KeyInitialAmount); err != nil {
		return err
	} else if ok {
		v, perr := decimal.NewFromString(strings.TrimSpace(raw))
		if perr != nil || v.IsNegative() {
			s.logger.WarnContext(ctx, "Ignoring unparseable initial amount",
				applog.FieldKey, KeyInitialAmount, "value", raw)
			v = decimal.Zero
		}
		s.initialAmount = core.ClampAmount(v)
	}

	if raw, ok, err := s.get(ctx, KeyUserName); err != nil {
		return err
	} else if ok {
		s.userName = core.Truncate(raw, core.MaxUserNameLength)
	}

	budgets, found, err := loadJSON[core.Budget](ctx, s.kv, KeyBudgets)
	if err != nil {
		if !errors.Is(err, errDecode) {
			return err
		}
		s.logger.WarnContext(ctx, "Reseeding unreadable budgets", applog.FieldError, err)
		found = false
	}
	seeded := false
	if found {
		s.adoptBudgets(ctx, budgets)
	} else {
		s.budgets = append([]core.Budget{}, s.seedBudgets...)
		seeded = true
	}

	var keys []string
	if repaired {
		keys = append(keys, KeyExpenses, KeyReceivables, KeyLastID)
	}
	if seeded {
		keys = append(keys, KeyBudgets)
	}
	if len(keys) > 0 {
		if err := s.saveLocked(ctx, keys...); err != nil {
			s.logger.WarnContext(ctx, "Failed to persist repaired state",
				applog.FieldOperation, applog.OpLoad, applog.FieldError, err)
		}
	}

	s.logger.InfoContext(ctx, "Ledger loaded",
		"expenses", len(s.expenses),
		"receivables", len(s.receivables),
		"budgets", len(s.budgets),
		"last_id", s.lastID)
	return nil
}

var errDecode = errors.New("decode")

func (s *Store) get(ctx context.Context, key string) (string, bool, error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return "", false, &core.PersistenceError{Op: "load " + key, Err: err}
	}
	return raw, ok, nil
}

func loadJSON[T any](ctx context.Context, kv KeyValueStore, key string) ([]T, bool, error) {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil {
		return nil, false, &core.PersistenceError{Op: "load " + key, Err: err}
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, false, nil
	}
	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, false, &core.PersistenceError{Op: "load " + key, Err: fmt.Errorf("%w: %v", errDecode, err)}
	}
	return items, true, nil
}

// storedRecord is the lenient on-disk shape of both record kinds. The
// date stays raw so one unreadable value cannot fail the whole collection.
type storedRecord struct {
	ID       int64           `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Category core.Category   `json:"category"`
	Name     string          `json:"name"`
	Date     json.RawMessage `json:"date"`
	Note     string          `json:"note"`
}

// date decodes the stored date. A missing or unreadable date comes back
// empty with ok=false so the builder falls back to today.
func (r storedRecord) date() (core.Date, bool) {
	var d core.Date
	if len(r.Date) == 0 || json.Unmarshal(r.Date, &d) != nil || d.IsEmpty() {
		return core.Date{}, false
	}
	return d, true
}

// matches reports whether rec is what was read from storage, including
// the canonical date encoding.
func (r storedRecord) matches(rec core.Record) bool {
	return r.ID == rec.RecordID() &&
		r.Amount.Equal(rec.Value()) &&
		r.Category == rec.Label() &&
		r.Name == rec.Title() &&
		string(r.Date) == `"`+rec.On().String()+`"`
}

// claimID returns the id a loaded record keeps, or a fresh one when it
// is missing or already taken. Fresh ids are committed by the caller.
func (s *Store) claimID(id int64, seen map[int64]struct{}) (int64, bool) {
	if _, dup := seen[id]; dup || id <= 0 {
		return s.lastID + 1, true
	}
	return id, false
}

// adoptExpenses normalizes loaded expenses; it reports whether anything
// had to be repaired. Ids are unique across both collections, so seen is
// shared with adoptReceivables.
func (s *Store) adoptExpenses(ctx context.Context, loaded []storedRecord, seen map[int64]struct{}) bool {
	repaired := false
	for _, raw := range loaded {
		id, fresh := s.claimID(raw.ID, seen)
		date, dated := raw.date()
		if !dated {
			s.logger.WarnContext(ctx, "Unreadable date on stored expense, using today",
				applog.FieldRecordID, raw.ID, "date", string(raw.Date))
		}
		fixed, err := buildExpense(id, ExpenseInput{
			Amount: raw.Amount, Category: raw.Category, Name: raw.Name, Date: date, Note: raw.Note,
		}, s.today())
		if err != nil {
			s.logger.WarnContext(ctx, "Dropping invalid stored expense",
				applog.FieldRecordID, raw.ID, applog.FieldError, err)
			repaired = true
			continue
		}
		if fresh {
			s.lastID = id
		}
		if fresh || !raw.matches(fixed) || raw.Note != fixed.Note {
			repaired = true
		}
		seen[id] = struct{}{}
		s.expenses = append(s.expenses, fixed)
	}
	return repaired
}

func (s *Store) adoptReceivables(ctx context.Context, loaded []storedRecord, seen map[int64]struct{}) bool {
	repaired := false
	for _, raw := range loaded {
		id, fresh := s.claimID(raw.ID, seen)
		date, dated := raw.date()
		if !dated {
			s.logger.WarnContext(ctx, "Unreadable date on stored receivable, using today",
				applog.FieldRecordID, raw.ID, "date", string(raw.Date))
		}
		fixed, err := buildReceivable(id, ReceivableInput{
			Amount: raw.Amount, Category: raw.Category, Name: raw.Name, Date: date,
		}, s.today())
		if err != nil {
			s.logger.WarnContext(ctx, "Dropping invalid stored receivable",
				applog.FieldRecordID, raw.ID, applog.FieldError, err)
			repaired = true
			continue
		}
		if fresh {
			s.lastID = id
		}
		if fresh || !raw.matches(fixed) || raw.Note != "" {
			repaired = true
		}
		seen[id] = struct{}{}
		s.receivables = append(s.receivables, fixed)
	}
	return repaired
}

func (s *Store) adoptBudgets(ctx context.Context, loaded []core.Budget) {
	for _, b := range loaded {
		b.Category = core.NewCategory(string(b.Category))
		if err := b.Validate(); err != nil {
			s.logger.WarnContext(ctx, "Dropping invalid stored budget",
				applog.FieldCategory, string(b.Category), applog.FieldError, err)
			continue
		}
		if s.budgetIndex(b.Category) >= 0 {
			continue
		}
		s.budgets = append(s.budgets, b)
	}
}
