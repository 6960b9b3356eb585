package ledger

import (
	"github.com/shopspring/decimal"

	"gastos/internal/core"
)

// ExpenseInput carries the user-supplied fields of a new expense.
// Name defaults to the category label and Date to today.
type ExpenseInput struct {
	Amount   decimal.Decimal
	Category core.Category
	Name     string
	Date     core.Date
	Note     string
}

// ReceivableInput carries the user-supplied fields of a new receivable.
// Name is mandatory; Date defaults to today.
type ReceivableInput struct {
	Amount   decimal.Decimal
	Category core.Category
	Name     string
	Date     core.Date
}

// ExpensePatch lists the fields an update changes; nil fields are kept.
type ExpensePatch struct {
	Amount   *decimal.Decimal
	Category *core.Category
	Name     *string
	Date     *core.Date
	Note     *string
}

// ReceivablePatch lists the fields an update changes; nil fields are kept.
type ReceivablePatch struct {
	Amount   *decimal.Decimal
	Category *core.Category
	Name     *string
	Date     *core.Date
}

func buildExpense(id int64, in ExpenseInput, today core.Date) (core.Expense, error) {
	amount, err := core.NormalizeAmount(in.Amount)
	if err != nil {
		return core.Expense{}, err
	}
	category := core.NewCategory(string(in.Category))
	if category.IsEmpty() {
		return core.Expense{}, core.Invalid("category", core.ErrEmptyCategory)
	}
	name := core.Truncate(in.Name, core.MaxNameLength)
	if name == "" {
		name = core.Truncate(string(category), core.MaxNameLength)
	}
	date := in.Date
	if date.IsEmpty() {
		date = today
	}

	e := core.Expense{
		ID:       id,
		Amount:   amount,
		Category: category,
		Name:     name,
		Date:     date,
		Note:     core.Truncate(in.Note, core.MaxNoteLength),
	}
	return e, e.Validate()
}

func buildReceivable(id int64, in ReceivableInput, today core.Date) (core.Receivable, error) {
	amount, err := core.NormalizeAmount(in.Amount)
	if err != nil {
		return core.Receivable{}, err
	}
	category := core.NewCategory(string(in.Category))
	if category.IsEmpty() {
		return core.Receivable{}, core.Invalid("category", core.ErrEmptyCategory)
	}
	name := core.Truncate(in.Name, core.MaxNameLength)
	if name == "" {
		return core.Receivable{}, core.Invalid("name", core.ErrEmptyName)
	}
	date := in.Date
	if date.IsEmpty() {
		date = today
	}

	r := core.Receivable{
		ID:       id,
		Amount:   amount,
		Category: category,
		Name:     name,
		Date:     date,
	}
	return r, r.Validate()
}

func (p ExpensePatch) apply(e core.Expense) ExpenseInput {
	in := ExpenseInput{Amount: e.Amount, Category: e.Category, Name: e.Name, Date: e.Date, Note: e.Note}
	if p.Amount != nil {
		in.Amount = *p.Amount
	}
	if p.Category != nil {
		in.Category = *p.Category
	}
	if p.Name != nil {
		in.Name = *p.Name
	}
	if p.Date != nil && !p.Date.IsEmpty() {
		in.Date = *p.Date
	}
	if p.Note != nil {
		in.Note = *p.Note
	}
	return in
}

func (p ReceivablePatch) apply(r core.Receivable) ReceivableInput {
	in := ReceivableInput{Amount: r.Amount, Category: r.Category, Name: r.Name, Date: r.Date}
	if p.Amount != nil {
		in.Amount = *p.Amount
	}
	if p.Category != nil {
		in.Category = *p.Category
	}
	if p.Name != nil {
		in.Name = *p.Name
	}
	if p.Date != nil && !p.Date.IsEmpty() {
		in.Date = *p.Date
	}
	return in
}
