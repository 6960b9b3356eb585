package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	MaxNameLength     = 50
	MaxNoteLength     = 100
	MaxUserNameLength = 20

	dateLayout       = "2006-01-02"
	legacyDateLayout = "02/01/2006"
	// Locale dates were stored unpadded, e.g. 5/1/2026.
	legacyDateInput = "2/1/2006"
)

// RecordKind tags a record as an expense or a receivable.
type RecordKind string

const (
	KindExpense    RecordKind = "expense"
	KindReceivable RecordKind = "receivable"
)

type (
	Date struct {
		time.Time
	}

	Expense struct {
		ID       int64           `json:"id"`
		Amount   decimal.Decimal `json:"amount"`
		Category Category        `json:"category"`
		Name     string          `json:"name"`
		Date     Date            `json:"date"`
		Note     string          `json:"note,omitempty"`
	}

	// Receivable is money expected or received; it adds to the balance.
	Receivable struct {
		ID       int64           `json:"id"`
		Amount   decimal.Decimal `json:"amount"`
		Category Category        `json:"category"`
		Name     string          `json:"name"`
		Date     Date            `json:"date"`
	}

	Budget struct {
		Category Category        `json:"category"`
		Limit    decimal.Decimal `json:"limit"`
	}
)

// Record is the read-only projection shared by expenses and receivables.
type Record interface {
	RecordID() int64
	RecordKind() RecordKind
	Value() decimal.Decimal
	Label() Category
	Title() string
	On() Date
}

var (
	ErrInvalidAmount   = errors.New("amount must be greater than zero")
	ErrNegativeAmount  = errors.New("amount cannot be negative")
	ErrEmptyCategory   = errors.New("empty category")
	ErrEmptyName       = errors.New("empty name")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidLimit    = errors.New("budget limit must be greater than zero")
	ErrNameTooLong     = errors.New("name too long")
	ErrNoteTooLong     = errors.New("note too long")
	ErrUnknownRecordID = errors.New("record id must be positive")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate accepts YYYY-MM-DD and the legacy DD/MM/YYYY form.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{dateLayout, legacyDateInput} {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t}, nil
		}
	}
	return Date{}, ErrInvalidDate
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// IsEmpty returns true if the date is zero
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// Legacy formats the date as DD/MM/YYYY, the regional form used by exports.
func (d Date) Legacy() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(legacyDateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return ErrInvalidDate
	}
	if strings.TrimSpace(s) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (e Expense) RecordID() int64        { return e.ID }
func (e Expense) RecordKind() RecordKind { return KindExpense }
func (e Expense) Value() decimal.Decimal { return e.Amount }
func (e Expense) Label() Category        { return e.Category }
func (e Expense) Title() string          { return e.Name }
func (e Expense) On() Date               { return e.Date }

func (r Receivable) RecordID() int64        { return r.ID }
func (r Receivable) RecordKind() RecordKind { return KindReceivable }
func (r Receivable) Value() decimal.Decimal { return r.Amount }
func (r Receivable) Label() Category        { return r.Category }
func (r Receivable) Title() string          { return r.Name }
func (r Receivable) On() Date               { return r.Date }

// Validate checks the invariants every stored expense must satisfy.
func (e Expense) Validate() error {
	if e.ID <= 0 {
		return Invalid("id", ErrUnknownRecordID)
	}
	if !e.Amount.IsPositive() {
		return Invalid("amount", ErrInvalidAmount)
	}
	if e.Category.IsEmpty() {
		return Invalid("category", ErrEmptyCategory)
	}
	if strings.TrimSpace(e.Name) == "" {
		return Invalid("name", ErrEmptyName)
	}
	if utf8.RuneCountInString(e.Name) > MaxNameLength {
		return Invalid("name", ErrNameTooLong)
	}
	if utf8.RuneCountInString(e.Note) > MaxNoteLength {
		return Invalid("note", ErrNoteTooLong)
	}
	return nil
}

// Validate checks the invariants every stored receivable must satisfy.
func (r Receivable) Validate() error {
	if r.ID <= 0 {
		return Invalid("id", ErrUnknownRecordID)
	}
	if !r.Amount.IsPositive() {
		return Invalid("amount", ErrInvalidAmount)
	}
	if r.Category.IsEmpty() {
		return Invalid("category", ErrEmptyCategory)
	}
	if strings.TrimSpace(r.Name) == "" {
		return Invalid("name", ErrEmptyName)
	}
	if utf8.RuneCountInString(r.Name) > MaxNameLength {
		return Invalid("name", ErrNameTooLong)
	}
	return nil
}

func (b Budget) Validate() error {
	if b.Category.IsEmpty() {
		return Invalid("category", ErrEmptyCategory)
	}
	if !b.Limit.IsPositive() {
		return Invalid("limit", ErrInvalidLimit)
	}
	return nil
}

// Truncate trims surrounding whitespace and caps s at max runes.
func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max]))
}
