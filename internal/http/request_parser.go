package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"gastos/internal/core"
	"gastos/internal/ledger"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks malformed requests, as opposed to invalid values.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// amount accepts a JSON number or a string with either decimal separator.
type amount struct {
	decimal.Decimal
}

func (a *amount) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return core.Invalid("amount", core.ErrInvalidAmount)
		}
		raw = s
	}
	d, err := core.ParseAmount(raw)
	if err != nil {
		return core.Invalid("amount", err)
	}
	a.Decimal = d
	return nil
}

type expenseRequest struct {
	Amount   *amount `json:"amount"`
	Category *string `json:"category"`
	Name     *string `json:"name"`
	Date     *string `json:"date"`
	Note     *string `json:"note"`
}

type receivableRequest struct {
	Amount   *amount `json:"amount"`
	Category *string `json:"category"`
	Name     *string `json:"name"`
	Date     *string `json:"date"`
}

type initialAmountRequest struct {
	Amount *amount `json:"amount"`
}

type userNameRequest struct {
	UserName *string `json:"userName"`
}

type budgetRequest struct {
	Limit *amount `json:"limit"`
}

func (req expenseRequest) input() (ledger.ExpenseInput, error) {
	date, err := parseOptionalDate(req.Date)
	if err != nil {
		return ledger.ExpenseInput{}, err
	}
	return ledger.ExpenseInput{
		Amount:   amountOrZero(req.Amount),
		Category: core.NewCategory(deref(req.Category)),
		Name:     deref(req.Name),
		Date:     date,
		Note:     deref(req.Note),
	}, nil
}

func (req expenseRequest) patch() (ledger.ExpensePatch, error) {
	var p ledger.ExpensePatch
	if req.Amount != nil {
		p.Amount = &req.Amount.Decimal
	}
	if req.Category != nil {
		c := core.NewCategory(*req.Category)
		p.Category = &c
	}
	p.Name = req.Name
	p.Note = req.Note
	if req.Date != nil {
		d, err := parseOptionalDate(req.Date)
		if err != nil {
			return p, err
		}
		p.Date = &d
	}
	return p, nil
}

func (req receivableRequest) input() (ledger.ReceivableInput, error) {
	date, err := parseOptionalDate(req.Date)
	if err != nil {
		return ledger.ReceivableInput{}, err
	}
	return ledger.ReceivableInput{
		Amount:   amountOrZero(req.Amount),
		Category: core.NewCategory(deref(req.Category)),
		Name:     deref(req.Name),
		Date:     date,
	}, nil
}

func (req receivableRequest) patch() (ledger.ReceivablePatch, error) {
	var p ledger.ReceivablePatch
	if req.Amount != nil {
		p.Amount = &req.Amount.Decimal
	}
	if req.Category != nil {
		c := core.NewCategory(*req.Category)
		p.Category = &c
	}
	p.Name = req.Name
	if req.Date != nil {
		d, err := parseOptionalDate(req.Date)
		if err != nil {
			return p, err
		}
		p.Date = &d
	}
	return p, nil
}

// decodeJSON reads a single JSON object from the body. Unknown fields
// are rejected.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return badRequest("empty body")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if core.IsValidation(err) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return badRequest("empty body")
		}
		return badRequest("malformed JSON: %v", err)
	}
	if dec.More() {
		return badRequest("body must contain a single JSON object")
	}
	return nil
}

func parseID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid id %q", raw)
	}
	return id, nil
}

func parseCategory(r *http.Request) (core.Category, error) {
	raw := chi.URLParam(r, "category")
	s, err := url.PathUnescape(raw)
	if err != nil {
		return "", badRequest("invalid category %q", raw)
	}
	return core.NewCategory(s), nil
}

// queryInt reads a positive integer query parameter, falling back to def
// when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, badRequest("%s must be a positive integer", name)
	}
	return n, nil
}

func parseOptionalDate(s *string) (core.Date, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(*s)
	if err != nil {
		return core.Date{}, core.Invalid("date", err)
	}
	return d, nil
}

func amountOrZero(a *amount) decimal.Decimal {
	if a == nil {
		return decimal.Zero
	}
	return a.Decimal
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
