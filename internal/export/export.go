// Package export renders a ledger snapshot as CSV or JSON. It only reads
// the snapshot; nothing here touches the store.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"gastos/internal/core"
)

const (
	CSVFilename  = "gastos.csv"
	JSONFilename = "gastos.json"
)

var csvHeader = []string{"Tipo", "Monto", "Categoría", "Descripción", "Fecha", "Nota"}

const (
	kindExpense    = "Gasto"
	kindReceivable = "Ingreso"
	decimalComma   = ","
)

// WriteCSV writes one row per record, expenses first, each collection in
// store order. Amounts use a decimal comma and dates dd/mm/yyyy.
func WriteCSV(w io.Writer, s core.Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range s.Expenses {
		if err := cw.Write(row(kindExpense, e, e.Note)); err != nil {
			return fmt.Errorf("write expense %d: %w", e.ID, err)
		}
	}
	for _, r := range s.Receivables {
		if err := cw.Write(row(kindReceivable, r, "")); err != nil {
			return fmt.Errorf("write receivable %d: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func row(kind string, r core.Record, note string) []string {
	return []string{
		kind,
		core.FormatAmount(r.Value(), decimalComma),
		string(r.Label()),
		r.Title(),
		r.On().Legacy(),
		note,
	}
}

// Document is the JSON export shape.
type Document struct {
	UserName      string            `json:"userName"`
	InitialAmount decimal.Decimal   `json:"initialAmount"`
	Expenses      []core.Expense    `json:"expenses"`
	Receivables   []core.Receivable `json:"receivables"`
	ExportDate    time.Time         `json:"exportDate"`
}

func NewDocument(s core.Snapshot, now time.Time) Document {
	doc := Document{
		UserName:      s.UserName,
		InitialAmount: s.InitialAmount,
		Expenses:      s.Expenses,
		Receivables:   s.Receivables,
		ExportDate:    now.UTC(),
	}
	if doc.Expenses == nil {
		doc.Expenses = []core.Expense{}
	}
	if doc.Receivables == nil {
		doc.Receivables = []core.Receivable{}
	}
	return doc
}

// WriteJSON writes the indented JSON document stamped with now.
func WriteJSON(w io.Writer, s core.Snapshot, now time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(s, now)); err != nil {
		return fmt.Errorf("encode json export: %w", err)
	}
	return nil
}
