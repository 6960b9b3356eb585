package ledger

import (
	"context"
	"errors"
	"time"

	"gastos/internal/core"
)

// Ports for outbound adapters.
type (
	// KeyValueStore is the persistence transport the ledger writes through.
	KeyValueStore interface {
		// Get returns the value for key and whether it was present.
		Get(ctx context.Context, key string) (value string, ok bool, err error)
		Set(ctx context.Context, key, value string) error
		Remove(ctx context.Context, key string) error
	}

	// Notifier is told about every committed mutation.
	Notifier interface {
		Notify(ctx context.Context, ev Event) error
	}
)

// Op names the mutation an Event describes.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpSet    Op = "set"
	OpClear  Op = "clear"
)

// Event describes a committed mutation. Persisted is false when the
// in-memory change could not be written to the backing store.
type Event struct {
	Kind      string    `json:"kind"`
	Op        Op        `json:"op"`
	RecordID  int64     `json:"record_id,omitempty"`
	Persisted bool      `json:"persisted"`
	At        time.Time `json:"at"`
}

// Event kinds beyond the two record kinds.
const (
	EventKindInitialAmount = "initial_amount"
	EventKindUserName      = "user_name"
	EventKindBudget        = "budget"
	EventKindLedger        = "ledger"
)

func recordEventKind(k core.RecordKind) string { return string(k) }

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, ev Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }

// MultiNotifier fans an event out to every notifier and joins their errors.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
