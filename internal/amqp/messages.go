package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"gastos/internal/ledger"
)

// LedgerEventMessage announces one committed ledger change. Consumers
// re-read the ledger; the message carries no amounts.
type LedgerEventMessage struct {
	EventID   string    `json:"event_id"`
	Kind      string    `json:"kind"`
	Op        string    `json:"op"`
	RecordID  int64     `json:"record_id,omitempty"`
	Persisted bool      `json:"persisted"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEventMessage wraps ev with a fresh event id.
func NewLedgerEventMessage(ev ledger.Event) *LedgerEventMessage {
	ts := ev.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return &LedgerEventMessage{
		EventID:   uuid.NewString(),
		Kind:      ev.Kind,
		Op:        string(ev.Op),
		RecordID:  ev.RecordID,
		Persisted: ev.Persisted,
		Timestamp: ts,
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
