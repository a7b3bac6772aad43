package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mailledger/internal/core"
)

// EventType names a change to the ledger.
type EventType string

const (
	EventCreated EventType = "transaction.created"
	EventUpdated EventType = "transaction.updated"
	EventDeleted EventType = "transaction.deleted"
)

var ErrInvalidEvent = errors.New("invalid ledger event")

// TransactionPayload is the wire form of a transaction. Amounts travel in
// cents and timestamps in the ledger's ISO layout.
type TransactionPayload struct {
	Timestamp         string `json:"timestamp"`
	Merchant          string `json:"merchant"`
	AmountCents       int64  `json:"amount_cents"`
	Currency          string `json:"currency"`
	Institution       string `json:"institution"`
	PaymentInstrument string `json:"payment_instrument"`
	Notes             string `json:"notes,omitempty"`
}

// LedgerEvent announces one change to the ledger. Deletions carry no
// transaction; updates carry the identity they replaced in PreviousID.
type LedgerEvent struct {
	ID          string              `json:"id"`
	Type        EventType           `json:"type"`
	GlobalID    string              `json:"global_id"`
	PreviousID  string              `json:"previous_id,omitempty"`
	Transaction *TransactionPayload `json:"transaction,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
}

func NewCreatedEvent(tx core.Transaction) *LedgerEvent {
	p := PayloadFromTransaction(tx)
	return newEvent(EventCreated, tx.GlobalID(), "", &p)
}

func NewUpdatedEvent(previousID string, tx core.Transaction) *LedgerEvent {
	p := PayloadFromTransaction(tx)
	return newEvent(EventUpdated, tx.GlobalID(), previousID, &p)
}

func NewDeletedEvent(id string) *LedgerEvent {
	return newEvent(EventDeleted, id, "", nil)
}

func newEvent(t EventType, globalID, previousID string, p *TransactionPayload) *LedgerEvent {
	return &LedgerEvent{
		ID:          uuid.NewString(),
		Type:        t,
		GlobalID:    globalID,
		PreviousID:  previousID,
		Transaction: p,
		Timestamp:   time.Now().UTC(),
	}
}

func PayloadFromTransaction(tx core.Transaction) TransactionPayload {
	return TransactionPayload{
		Timestamp:         core.FormatISO(tx.Timestamp),
		Merchant:          tx.Merchant,
		AmountCents:       tx.Amount.Cents,
		Currency:          tx.Currency,
		Institution:       tx.Institution,
		PaymentInstrument: tx.PaymentInstrument,
		Notes:             tx.Notes,
	}
}

// ToTransaction converts the payload back into a transaction.
func (p TransactionPayload) ToTransaction() (core.Transaction, error) {
	ts, err := core.ParseISO(p.Timestamp)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: timestamp: %v", ErrInvalidEvent, err)
	}
	return core.Transaction{
		Timestamp:         ts,
		Merchant:          p.Merchant,
		Amount:            core.Money{Cents: p.AmountCents},
		Currency:          p.Currency,
		Institution:       p.Institution,
		PaymentInstrument: p.PaymentInstrument,
		Notes:             p.Notes,
	}, nil
}

// Validate checks the fields each event type requires.
func (e *LedgerEvent) Validate() error {
	if e.GlobalID == "" {
		return fmt.Errorf("%w: missing global_id", ErrInvalidEvent)
	}
	switch e.Type {
	case EventCreated, EventUpdated:
		if e.Transaction == nil {
			return fmt.Errorf("%w: %s without transaction", ErrInvalidEvent, e.Type)
		}
	case EventDeleted:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	return nil
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
