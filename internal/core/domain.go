package core

import (
	"errors"
	"strings"
	"time"
)

const (
	CurrencyUSD = "USD"
	CurrencyCRC = "CRC"
)

type (
	// Message is one inbound bank notification as delivered by the mail
	// collaborator. Date carries the calendar date only.
	Message struct {
		UID      uint32
		Sender   string
		Subject  string
		Date     time.Time
		HTMLBody string
		TextBody string
	}

	Money struct {
		Cents int64
	}

	Transaction struct {
		Timestamp         time.Time
		Merchant          string
		Amount            Money
		Currency          string
		Institution       string
		PaymentInstrument string // last 4 digits of the card or account
		Notes             string
		Category          string // resolved at read time, never persisted in the ledger
	}

	// SyncResult counts ingestion outcomes for one batch of messages.
	SyncResult struct {
		Processed  int `json:"processed"`
		Duplicates int `json:"duplicates"`
		Unmatched  int `json:"unmatched"`
		Failed     int `json:"failed"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidCurrency  = errors.New("invalid currency")
	ErrEmptyMerchant    = errors.New("empty merchant")
	ErrEmptyInstitution = errors.New("empty institution")
	ErrEmptyInstrument  = errors.New("empty payment instrument")
	ErrZeroTimestamp    = errors.New("timestamp cannot be zero")
)

// MessageDate returns the calendar date of the message at midnight.
func (m Message) MessageDate() time.Time {
	y, mo, d := m.Date.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.Timestamp.IsZero() {
		return ErrZeroTimestamp
	}
	if strings.TrimSpace(t.Merchant) == "" {
		return ErrEmptyMerchant
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.Currency != CurrencyUSD && t.Currency != CurrencyCRC {
		return ErrInvalidCurrency
	}
	if strings.TrimSpace(t.Institution) == "" {
		return ErrEmptyInstitution
	}
	if strings.TrimSpace(t.PaymentInstrument) == "" {
		return ErrEmptyInstrument
	}
	return nil
}

// Total returns the number of messages a result accounts for.
func (r SyncResult) Total() int {
	return r.Processed + r.Duplicates + r.Unmatched + r.Failed
}

// Add accumulates other into r.
func (r *SyncResult) Add(other SyncResult) {
	r.Processed += other.Processed
	r.Duplicates += other.Duplicates
	r.Unmatched += other.Unmatched
	r.Failed += other.Failed
}
