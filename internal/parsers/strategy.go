// Package parsers turns bank notification emails into transactions.
//
// Each supported institution has its own Strategy that decides whether it
// owns a message and extracts the transaction fields from it. A Registry
// holds strategies in priority order and dispatches messages to the first
// one that claims them.
package parsers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"mailledger/internal/core"
	"mailledger/internal/extract"
)

// Strategy is implemented once per supported institution.
type Strategy interface {
	// Institution is the identifier stored on every transaction it produces.
	Institution() string
	// CanParse reports whether the message belongs to this institution.
	// It must be cheap and free of side effects.
	CanParse(msg core.Message) bool
	// Parse extracts a transaction or returns a *ParseError.
	Parse(msg core.Message) (core.Transaction, error)
}

var (
	ErrParseFailed     = errors.New("parse failed")
	ErrNoBody          = errors.New("message has no usable body")
	ErrMissingMerchant = errors.New("merchant not found")
	ErrMissingAmount   = errors.New("amount not found")
	ErrMissingCard     = errors.New("card suffix not found")
	ErrPanic           = errors.New("unexpected fault during extraction")
)

// ParseError reports why a strategy could not produce a transaction.
// It matches ErrParseFailed and its Reason with errors.Is.
type ParseError struct {
	Institution string
	Reason      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Institution, ErrParseFailed, e.Reason)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrParseFailed, e.Reason}
}

func failure(institution string, reason error) *ParseError {
	return &ParseError{Institution: institution, Reason: reason}
}

// recoverParse turns a panic inside a strategy into a ParseError so a single
// malformed message never aborts a batch.
func recoverParse(institution string, err *error) {
	if r := recover(); r != nil {
		*err = failure(institution, fmt.Errorf("%w: %v", ErrPanic, r))
	}
}

// fields holds the raw extraction results before validation.
type fields struct {
	merchant  string
	amount    extract.Amount
	card      string
	timestamp time.Time
	notes     string
}

func (f fields) transaction(institution string) (core.Transaction, error) {
	if strings.TrimSpace(f.merchant) == "" {
		return core.Transaction{}, failure(institution, ErrMissingMerchant)
	}
	if f.amount.Money.Validate() != nil {
		return core.Transaction{}, failure(institution, ErrMissingAmount)
	}
	if f.card == "" {
		return core.Transaction{}, failure(institution, ErrMissingCard)
	}
	return core.Transaction{
		Timestamp:         f.timestamp,
		Merchant:          f.merchant,
		Amount:            f.amount.Money,
		Currency:          f.amount.Currency,
		Institution:       institution,
		PaymentInstrument: f.card,
		Notes:             f.notes,
	}, nil
}

// bodyText prefers the plain-text body and flattens HTML otherwise.
func bodyText(msg core.Message) string {
	if strings.TrimSpace(msg.TextBody) != "" {
		return msg.TextBody
	}
	if strings.TrimSpace(msg.HTMLBody) != "" {
		return extract.HTMLToText(msg.HTMLBody)
	}
	return ""
}
