// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating request bodies
// into domain values.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mailledger/internal/core"
)

const (
	maxBodyBytes = 1 << 20
	dateLayout   = "2006-01-02"
)

var ErrEmptyBody = errors.New("request body is empty")

// BackfillRequest is the body of POST /backfill.
type BackfillRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Range parses both dates. The end date is exclusive.
func (b BackfillRequest) Range() (start, end time.Time, err error) {
	start, err = parseDate(b.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date: %w", err)
	}
	end, err = parseDate(b.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end_date: %w", err)
	}
	return start, end, nil
}

// TransactionRequest is the body of PUT /transactions/{id}. Amount accepts a
// JSON number or a decimal string in major units.
type TransactionRequest struct {
	Timestamp         string      `json:"timestamp"`
	Merchant          string      `json:"merchant"`
	Amount            json.Number `json:"amount"`
	Currency          string      `json:"currency"`
	Institution       string      `json:"institution"`
	PaymentInstrument string      `json:"payment_instrument"`
	Notes             string      `json:"notes"`
	Category          string      `json:"category"`
}

// ToTransaction converts the request into a validated transaction.
func (r TransactionRequest) ToTransaction() (core.Transaction, error) {
	ts, err := parseTimestamp(r.Timestamp)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("timestamp: %w", err)
	}
	cents, err := core.ParseDecimalToCents(r.Amount.String())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount: %w", err)
	}
	tx := core.Transaction{
		Timestamp:         ts,
		Merchant:          sanitizeInput(r.Merchant),
		Amount:            core.Money{Cents: cents},
		Currency:          strings.ToUpper(sanitizeInput(r.Currency)),
		Institution:       sanitizeInput(r.Institution),
		PaymentInstrument: sanitizeInput(r.PaymentInstrument),
		Notes:             sanitizeInput(r.Notes),
		Category:          sanitizeInput(r.Category),
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// decodeJSON reads a single JSON object from the request body into v.
// Unknown fields are rejected.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return ErrEmptyBody
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return errors.New("invalid JSON: trailing data")
	}
	return nil
}

// parseDate parses a date string in YYYY-MM-DD format.
func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD, got %q", s)
	}
	return t, nil
}

// parseTimestamp accepts RFC 3339 or a zone-less ISO 8601 timestamp. Zoned
// values are converted to UTC.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := core.ParseISO(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected ISO 8601, got %q", s)
	}
	return t, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
