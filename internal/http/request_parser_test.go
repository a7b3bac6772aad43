package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mailledger/internal/core"
)

func TestBackfillRequest_Range(t *testing.T) {
	tests := []struct {
		name    string
		req     BackfillRequest
		wantErr string
	}{
		{"valid", BackfillRequest{StartDate: "2025-01-01", EndDate: "2025-01-31"}, ""},
		{"padded", BackfillRequest{StartDate: " 2025-01-01 ", EndDate: "2025-01-31"}, ""},
		{"bad start", BackfillRequest{StartDate: "2025/01/01", EndDate: "2025-01-31"}, "start_date"},
		{"bad end", BackfillRequest{StartDate: "2025-01-01", EndDate: ""}, "end_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := tt.req.Range()
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want mention of %s", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Range() error = %v", err)
			}
			if start.Location() != time.UTC || end.Day() != 31 {
				t.Errorf("start=%v end=%v", start, end)
			}
		})
	}
}

func validRequest() TransactionRequest {
	return TransactionRequest{
		Timestamp:         "2025-01-15T14:30:00",
		Merchant:          "  Walmart\x00 ",
		Amount:            "10.99",
		Currency:          "usd",
		Institution:       "BAC",
		PaymentInstrument: "1234",
	}
}

func TestTransactionRequest_ToTransaction(t *testing.T) {
	tx, err := validRequest().ToTransaction()
	if err != nil {
		t.Fatalf("ToTransaction() error = %v", err)
	}
	if tx.Merchant != "Walmart" {
		t.Errorf("Merchant = %q", tx.Merchant)
	}
	if tx.Amount.Cents != 1099 || tx.Currency != core.CurrencyUSD {
		t.Errorf("amount=%d currency=%s", tx.Amount.Cents, tx.Currency)
	}

	zoned := validRequest()
	zoned.Timestamp = "2025-01-15T08:30:00-06:00"
	tx, err = zoned.ToTransaction()
	if err != nil {
		t.Fatalf("zoned ToTransaction() error = %v", err)
	}
	if !tx.Timestamp.Equal(time.Date(2025, 1, 15, 14, 30, 0, 0, time.UTC)) {
		t.Errorf("Timestamp = %v", tx.Timestamp)
	}
}

func TestTransactionRequest_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TransactionRequest)
		want   error
	}{
		{"zero amount", func(r *TransactionRequest) { r.Amount = "0" }, core.ErrInvalidAmount},
		{"missing amount", func(r *TransactionRequest) { r.Amount = "" }, core.ErrInvalidAmount},
		{"bad currency", func(r *TransactionRequest) { r.Currency = "EUR" }, core.ErrInvalidCurrency},
		{"blank merchant", func(r *TransactionRequest) { r.Merchant = "  " }, core.ErrEmptyMerchant},
		{"blank card", func(r *TransactionRequest) { r.PaymentInstrument = "" }, core.ErrEmptyInstrument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			if _, err := req.ToTransaction(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	req := validRequest()
	req.Timestamp = "yesterday"
	if _, err := req.ToTransaction(); err == nil || !strings.Contains(err.Error(), "timestamp") {
		t.Errorf("error = %v, want timestamp error", err)
	}
}

func TestDecodeJSON(t *testing.T) {
	var req BackfillRequest
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"start_date":"2025-01-01"}{}`))
	if err := decodeJSON(r, &req); err == nil {
		t.Error("expected error for trailing data")
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	if err := decodeJSON(r, &req); !errors.Is(err, ErrEmptyBody) {
		t.Errorf("error = %v, want ErrEmptyBody", err)
	}

	var tr TransactionRequest
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount": 12.5}`))
	if err := decodeJSON(r, &tr); err != nil {
		t.Fatalf("decodeJSON() error = %v", err)
	}
	if tr.Amount.String() != "12.5" {
		t.Errorf("Amount = %q, want 12.5", tr.Amount)
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  a\x01b\tc  "); got != "ab\tc" {
		t.Errorf("sanitizeInput() = %q", got)
	}
}
