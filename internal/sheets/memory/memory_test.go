package memory

import (
	"context"
	"testing"
	"time"

	"mailledger/internal/core"
)

func TestExporterAppendAndList(t *testing.T) {
	e := New()
	tx := core.Transaction{
		Timestamp:         time.Date(2025, 1, 15, 14, 30, 0, 0, time.UTC),
		Merchant:          "Walmart",
		Amount:            core.Money{Cents: 1250},
		Currency:          core.CurrencyUSD,
		Institution:       "BAC",
		PaymentInstrument: "1234",
	}

	ref, err := e.Append(context.Background(), tx)
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	ids, _ := e.ExportedIDs(context.Background())
	if len(ids) != 1 || ids[0] != tx.GlobalID() {
		t.Fatalf("unexpected ids: %v", ids)
	}
	if rows := e.Rows(); len(rows) != 1 || rows[0].Merchant != "Walmart" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestExporterRejectsInvalid(t *testing.T) {
	e := New()
	if _, err := e.Append(context.Background(), core.Transaction{Merchant: "x"}); err == nil {
		t.Fatal("expected validation error")
	}
	if len(e.Rows()) != 0 {
		t.Fatal("invalid transaction should not be stored")
	}
}
