//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"mailledger/internal/core"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_AppendAndList(t *testing.T) {
	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}

	ctx := context.Background()
	client, err := New(ctx, Config{
		SpreadsheetID:   spreadsheetID,
		SheetName:       os.Getenv("GOOGLE_SHEET_NAME"),
		CredentialsJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		CredentialsFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	tx := core.Transaction{
		Timestamp:         time.Now().UTC().Truncate(time.Second),
		Merchant:          "Integration Test",
		Amount:            core.Money{Cents: 100},
		Currency:          core.CurrencyUSD,
		Institution:       "BAC",
		PaymentInstrument: "0000",
		Notes:             "delete me",
	}
	ref, err := client.Append(ctx, tx)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	t.Logf("Appended row %s", ref)

	ids, err := client.ExportedIDs(ctx)
	if err != nil {
		t.Fatalf("ExportedIDs() error = %v", err)
	}
	found := false
	for _, id := range ids {
		if id == tx.GlobalID() {
			found = true
		}
	}
	if !found {
		t.Errorf("appended id %s not listed", tx.GlobalID())
	}
}
