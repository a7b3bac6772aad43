package backend

import (
	"context"
	"testing"

	"mailledger/internal/config"
	"mailledger/internal/sheets/memory"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{ExportBackend: "ftp"}); err == nil {
		t.Error("expected error for unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{
		ExportBackend:       "sheets",
		GoogleSpreadsheetID: "abc",
		GoogleSheetName:     "Transactions",
	})
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != SheetsBackend || cfg.GoogleSpreadsheetID != "abc" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"none", Config{Type: NoneBackend}, false},
		{"sheets with id", Config{Type: SheetsBackend, GoogleSpreadsheetID: "abc"}, false},
		{"sheets without id", Config{Type: SheetsBackend}, true},
		{"unknown", Config{Type: "sqlite"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFactory_CreateExporter(t *testing.T) {
	f := NewFactory(nil)

	res, err := f.CreateExporter(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("CreateExporter(memory) error = %v", err)
	}
	if _, ok := res.Exporter.(*memory.Exporter); !ok {
		t.Errorf("exporter = %T, want *memory.Exporter", res.Exporter)
	}

	res, err = f.CreateExporter(context.Background(), Config{Type: NoneBackend})
	if err != nil {
		t.Fatalf("CreateExporter(none) error = %v", err)
	}
	if res.Exporter != nil {
		t.Errorf("none backend should have no exporter, got %T", res.Exporter)
	}

	if _, err := f.CreateExporter(context.Background(), Config{Type: SheetsBackend}); err == nil {
		t.Error("expected error for sheets backend without spreadsheet ID")
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := GetBackendTypeStrings()
	if len(got) != 3 || got[0] != "sheets" || got[2] != "none" {
		t.Errorf("GetBackendTypeStrings() = %v", got)
	}
}
