package backend

import (
	"context"

	"mailledger/internal/sheets"
)

// ExporterResult contains the exporter instance. Exporter is nil for the
// none backend.
type ExporterResult struct {
	Exporter sheets.TransactionExporter
}

// Factory creates the export backend the mirror worker appends to.
type Factory interface {
	CreateExporter(ctx context.Context, config Config) (*ExporterResult, error)
}

// Config holds configuration for exporter creation
type Config struct {
	Type BackendType

	// Google Sheets specific
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string
}

// BackendType represents the type of export backend
type BackendType string

const (
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
	NoneBackend   BackendType = "none"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SheetsBackend, MemoryBackend, NoneBackend:
		return true
	default:
		return false
	}
}
