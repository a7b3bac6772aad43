package sheets

import (
	"context"

	"mailledger/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionExporter appends ledger transactions to an external sheet.
	TransactionExporter interface {
		Append(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}

	// ExportedLister reports the identities already present in the sheet.
	ExportedLister interface {
		ExportedIDs(ctx context.Context) ([]string, error)
	}
)
