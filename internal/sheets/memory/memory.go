package memory

import (
	"context"
	"fmt"
	"sync"

	"mailledger/internal/core"
	ports "mailledger/internal/sheets"
)

// Exporter keeps exported rows in memory. Used when no spreadsheet is
// configured and in tests.
type Exporter struct {
	mu   sync.Mutex
	rows []core.Transaction
}

var (
	_ ports.TransactionExporter = (*Exporter)(nil)
	_ ports.ExportedLister      = (*Exporter)(nil)
)

func New() *Exporter {
	return &Exporter{}
}

// Append stores the transaction and returns a synthetic row reference.
func (e *Exporter) Append(_ context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rows = append(e.rows, tx)
	return fmt.Sprintf("mem:%d", len(e.rows)), nil
}

func (e *Exporter) ExportedIDs(_ context.Context) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, len(e.rows))
	for i, tx := range e.rows {
		ids[i] = tx.GlobalID()
	}
	return ids, nil
}

// Rows returns a copy of everything appended so far.
func (e *Exporter) Rows() []core.Transaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]core.Transaction(nil), e.rows...)
}
