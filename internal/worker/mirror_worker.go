package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mailledger/internal/amqp"
	"mailledger/internal/core"
	"mailledger/internal/sheets"
	"mailledger/internal/storage"
)

// Snapshot reads the full ledger.
type Snapshot interface {
	GetAll() ([]core.Transaction, error)
}

// MirrorWorker keeps the SQLite index and the export sheet in step with the
// ledger. Events give low latency; Reconcile repairs anything they missed.
type MirrorWorker struct {
	index    *storage.SQLiteIndex
	exporter sheets.TransactionExporter
	snapshot Snapshot
}

// NewMirrorWorker builds a worker. exporter may be nil.
func NewMirrorWorker(index *storage.SQLiteIndex, exporter sheets.TransactionExporter, snapshot Snapshot) *MirrorWorker {
	return &MirrorWorker{
		index:    index,
		exporter: exporter,
		snapshot: snapshot,
	}
}

// HandleLedgerEvent applies one ledger event. Index failures are returned so
// the message is redelivered; export failures are left to Reconcile.
func (w *MirrorWorker) HandleLedgerEvent(ctx context.Context, e *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"event_id", e.ID,
		"type", e.Type,
		"global_id", e.GlobalID)

	switch e.Type {
	case amqp.EventCreated:
		tx, err := e.Transaction.ToTransaction()
		if err != nil {
			return err
		}
		if err := w.index.Upsert(ctx, tx); err != nil {
			return fmt.Errorf("index transaction: %w", err)
		}
		w.export(ctx, tx)

	case amqp.EventUpdated:
		tx, err := e.Transaction.ToTransaction()
		if err != nil {
			return err
		}
		if err := w.index.Replace(ctx, e.PreviousID, tx); err != nil {
			return fmt.Errorf("reindex transaction: %w", err)
		}

	case amqp.EventDeleted:
		deleted, err := w.index.Delete(ctx, e.GlobalID)
		if err != nil {
			return fmt.Errorf("unindex transaction: %w", err)
		}
		if !deleted {
			slog.WarnContext(ctx, "Deleted transaction was not indexed", "global_id", e.GlobalID)
		}

	default:
		return fmt.Errorf("%w: unknown type %q", amqp.ErrInvalidEvent, e.Type)
	}
	return nil
}

func (w *MirrorWorker) export(ctx context.Context, tx core.Transaction) {
	if w.exporter == nil {
		return
	}
	ref, err := w.exporter.Append(ctx, tx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to export transaction",
			"global_id", tx.GlobalID(),
			"error", err)
		return
	}
	slog.InfoContext(ctx, "Exported transaction", "global_id", tx.GlobalID(), "sheets_ref", ref)
}

// Reconcile rebuilds the index from the ledger and appends to the sheet any
// transaction it does not list yet.
func (w *MirrorWorker) Reconcile(ctx context.Context) error {
	txs, err := w.snapshot.GetAll()
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	if err := w.index.ReplaceAll(ctx, txs); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}
	w.logTotals(ctx)

	lister, ok := w.exporter.(sheets.ExportedLister)
	if !ok {
		return nil
	}
	ids, err := lister.ExportedIDs(ctx)
	if err != nil {
		return fmt.Errorf("list exported: %w", err)
	}
	exported := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		exported[id] = struct{}{}
	}

	missing := 0
	for _, tx := range txs {
		if _, ok := exported[tx.GlobalID()]; ok {
			continue
		}
		if _, err := w.exporter.Append(ctx, tx); err != nil {
			return fmt.Errorf("export %s: %w", tx.GlobalID(), err)
		}
		missing++
	}
	if missing > 0 {
		slog.InfoContext(ctx, "Exported missing transactions", "count", missing)
	}
	return nil
}

func (w *MirrorWorker) logTotals(ctx context.Context) {
	totals, err := w.index.Totals(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Failed to read index totals", "error", err)
		return
	}
	for _, t := range totals {
		slog.InfoContext(ctx, "Index totals",
			"institution", t.Institution,
			"count", t.Count,
			"amount", core.FormatAmount(t.Amount, t.Currency))
	}
}

// Run reconciles immediately and then every interval until ctx ends.
func (w *MirrorWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := w.Reconcile(ctx); err != nil {
			slog.ErrorContext(ctx, "Reconcile failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
