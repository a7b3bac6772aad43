package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"mailledger/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteIndex is a queryable mirror of the ledger. The CSV ledger stays the
// source of truth; the index can always be rebuilt with ReplaceAll.
type SQLiteIndex struct {
	db *sql.DB
}

// InstitutionTotal is the aggregate for one institution and currency.
type InstitutionTotal struct {
	Institution string
	Currency    string
	Count       int64
	Amount      core.Money
}

const upsertSQL = `
INSERT INTO transactions (
    global_id, timestamp, merchant, amount_cents, currency,
    institution, payment_instrument, notes, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(global_id) DO UPDATE SET
    notes = excluded.notes,
    updated_at = CURRENT_TIMESTAMP`

func NewSQLiteIndex(dbPath string) (*SQLiteIndex, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one writer; sqlite serialises anyway
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteIndex{db: db}, nil
}

func (s *SQLiteIndex) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, db execer, tx core.Transaction) error {
	_, err := db.ExecContext(ctx, upsertSQL,
		tx.GlobalID(),
		core.FormatISO(tx.Timestamp),
		tx.Merchant,
		tx.Amount.Cents,
		tx.Currency,
		tx.Institution,
		tx.PaymentInstrument,
		tx.Notes,
	)
	return err
}

// Upsert inserts tx, or refreshes its notes if the identity is already indexed.
func (s *SQLiteIndex) Upsert(ctx context.Context, tx core.Transaction) error {
	if err := upsert(ctx, s.db, tx); err != nil {
		return fmt.Errorf("upsert transaction: %w", err)
	}
	return nil
}

// Replace removes previousID and indexes tx in one database transaction.
func (s *SQLiteIndex) Replace(ctx context.Context, previousID string, tx core.Transaction) error {
	return s.inTx(ctx, func(dbtx *sql.Tx) error {
		if previousID != "" {
			if _, err := dbtx.ExecContext(ctx, `DELETE FROM transactions WHERE global_id = ?`, previousID); err != nil {
				return fmt.Errorf("delete previous transaction: %w", err)
			}
		}
		if err := upsert(ctx, dbtx, tx); err != nil {
			return fmt.Errorf("upsert transaction: %w", err)
		}
		return nil
	})
}

// Delete reports whether a row with id existed.
func (s *SQLiteIndex) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE global_id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ReplaceAll swaps the whole index for txs.
func (s *SQLiteIndex) ReplaceAll(ctx context.Context, txs []core.Transaction) error {
	err := s.inTx(ctx, func(dbtx *sql.Tx) error {
		if _, err := dbtx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
			return fmt.Errorf("clear transactions: %w", err)
		}
		for _, tx := range txs {
			if err := upsert(ctx, dbtx, tx); err != nil {
				return fmt.Errorf("insert transaction %s: %w", tx.GlobalID(), err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "SQLite index rebuilt", "transactions", len(txs))
	return nil
}

func (s *SQLiteIndex) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

// Get returns the indexed transaction with id.
func (s *SQLiteIndex) Get(ctx context.Context, id string) (core.Transaction, bool, error) {
	var (
		tx core.Transaction
		ts string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT timestamp, merchant, amount_cents, currency, institution, payment_instrument, notes
FROM transactions WHERE global_id = ?`, id).Scan(
		&ts, &tx.Merchant, &tx.Amount.Cents, &tx.Currency, &tx.Institution, &tx.PaymentInstrument, &tx.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, false, nil
	}
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("get transaction: %w", err)
	}
	if tx.Timestamp, err = core.ParseISO(ts); err != nil {
		return core.Transaction{}, false, fmt.Errorf("parse timestamp %q: %w", ts, err)
	}
	return tx, true, nil
}

// Totals aggregates amounts per institution and currency, ordered by both.
func (s *SQLiteIndex) Totals(ctx context.Context) ([]InstitutionTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT institution, currency, COUNT(*), COALESCE(SUM(amount_cents), 0)
FROM transactions
GROUP BY institution, currency
ORDER BY institution, currency`)
	if err != nil {
		return nil, fmt.Errorf("query totals: %w", err)
	}
	defer rows.Close()

	var totals []InstitutionTotal
	for rows.Next() {
		var t InstitutionTotal
		if err := rows.Scan(&t.Institution, &t.Currency, &t.Count, &t.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan totals: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate totals: %w", err)
	}
	return totals, nil
}

func (s *SQLiteIndex) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(dbtx); err != nil {
		dbtx.Rollback()
		return err
	}
	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
