// Package ledger persists transactions in a flat CSV file keyed by their
// content fingerprint.
//
// Saves append to the file. Updates and deletes read the whole table, change
// it in memory and atomically replace the file. Every operation opens and
// closes the file itself; callers sharing a Store across goroutines must
// serialise access.
package ledger

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"mailledger/internal/core"
)

// Header is the fixed column layout of the ledger file.
var Header = []string{
	"global_id", "timestamp", "merchant", "amount", "currency",
	"institution", "payment_instrument", "notes",
}

const minColumns = 7 // notes may be missing on hand-edited rows

type Store struct {
	path string
}

// row is one physical line of the ledger. tx is only meaningful when ok is
// true; line keeps the raw text so a rewrite leaves unchanged and corrupt
// rows as they were.
type row struct {
	line string
	tx   core.Transaction
	ok   bool
}

// NewStore opens the ledger at path, creating the directory and a
// header-only file when missing.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}
	s := &Store{path: path}
	if err := s.ensureHeader(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Path() string { return s.path }

// Exists reports whether a transaction with the given identity is persisted.
func (s *Store) Exists(id string) (bool, error) {
	ids, err := s.ids()
	if err != nil {
		return false, err
	}
	_, ok := ids[id]
	return ok, nil
}

// Save appends tx unless an identical transaction is already persisted.
// It returns false for duplicates.
func (s *Store) Save(tx core.Transaction) (bool, error) {
	n, err := s.SaveMany([]core.Transaction{tx})
	return n == 1, err
}

// SaveMany appends every transaction not yet persisted, checking against one
// snapshot of identities that grows as rows are written. It returns the
// number of rows appended.
func (s *Store) SaveMany(txs []core.Transaction) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}
	ids, err := s.ids()
	if err != nil {
		return 0, err
	}

	var records [][]string
	for _, tx := range txs {
		tx = flatten(tx)
		id := tx.GlobalID()
		if _, dup := ids[id]; dup {
			continue
		}
		ids[id] = struct{}{}
		records = append(records, encode(tx))
	}
	if len(records) == 0 {
		return 0, nil
	}
	if err := s.append(records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// GetAll returns every readable transaction in file order. Rows that do not
// parse are skipped.
func (s *Store) GetAll() ([]core.Transaction, error) {
	rows, err := s.read()
	if err != nil {
		return nil, err
	}
	txs := make([]core.Transaction, 0, len(rows))
	for _, r := range rows {
		if r.ok {
			txs = append(txs, r.tx)
		}
	}
	return txs, nil
}

// Get returns the first transaction with the given identity.
func (s *Store) Get(id string) (core.Transaction, bool, error) {
	rows, err := s.read()
	if err != nil {
		return core.Transaction{}, false, err
	}
	if i := indexOf(rows, id); i >= 0 {
		return rows[i].tx, true, nil
	}
	return core.Transaction{}, false, nil
}

// Update replaces the first transaction whose identity is id with tx and
// rewrites the file. The replacement carries its own identity.
func (s *Store) Update(id string, tx core.Transaction) (bool, error) {
	rows, err := s.read()
	if err != nil {
		return false, err
	}
	i := indexOf(rows, id)
	if i < 0 {
		return false, nil
	}
	tx = flatten(tx)
	line, err := formatRecord(encode(tx))
	if err != nil {
		return false, err
	}
	rows[i] = row{line: line, tx: tx, ok: true}
	if err := s.rewrite(rows); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes the first transaction whose identity is id and rewrites
// the file.
func (s *Store) Delete(id string) (bool, error) {
	rows, err := s.read()
	if err != nil {
		return false, err
	}
	i := indexOf(rows, id)
	if i < 0 {
		return false, nil
	}
	rows = append(rows[:i], rows[i+1:]...)
	if err := s.rewrite(rows); err != nil {
		return false, err
	}
	return true, nil
}

func indexOf(rows []row, id string) int {
	for i, r := range rows {
		if r.ok && r.tx.GlobalID() == id {
			return i
		}
	}
	return -1
}

func (s *Store) ids() (map[string]struct{}, error) {
	rows, err := s.read()
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r.ok {
			ids[r.tx.GlobalID()] = struct{}{}
		}
	}
	return ids, nil
}

func (s *Store) ensureHeader() error {
	info, err := os.Stat(s.path)
	if err == nil && info.Size() > 0 {
		return nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat ledger: %w", err)
	}
	return s.rewrite(nil)
}

// read parses the ledger one physical line at a time so a malformed row,
// such as one with an unterminated quote, cannot swallow the rows after it.
func (s *Store) read() ([]row, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	var rows []row
	first := true
	br := bufio.NewReader(f)
	for done := false; !done; {
		line, err := br.ReadString('\n')
		switch {
		case err == io.EOF:
			done = true
		case err != nil:
			return nil, fmt.Errorf("read ledger: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		record := parseLine(line)
		if first {
			first = false
			if len(record) > 0 && record[0] == Header[0] {
				continue
			}
		}
		tx, ok := decode(record)
		rows = append(rows, row{line: line, tx: tx, ok: ok})
	}
	return rows, nil
}

// parseLine splits a single CSV line. It returns nil when the line does not
// parse, which decode treats as corrupt.
func parseLine(line string) []string {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	record, err := r.Read()
	if err != nil {
		return nil
	}
	return record
}

func formatRecord(record []string) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write(record); err != nil {
		return "", fmt.Errorf("encode ledger row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("encode ledger row: %w", err)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (s *Store) append(records [][]string) error {
	if err := s.ensureHeader(); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("open ledger for append: %w", err)
	}
	var b strings.Builder
	if missing, err := missingNewline(f); err != nil {
		f.Close()
		return err
	} else if missing {
		b.WriteByte('\n')
	}
	for _, record := range records {
		line, err := formatRecord(record)
		if err != nil {
			f.Close()
			return err
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return fmt.Errorf("append to ledger: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync ledger: %w", err)
	}
	return f.Close()
}

// missingNewline reports whether a non-empty file lacks a final newline,
// as a hand-edited ledger may.
func missingNewline(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("stat ledger: %w", err)
	}
	if info.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, fmt.Errorf("read ledger tail: %w", err)
	}
	return last[0] != '\n', nil
}

// rewrite atomically replaces the ledger with header + rows.
func (s *Store) rewrite(rows []row) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".ledger-*.csv")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	header, err := formatRecord(Header)
	if err != nil {
		return cleanup(err)
	}
	w := bufio.NewWriter(tmp)
	w.WriteString(header + "\n")
	for _, r := range rows {
		w.WriteString(r.line + "\n")
	}
	if err := w.Flush(); err != nil {
		return cleanup(fmt.Errorf("write ledger: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(fmt.Errorf("sync temp ledger: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp ledger: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp ledger: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// flatten replaces line breaks in text fields so every row stays on one
// physical line. Identity is computed on the flattened values.
func flatten(tx core.Transaction) core.Transaction {
	tx.Merchant = lineBreaks.Replace(tx.Merchant)
	tx.Currency = lineBreaks.Replace(tx.Currency)
	tx.Institution = lineBreaks.Replace(tx.Institution)
	tx.PaymentInstrument = lineBreaks.Replace(tx.PaymentInstrument)
	tx.Notes = lineBreaks.Replace(tx.Notes)
	return tx
}

func encode(tx core.Transaction) []string {
	return []string{
		tx.GlobalID(),
		core.FormatISO(tx.Timestamp),
		tx.Merchant,
		strconv.FormatInt(tx.Amount.Cents, 10),
		tx.Currency,
		tx.Institution,
		tx.PaymentInstrument,
		tx.Notes,
	}
}

func decode(record []string) (core.Transaction, bool) {
	if len(record) < minColumns {
		return core.Transaction{}, false
	}
	ts, err := core.ParseISO(record[1])
	if err != nil {
		return core.Transaction{}, false
	}
	cents, err := strconv.ParseInt(record[3], 10, 64)
	if err != nil {
		return core.Transaction{}, false
	}
	tx := core.Transaction{
		Timestamp:         ts,
		Merchant:          record[2],
		Amount:            core.Money{Cents: cents},
		Currency:          record[4],
		Institution:       record[5],
		PaymentInstrument: record[6],
	}
	if len(record) > minColumns {
		tx.Notes = record[7]
	}
	if tx.Merchant == "" || tx.Currency == "" || tx.Institution == "" {
		return core.Transaction{}, false
	}
	return tx, true
}
