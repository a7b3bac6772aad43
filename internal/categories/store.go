// Package categories keeps the merchant to category side mapping used when
// presenting and summarising transactions. It never affects identity.
package categories

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"mailledger/internal/core"
)

var header = []string{"merchant", "category"}

// Store is a CSV-backed merchant to category map cached in memory.
// It is safe for concurrent use.
type Store struct {
	path string

	mu       sync.RWMutex
	mappings map[string]string
}

// NewStore loads the mapping file at path, creating it when missing.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create categories directory: %w", err)
	}
	s := &Store{path: path, mappings: map[string]string{}}
	if err := s.load(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := s.writeAll(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Get returns the category for merchant, matched case-insensitively.
func (s *Store) Get(merchant string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.mappings[core.CategoryKey(merchant)]
	return c, ok
}

// Set assigns category to merchant and rewrites the file. Blank merchants
// or categories are ignored.
func (s *Store) Set(merchant, category string) error {
	key := core.CategoryKey(merchant)
	category = strings.TrimSpace(category)
	if key == "" || category == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings[key] = category
	return s.writeAll()
}

// All returns a copy of every mapping keyed by normalised merchant.
func (s *Store) All() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.mappings))
	for k, v := range s.mappings {
		out[k] = v
	}
	return out
}

// Resolve fills the Category of each transaction from the mapping.
func (s *Store) Resolve(txs []core.Transaction) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range txs {
		txs[i].Category = s.mappings[core.CategoryKey(txs[i].Merchant)]
	}
}

func (s *Store) load() error {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open categories: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	first := true
	for {
		record, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read categories: %w", err)
		}
		if first {
			first = false
			if len(record) > 0 && record[0] == header[0] {
				continue
			}
		}
		if len(record) < 2 {
			continue
		}
		key, category := core.CategoryKey(record[0]), strings.TrimSpace(record[1])
		if key != "" && category != "" {
			s.mappings[key] = category
		}
	}
}

// writeAll rewrites the file sorted by merchant. Callers hold mu.
func (s *Store) writeAll() error {
	keys := make([]string, 0, len(s.mappings))
	for k := range s.mappings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".categories-*.csv")
	if err != nil {
		return fmt.Errorf("create temp categories: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	w.Write(header)
	for _, k := range keys {
		w.Write([]string{k, s.mappings[k]})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("write categories: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp categories: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace categories: %w", err)
	}
	return nil
}
