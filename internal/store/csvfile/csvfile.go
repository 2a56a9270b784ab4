// Package csvfile implements the output store as an append-only delimited
// file and reads work items from the delimited input file.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/JakeFAU/placescraper/internal/places"
	"github.com/JakeFAU/placescraper/internal/store"
)

// Store appends records to a CSV file. The header is written once, when the
// file is created; later appends follow the existing header's column order.
type Store struct {
	path string
	mu   sync.Mutex
}

var _ store.Output = (*Store)(nil)

// New returns a Store for path. The file is created on first append.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Append writes records as rows, creating the file and header if needed.
func (s *Store) Append(_ context.Context, records []places.PlaceRecord) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	header, err := s.readHeader()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	w := csv.NewWriter(f)
	if header == nil {
		header = places.Columns
		if err := w.Write(header); err != nil {
			_ = f.Close()
			return fmt.Errorf("write header: %w", err)
		}
	}
	columns := canonical(header)
	for _, rec := range records {
		if err := w.Write(rec.Row(columns)); err != nil {
			_ = f.Close()
			return fmt.Errorf("write record %s: %w", rec.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush output: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync output: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}

// readHeader returns the existing header, or nil when the file is missing or empty.
func (s *Store) readHeader() ([]string, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	defer f.Close()
	header, err := newReader(f).Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read output header: %w", err)
	}
	return normalizeHeader(header), nil
}

// ReadIDs returns the id column of every row. A missing file yields no ids.
func (s *Store) ReadIDs(ctx context.Context) ([]string, error) {
	header, rows, err := s.Table(ctx)
	if err != nil || header == nil {
		return nil, err
	}
	col := idColumn(header)
	if col < 0 {
		return nil, fmt.Errorf("%s: %w", s.path, store.ErrNoIDColumn)
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if col < len(row) {
			if id := strings.TrimSpace(row[col]); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// Table reads the whole file. A missing or empty file yields a nil header.
func (s *Store) Table(_ context.Context) ([]string, [][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open output: %w", err)
	}
	defer f.Close()

	records, err := newReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read output: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	return normalizeHeader(records[0]), records[1:], nil
}

// Close implements store.Output; the file is opened per operation.
func (s *Store) Close() error {
	return nil
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.TrimSpace(stripBOM(h))
	}
	return out
}

// canonical maps an existing header, legacy names included, onto record columns.
func canonical(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = places.CanonicalColumn(h)
	}
	return out
}

func idColumn(header []string) int {
	for i, h := range header {
		if slices.Contains(places.IDColumnAliases, strings.ToLower(h)) {
			return i
		}
	}
	return -1
}

// stripBOM removes a byte-order mark, including one mis-decoded as Latin-1.
func stripBOM(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.TrimPrefix(s, "\u00ef\u00bb\u00bf")
}
