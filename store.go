package seriesdb

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/etnz/seriesdb/date"
)

// This file contains the on-disk store: one delimited text file per key,
// with a header row naming the canonical fields in a fixed order. The date
// column is always serialized as an ISO calendar date so merge comparisons
// are exact. The store is the single owner of on-disk state; the merge
// engine is its only writer.

const attrOn = "date"

const (
	attrSymbol    = "symbol"
	attrCurrency  = "currency"
	attrQuoteType = "quoteType"
)

// Store persists one series per key under a base directory.
type Store struct {
	dir string
	log *slog.Logger
}

// NewStore returns a store rooted at dir. The directory is created lazily on
// the first write.
func NewStore(dir string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{dir: dir, log: log}
}

// keyCleaner replaces characters that cannot appear in a file name. Keys like
// "KRW=X" or "^KS11" must map to stable, distinct file names.
var keyCleaner = strings.NewReplacer("=", "_eq_", "^", "_ix_", "/", "_", "\\", "_", ":", "_")

// path returns the file holding a key's series.
func (st *Store) path(key string) string {
	return filepath.Join(st.dir, keyCleaner.Replace(key)+".csv")
}

// header returns the canonical column order for a schema.
func header(schema Schema) []string {
	h := append([]string{attrOn}, schema.Fields...)
	return append(h, attrSymbol, attrCurrency, attrQuoteType)
}

// Canonicalize normalizes a series to the shape the store writes: every row
// carries exactly the schema's fields (fields outside the schema are cleared
// to the absent marker). It returns a new series, so stored and freshly
// merged series compare equal field by field.
func Canonicalize(s *Series) *Series {
	keep := make(map[string]bool, len(s.Schema.Fields))
	for _, name := range s.Schema.Fields {
		keep[name] = true
	}
	out := NewSeries(s.Key, s.Schema)
	for r := range s.Rows() {
		for _, name := range []string{
			FieldOpen, FieldHigh, FieldLow, FieldClose, FieldVolume,
			FieldTrailingPE, FieldPriceToBook, FieldDividendYield,
			FieldToUSD, FieldToKRW,
		} {
			if !keep[name] {
				r = r.Set(name, Field{})
			}
		}
		out.Append(r)
	}
	return out
}

// Read loads the series stored for a key. A missing file yields an empty
// series and no error. A corrupt file is treated as empty too: the engine
// re-bootstraps on the next update instead of failing the whole run.
func (st *Store) Read(key string, schema Schema) (*Series, error) {
	f, err := os.Open(st.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return NewSeries(key, schema), nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot open series file for %q: %w", key, err)
	}
	defer f.Close()

	s, err := decodeSeries(f, key, schema)
	if err != nil {
		st.log.Warn("corrupt series file, treating as empty", "key", key, "path", st.path(key), "err", err)
		return NewSeries(key, schema), nil
	}
	return s, nil
}

// decodeSeries parses a canonical CSV stream into a series.
func decodeSeries(r io.Reader, key string, schema Schema) (*Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // the header drives the width check below

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return NewSeries(key, schema), nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read header: %w", err)
	}
	want := header(schema)
	if len(head) != len(want) || head[0] != attrOn {
		return nil, fmt.Errorf("unexpected header %v", head)
	}

	s := NewSeries(key, schema)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) != len(want) {
			return nil, fmt.Errorf("line %d: %d columns, want %d", line, len(rec), len(want))
		}
		on, err := date.Parse(rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row := Row{On: on}
		for i, name := range schema.Fields {
			f, err := parseField(rec[1+i])
			if err != nil {
				return nil, fmt.Errorf("line %d, column %q: %w", line, name, err)
			}
			row = row.Set(name, f)
		}
		n := 1 + len(schema.Fields)
		row.Symbol, row.Currency, row.QuoteType = rec[n], rec[n+1], rec[n+2]
		s.Append(row)
	}
	return s, nil
}

// Write persists a series for a key. The series is canonicalized first, and
// the write is skipped entirely when the result is value-identical to what
// is already stored, which makes repeated runs observably idempotent. The
// actual write goes to a temporary file renamed over the previous one, so a
// crash mid-write cannot leave a half-written store.
func (st *Store) Write(key string, s *Series) error {
	canon := Canonicalize(s)

	prev, err := st.Read(key, s.Schema)
	if err == nil && canon.Equal(prev) {
		st.log.Debug("series unchanged, skipping write", "key", key)
		return nil
	}

	if err := os.MkdirAll(st.dir, 0o755); err != nil {
		return fmt.Errorf("cannot create store directory %q: %w", st.dir, err)
	}

	tmp, err := os.CreateTemp(st.dir, "."+keyCleaner.Replace(key)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("cannot create temporary file for %q: %w", key, err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if err := encodeSeries(tmp, canon); err != nil {
		tmp.Close()
		return fmt.Errorf("cannot write series for %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cannot close temporary file for %q: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), st.path(key)); err != nil {
		return fmt.Errorf("cannot replace series file for %q: %w", key, err)
	}
	return nil
}

// encodeSeries writes a canonical series as CSV.
func encodeSeries(w io.Writer, s *Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header(s.Schema)); err != nil {
		return err
	}
	rec := make([]string, 0, len(s.Schema.Fields)+4)
	for r := range s.Rows() {
		rec = rec[:0]
		rec = append(rec, r.On.String())
		for _, name := range s.Schema.Fields {
			rec = append(rec, r.Get(name).String())
		}
		rec = append(rec, r.Symbol, r.Currency, r.QuoteType)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
