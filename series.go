package seriesdb

import (
	"iter"
	"slices"

	"github.com/etnz/seriesdb/date"
)

// Series is the persisted, date-sorted, deduplicated record for one key.
// Rows are unique by date and sorted ascending, so all point-in-time lookups
// are binary searches. Consumers must treat a Series as immutable and derive
// new values instead of mutating rows in place.
type Series struct {
	Key    string
	Schema Schema

	rows []Row
}

// NewSeries returns an empty series for a key.
func NewSeries(key string, schema Schema) *Series {
	return &Series{Key: key, Schema: schema}
}

// Len returns the number of rows.
func (s *Series) Len() int { return len(s.rows) }

// IsEmpty reports whether the series holds no rows.
func (s *Series) IsEmpty() bool { return len(s.rows) == 0 }

// search returns the insertion index for 'on' and whether it is present.
func (s *Series) search(on date.Date) (int, bool) {
	return slices.BinarySearchFunc(s.rows, on, func(r Row, d date.Date) int {
		return r.On.Compare(d)
	})
}

// Append inserts a row, keeping the series sorted and unique by date.
// A row already present at that date is overwritten: the last write wins.
func (s *Series) Append(r Row) *Series {
	i, found := s.search(r.On)
	if found {
		s.rows[i] = r
		return s
	}
	s.rows = slices.Insert(s.rows, i, r)
	return s
}

// Get returns the row at 'on' and true, or a zero row and false.
func (s *Series) Get(on date.Date) (Row, bool) {
	if i, found := s.search(on); found {
		return s.rows[i], true
	}
	return Row{}, false
}

// First returns the earliest row, ok is false on an empty series.
func (s *Series) First() (Row, bool) {
	if len(s.rows) == 0 {
		return Row{}, false
	}
	return s.rows[0], true
}

// Last returns the latest row, ok is false on an empty series.
func (s *Series) Last() (Row, bool) {
	if len(s.rows) == 0 {
		return Row{}, false
	}
	return s.rows[len(s.rows)-1], true
}

// OnOrBefore returns the latest row dated at or before 'on'.
// It never extrapolates: ok is false outside the series range.
func (s *Series) OnOrBefore(on date.Date) (Row, bool) {
	i, found := s.search(on)
	if found {
		return s.rows[i], true
	}
	if i == 0 {
		return Row{}, false
	}
	return s.rows[i-1], true
}

// OnOrAfter returns the earliest row dated at or after 'on'.
// It never extrapolates: ok is false outside the series range.
func (s *Series) OnOrAfter(on date.Date) (Row, bool) {
	i, found := s.search(on)
	if found {
		return s.rows[i], true
	}
	if i >= len(s.rows) {
		return Row{}, false
	}
	return s.rows[i], true
}

// Rows returns an iterator over all rows in chronological order.
func (s *Series) Rows() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for _, r := range s.rows {
			if !yield(r) {
				return
			}
		}
	}
}

// Dates returns the sorted dates of the series.
func (s *Series) Dates() []date.Date {
	out := make([]date.Date, len(s.rows))
	for i, r := range s.rows {
		out[i] = r.On
	}
	return out
}

// Clone returns a deep copy of the series.
func (s *Series) Clone() *Series {
	return &Series{Key: s.Key, Schema: s.Schema, rows: slices.Clone(s.rows)}
}

// Within returns a new series restricted to the rows inside r.
func (s *Series) Within(r date.Range) *Series {
	from, _ := s.search(r.From)
	to, found := s.search(r.To)
	if found {
		to++
	}
	out := NewSeries(s.Key, s.Schema)
	if from < to {
		out.rows = slices.Clone(s.rows[from:to])
	}
	return out
}

// Equal reports whether two series hold identical rows, by value.
// Keys are not compared: a merge result must compare equal to the stored
// series when nothing changed.
func (s *Series) Equal(x *Series) bool {
	return slices.Equal(s.rows, x.rows)
}

// FieldHistory extracts the named field as a date-indexed history, skipping
// rows where the field is absent.
func (s *Series) FieldHistory(name string) *date.History {
	h := &date.History{}
	for _, r := range s.rows {
		if f := r.Get(name); f.Valid {
			h.Append(r.On, f.Value)
		}
	}
	return h
}

// CloseHistory extracts the close price history, the series most queries run on.
func (s *Series) CloseHistory() *date.History { return s.FieldHistory(FieldClose) }
