package seriesdb

// This file contains the validity rules deciding which rows are trustworthy.
// They are pure functions over rows: sources publish placeholder rows (all
// zero ratios, missing close) intraday and backfill the real values later,
// and some publish weekend rows that merely repeat Friday's values.

// Usable implements the zero/placeholder rule: a row is rejected when every
// primary field of the schema is absent or non-positive, and accepted as
// soon as one primary field is positive.
func Usable(r Row, schema Schema) bool {
	for _, name := range schema.Primary {
		if r.Get(name).Positive() {
			return true
		}
	}
	return false
}

// filterUsable keeps the usable rows of a batch, preserving order.
func filterUsable(batch []Row, schema Schema) []Row {
	out := make([]Row, 0, len(batch))
	for _, r := range batch {
		if Usable(r, schema) {
			out = append(out, r)
		}
	}
	return out
}

// DropWeekendDuplicates removes Saturday/Sunday rows whose comparable fields
// are all identical to the immediately preceding row (two absent fields
// counting as equal). Weekend rows carrying different values are kept, and
// weekday rows are never touched. It returns a new series and the number of
// rows dropped.
func DropWeekendDuplicates(s *Series) (*Series, int) {
	out := NewSeries(s.Key, s.Schema)
	dropped := 0
	var prev Row
	first := true
	for r := range s.Rows() {
		if !first && r.On.IsWeekend() && r.SameValues(prev, s.Schema) {
			dropped++
			// A dropped row still becomes prev: a Sunday repeating a dropped
			// Saturday is itself a duplicate.
			prev = r
			continue
		}
		out.Append(r)
		prev = r
		first = false
	}
	return out, dropped
}

// RestrictToDates drops every row whose date is absent from the companion
// reference series. This is destructive: removed rows may not be
// backfillable, so it only runs when explicitly requested (strict mode).
// It returns a new series and the number of rows dropped.
func RestrictToDates(s *Series, ref *Series) (*Series, int) {
	out := NewSeries(s.Key, s.Schema)
	dropped := 0
	for r := range s.Rows() {
		if _, ok := ref.Get(r.On); !ok {
			dropped++
			continue
		}
		out.Append(r)
	}
	return out, dropped
}
