package seriesdb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/etnz/seriesdb/date"
)

// This file contains the merge protocol reconciling an existing stored
// series with a freshly fetched batch. The invariants it preserves: dates
// stay unique and sorted, every valid stored row survives an incremental
// merge, and when an incoming row collides with a stored one the incoming
// value wins (last write wins, by fetch recency).

// UpdateMode selects how far back an update looks and how the merge treats
// the trailing stored row.
type UpdateMode struct {
	// Name is one of "full", "backfill", "append", "incremental".
	Name string
	// Days is the incremental lookback, only meaningful for "incremental".
	Days int
}

var (
	// Full bootstraps a series from the whole available history.
	Full = UpdateMode{Name: "full"}
	// Backfill refetches the whole history and re-merges it against the
	// stored series, recovering from historical corrections upstream.
	Backfill = UpdateMode{Name: "backfill"}
	// AppendToday fetches a short window around today, tolerating
	// late-arriving or corrected same-day values.
	AppendToday = UpdateMode{Name: "append"}
)

// Incremental fetches the last n days.
func Incremental(n int) UpdateMode { return UpdateMode{Name: "incremental", Days: n} }

// ParseUpdateMode parses "full", "backfill", "append" or "incremental:<n>".
func ParseUpdateMode(s string) (UpdateMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "full":
		return Full, nil
	case "backfill":
		return Backfill, nil
	case "append", "today":
		return AppendToday, nil
	}
	if rest, ok := strings.CutPrefix(s, "incremental:"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n <= 0 {
			return UpdateMode{}, fmt.Errorf("invalid incremental lookback in %q", s)
		}
		return Incremental(n), nil
	}
	return UpdateMode{}, fmt.Errorf("unknown update mode %q: want full, backfill, append or incremental:<n>", s)
}

// defaultLookback is the window, in days, that an append-today update
// re-reads before the last stored date to pick up corrected values.
const defaultLookback = 4

// FetchWindow computes the date range an update in this mode should request
// from the source, given the existing series. ok is false when the series is
// already up to date and nothing needs fetching.
func (m UpdateMode) FetchWindow(existing *Series, today date.Date) (date.Range, bool) {
	last, hasLast := existing.Last()
	switch m.Name {
	case "full", "backfill":
		return date.Range{From: today.AddMonth(-12 * maxHistoryYears), To: today}, true
	case "incremental":
		return date.Range{From: today.Add(-m.Days), To: today}, true
	default: // append
		if !hasLast {
			return date.Range{From: today.AddMonth(-12 * maxHistoryYears), To: today}, true
		}
		from := last.On.Add(-defaultLookback)
		if from.After(today) {
			return date.Range{}, false
		}
		return date.Range{From: from, To: today}, true
	}
}

// maxHistoryYears bounds a full-history fetch.
const maxHistoryYears = 30

// Merge reconciles the existing series with a batch of freshly fetched rows
// and reports whether anything changed. The existing series is never
// mutated; when changed is false the returned series is the existing one and
// callers must skip the store write.
//
// A nil or empty batch (the fetch failed or returned nothing) never corrupts
// the existing series: the result is existing, unchanged.
func Merge(existing *Series, incoming []Row, mode UpdateMode) (result *Series, changed bool) {
	incoming = filterUsable(incoming, existing.Schema)
	if len(incoming) == 0 {
		return existing, false
	}

	// Bootstrap: nothing stored yet, the filtered batch is the series.
	if existing.IsEmpty() {
		result = NewSeries(existing.Key, existing.Schema)
		for _, r := range incoming {
			result.Append(r)
		}
		return result, true
	}

	base := existing.Clone()

	if mode.Name != "backfill" && mode.Name != "full" {
		// Incremental sub-mode: if the trailing stored row fails the
		// validity filter (an intraday placeholder), drop it so the latest
		// valid incoming row takes its place. Only the single trailing row
		// is reconsidered; two consecutive invalid trailing rows are not
		// handled here (see DESIGN.md).
		if last, ok := base.Last(); ok && !Usable(last, base.Schema) {
			base.rows = base.rows[:len(base.rows)-1]
		}

		// Append-only: keep incoming rows inside the refresh window. Rows
		// older than the window have been merged before and re-merging them
		// is redundant; they would win ties anyway, so this only bounds work.
		if last, ok := base.Last(); ok {
			lookback := defaultLookback
			if mode.Name == "incremental" {
				lookback = mode.Days
			}
			cutoff := last.On.Add(-lookback)
			kept := incoming[:0:0]
			for _, r := range incoming {
				if !r.On.Before(cutoff) {
					kept = append(kept, r)
				}
			}
			incoming = kept
		}
	}

	// Concatenate and deduplicate by date. Append replaces on collision, so
	// appending incoming after existing makes incoming win every tie.
	for _, r := range incoming {
		base.Append(r)
	}

	if base.Len() == existing.Len() && base.Equal(existing) {
		return existing, false
	}
	return base, true
}
