package seriesdb

import (
	"testing"

	"github.com/etnz/seriesdb/date"
)

// priceRow builds a usable price row.
func priceRow(on string, close float64) Row {
	return Row{On: date.MustParse(on), Close: F(close)}
}

// priceSeriesOf builds a price series from date→close pairs.
func priceSeriesOf(key string, points ...Row) *Series {
	s := NewSeries(key, PriceSchema)
	for _, r := range points {
		s.Append(r)
	}
	return s
}

func TestMergeBootstrap(t *testing.T) {
	empty := NewSeries("TEST", PriceSchema)
	batch := []Row{priceRow("2024-01-02", 102), priceRow("2024-01-01", 100)}

	got, changed := Merge(empty, batch, Full)
	if !changed {
		t.Fatal("bootstrap merge must report a change")
	}
	if got.Len() != 2 {
		t.Fatalf("Len = %d, want 2", got.Len())
	}
	first, _ := got.First()
	if first.On != date.MustParse("2024-01-01") {
		t.Errorf("result not sorted: first = %v", first.On)
	}
}

func TestMergeEmptyBatchNeverCorrupts(t *testing.T) {
	existing := priceSeriesOf("TEST", priceRow("2024-01-01", 100))

	for _, batch := range [][]Row{nil, {}} {
		got, changed := Merge(existing, batch, AppendToday)
		if changed {
			t.Error("empty batch must not report a change")
		}
		if got != existing {
			t.Error("empty batch must return the existing series untouched")
		}
	}
}

func TestMergeIdempotent(t *testing.T) {
	existing := NewSeries("TEST", PriceSchema)
	batch := []Row{priceRow("2024-01-01", 100), priceRow("2024-01-02", 102)}

	merged, changed := Merge(existing, batch, AppendToday)
	if !changed {
		t.Fatal("first merge must change")
	}
	again, changed := Merge(merged, batch, AppendToday)
	if changed {
		t.Error("re-merging the same batch must report no change")
	}
	if !again.Equal(merged) {
		t.Error("re-merging the same batch must leave the series unchanged")
	}
}

func TestMergeLastWriteWins(t *testing.T) {
	existing := priceSeriesOf("TEST", priceRow("2024-01-01", 100), priceRow("2024-01-02", 102))
	batch := []Row{priceRow("2024-01-02", 103)}

	got, changed := Merge(existing, batch, AppendToday)
	if !changed {
		t.Fatal("a differing value at an existing date must change the series")
	}
	r, ok := got.Get(date.MustParse("2024-01-02"))
	if !ok || r.Close.Value != 103 {
		t.Errorf("value at 2024-01-02 = %v, want 103 (incoming wins)", r.Close)
	}
	// Existing must not have been mutated.
	old, _ := existing.Get(date.MustParse("2024-01-02"))
	if old.Close.Value != 102 {
		t.Errorf("existing series was mutated: %v", old.Close)
	}
}

func TestMergeNoHistoryLoss(t *testing.T) {
	existing := priceSeriesOf("TEST",
		priceRow("2024-01-01", 100), priceRow("2024-01-02", 102), priceRow("2024-01-03", 104))
	batch := []Row{priceRow("2024-01-04", 106)}

	got, _ := Merge(existing, batch, AppendToday)
	if got.Len() < existing.Len() {
		t.Fatalf("Len = %d, want >= %d", got.Len(), existing.Len())
	}
	for r := range existing.Rows() {
		if _, ok := got.Get(r.On); !ok {
			t.Errorf("valid row at %s lost by incremental merge", r.On)
		}
	}
}

func TestMergeReplacesInvalidTrailingRow(t *testing.T) {
	// The trailing row is a placeholder (no positive primary field): an
	// incremental merge replaces it with the latest valid incoming row.
	existing := priceSeriesOf("TEST",
		priceRow("2024-01-01", 100),
		Row{On: date.MustParse("2024-01-02"), Close: F(0)})
	batch := []Row{priceRow("2024-01-02", 101)}

	got, changed := Merge(existing, batch, AppendToday)
	if !changed {
		t.Fatal("replacing a placeholder must change the series")
	}
	r, ok := got.Get(date.MustParse("2024-01-02"))
	if !ok || r.Close.Value != 101 {
		t.Errorf("value at 2024-01-02 = %v, want 101", r.Close)
	}
	if got.Len() != 2 {
		t.Errorf("Len = %d, want 2", got.Len())
	}
}

func TestMergeFiltersPlaceholderIncoming(t *testing.T) {
	existing := priceSeriesOf("TEST", priceRow("2024-01-01", 100))
	batch := []Row{
		{On: date.MustParse("2024-01-02")},           // all fields absent
		{On: date.MustParse("2024-01-03"), Close: F(-1)}, // non-positive
	}
	got, changed := Merge(existing, batch, AppendToday)
	if changed {
		t.Error("a batch of placeholders must not change the series")
	}
	if got.Len() != 1 {
		t.Errorf("Len = %d, want 1", got.Len())
	}
}

func TestMergeBackfillRewritesHistory(t *testing.T) {
	existing := priceSeriesOf("TEST",
		priceRow("2024-01-01", 100), priceRow("2024-01-02", 102))
	// Upstream corrected an old value: backfill refetches the full history.
	batch := []Row{
		priceRow("2024-01-01", 99), priceRow("2024-01-02", 102), priceRow("2024-01-03", 105),
	}
	got, changed := Merge(existing, batch, Backfill)
	if !changed {
		t.Fatal("backfill with corrections must change")
	}
	r, _ := got.Get(date.MustParse("2024-01-01"))
	if r.Close.Value != 99 {
		t.Errorf("corrected value = %v, want 99", r.Close)
	}
	if got.Len() != 3 {
		t.Errorf("Len = %d, want 3", got.Len())
	}
}

// TestMergeEndToEndScenario is the reference scenario: an incremental merge
// that corrects one value and appends one row, then a point-to-point return.
func TestMergeEndToEndScenario(t *testing.T) {
	existing := priceSeriesOf("TEST",
		priceRow("2024-01-01", 100), priceRow("2024-01-02", 102))
	batch := []Row{priceRow("2024-01-02", 103), priceRow("2024-01-03", 105)}

	got, changed := Merge(existing, batch, AppendToday)
	if !changed {
		t.Fatal("merge must report a change")
	}
	wantCloses := map[string]float64{"2024-01-01": 100, "2024-01-02": 103, "2024-01-03": 105}
	if got.Len() != len(wantCloses) {
		t.Fatalf("Len = %d, want %d", got.Len(), len(wantCloses))
	}
	for on, want := range wantCloses {
		r, ok := got.Get(date.MustParse(on))
		if !ok || r.Close.Value != want {
			t.Errorf("close[%s] = %v, want %v", on, r.Close, want)
		}
	}

	ret, err := Return(got.CloseHistory(), date.Range{
		From: date.MustParse("2024-01-01"), To: date.MustParse("2024-01-03"),
	})
	if err != nil {
		t.Fatalf("Return: %v", err)
	}
	if ret != 0.05 {
		t.Errorf("return = %v, want 0.05", ret)
	}
}

func TestParseUpdateMode(t *testing.T) {
	testCases := []struct {
		in        string
		want      UpdateMode
		expectErr bool
	}{
		{"full", Full, false},
		{"backfill", Backfill, false},
		{"append", AppendToday, false},
		{"today", AppendToday, false},
		{"incremental:30", Incremental(30), false},
		{"incremental:0", UpdateMode{}, true},
		{"weekly", UpdateMode{}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseUpdateMode(tc.in)
			hasErr := err != nil
			if hasErr != tc.expectErr {
				t.Fatalf("ParseUpdateMode(%q) returned error: %v, want error: %v", tc.in, err, tc.expectErr)
			}
			if !hasErr && got != tc.want {
				t.Errorf("ParseUpdateMode(%q) = %+v, want %+v", tc.in, got, tc.want)
			}
		})
	}
}

func TestFetchWindow(t *testing.T) {
	today := date.MustParse("2024-06-15")

	t.Run("append on up-to-date series still refreshes the lookback", func(t *testing.T) {
		s := priceSeriesOf("TEST", priceRow("2024-06-15", 1))
		w, ok := AppendToday.FetchWindow(s, today)
		if !ok {
			t.Fatal("want a window")
		}
		if w.From != today.Add(-defaultLookback) || w.To != today {
			t.Errorf("window = %v", w)
		}
	})

	t.Run("append on empty series fetches full history", func(t *testing.T) {
		s := NewSeries("TEST", PriceSchema)
		w, ok := AppendToday.FetchWindow(s, today)
		if !ok || !w.From.Before(today.AddMonth(-12)) {
			t.Errorf("window = %v, ok = %v, want a deep history window", w, ok)
		}
	})

	t.Run("incremental window", func(t *testing.T) {
		s := priceSeriesOf("TEST", priceRow("2024-06-10", 1))
		w, ok := Incremental(30).FetchWindow(s, today)
		if !ok || w.From != today.Add(-30) {
			t.Errorf("window = %v, ok = %v", w, ok)
		}
	})
}
