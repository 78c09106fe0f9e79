package seriesdb

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/etnz/seriesdb/date"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

func TestStoreReadMissing(t *testing.T) {
	st := testStore(t)
	s, err := st.Read("NOPE", PriceSchema)
	if err != nil {
		t.Fatalf("Read on missing file must not fail: %v", err)
	}
	if !s.IsEmpty() {
		t.Errorf("Len = %d, want empty", s.Len())
	}
}

func TestStoreRoundTrip(t *testing.T) {
	st := testStore(t)
	s := priceSeriesOf("KRW=X",
		Row{On: date.MustParse("2024-01-01"), Open: F(99), Close: F(100), Symbol: "KRW=X", Currency: "KRW", QuoteType: "price"},
		Row{On: date.MustParse("2024-01-02"), Close: F(101), Symbol: "KRW=X", Currency: "KRW", QuoteType: "price"})

	if err := st.Write("KRW=X", s); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := st.Read("KRW=X", PriceSchema)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !got.Equal(Canonicalize(s)) {
		t.Error("round trip lost data")
	}
	r, _ := got.Get(date.MustParse("2024-01-02"))
	if r.Open.Valid {
		t.Error("absent open must stay absent after a round trip")
	}
	if r.Currency != "KRW" {
		t.Errorf("metadata lost: currency = %q", r.Currency)
	}
}

func TestStoreWriteSkipsWhenIdentical(t *testing.T) {
	st := testStore(t)
	s := priceSeriesOf("TEST", priceRow("2024-01-01", 100))
	if err := st.Write("TEST", s); err != nil {
		t.Fatalf("Write: %v", err)
	}

	path := st.path("TEST")
	before, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	// Make a rewrite detectable even on coarse mtime filesystems.
	os.Chtimes(path, before.ModTime().Add(-1e9), before.ModTime().Add(-1e9))
	before, _ = os.Stat(path)

	if err := st.Write("TEST", s.Clone()); err != nil {
		t.Fatalf("second Write: %v", err)
	}
	after, _ := os.Stat(path)
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("value-identical write must be skipped")
	}
}

func TestStoreWriteCleansUpTempFiles(t *testing.T) {
	st := testStore(t)
	if err := st.Write("TEST", priceSeriesOf("TEST", priceRow("2024-01-01", 100))); err != nil {
		t.Fatalf("Write: %v", err)
	}
	entries, err := os.ReadDir(st.dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("leftover temporary file %q", e.Name())
		}
	}
}

func TestStoreCorruptFileReadsEmpty(t *testing.T) {
	st := testStore(t)
	if err := os.MkdirAll(st.dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(st.path("BAD"), []byte("date,close\nnot-a-date,xyz\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := st.Read("BAD", PriceSchema)
	if err != nil {
		t.Fatalf("corrupt file must not fail the read: %v", err)
	}
	if !s.IsEmpty() {
		t.Errorf("Len = %d, want empty (re-bootstrap)", s.Len())
	}
}

func TestStoreKeyCleaning(t *testing.T) {
	st := testStore(t)
	// Keys with shell- and filesystem-hostile characters must map to
	// distinct stable file names.
	a, b := st.path("KRW=X"), st.path("^KS11")
	if a == b {
		t.Fatal("distinct keys map to the same path")
	}
	if strings.ContainsAny(filepath.Base(a), "=^/\\:") || strings.ContainsAny(filepath.Base(b), "=^/\\:") {
		t.Errorf("unsafe characters in %q or %q", a, b)
	}
}

func TestCanonicalizeClearsForeignFields(t *testing.T) {
	s := NewSeries("TEST", PriceSchema)
	r := Row{On: date.MustParse("2024-01-01"), Close: F(100), TrailingPE: F(9)}
	s.Append(r)
	canon := Canonicalize(s)
	got, _ := canon.Get(date.MustParse("2024-01-01"))
	if got.TrailingPE.Valid {
		t.Error("field outside the price schema must be cleared")
	}
	if !got.Close.Valid {
		t.Error("schema field must survive canonicalization")
	}
}
