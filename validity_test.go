package seriesdb

import (
	"testing"

	"github.com/etnz/seriesdb/date"
)

func TestUsable(t *testing.T) {
	testCases := []struct {
		name   string
		row    Row
		schema Schema
		want   bool
	}{
		{"price with close", Row{Close: F(100)}, PriceSchema, true},
		{"price with zero close", Row{Close: F(0)}, PriceSchema, false},
		{"price with negative close", Row{Close: F(-1)}, PriceSchema, false},
		{"price with absent close", Row{Open: F(99)}, PriceSchema, false},
		{"valuation both ratios", Row{TrailingPE: F(12), PriceToBook: F(1.1)}, ValuationSchema, true},
		{"valuation one ratio", Row{TrailingPE: F(0), PriceToBook: F(1.1)}, ValuationSchema, true},
		{"valuation all zero", Row{TrailingPE: F(0), PriceToBook: F(0)}, ValuationSchema, false},
		{"valuation all absent", Row{}, ValuationSchema, false},
		{"valuation yield only is not primary", Row{DividendYield: F(0.03)}, ValuationSchema, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Usable(tc.row, tc.schema); got != tc.want {
				t.Errorf("Usable = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDropWeekendDuplicates(t *testing.T) {
	friday := date.MustParse("2024-01-05")
	saturday := date.MustParse("2024-01-06")
	sunday := date.MustParse("2024-01-07")
	monday := date.MustParse("2024-01-08")

	t.Run("identical saturday dropped", func(t *testing.T) {
		s := priceSeriesOf("TEST",
			Row{On: friday, Close: F(100)},
			Row{On: saturday, Close: F(100)})
		got, dropped := DropWeekendDuplicates(s)
		if dropped != 1 || got.Len() != 1 {
			t.Fatalf("dropped = %d, len = %d, want 1 and 1", dropped, got.Len())
		}
		if _, ok := got.Get(saturday); ok {
			t.Error("duplicate saturday row should have been dropped")
		}
	})

	t.Run("differing saturday kept", func(t *testing.T) {
		s := priceSeriesOf("TEST",
			Row{On: friday, Close: F(100)},
			Row{On: saturday, Close: F(101)})
		got, dropped := DropWeekendDuplicates(s)
		if dropped != 0 || got.Len() != 2 {
			t.Errorf("dropped = %d, len = %d, want 0 and 2", dropped, got.Len())
		}
	})

	t.Run("absent equals absent", func(t *testing.T) {
		s := priceSeriesOf("TEST",
			Row{On: friday, Close: F(100)},
			Row{On: saturday, Close: F(100)}) // open/high/low absent on both
		_, dropped := DropWeekendDuplicates(s)
		if dropped != 1 {
			t.Errorf("dropped = %d, want 1 (absent fields compare equal)", dropped)
		}
	})

	t.Run("weekday rows never touched", func(t *testing.T) {
		s := priceSeriesOf("TEST",
			Row{On: friday, Close: F(100)},
			Row{On: monday, Close: F(100)})
		_, dropped := DropWeekendDuplicates(s)
		if dropped != 0 {
			t.Errorf("dropped = %d, want 0 (monday is no weekend)", dropped)
		}
	})

	t.Run("whole duplicated weekend dropped", func(t *testing.T) {
		s := priceSeriesOf("TEST",
			Row{On: friday, Close: F(100)},
			Row{On: saturday, Close: F(100)},
			Row{On: sunday, Close: F(100)})
		got, dropped := DropWeekendDuplicates(s)
		if dropped != 2 || got.Len() != 1 {
			t.Errorf("dropped = %d, len = %d, want 2 and 1", dropped, got.Len())
		}
	})
}

func TestRestrictToDates(t *testing.T) {
	s := priceSeriesOf("VAL",
		priceRow("2024-01-01", 10), priceRow("2024-01-02", 11), priceRow("2024-01-03", 12))
	ref := priceSeriesOf("PX", priceRow("2024-01-01", 1), priceRow("2024-01-03", 1))

	got, dropped := RestrictToDates(s, ref)
	if dropped != 1 || got.Len() != 2 {
		t.Fatalf("dropped = %d, len = %d, want 1 and 2", dropped, got.Len())
	}
	if _, ok := got.Get(date.MustParse("2024-01-02")); ok {
		t.Error("row absent from the reference should have been dropped")
	}
}
