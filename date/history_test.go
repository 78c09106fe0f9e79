package date

import (
	"testing"
)

func histOf(points map[string]float64) *History {
	h := &History{}
	for d, v := range points {
		h.Append(MustParse(d), v)
	}
	return h
}

func TestAppendKeepsSortedAndUnique(t *testing.T) {
	h := &History{}
	h.Append(MustParse("2024-01-03"), 3)
	h.Append(MustParse("2024-01-01"), 1)
	h.Append(MustParse("2024-01-02"), 2)
	h.Append(MustParse("2024-01-02"), 20) // overwrite: last write wins

	if h.Len() != 3 {
		t.Fatalf("Len = %d, want 3", h.Len())
	}
	want := []float64{1, 20, 3}
	i := 0
	prev := Date{}
	for on, v := range h.Values() {
		if !prev.IsZero() && !prev.Before(on) {
			t.Errorf("history not sorted: %v before %v", prev, on)
		}
		if v != want[i] {
			t.Errorf("value[%d] = %v, want %v", i, v, want[i])
		}
		prev = on
		i++
	}
}

func TestOnOrBeforeOnOrAfter(t *testing.T) {
	h := histOf(map[string]float64{"2024-01-02": 2, "2024-01-05": 5})

	testCases := []struct {
		name   string
		day    string
		before bool
		wantOn string
		wantV  float64
		wantOk bool
	}{
		{"exact hit before", "2024-01-02", true, "2024-01-02", 2, true},
		{"gap resolves to earlier", "2024-01-04", true, "2024-01-02", 2, true},
		{"before range", "2024-01-01", true, "", 0, false},
		{"exact hit after", "2024-01-05", false, "2024-01-05", 5, true},
		{"gap resolves to later", "2024-01-03", false, "2024-01-05", 5, true},
		{"after range", "2024-01-06", false, "", 0, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var on Date
			var v float64
			var ok bool
			if tc.before {
				on, v, ok = h.OnOrBefore(MustParse(tc.day))
			} else {
				on, v, ok = h.OnOrAfter(MustParse(tc.day))
			}
			if ok != tc.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOk)
			}
			if !ok {
				return
			}
			if on != MustParse(tc.wantOn) || v != tc.wantV {
				t.Errorf("got (%v, %v), want (%s, %v)", on, v, tc.wantOn, tc.wantV)
			}
		})
	}
}

func TestInvertDropsNonFinite(t *testing.T) {
	h := histOf(map[string]float64{"2024-01-01": 2, "2024-01-02": 0})
	inv := h.Invert()
	if inv.Len() != 1 {
		t.Fatalf("Len = %d, want 1 (division by zero dropped)", inv.Len())
	}
	if v, ok := inv.Get(MustParse("2024-01-01")); !ok || v != 0.5 {
		t.Errorf("Invert = %v, want 0.5", v)
	}
}

func TestForwardFill(t *testing.T) {
	h := histOf(map[string]float64{"2024-01-02": 2, "2024-01-05": 5})
	r := Range{From: MustParse("2024-01-01"), To: MustParse("2024-01-06")}
	filled := h.ForwardFill(r)

	// 01 has no prior observation, 02..04 carry 2, 05..06 carry 5.
	if filled.Len() != 5 {
		t.Fatalf("Len = %d, want 5", filled.Len())
	}
	if v, ok := filled.Get(MustParse("2024-01-04")); !ok || v != 2 {
		t.Errorf("filled[01-04] = %v, want 2", v)
	}
	if v, ok := filled.Get(MustParse("2024-01-06")); !ok || v != 5 {
		t.Errorf("filled[01-06] = %v, want 5", v)
	}
	if _, ok := filled.Get(MustParse("2024-01-01")); ok {
		t.Error("filled[01-01] should not exist before first observation")
	}
}

func TestWithin(t *testing.T) {
	h := histOf(map[string]float64{"2024-01-01": 1, "2024-01-02": 2, "2024-01-03": 3})
	r := Range{From: MustParse("2024-01-02"), To: MustParse("2024-01-03")}
	sub := h.Within(r)
	if sub.Len() != 2 {
		t.Fatalf("Len = %d, want 2", sub.Len())
	}
	if _, ok := sub.Get(MustParse("2024-01-01")); ok {
		t.Error("Within should exclude dates before the range")
	}
}
