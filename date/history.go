package date

import (
	"iter"
	"math"
	"slices"
)

// History stores a chronological series of float64 values, each associated
// with a specific date. Dates are unique and the series is always sorted
// ascending, so lookups are binary searches.
type History struct {
	days   []Date
	values []float64
}

// Len returns the number of items in the history.
func (h *History) Len() int { return len(h.days) }

// Latest returns the latest date and value in the history.
// If the history is empty, it returns zero values.
func (h *History) Latest() (day Date, value float64) {
	last := len(h.days) - 1
	if last < 0 {
		return Date{}, 0
	}
	return h.days[last], h.values[last]
}

// search returns the insertion index for 'day' and whether it is present.
func (h *History) search(day Date) (int, bool) {
	return slices.BinarySearchFunc(h.days, day, Date.Compare)
}

// Append adds a point to the history, keeping it sorted.
//
// An existing value at that date is overwritten: the last write wins.
func (h *History) Append(on Date, v float64) *History {
	i, found := h.search(on)
	if found {
		h.values[i] = v
		return h
	}
	h.days = slices.Insert(h.days, i, on)
	h.values = slices.Insert(h.values, i, v)
	return h
}

// Get returns the value at 'day' and true, or zero and false.
func (h *History) Get(day Date) (float64, bool) {
	if i, found := h.search(day); found {
		return h.values[i], true
	}
	return 0, false
}

// OnOrBefore returns the date and value of the latest observation at or
// before 'day'. It never extrapolates: ok is false when no observation
// exists on or before that day.
func (h *History) OnOrBefore(day Date) (on Date, v float64, ok bool) {
	i, found := h.search(day)
	if found {
		return h.days[i], h.values[i], true
	}
	if i == 0 {
		return Date{}, 0, false
	}
	return h.days[i-1], h.values[i-1], true
}

// OnOrAfter returns the date and value of the earliest observation at or
// after 'day'. ok is false when no observation exists on or after that day.
func (h *History) OnOrAfter(day Date) (on Date, v float64, ok bool) {
	i, found := h.search(day)
	if found {
		return h.days[i], h.values[i], true
	}
	if i >= len(h.days) {
		return Date{}, 0, false
	}
	return h.days[i], h.values[i], true
}

// Values returns an iterator over all date/value pairs, in chronological order.
func (h *History) Values() iter.Seq2[Date, float64] {
	return func(yield func(Date, float64) bool) {
		for i, on := range h.days {
			if !yield(on, h.values[i]) {
				return
			}
		}
	}
}

// Days returns the sorted dates of the history. The returned slice is shared
// and must not be mutated.
func (h *History) Days() []Date { return h.days }

// Within returns a new History restricted to the observations inside r.
func (h *History) Within(r Range) *History {
	from, _ := h.search(r.From)
	to, found := h.search(r.To)
	if found {
		to++
	}
	if from >= to {
		return &History{}
	}
	return &History{
		days:   slices.Clone(h.days[from:to]),
		values: slices.Clone(h.values[from:to]),
	}
}

// Scale returns a new History with every value multiplied by f.
func (h *History) Scale(f float64) *History {
	out := &History{days: slices.Clone(h.days), values: make([]float64, len(h.values))}
	for i, v := range h.values {
		out.values[i] = v * f
	}
	return out
}

// Invert returns a new History with every value replaced by its reciprocal.
// Non-finite results (from zero or NaN observations) are dropped.
func (h *History) Invert() *History {
	out := &History{}
	for on, v := range h.Values() {
		inv := 1 / v
		if math.IsInf(inv, 0) || math.IsNaN(inv) {
			continue
		}
		out.Append(on, inv)
	}
	return out
}

// ForwardFill returns a new History aligned on the contiguous daily calendar
// of r: every day of the range carries the latest observation at or before
// it. Days before the first observation are left out.
func (h *History) ForwardFill(r Range) *History {
	out := &History{}
	for day := range r.Days() {
		if _, v, ok := h.OnOrBefore(day); ok {
			out.Append(day, v)
		}
	}
	return out
}

// Equal reports whether two histories hold the same dates and values.
func (h *History) Equal(x *History) bool {
	return slices.Equal(h.days, x.days) && slices.Equal(h.values, x.values)
}
