package date

import (
	"fmt"
	"iter"
	"regexp"
	"strconv"
	"strings"
)

// Range represents an inclusive range of dates.
type Range struct{ From, To Date }

// NewRange creates a new date range. If 'from' is after 'to', they are swapped.
func NewRange(from, to Date) Range {
	if from.After(to) {
		from, to = to, from
	}
	return Range{From: from, To: to}
}

// Contains returns true if the date is included in the range (boundaries included).
func (r Range) Contains(d Date) bool { return !d.Before(r.From) && !d.After(r.To) }

// Days returns an iterator that yields each date within the range, inclusive.
func (r Range) Days() iter.Seq[Date] {
	return func(yield func(Date) bool) {
		for d := r.From; !d.After(r.To); d = d.Add(1) {
			if !yield(d) {
				return
			}
		}
	}
}

// windowRegex matches relative windows like "30d", "6m", "5y".
var windowRegex = regexp.MustCompile(`^(\d+)([dwmy])$`)

// maxWindowYears bounds the "max" symbolic window.
const maxWindowYears = 30

// ParseWindow resolves a symbolic window name into a Range ending at 'to'.
//
// Supported forms: "ytd", "max", and relative windows "<n>d", "<n>w",
// "<n>m", "<n>y" (e.g. "30d", "6m", "1y", "5y").
func ParseWindow(window string, to Date) (Range, error) {
	w := strings.ToLower(strings.TrimSpace(window))
	switch w {
	case "":
		return Range{}, fmt.Errorf("empty window")
	case "ytd":
		return Range{From: New(to.Year(), 1, 1), To: to}, nil
	case "max":
		return Range{From: to.AddMonth(-12 * maxWindowYears), To: to}, nil
	}
	m := windowRegex.FindStringSubmatch(w)
	if m == nil {
		return Range{}, fmt.Errorf("unknown window %q: want ytd, max, or <n>[dwmy]", window)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n == 0 {
		return Range{}, fmt.Errorf("invalid window length in %q", window)
	}
	switch m[2] {
	case "d":
		return Range{From: to.Add(-n), To: to}, nil
	case "w":
		return Range{From: to.Add(-7 * n), To: to}, nil
	case "m":
		return Range{From: to.AddMonth(-n), To: to}, nil
	case "y":
		return Range{From: to.AddMonth(-12 * n), To: to}, nil
	}
	return Range{}, fmt.Errorf("unknown window %q", window)
}

// String formats the range as "from..to".
func (r Range) String() string { return fmt.Sprintf("%s..%s", r.From, r.To) }
