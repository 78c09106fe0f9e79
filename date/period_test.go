package date

import "testing"

func TestStartOfEndOf(t *testing.T) {
	tests := []struct {
		name       string
		on         string
		period     Period
		start, end string
	}{
		{"daily is itself", "2024-02-14", Daily, "2024-02-14", "2024-02-14"},
		{"week starts monday", "2024-02-14", Weekly, "2024-02-12", "2024-02-18"},
		{"monday starts its own week", "2024-02-12", Weekly, "2024-02-12", "2024-02-18"},
		{"sunday ends its week", "2024-02-18", Weekly, "2024-02-12", "2024-02-18"},
		{"month", "2024-02-14", Monthly, "2024-02-01", "2024-02-29"},
		{"quarter", "2024-05-20", Quarterly, "2024-04-01", "2024-06-30"},
		{"fourth quarter", "2024-11-02", Quarterly, "2024-10-01", "2024-12-31"},
		{"year", "2024-06-15", Yearly, "2024-01-01", "2024-12-31"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			on := MustParse(tc.on)
			if got := on.StartOf(tc.period); got != MustParse(tc.start) {
				t.Errorf("StartOf(%s) = %s, want %s", tc.period, got, tc.start)
			}
			if got := on.EndOf(tc.period); got != MustParse(tc.end) {
				t.Errorf("EndOf(%s) = %s, want %s", tc.period, got, tc.end)
			}
		})
	}
}

func TestPeriodRange(t *testing.T) {
	r := MustParse("2024-02-14").Range(Monthly)
	if r.From != MustParse("2024-02-01") || r.To != MustParse("2024-02-29") {
		t.Errorf("Range(Monthly) = %s", r)
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    Period
		wantErr bool
	}{
		{"daily", Daily, false},
		{"week", Weekly, false},
		{"Monthly", Monthly, false},
		{"quarter", Quarterly, false},
		{"yearly", Yearly, false},
		{"fortnight", Daily, true},
		{"", Daily, true},
	}
	for _, tc := range tests {
		got, err := ParsePeriod(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParsePeriod(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && got != tc.want {
			t.Errorf("ParsePeriod(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
