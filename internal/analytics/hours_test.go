package analytics

import "testing"

func TestHours_ConvertsSecondsExactly(t *testing.T) {
	if got := Hours(3600); got != 1 {
		t.Fatalf("Hours(3600) = %v", got)
	}
	if got := Hours(5400); got != 1.5 {
		t.Fatalf("Hours(5400) = %v", got)
	}
	if got := Hours(0); got != 0 {
		t.Fatalf("Hours(0) = %v", got)
	}
}

func TestHoursTier_Boundaries(t *testing.T) {
	cases := []struct {
		hours float64
		want  string
	}{
		{0, TimeLow},
		{39.9, TimeLow},
		{40, TimeNormal},
		{80, TimeNormal},
		{80.1, TimeHigh},
		{200, TimeHigh},
	}
	for _, c := range cases {
		if got := HoursTier(c.hours); got != c.want {
			t.Fatalf("HoursTier(%v) = %q, want %q", c.hours, got, c.want)
		}
	}
}

func TestPercent_GuardsZeroTotal(t *testing.T) {
	if got := Percent(5, 0); got != 0 {
		t.Fatalf("Percent with zero total must be 0, got %v", got)
	}
	if got := Percent(3, 4); got != 75 {
		t.Fatalf("Percent(3,4) = %v", got)
	}
}
