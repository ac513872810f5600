package series

import "testing"

func TestIntervalCode(t *testing.T) {
	cases := []struct {
		minutes int
		want    string
	}{
		{1, "1MIN"},
		{15, "15MIN"},
		{30, "30MIN"},
		{60, "1HOUR"},
		{360, "6HOUR"},
		{720, "12HOUR"},
		{1440, "1DAY"},
		{10080, "1WEEK"},
	}
	for _, tc := range cases {
		got, err := IntervalCode(tc.minutes)
		if err != nil {
			t.Errorf("IntervalCode(%d) err = %v; want nil", tc.minutes, err)
			continue
		}
		if got != tc.want {
			t.Errorf("IntervalCode(%d) = %q; want %q", tc.minutes, got, tc.want)
		}
	}

	for _, minutes := range []int{0, 7, 45, 90, 2880} {
		if _, err := IntervalCode(minutes); err == nil {
			t.Errorf("IntervalCode(%d) err = nil; want malformed interval error", minutes)
		}
	}
}

func TestLookupParameter(t *testing.T) {
	cases := []struct {
		code      string
		parameter string
		unit      string
		dataType  string
	}{
		{"00065", "Stage", "feet", "INST-VAL"},
		{"00061", "Flow", "cfs", "PER-AVER"},
		{"00060", "Flow", "cfs", "INST-VAL"},
	}
	for _, tc := range cases {
		spec, ok := LookupParameter(tc.code)
		if !ok {
			t.Errorf("LookupParameter(%q) ok = false; want true", tc.code)
			continue
		}
		if spec.Parameter != tc.parameter || spec.Unit != tc.unit || spec.DataType != tc.dataType {
			t.Errorf("LookupParameter(%q) = %+v; want %s/%s/%s", tc.code, spec, tc.parameter, tc.unit, tc.dataType)
		}
		if spec.Version != "a2w" {
			t.Errorf("LookupParameter(%q) version = %q; want a2w", tc.code, spec.Version)
		}
	}

	if _, ok := LookupParameter("00010"); ok {
		t.Error("LookupParameter(00010) ok = true; want false for unmapped code")
	}
}
