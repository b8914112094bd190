package market

import "testing"

func TestFormatValue(t *testing.T) {
	testCases := []struct {
		input string
		want  string
	}{
		{"", "N/A"},
		{"N/A", "N/A"},
		{"3.2", "3.20%"},
		{"-3.215", "-3.22%"},
		{"0", "0.00%"},
		{"garbage", "N/A"},
	}

	for _, tc := range testCases {
		if got := FormatValue(tc.input); got != tc.want {
			t.Errorf("FormatValue(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestTrendOf(t *testing.T) {
	testCases := []struct {
		input string
		want  Trend
	}{
		{"", TrendNone},
		{"N/A", TrendNone},
		{"-0.01", TrendNegative},
		{"0", TrendNonNegative},
		{"4.5", TrendNonNegative},
	}

	for _, tc := range testCases {
		if got := TrendOf(tc.input); got != tc.want {
			t.Errorf("TrendOf(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}
