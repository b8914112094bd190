package market

import (
	"fmt"
	"strconv"
)

// Trend classifies a performance value for rendering.
type Trend string

const (
	TrendNone        Trend = "none"
	TrendNegative    Trend = "negative"
	TrendNonNegative Trend = "non-negative"
)

// FormatValue renders a stored performance value for display: absent or
// "N/A" values become "N/A", everything else a percentage with exactly two
// decimal digits.
func FormatValue(value string) string {
	if value == "" || value == "N/A" {
		return "N/A"
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", f)
}

// TrendOf reports whether a value is negative, non-negative, or absent.
func TrendOf(value string) Trend {
	if value == "" || value == "N/A" {
		return TrendNone
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return TrendNone
	}
	if f < 0 {
		return TrendNegative
	}
	return TrendNonNegative
}
