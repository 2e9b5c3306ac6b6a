package annotate

import (
	"strconv"
	"strings"
)

// Placeholder marks a value that could not be determined.
const Placeholder = "-"

// FormatRounded rounds x to 4 decimal places and formats it with the
// shortest representation that keeps one fractional digit: 0.3, 1.0, 0.6667.
func FormatRounded(x float64) string {
	s := strconv.FormatFloat(x, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}

// joinOrPlaceholder comma-joins values, returning Placeholder for an empty list.
func joinOrPlaceholder(values []string) string {
	if len(values) == 0 {
		return Placeholder
	}
	return strings.Join(values, ",")
}
