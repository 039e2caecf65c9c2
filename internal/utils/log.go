package utils

import "strings"

// TruncateForLog collapses whitespace runs (newlines included) to single
// spaces and shortens the result to limit runes, appending an ellipsis when
// truncated.
func TruncateForLog(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
