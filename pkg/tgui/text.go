package tgui

import "unicode/utf8"

// TruncRunes returns s truncated to at most n runes.
// It appends an ellipsis "…" when truncated.
func TruncRunes(s string, n int) string {
	return Truncate(s, n, "…")
}

// Truncate keeps the first n runes of s and appends marker when anything was
// cut. Length is measured in runes of the raw text, never in escaped output.
func Truncate(s string, n int, marker string) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i] + marker
		}
		count++
	}
	return s
}
