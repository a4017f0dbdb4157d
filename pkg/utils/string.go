package utils

import "unicode/utf8"

// Truncate shortens s to at most maxLen bytes, appending "..." when
// something was cut. It never splits a multi-byte rune.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// TruncateRunes returns the first maxRunes runes of s.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes < 0 {
		return s
	}

	count := 0
	for i := range s {
		if count == maxRunes {
			return s[:i]
		}
		count++
	}
	return s
}
