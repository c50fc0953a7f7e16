package http

import (
	"strings"
)

// sanitizeInput drops control characters other than tab and newlines, then
// trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		if r == 127 {
			return -1
		}
		return r
	}, s))
}
