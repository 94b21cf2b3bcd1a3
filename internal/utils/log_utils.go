// Package utils holds small shared helpers.
package utils

import (
	"strings"
	"unicode"
)

// maxLogValueLength bounds user-provided values (room addresses, meeting
// subjects, conversation text) in log lines.
const maxLogValueLength = 120

// SanitizeLogString makes a user-controlled value safe to interpolate into a
// log line: control characters become spaces, format verbs are escaped, and
// overlong values are truncated.
func SanitizeLogString(input string) string {
	if input == "" {
		return ""
	}

	truncated := false
	if len(input) > maxLogValueLength {
		input = input[:maxLogValueLength]
		truncated = true
	}

	var b strings.Builder
	b.Grow(len(input))
	lastSpace := false
	for _, r := range input {
		switch {
		case unicode.IsControl(r) || unicode.IsSpace(r):
			// collapse runs of whitespace and control characters
			if !lastSpace {
				b.WriteByte(' ')
			}
			lastSpace = true
		case r == '%':
			b.WriteString("%%")
			lastSpace = false
		case unicode.IsGraphic(r):
			b.WriteRune(r)
			lastSpace = false
		}
	}

	out := b.String()
	if truncated {
		out += "..."
	}
	return out
}
