package util

import (
	"html"
	"strings"
)

// NormalizeText trims the value and collapses runs of whitespace to a single space.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// SanitizeInput escapes HTML/script-like characters
func SanitizeInput(s string) string {
	return html.EscapeString(NormalizeText(s))
}

// ContainsSuspicious flags markup or template fragments in free-text profile fields.
func ContainsSuspicious(s string) bool {
	lower := strings.ToLower(s)
	for _, c := range []string{"<", ">", "${", "{{", "script", "onerror", "onload"} {
		if strings.Contains(lower, c) {
			return true
		}
	}
	return false
}
