package domain

import (
	"strings"
	"unicode/utf8"
)

// Handle constraints.
const (
	// DefaultHandlePrefix prefixes generated throwaway handles.
	DefaultHandlePrefix = "ffxiv-sync"

	// DefaultHandleDomain is appended to generated and custom handles.
	DefaultHandleDomain = "bsky.social"

	// MaxHandleLabelLength bounds user-chosen labels so the full handle
	// stays far below the 253 character protocol limit.
	MaxHandleLabelLength = 30
)

// IsValidHandleLabel reports whether a user-chosen label may be turned into
// a handle. Only ASCII letters, digits, space, '-' and '_' are accepted.
func IsValidHandleLabel(label string) bool {
	if strings.TrimSpace(label) == "" {
		return false
	}
	if utf8.RuneCountInString(label) > MaxHandleLabelLength {
		return false
	}

	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == ' ', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// CustomHandle derives a full handle from a user-chosen label.
func CustomHandle(label, domain string) string {
	name := strings.ReplaceAll(strings.ToLower(label), " ", "-")
	return name + "." + strings.TrimPrefix(domain, ".")
}

// HasSuffixFold reports whether handle ends with suffix, ignoring case.
func HasSuffixFold(handle, suffix string) bool {
	return len(handle) >= len(suffix) &&
		strings.EqualFold(handle[len(handle)-len(suffix):], suffix)
}
