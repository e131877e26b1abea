package noticestate

import (
	"slices"
	"strings"
)

// NormalizeScreenID lowercases s, trims it and keeps only [a-z0-9._-].
func NormalizeScreenID(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		}
		return -1
	}, s)
}

// ScreenAllowed reports whether the panel may load on screen. An empty
// allow-list allows every screen.
func ScreenAllowed(allowed []string, screen string) bool {
	if len(allowed) == 0 {
		return true
	}
	return slices.Contains(allowed, NormalizeScreenID(screen))
}
