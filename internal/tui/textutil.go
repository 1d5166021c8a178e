package tui

import (
	"strings"

	"github.com/pders01/pixl/internal/provider"
)

// truncateEnd shortens s to at most limit runes, ending with an ellipsis
// when cut.
func truncateEnd(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit == 1 {
		return "…"
	}
	return string(r[:limit-1]) + "…"
}

// truncateMiddle keeps both ends of s around a single ellipsis. Used for
// URLs where the host and file name both matter.
func truncateMiddle(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	n := len(r)
	if n <= limit {
		return s
	}
	if limit == 1 {
		return "…"
	}
	keep := limit - 1
	left := keep / 2
	right := keep - left
	return string(r[:left]) + "…" + string(r[n-right:])
}

// sanitizeQuery trims, collapses inner whitespace and enforces the
// provider's query length.
func sanitizeQuery(input string) string {
	q := strings.Join(strings.Fields(input), " ")
	r := []rune(q)
	if len(r) > provider.MaxQueryLength {
		q = strings.TrimSpace(string(r[:provider.MaxQueryLength]))
	}
	return q
}
