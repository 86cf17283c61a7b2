package retrieval

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Zero-width codepoints stripped before tokenization (spec §4.5): zero-width
// space, ZWNJ, ZWJ, and a BOM appearing mid-text.
const (
	zeroWidthSpace = '​'
	zeroWidthNonJ  = '‌'
	zeroWidthJ     = '‍'
	zeroWidthBOM   = '﻿'
)

// SanitizeQuery strips zero-width characters, combining marks, C0/C1
// control characters, and all characters other than Unicode letters,
// numbers, marks, apostrophe, and hyphen, then splits on whitespace and
// drops empty tokens (spec §4.5).
func SanitizeQuery(query string) []string {
	decomposed := norm.NFD.String(query)

	var b strings.Builder
	for _, r := range decomposed {
		if isZeroWidth(r) || unicode.Is(unicode.Mn, r) || unicode.IsControl(r) {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r) ||
			r == '\'' || r == '-' || unicode.IsSpace(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune(' ')
	}

	fields := strings.Fields(b.String())
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func isZeroWidth(r rune) bool {
	switch r {
	case zeroWidthSpace, zeroWidthNonJ, zeroWidthJ, zeroWidthBOM:
		return true
	default:
		return false
	}
}
