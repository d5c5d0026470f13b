// Package extract holds the line-level heuristics that run over raw page
// text before and after the model call: section slicing, mix-table row
// grouping, row hints, extra-charge condensing, and JSON object splitting.
package extract

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// reQtyUnit matches a mix quantity with its cubic-metre unit, in either
	// the ASCII or superscript form ("9.0 M3", "4m³").
	reQtyUnit = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(m3|m³)`)

	// reSlump matches a slump tolerance range ("150+-30", "150 +- 30").
	reSlump = regexp.MustCompile(`\d+(?:\.\d+)?\s*\+\-\s*\d+(?:\.\d+)?`)

	reLetters = regexp.MustCompile(`[A-Za-z]`)
	reSpace   = regexp.MustCompile(`\s+`)
)

// trimPunct strips non-alphanumeric runes from both ends of a token.
func trimPunct(tok string) string {
	return strings.TrimFunc(tok, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// stripSpace removes all whitespace from s.
func stripSpace(s string) string {
	return reSpace.ReplaceAllString(s, "")
}

// collapseSpace trims s and squeezes interior whitespace runs to one space.
func collapseSpace(s string) string {
	return reSpace.ReplaceAllString(strings.TrimSpace(s), " ")
}
