package extract

import (
	"strings"

	"github.com/devinhayward/concrete-tickets/constants"
)

// A page carries the customer mix plus at most two additive rows.
const maxMixRows = 3

// MixTable narrows a mix section down to its tabular part: header-noise
// lines are dropped, then everything from the quantity anchor line onward is
// the table. The anchor is the first line carrying a quantity with a cubic
// unit, falling back to the first line that starts with a digit. No anchor
// means no table.
func MixTable(section string) string {
	var kept []string
	for _, line := range strings.Split(section, "\n") {
		if isHeaderNoise(line) {
			continue
		}
		kept = append(kept, line)
	}

	anchor := -1
	for i, line := range kept {
		if reQtyUnit.MatchString(line) {
			anchor = i
			break
		}
	}
	if anchor == -1 {
		for i, line := range kept {
			t := strings.TrimSpace(line)
			if t != "" && t[0] >= '0' && t[0] <= '9' {
				anchor = i
				break
			}
		}
	}
	if anchor == -1 {
		return ""
	}
	return strings.Join(kept[anchor:], "\n")
}

// SplitMixRows groups table lines into rows. Every line carrying a
// quantity-with-unit opens a new row; following lines belong to the open
// row. Lines before the first quantity line are dropped, as is any fourth
// row and whatever trails it.
func SplitMixRows(table string) [][]string {
	if table == "" {
		return nil
	}
	var rows [][]string
	for _, line := range strings.Split(table, "\n") {
		t := strings.TrimSpace(line)
		if t == "" {
			continue
		}
		if reQtyUnit.MatchString(t) {
			if len(rows) == maxMixRows {
				break
			}
			rows = append(rows, []string{t})
			continue
		}
		if len(rows) > 0 {
			rows[len(rows)-1] = append(rows[len(rows)-1], t)
		}
	}
	return rows
}

// isHeaderNoise reports whether a line carries only table-header or page
// furniture words. Tokens are stripped of surrounding punctuation before the
// vocabulary test; a token that strips to nothing is ignored. Blank lines
// count as noise.
func isHeaderNoise(line string) bool {
	for _, tok := range strings.Fields(line) {
		tok = trimPunct(tok)
		if tok == "" {
			continue
		}
		if _, ok := constants.HeaderVocabulary[strings.ToUpper(tok)]; !ok {
			return false
		}
	}
	return true
}
