package extract

import (
	"regexp"
	"strings"
)

// ParsedCharge is one extra-charge line split into its quantity and
// description. Qty is empty when the line had no leading number.
type ParsedCharge struct {
	Qty         string
	Description string
}

var (
	reQtyOnly    = regexp.MustCompile(`^\d+(\.\d+)?$`)
	reLeadingNum = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s+(.+)$`)
)

// chargeHeaderVocabulary covers the column headers printed above the
// extra-charges block.
var chargeHeaderVocabulary = map[string]struct{}{
	"EXTRA":       {},
	"CHARGES":     {},
	"CHARGE":      {},
	"DESCRIPTION": {},
	"DESCR":       {},
	"QTY":         {},
	"QUANTITY":    {},
	"AMOUNT":      {},
	"RATE":        {},
}

// ExtraChargeLines condenses an extra-charges section into one line per
// charge and splits each into quantity and description. Header lines are
// dropped, a quantity-only line is joined with the next letter-bearing
// line, and duplicate lines collapse to their first occurrence.
func ExtraChargeLines(section string) []ParsedCharge {
	if section == "" {
		return nil
	}

	lines := strings.Split(section, "\n")
	var condensed []string
	for i := 0; i < len(lines); i++ {
		t := strings.TrimSpace(lines[i])
		if t == "" || isChargeHeader(t) {
			continue
		}
		if reQtyOnly.MatchString(t) {
			for j := i + 1; j < len(lines); j++ {
				n := strings.TrimSpace(lines[j])
				if n == "" || isChargeHeader(n) {
					continue
				}
				if !reQtyOnly.MatchString(n) && reLetters.MatchString(n) {
					t = t + " " + n
					i = j
				}
				break
			}
		}
		condensed = append(condensed, t)
	}

	seen := make(map[string]struct{}, len(condensed))
	var out []ParsedCharge
	for _, line := range condensed {
		key := strings.ToUpper(collapseSpace(line))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		switch {
		case reQtyOnly.MatchString(line):
			out = append(out, ParsedCharge{Qty: line})
		default:
			if m := reLeadingNum.FindStringSubmatch(line); m != nil {
				out = append(out, ParsedCharge{Qty: m[1], Description: strings.TrimSpace(m[2])})
			} else {
				out = append(out, ParsedCharge{Description: line})
			}
		}
	}
	return out
}

func isChargeHeader(line string) bool {
	any := false
	for _, tok := range strings.Fields(line) {
		tok = trimPunct(tok)
		if tok == "" {
			continue
		}
		any = true
		if _, ok := chargeHeaderVocabulary[strings.ToUpper(tok)]; !ok {
			return false
		}
	}
	return any
}
