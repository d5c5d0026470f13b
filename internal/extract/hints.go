package extract

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/devinhayward/concrete-tickets/constants"
)

// RowHint carries the per-row values recovered from the mix table by text
// heuristics. Hints run beside the model and win over it field by field
// during reconciliation; empty fields mean the heuristics found nothing.
type RowHint struct {
	Qty   string
	Code  string
	Slump string
	Spec  string
}

var (
	// reCode matches a product code: two or more leading letters, then
	// letters and digits with at least one digit ("RMXD445N51N", "RMES30").
	reCode = regexp.MustCompile(`^[A-Z]{2,}[A-Z0-9]*\d[A-Z0-9]*$`)

	reNum5 = regexp.MustCompile(`^\d{5,}$`)
	reNum4 = regexp.MustCompile(`^\d{4,}$`)

	reLeadingQty = regexp.MustCompile(`(?i)^\d+(?:\.\d+)?\s*(m3|m³)\s*`)
)

// RowHints extracts a hint per mix row. rows comes from SplitMixRows;
// sectionLines is the full mix section, which a supplementary pass scans for
// codes and slumps that landed outside their row's line group.
func RowHints(rows [][]string, sectionLines []string) []RowHint {
	hints := make([]RowHint, len(rows))
	for i, row := range rows {
		hints[i] = rowHint(i, row)
	}
	backfillFromSection(hints, sectionLines)
	return hints
}

func rowHint(rowIdx int, lines []string) RowHint {
	var h RowHint

	for _, line := range lines {
		if m := reQtyUnit.FindStringSubmatch(line); m != nil {
			h.Qty = m[1] + " " + strings.ToLower(m[2])
			break
		}
	}

	h.Code = findCode(rowIdx, lines)

	for _, line := range lines {
		if m := reSlump.FindString(line); m != "" {
			h.Slump = stripSpace(m)
			break
		}
	}

	h.Spec = specText(lines, h.Code)
	return h
}

// findCode returns the first token that looks like a product code. Rows
// after the first never take an RMX-prefixed token: those are the customer
// mix's code bleeding into an additive row's lines. The first row falls back
// to long numeric tokens when no lettered code is present.
func findCode(rowIdx int, lines []string) string {
	for _, line := range lines {
		if hasNonSpecPrefix(strings.TrimSpace(line)) {
			continue
		}
		for _, tok := range strings.Fields(line) {
			tok = trimPunct(tok)
			if !reCode.MatchString(tok) {
				continue
			}
			if rowIdx > 0 && strings.HasPrefix(tok, "RMX") {
				continue
			}
			return tok
		}
	}
	if rowIdx == 0 {
		for _, re := range []*regexp.Regexp{reNum5, reNum4} {
			for _, line := range lines {
				if hasNonSpecPrefix(strings.TrimSpace(line)) {
					continue
				}
				for _, tok := range strings.Fields(line) {
					tok = trimPunct(tok)
					if re.MatchString(tok) {
						return tok
					}
				}
			}
		}
	}
	return ""
}

// specText assembles the customer-spec string for one row from its lines.
func specText(lines []string, code string) string {
	var frags []string
	var fallback string

	for _, line := range lines {
		t := strings.TrimSpace(line)
		if t == "" || hasNonSpecPrefix(t) {
			continue
		}
		t = strings.TrimSpace(reLeadingQty.ReplaceAllString(t, ""))
		t = dropToken(t, code)
		t = collapseSpace(reSlump.ReplaceAllString(t, ""))
		if t == "" {
			continue
		}
		if isStrengthTag(t) {
			// "N 40 MPA" style tag: only worth keeping when the row gave
			// us nothing better.
			if fallback == "" {
				fallback = t
			}
			continue
		}
		if isSpecMaterial(t) {
			frags = append(frags, t)
		}
	}

	if len(frags) == 0 && fallback != "" {
		frags = append(frags, fallback)
	}

	frags = mergeSplitWords(frags)
	frags = reorderFragments(frags)
	frags = dropContained(frags)
	return strings.Join(frags, " ")
}

func hasNonSpecPrefix(line string) bool {
	up := strings.ToUpper(line)
	for _, p := range constants.NonSpecLinePrefixes {
		if strings.HasPrefix(up, p) {
			return true
		}
	}
	return false
}

// isSpecMaterial reports whether a cleaned line contributes to the customer
// spec: strength or aggregate markers, or any letters at all.
func isSpecMaterial(s string) bool {
	up := strings.ToUpper(s)
	if strings.Contains(up, "MPA") || strings.Contains(up, "%") || strings.Contains(up, "20MM") {
		return true
	}
	return reLetters.MatchString(s)
}

// isStrengthTag reports whether a line is a bare strength tag: it names MPA,
// carries at least one single-letter token, and has nothing beyond single
// letters, numbers, and the MPA unit.
func isStrengthTag(s string) bool {
	hasMPA, hasSingle := false, false
	for _, tok := range strings.Fields(s) {
		up := strings.ToUpper(trimPunct(tok))
		switch {
		case up == "MPA":
			hasMPA = true
		case len(up) == 1 && unicode.IsLetter(rune(up[0])):
			hasSingle = true
		case up != "" && isDigits(up):
		case up == "":
		default:
			return false
		}
	}
	return hasMPA && hasSingle
}

func isDigits(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return s != ""
}

// dropToken removes whitespace-separated tokens equal to tok (after
// punctuation trimming) from s.
func dropToken(s, tok string) string {
	if tok == "" {
		return s
	}
	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		if trimPunct(f) == tok {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// mergeSplitWords glues adjacent all-letter fragments back together when the
// text layer split one word across lines ("WEATHER" + "MIX").
func mergeSplitWords(frags []string) []string {
	var out []string
	for i := 0; i < len(frags); i++ {
		cur := frags[i]
		if i+1 < len(frags) &&
			isAlphaOnly(cur) && isAlphaOnly(frags[i+1]) &&
			len(cur) <= 8 && len(frags[i+1]) <= 6 {
			out = append(out, cur+frags[i+1])
			i++
			continue
		}
		out = append(out, cur)
	}
	return out
}

func isAlphaOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// reorderFragments puts WEATHERMIX fragments first, then other letter-led
// fragments, then number-led, then the rest. Order within a bucket is kept.
func reorderFragments(frags []string) []string {
	rank := func(s string) int {
		up := strings.ToUpper(s)
		switch {
		case strings.Contains(up, "WEATHERMIX"):
			return 0
		case reLetters.MatchString(s[:1]):
			return 1
		case s[0] >= '0' && s[0] <= '9':
			return 2
		default:
			return 3
		}
	}
	sort.SliceStable(frags, func(i, j int) bool {
		return rank(frags[i]) < rank(frags[j])
	})
	return frags
}

// dropContained removes any fragment that is a strict substring of a longer
// fragment under normalization.
func dropContained(frags []string) []string {
	norm := make([]string, len(frags))
	for i, f := range frags {
		norm[i] = strings.ToUpper(collapseSpace(f))
	}
	var out []string
	for i, f := range frags {
		contained := false
		for j := range frags {
			if i == j {
				continue
			}
			if len(norm[j]) > len(norm[i]) && strings.Contains(norm[j], norm[i]) {
				contained = true
				break
			}
		}
		if !contained {
			out = append(out, f)
		}
	}
	return out
}

// backfillFromSection fills hint gaps from the whole mix section: the first
// row's code and slump can sit above the quantity anchor, and additive rows'
// numeric codes often print on their own line far from the row.
func backfillFromSection(hints []RowHint, sectionLines []string) {
	if len(hints) == 0 {
		return
	}

	var toks []string
	slumpSeen := ""
	for _, line := range sectionLines {
		t := strings.TrimSpace(line)
		if t == "" || hasNonSpecPrefix(t) {
			continue
		}
		if slumpSeen == "" {
			if m := reSlump.FindString(t); m != "" {
				slumpSeen = stripSpace(m)
			}
		}
		for _, tok := range strings.Fields(t) {
			if tok = trimPunct(tok); tok != "" {
				toks = append(toks, tok)
			}
		}
	}

	if hints[0].Code == "" {
		for _, tok := range toks {
			if reCode.MatchString(tok) {
				hints[0].Code = tok
				break
			}
		}
	}
	if hints[0].Code == "" {
		for _, re := range []*regexp.Regexp{reNum5, reNum4} {
			for _, tok := range toks {
				if re.MatchString(tok) {
					hints[0].Code = tok
					break
				}
			}
			if hints[0].Code != "" {
				break
			}
		}
	}
	if hints[0].Slump == "" {
		hints[0].Slump = slumpSeen
	}

	used := make(map[string]struct{}, len(hints))
	for _, h := range hints {
		if h.Code != "" {
			used[h.Code] = struct{}{}
		}
	}
	var numeric []string
	for _, tok := range toks {
		if !reNum4.MatchString(tok) {
			continue
		}
		if _, ok := used[tok]; ok {
			continue
		}
		numeric = append(numeric, tok)
	}
	ni := 0
	for i := 1; i < len(hints) && ni < len(numeric); i++ {
		if hints[i].Code != "" {
			continue
		}
		hints[i].Code = numeric[ni]
		ni++
	}
}
