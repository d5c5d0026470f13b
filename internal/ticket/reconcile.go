package ticket

import (
	"regexp"
	"strings"

	"github.com/devinhayward/concrete-tickets/internal/extract"
)

// ApplyHints folds the text-heuristic row hints into a decoded ticket.
// Hints generally beat the model: the page's own text is more trustworthy
// than a transcription of it. Index 0 is the customer mix; 1 and 2 are the
// additive rows, synthesized outright when the model missed them.
func ApplyHints(t *Ticket, hints []extract.RowHint) {
	if t == nil || len(hints) == 0 {
		return
	}

	if t.MixCustomer == nil {
		t.MixCustomer = &MixRow{}
	}
	applyCustomerHint(t.MixCustomer, hints[0])

	if len(hints) > 1 {
		applyAdditiveHint(&t.MixAdditional1, t.MixCustomer, hints[1])
	}
	if len(hints) > 2 {
		applyAdditiveHint(&t.MixAdditional2, t.MixCustomer, hints[2])
	}

	dropRedundantCustDescr(t.MixAdditional1)
	dropRedundantCustDescr(t.MixAdditional2)
}

func applyCustomerHint(row *MixRow, h extract.RowHint) {
	if h.Spec != "" {
		if shouldUseSpecHint(Str(row.CustDescr), h.Spec) {
			row.CustDescr = String(h.Spec)
		}
		if shouldUseSpecHint(Str(row.Descr), h.Spec) {
			row.Descr = String(h.Spec)
		}
	}
	if !HasValue(row.Qty) && h.Qty != "" {
		row.Qty = String(h.Qty)
	}
	if !HasValue(row.Code) && h.Code != "" {
		row.Code = String(h.Code)
	}
	if !HasValue(row.Slump) && h.Slump != "" {
		row.Slump = String(h.Slump)
	}
}

func applyAdditiveHint(rowp **MixRow, customer *MixRow, h extract.RowHint) {
	if h.Qty == "" && h.Code == "" && h.Slump == "" && h.Spec == "" {
		return
	}

	if *rowp == nil {
		row := &MixRow{
			Qty:   optString(h.Qty),
			Descr: optString(h.Spec),
			Code:  optString(h.Code),
			Slump: optString(h.Slump),
		}
		*rowp = row
		return
	}

	row := *rowp
	if !HasValue(row.Qty) && h.Qty != "" {
		row.Qty = String(h.Qty)
	}
	if h.Code != "" {
		// An additive's code equal to the customer's is the customer code
		// bleeding across rows; the hint has the real one.
		if !HasValue(row.Code) || normEq(Str(row.Code), Str(customer.Code)) {
			row.Code = String(h.Code)
		}
	}
	if h.Slump != "" {
		if !HasValue(row.Slump) || normEq(Str(row.Slump), Str(customer.Slump)) {
			row.Slump = String(h.Slump)
		}
	}
	if h.Spec != "" && !normEq(Str(row.Descr), h.Spec) {
		row.Descr = String(h.Spec)
	}
}

// dropRedundantCustDescr clears an additive row's customer description when
// it just repeats the row's description.
func dropRedundantCustDescr(row *MixRow) {
	if row == nil || !HasValue(row.CustDescr) || !HasValue(row.Descr) {
		return
	}
	a, b := norm(*row.CustDescr), norm(*row.Descr)
	if a == b ||
		strings.HasPrefix(a, b) || strings.HasPrefix(b, a) ||
		strings.HasSuffix(a, b) || strings.HasSuffix(b, a) {
		row.CustDescr = nil
	}
}

var reDigitMPA = regexp.MustCompile(`(\d)\s+MPA\b`)

// shouldUseSpecHint decides whether a hinted customer spec replaces the
// model's value. The checks run in order; the first hit wins.
func shouldUseSpecHint(existing, hint string) bool {
	existing = strings.TrimSpace(existing)
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return false
	}
	if existing == "" {
		return true
	}
	if existing == hint {
		return false
	}
	if strings.HasPrefix(strings.ToUpper(hint), "WEATHERMIX") &&
		!strings.HasPrefix(strings.ToUpper(existing), "WEATHERMIX") {
		return true
	}
	// A very short existing value is usually a truncation.
	if len(existing) < 8 && len(hint) > len(existing) {
		return true
	}
	if strings.HasPrefix(hint, existing) && len(hint) > len(existing)+2 {
		return true
	}
	return tokensSubsumed(specTokens(existing), specTokens(hint))
}

// specTokens normalizes a spec for token comparison: uppercase, collapsed
// whitespace, and strength values glued to their unit ("45 MPA" -> "45MPA").
func specTokens(s string) []string {
	up := norm(s)
	up = reDigitMPA.ReplaceAllString(up, "${1}MPA")
	return strings.Fields(up)
}

// tokensSubsumed reports whether every token of sub prefix-matches (length
// three or more) some token of super, with super strictly richer.
func tokensSubsumed(sub, super []string) bool {
	if len(sub) == 0 || len(super) <= len(sub) {
		return false
	}
	for _, e := range sub {
		if len(e) < 3 {
			return false
		}
		found := false
		for _, h := range super {
			if strings.HasPrefix(h, e) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
