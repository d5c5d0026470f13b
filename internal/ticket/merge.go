package ticket

import (
	"strings"

	"github.com/devinhayward/concrete-tickets/internal/extract"
)

// MergeExtraCharges combines charges parsed from the page text with the
// model's charges. Text-parsed charges come first; a model charge is kept
// only when its key is unseen. Two renderings of the same charge (the model
// often repeats the quantity inside the description) collapse to one.
func MergeExtraCharges(t *Ticket, parsed []extract.ParsedCharge) {
	if t == nil {
		return
	}
	if len(parsed) == 0 && len(t.ExtraCharges) == 0 {
		return
	}

	seen := make(map[string]struct{})
	var out []ExtraCharge
	add := func(description, qty string) {
		key := chargeKey(description, qty)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, ExtraCharge{
			Description: optString(description),
			Qty:         optString(qty),
		})
	}

	for _, p := range parsed {
		add(p.Description, p.Qty)
	}
	for _, c := range t.ExtraCharges {
		add(Str(c.Description), Str(c.Qty))
	}
	t.ExtraCharges = out
}

// chargeKey builds the dedupe key: trimmed qty plus the normalized
// description with any duplicated quantity prefix stripped off.
func chargeKey(description, qty string) string {
	d := norm(description)
	q := strings.TrimSpace(qty)
	if q != "" {
		d = strings.TrimPrefix(d, strings.ToUpper(q)+" ")
	}
	return q + "|" + d
}
