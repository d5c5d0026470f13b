// Package ticket defines the delivery-ticket model and the stages that take
// a decoded ticket to its final form: validation, hint reconciliation,
// extra-charge merging, and normalization.
package ticket

import (
	"regexp"
	"strings"
)

// Ticket is one delivery ticket extracted from a single PDF page. JSON field
// names mirror the page's printed labels exactly, punctuation included.
// Optional string fields are nil when absent and render as null.
type Ticket struct {
	TicketNo        *string       `json:"Ticket No."`
	DeliveryDate    *string       `json:"Delivery Date"`
	DeliveryTime    *string       `json:"Delivery Time"`
	DeliveryAddress *string       `json:"Delivery Address"`
	MixCustomer     *MixRow       `json:"Mix Customer"`
	MixAdditional1  *MixRow       `json:"Mix Additional 1"`
	MixAdditional2  *MixRow       `json:"Mix Additional 2"`
	ExtraCharges    []ExtraCharge `json:"Extra Charges"`
}

// MixRow is one row of the mix table: the customer mix or an additive.
type MixRow struct {
	Qty       *string `json:"Qty"`
	CustDescr *string `json:"Cust. Descr."`
	Descr     *string `json:"Description"`
	Code      *string `json:"Code"`
	Slump     *string `json:"Slump"`
}

// ExtraCharge is one surcharge line from the extra-charges block.
type ExtraCharge struct {
	Description *string `json:"Description"`
	Qty         *string `json:"Qty"`
}

// String returns a pointer to v. Handy for building tickets field by field.
func String(v string) *string {
	return &v
}

// Str returns the pointed-to value, or "" for nil.
func Str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// HasValue reports whether p carries a non-blank value.
func HasValue(p *string) bool {
	return p != nil && strings.TrimSpace(*p) != ""
}

// optString returns nil for a blank value, otherwise a pointer to v.
func optString(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

var reWS = regexp.MustCompile(`\s+`)

// norm uppercases and whitespace-collapses s for comparisons.
func norm(s string) string {
	return strings.ToUpper(reWS.ReplaceAllString(strings.TrimSpace(s), " "))
}

func normEq(a, b string) bool {
	return norm(a) == norm(b)
}
