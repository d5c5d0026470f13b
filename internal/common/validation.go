package common

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayouts lists the delivery-date layouts accepted after cleanup, in the
// order they are tried. The batching plant's export writes "Tue, Nov 4 2025"
// style dates; the rest cover hand-entered values seen in archived tickets.
// Slash dates are day-first, as the dockets print them.
var DateLayouts = []string{
	"Mon, Jan 2 2006",
	"Mon Jan 2 2006",
	"Jan 2 2006",
	"January 2 2006",
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
}

var (
	reWS       = regexp.MustCompile(`\s+`)
	reDayComma = regexp.MustCompile(`\b(\d{1,2}),`)

	reClockTime = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	reQtyValue  = regexp.MustCompile(`^\d+(\.\d{1,2})?\s*(?i:m3|m³)?$`)
	reSlumpNum  = regexp.MustCompile(`^\d+(\.\d+)?$`)
	reSlumpRng  = regexp.MustCompile(`^\d+(\.\d+)?\s*(\+\-|±)\s*\d+(\.\d+)?$`)
	reChargeQty = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
)

// NormalizeDateText collapses whitespace runs and strips the comma that
// follows a one- or two-digit day number ("Nov 4, 2025" -> "Nov 4 2025").
// The comma after a weekday name is left alone.
func NormalizeDateText(s string) string {
	s = reWS.ReplaceAllString(strings.TrimSpace(s), " ")
	return reDayComma.ReplaceAllString(s, "$1")
}

// ParseDeliveryDate reports whether s parses as a delivery date under any
// accepted layout, returning the parsed time on success.
func ParseDeliveryDate(s string) (time.Time, bool) {
	cleaned := NormalizeDateText(s)
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsClockTime reports whether s is an H:MM or HH:MM clock time.
func IsClockTime(s string) bool {
	m := reClockTime.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return false
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	return hour <= 23 && minute <= 59
}

// IsQtyValue reports whether s is a mix quantity: a number with up to two
// decimals and an optional cubic-metre unit. Decimal commas are accepted.
func IsQtyValue(s string) bool {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	return reQtyValue.MatchString(s)
}

// IsSlumpValue reports whether s is a slump: a bare number or an N+-M range.
func IsSlumpValue(s string) bool {
	s = strings.TrimSpace(s)
	return reSlumpNum.MatchString(s) || reSlumpRng.MatchString(s)
}

// IsChargeQty reports whether s is an extra-charge quantity: a bare number
// with up to two decimals.
func IsChargeQty(s string) bool {
	return reChargeQty.MatchString(strings.TrimSpace(s))
}
