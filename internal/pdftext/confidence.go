package pdftext

import "regexp"

var (
	reTicketMarker = regexp.MustCompile(`(?i)\bTICKET\s*NO\b`)
	reQtyMarker    = regexp.MustCompile(`(?i)\d+(\.\d+)?\s*M(3|³)\b`)
	reMixMarker    = regexp.MustCompile(`(?i)\b(MIX|SLUMP|PLANT)\b`)
)

// Confidence scores how much a page's text layer looks like a delivery
// ticket, 0..1. Scanned pages with no text layer score near zero; the
// pipeline logs a warning below 0.5 so junk extractions are easy to spot.
func Confidence(text string) float32 {
	if text == "" {
		return 0
	}
	score := float32(0.2)
	if reTicketMarker.MatchString(text) {
		score += 0.3
	}
	if reQtyMarker.MatchString(text) {
		score += 0.2
	}
	if reMixMarker.MatchString(text) {
		score += 0.15
	}
	if len(text) > 200 {
		score += 0.15
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
