package ticket

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Normalize cleans a reconciled ticket in place. The order of the passes
// matters: code/slump repair feeds the token stripping, stripping feeds the
// description reconciliation, and the customer-spec unification runs only
// after additive tokens are out of the customer row. Running Normalize a
// second time changes nothing.
func Normalize(t *Ticket) {
	if t == nil {
		return
	}
	charges := t.ExtraCharges
	rows := []*MixRow{t.MixCustomer, t.MixAdditional1, t.MixAdditional2}

	for _, row := range rows {
		if row == nil {
			continue
		}
		normalizeCodeSlump(row, charges)
	}

	for _, row := range rows {
		if row == nil {
			continue
		}
		rawDescr := Str(row.Descr)
		stripRowTokens(row)
		row.Descr = normalizedSpecField(row.Descr)
		row.CustDescr = normalizedSpecField(row.CustDescr)
		reconcileDescriptions(row, rawDescr)
	}

	stripAdditiveTokensFromCustomer(t)
	unifyCustomerSpec(t.MixCustomer)
	normalizeAddress(t)
	normalizeCharges(t)
}

// --- code / slump -----------------------------------------------------------

var reLeadNum = regexp.MustCompile(`^(\d+(?:\.\d+)?)`)

// defaultSlumpByPrefix maps mix-code families to the plant-standard slump
// used when a noisy slump had to be discarded.
var defaultSlumpByPrefix = []struct {
	prefix string
	slump  string
}{
	{"RMES", "80+-30"},
	{"RMXS", "150+-30"},
	{"RMXW", "150+-30"},
	{"RMEW", "150+-30"},
}

func defaultSlumpFor(code string) string {
	up := strings.ToUpper(strings.TrimSpace(code))
	for _, e := range defaultSlumpByPrefix {
		if strings.HasPrefix(up, e.prefix) {
			return e.slump
		}
	}
	return ""
}

func normalizeCodeSlump(row *MixRow, charges []ExtraCharge) {
	splitCodeSlump(row, charges)

	if HasValue(row.Slump) && isChargeNoise(Str(row.Slump), row, charges) {
		row.Slump = nil
		if def := defaultSlumpFor(Str(row.Code)); def != "" {
			row.Slump = String(def)
		}
	}
}

// splitCodeSlump moves a slump token off the end of the code field. The
// candidate replaces the current slump when the slump is empty, is charge
// noise, or differs from a candidate that is itself clean; otherwise the
// code keeps its trailing token.
func splitCodeSlump(row *MixRow, charges []ExtraCharge) {
	fields := strings.Fields(Str(row.Code))
	if len(fields) < 2 {
		return
	}
	candidate := fields[len(fields)-1]
	if !looksLikeSlumpToken(candidate) {
		return
	}

	current := strings.TrimSpace(Str(row.Slump))
	if current == "" ||
		isChargeNoise(current, row, charges) ||
		(candidate != current && !isChargeNoise(candidate, row, charges)) {
		row.Code = String(strings.Join(fields[:len(fields)-1], " "))
		row.Slump = String(candidate)
	}
}

func looksLikeSlumpToken(tok string) bool {
	return strings.ContainsAny(tok, "0123456789") && strings.ContainsAny(tok, "+-±")
}

// isChargeNoise reports whether v is extra-charge text that bled into a mix
// field: the row's own quantity number, a charge quantity, a charge
// description, or a "<qty> <description>" rendering of one.
func isChargeNoise(v string, row *MixRow, charges []ExtraCharge) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	if m := reLeadNum.FindStringSubmatch(strings.TrimSpace(Str(row.Qty))); m != nil && v == m[1] {
		return true
	}
	up := strings.ToUpper(v)
	for _, c := range charges {
		if q := strings.TrimSpace(Str(c.Qty)); q != "" {
			if v == q || strings.HasPrefix(up, strings.ToUpper(q)+" ") {
				return true
			}
		}
		if d := strings.TrimSpace(Str(c.Description)); d != "" && strings.Contains(up, strings.ToUpper(d)) {
			return true
		}
	}
	return false
}

// --- token stripping --------------------------------------------------------

// stripRowTokens removes the row's code and slump wherever they are repeated
// inside the description fields. A field emptied by the stripping borrows
// the other field's surviving text.
func stripRowTokens(row *MixRow) {
	code := normToken(Str(row.Code))
	slump := normToken(Str(row.Slump))
	if code == "" && slump == "" {
		return
	}

	strip := func(s string) string {
		var kept []string
		for _, tok := range strings.Fields(s) {
			nt := normToken(tok)
			if nt != "" && (nt == code || nt == slump) {
				continue
			}
			kept = append(kept, tok)
		}
		return strings.Join(kept, " ")
	}

	hadDescr, hadCust := HasValue(row.Descr), HasValue(row.CustDescr)
	d := strip(Str(row.Descr))
	cd := strip(Str(row.CustDescr))

	finalD, finalCD := d, cd
	if hadDescr && finalD == "" {
		finalD = cd
	}
	if hadCust && finalCD == "" {
		finalCD = d
	}
	if hadDescr {
		row.Descr = optString(finalD)
	}
	if hadCust {
		row.CustDescr = optString(finalCD)
	}
}

// normToken reduces a token to its comparable core: letters, digits, and
// slump punctuation, uppercased.
func normToken(tok string) string {
	var b strings.Builder
	for _, r := range tok {
		if unicode.IsLetter(r) || unicode.IsDigit(r) ||
			r == '+' || r == '-' || r == '±' || r == '/' {
			b.WriteRune(r)
		}
	}
	return strings.ToUpper(b.String())
}

// --- spec text --------------------------------------------------------------

func normalizedSpecField(p *string) *string {
	if !HasValue(p) {
		return p
	}
	return optString(normalizeSpec(*p))
}

// normalizeSpec repairs one customer-spec string: truncated STANDARD,
// shuffled token order, duplicated runs, a wandering CORINH, and words the
// text layer split into single letters.
func normalizeSpec(s string) string {
	toks := strings.Fields(s)
	if len(toks) == 0 {
		return ""
	}
	toks = expandStandar(toks)
	toks = reorderSpecTokens(toks)
	toks = collapseDupes(toks)
	toks = moveCorinhLast(toks)
	toks = mergeSingleLetters(toks)
	return strings.Join(toks, " ")
}

// expandStandar completes a truncated "STANDAR" when the spec text names
// a strength. A following lone "D" means the word was split, not truncated;
// the single-letter merge handles that case.
func expandStandar(toks []string) []string {
	hasMPA := false
	for _, t := range toks {
		if strings.Contains(strings.ToUpper(t), "MPA") {
			hasMPA = true
			break
		}
	}
	if !hasMPA {
		return toks
	}
	for i, t := range toks {
		if strings.ToUpper(t) == "STANDAR" &&
			!(i+1 < len(toks) && strings.ToUpper(toks[i+1]) == "D") {
			toks[i] = "STANDARD"
		}
	}
	return toks
}

// reorderSpecTokens pulls the brand, the STANDARD marker, and the strength
// to the front, in that order. The rest keeps its page order, dropping any
// repeat of a token already pulled forward.
func reorderSpecTokens(toks []string) []string {
	emitted := make([]bool, len(toks))
	out := make([]string, 0, len(toks))
	take := func(i int) {
		if !emitted[i] {
			out = append(out, toks[i])
			emitted[i] = true
		}
	}
	for i, t := range toks {
		if strings.Contains(strings.ToUpper(t), "WEATHER") {
			take(i)
		}
	}
	for i, t := range toks {
		if strings.ToUpper(t) == "STANDARD" {
			take(i)
			break
		}
	}
	for i, t := range toks {
		if strings.Contains(strings.ToUpper(t), "MPA") {
			take(i)
			break
		}
	}
	front := make(map[string]struct{}, len(out))
	for _, t := range out {
		front[strings.ToUpper(t)] = struct{}{}
	}
	for i, t := range toks {
		if emitted[i] {
			continue
		}
		if _, dup := front[strings.ToUpper(t)]; dup {
			continue
		}
		out = append(out, t)
	}
	return out
}

// collapseDupes removes adjacent duplicate tokens, adjacent duplicate token
// pairs, and a fully repeated half-sequence, iterating to a fixed point.
func collapseDupes(toks []string) []string {
	for {
		next := collapseAdjacent(toks)
		next = collapsePairs(next)
		next = collapseRepeatedHalf(next)
		if len(next) == len(toks) {
			return next
		}
		toks = next
	}
}

func collapseAdjacent(toks []string) []string {
	var out []string
	for _, t := range toks {
		if len(out) > 0 && strings.EqualFold(out[len(out)-1], t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func collapsePairs(toks []string) []string {
	var out []string
	for i := 0; i < len(toks); i++ {
		if i+3 < len(toks) &&
			strings.EqualFold(toks[i], toks[i+2]) &&
			strings.EqualFold(toks[i+1], toks[i+3]) {
			out = append(out, toks[i], toks[i+1])
			i += 3
			continue
		}
		out = append(out, toks[i])
	}
	return out
}

func collapseRepeatedHalf(toks []string) []string {
	n := len(toks)
	if n < 2 || n%2 != 0 {
		return toks
	}
	half := n / 2
	for i := 0; i < half; i++ {
		if !strings.EqualFold(toks[i], toks[i+half]) {
			return toks
		}
	}
	return toks[:half]
}

// moveCorinhLast keeps the corrosion-inhibitor marker at the very end.
func moveCorinhLast(toks []string) []string {
	var kept []string
	corinh := ""
	for _, t := range toks {
		if strings.ToUpper(t) == "CORINH" {
			corinh = t
			continue
		}
		kept = append(kept, t)
	}
	if corinh != "" {
		kept = append(kept, corinh)
	}
	return kept
}

// mergeSingleLetters reattaches a lone letter to the preceding word
// ("WEATHERMI X" -> "WEATHERMIX").
func mergeSingleLetters(toks []string) []string {
	var out []string
	for _, t := range toks {
		if len(out) > 0 && isSingleLetter(t) {
			prev := out[len(out)-1]
			if len(prev) >= 2 && isAlphaToken(prev) {
				out[len(out)-1] = prev + t
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

func isSingleLetter(s string) bool {
	return len(s) == 1 && unicode.IsLetter(rune(s[0]))
}

func isAlphaToken(s string) bool {
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

// --- description vs customer description ------------------------------------

// descriptionHeaderVocabulary covers table-header words the model sometimes
// returns as a row's description.
var descriptionHeaderVocabulary = map[string]struct{}{
	"DESCRIPTION": {},
	"DESC":        {},
	"DESCR":       {},
	"CODE":        {},
	"CUST":        {},
	"QTY":         {},
	"SLUMP":       {},
	"MIX":         {},
}

func reconcileDescriptions(row *MixRow, rawDescr string) {
	d := Str(row.Descr)
	cd := Str(row.CustDescr)
	headerReplaced := false
	stripFired := false

	// A description made of header words carries nothing; take the customer
	// spec, minus its STANDARD marker, which belongs to the customer wording.
	if d != "" && isHeaderLikeDescription(d) {
		row.Descr = optString(stripLeadingStandard(cd))
		d = Str(row.Descr)
		headerReplaced = true
	}

	// A STANDARD that the raw description never contained was synthesized by
	// the cleanup above; put the description back the way the page had it.
	// Raw text carrying the code or slump is exempt: stripping those is what
	// legitimately surfaced the STANDARD.
	if !headerReplaced && startsWithStandardMPA(d) &&
		!rawHasFullStandard(rawDescr) && !rawCarriesCodeOrSlump(rawDescr, row) {
		d = strings.TrimSpace(strings.TrimPrefix(d, strings.Fields(d)[0]))
		row.Descr = optString(d)
		stripFired = true
	}

	// If the customer wording confirms the STANDARD we just stripped, trust
	// it and promote the full form.
	if stripFired && cd != "" && hasLeadingStandard(cd) && normEq(d, stripLeadingStandard(cd)) {
		row.Descr = String(cd)
	}
}

func isHeaderLikeDescription(s string) bool {
	any := false
	for _, tok := range strings.Fields(s) {
		tok = strings.ToUpper(strings.Trim(tok, ".,:"))
		if tok == "" {
			continue
		}
		any = true
		if _, ok := descriptionHeaderVocabulary[tok]; !ok {
			return false
		}
	}
	return any
}

func startsWithStandardMPA(s string) bool {
	toks := strings.Fields(s)
	return len(toks) >= 2 &&
		strings.ToUpper(toks[0]) == "STANDARD" &&
		strings.Contains(strings.ToUpper(toks[1]), "MPA")
}

func hasLeadingStandard(s string) bool {
	toks := strings.Fields(s)
	return len(toks) > 0 && strings.ToUpper(toks[0]) == "STANDARD"
}

func stripLeadingStandard(s string) string {
	toks := strings.Fields(s)
	if len(toks) > 0 && strings.ToUpper(toks[0]) == "STANDARD" {
		return strings.Join(toks[1:], " ")
	}
	return s
}

func rawHasFullStandard(raw string) bool {
	for _, tok := range strings.Fields(raw) {
		if strings.ToUpper(tok) == "STANDARD" {
			return true
		}
	}
	return false
}

func rawCarriesCodeOrSlump(raw string, row *MixRow) bool {
	up := strings.ToUpper(raw)
	if code := strings.ToUpper(strings.TrimSpace(Str(row.Code))); code != "" && strings.Contains(up, code) {
		return true
	}
	slump := strings.ToUpper(strings.TrimSpace(Str(row.Slump)))
	if slump != "" {
		despaced := reWS.ReplaceAllString(up, "")
		if strings.Contains(despaced, reWS.ReplaceAllString(slump, "")) {
			return true
		}
	}
	return false
}

// --- additive bleed-through -------------------------------------------------

var reCNum = regexp.MustCompile(`^C\d+$`)

// stripAdditiveTokensFromCustomer removes additive product names that the
// text layer appended to the customer spec. Only tokens after the last core
// spec token (strength, aggregate size, CORINH, C-class) are candidates.
func stripAdditiveTokensFromCustomer(t *Ticket) {
	cust := t.MixCustomer
	if cust == nil {
		return
	}

	var additive []string
	for _, row := range []*MixRow{t.MixAdditional1, t.MixAdditional2} {
		if row == nil {
			continue
		}
		for _, tok := range strings.Fields(Str(row.Descr)) {
			if isAlphaToken(tok) && len(tok) >= 4 {
				additive = append(additive, strings.ToUpper(tok))
			}
		}
	}
	if len(additive) == 0 {
		return
	}

	if HasValue(cust.Descr) {
		cust.Descr = optString(stripAfterCore(*cust.Descr, additive))
	}
	if HasValue(cust.CustDescr) {
		cust.CustDescr = optString(stripAfterCore(*cust.CustDescr, additive))
	}
}

func stripAfterCore(s string, additive []string) string {
	toks := strings.Fields(s)
	core := -1
	for i, t := range toks {
		up := strings.ToUpper(strings.Trim(t, ".,:"))
		if strings.Contains(up, "MPA") || strings.Contains(up, "MM") ||
			up == "CORINH" || reCNum.MatchString(up) {
			core = i
		}
	}
	if core == -1 {
		return s
	}

	var kept []string
	for i, t := range toks {
		if i > core && containsToken(additive, strings.ToUpper(strings.Trim(t, ".,:"))) {
			continue
		}
		kept = append(kept, t)
	}
	return strings.Join(kept, " ")
}

func containsToken(set []string, tok string) bool {
	for _, s := range set {
		if s == tok {
			return true
		}
	}
	return false
}

// --- customer-spec unification ----------------------------------------------

// unifyCustomerSpec settles the customer row's two spec fields on the better
// candidate. Scoring rewards strength and brand markers and punishes
// single-letter debris; an HR/SP disagreement always resolves to HR.
func unifyCustomerSpec(row *MixRow) {
	if row == nil {
		return
	}
	cd, d := Str(row.CustDescr), Str(row.Descr)
	if cd == "" && d == "" {
		return
	}

	winner := cd
	switch {
	case cd == "":
		winner = d
	case d == "":
		winner = cd
	case hrOverSP(cd, d):
		winner = cd
	case hrOverSP(d, cd):
		winner = d
	case scoreSpec(d) > scoreSpec(cd):
		winner = d
	case scoreSpec(d) == scoreSpec(cd) && len(d) > len(cd):
		winner = d
	}

	if !writeWouldRegress(cd, d) {
		row.Descr = String(winner)
	}
	if cd == "" && strings.Contains(strings.ToUpper(winner), "WEATHERMIX") {
		row.CustDescr = String(strings.ReplaceAll(winner, "WEATHERMIX", "WEATHER"))
	}
}

// writeWouldRegress guards two deliberate states: a description that omits
// the customer's STANDARD marker on purpose, and an SP description retained
// against an HR customer wording.
func writeWouldRegress(cd, d string) bool {
	if cd == "" {
		return false
	}
	if hasLeadingStandard(cd) && normEq(d, stripLeadingStandard(cd)) {
		return true
	}
	return hrOverSP(cd, d)
}

// hrOverSP reports whether a and b differ in exactly one token position with
// a holding "HR" where b holds "SP".
func hrOverSP(a, b string) bool {
	ta, tb := strings.Fields(norm(a)), strings.Fields(norm(b))
	if len(ta) != len(tb) || len(ta) == 0 {
		return false
	}
	diff := -1
	for i := range ta {
		if ta[i] == tb[i] {
			continue
		}
		if diff != -1 {
			return false
		}
		diff = i
	}
	return diff != -1 && ta[diff] == "HR" && tb[diff] == "SP"
}

func scoreSpec(s string) int {
	score := len(s)
	for _, tok := range strings.Fields(s) {
		if len(tok) == 1 {
			score -= 6
		}
	}
	up := strings.ToUpper(s)
	if strings.Contains(up, "MPA") {
		score += 10
	}
	if strings.Contains(up, "WEATHERMIX") {
		score += 8
	}
	if strings.Contains(up, "STANDARD") {
		score += 6
	}
	if strings.Contains(up, "WEATHER") {
		score += 4
	}
	return score
}

// --- address and charges ----------------------------------------------------

var rePOBox = regexp.MustCompile(`(?i)^P\.?O\.?\b`)

func normalizeAddress(t *Ticket) {
	if !HasValue(t.DeliveryAddress) {
		return
	}
	var parts []string
	for _, line := range strings.Split(*t.DeliveryAddress, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || rePOBox.MatchString(line) {
			continue
		}
		parts = append(parts, line)
	}
	joined := reWS.ReplaceAllString(strings.Join(parts, " "), " ")
	t.DeliveryAddress = optString(joined)
}

func normalizeCharges(t *Ticket) {
	for i := range t.ExtraCharges {
		c := &t.ExtraCharges[i]
		d, q := Str(c.Description), strings.TrimSpace(Str(c.Qty))
		if d == "" || q == "" {
			continue
		}
		switch {
		case d == q:
			c.Description = nil
		case strings.HasPrefix(d, q+" "):
			c.Description = optString(strings.TrimPrefix(d, q+" "))
		}
	}

	isSiteWash := func(c ExtraCharge) bool {
		return strings.Contains(norm(Str(c.Description)), "SITE WASH")
	}
	sort.SliceStable(t.ExtraCharges, func(i, j int) bool {
		return !isSiteWash(t.ExtraCharges[i]) && isSiteWash(t.ExtraCharges[j])
	})
}
