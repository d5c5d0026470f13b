package llm

import (
	"encoding/json"
	"strings"

	"github.com/devinhayward/concrete-tickets/internal/ticket"
)

// Page text beyond this many characters is cut; a delivery ticket page is a
// few hundred characters, so hitting the cap means the text layer is junk.
const maxPageTextChars = 6000

// BuildExtractPrompt composes the extraction request for one page of ticket
// text. The schema rides along inside the system message so the model echoes
// the exact field names, punctuation included.
func BuildExtractPrompt(pageText string) Prompt {
	parts := []string{
		"You are a concrete delivery ticket parser. Return ONLY JSON that matches the provided JSON Schema.",
		"Copy values exactly as printed; do not invent, reformat, or translate.",
		"The mix table has up to three rows: the customer mix first, then up to two additive rows.",
		"Put the first mix row in 'Mix Customer' and later rows in 'Mix Additional 1' and 'Mix Additional 2'.",
		"Quantities keep their unit as printed (e.g. '9.0 m3').",
		"Slump is either a bare number or a tolerance like '150+-30'.",
		"List every line of the EXTRA CHARGES block under 'Extra Charges' with its quantity.",
		"Use null for fields that are not present; never use empty strings.",
	}
	sys := strings.Join(parts, " ") +
		"\n\nJSON Schema:\n" + mustJSON(ticket.BuildTicketJSONSchema())

	var b strings.Builder
	b.WriteString("Page text:\n")
	b.WriteString(clipText(pageText))
	b.WriteString("\n\nReturn ONLY the JSON object.")

	return Prompt{System: sys, User: b.String()}
}

// BuildRepairPrompt asks the model for a minimal patch fixing the listed
// validation issues. The patch is deep-merged into the base ticket, so the
// model only needs to return the offending fields.
func BuildRepairPrompt(baseJSON []byte, issues []string) Prompt {
	sys := strings.Join([]string{
		"You are repairing a concrete delivery ticket record that failed validation.",
		"Return ONLY a JSON object containing the corrected fields; it is merged into the record key by key.",
		"Nested objects merge recursively; scalars and arrays you provide replace the old values wholesale.",
		"Do not repeat fields that are already correct.",
	}, " ")

	var b strings.Builder
	b.WriteString("Current record:\n")
	b.Write(baseJSON)
	b.WriteString("\n\nValidation issues:\n")
	for _, issue := range issues {
		b.WriteString("- ")
		b.WriteString(issue)
		b.WriteString("\n")
	}
	b.WriteString("\nReturn ONLY the JSON patch object.")

	return Prompt{System: sys, User: b.String()}
}

func clipText(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxPageTextChars {
		return s
	}
	return s[:maxPageTextChars] + "\n…(truncated)"
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
