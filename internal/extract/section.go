package extract

import "strings"

// Section returns the text strictly between the first line containing any
// start marker and the next line after it containing any end marker. Marker
// matching is a case-insensitive substring test on the whole line. If either
// boundary is missing the section is empty.
func Section(text string, startMarkers, endMarkers []string) string {
	lines := strings.Split(text, "\n")

	start := -1
	for i, line := range lines {
		if containsAnyMarker(line, startMarkers) {
			start = i
			break
		}
	}
	if start == -1 {
		return ""
	}

	for j := start + 1; j < len(lines); j++ {
		if containsAnyMarker(lines[j], endMarkers) {
			return strings.Join(lines[start+1:j], "\n")
		}
	}
	return ""
}

func containsAnyMarker(line string, markers []string) bool {
	up := strings.ToUpper(line)
	for _, m := range markers {
		if m != "" && strings.Contains(up, strings.ToUpper(m)) {
			return true
		}
	}
	return false
}
