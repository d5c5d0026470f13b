package extract

import "testing"

func TestSection(t *testing.T) {
	page := "HEADER\nMIX TABLE\n9.0 M3 STANDARD\nRMXD445N51N\nINSTRUCTIONS\nfooter"

	got := Section(page, []string{"MIX"}, []string{"INSTRUCTIONS"})
	want := "9.0 M3 STANDARD\nRMXD445N51N"
	if got != want {
		t.Errorf("Section() = %q, want %q", got, want)
	}
}

func TestSectionMarkerMatchingIsCaseInsensitive(t *testing.T) {
	page := "before\nmix table\nrow\ninstructions after"
	got := Section(page, []string{"MIX"}, []string{"INSTRUCTIONS"})
	if got != "row" {
		t.Errorf("Section() = %q, want %q", got, "row")
	}
}

func TestSectionMissingBoundaries(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"no start marker", "a\nb\nINSTRUCTIONS\nc"},
		{"no end marker", "a\nMIX\nb\nc"},
		{"end before start", "INSTRUCTIONS\na\nMIX\nb"},
		{"empty input", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Section(tt.text, []string{"MIX"}, []string{"INSTRUCTIONS"}); got != "" {
				t.Errorf("Section(%q) = %q, want empty", tt.text, got)
			}
		})
	}
}

func TestSectionMultipleMarkers(t *testing.T) {
	page := "x\nEXTRA CHARGES\n9.00\nSEASONAL\nWATER CONTENT\ny"
	got := Section(page, []string{"EXTRA CHARGES"}, []string{"WATER CONTENT"})
	want := "9.00\nSEASONAL"
	if got != want {
		t.Errorf("Section() = %q, want %q", got, want)
	}

	// The first matching start marker wins.
	got = Section(page, []string{"NOPE", "EXTRA CHARGES"}, []string{"WATER CONTENT"})
	if got != want {
		t.Errorf("Section() with marker list = %q, want %q", got, want)
	}
}
