package pdftext

import (
	"reflect"
	"testing"
)

func TestParsePageRange(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		max     int
		want    []int
		wantErr bool
	}{
		{"empty means all", "", 10, nil, false},
		{"single page", "3", 10, []int{3}, false},
		{"list", "1,4,2", 10, []int{1, 2, 4}, false},
		{"range", "3-5", 10, []int{3, 4, 5}, false},
		{"mixed with overlap", "1,3-5,4", 10, []int{1, 3, 4, 5}, false},
		{"spaces tolerated", " 2 , 4-5 ", 10, []int{2, 4, 5}, false},
		{"zero page", "0", 10, nil, true},
		{"past the end", "11", 10, nil, true},
		{"inverted range", "5-3", 10, nil, true},
		{"garbage", "abc", 10, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePageRange(tt.spec, tt.max)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("pages = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfidence(t *testing.T) {
	ticket := "TICKET NO: 8812345\nMIX TABLE\n9.0 M3 STANDARD 35MPA NA 20MM HR\nSLUMP 150+-30\nPLANT NO: 12"
	if got := Confidence(ticket); got < 0.8 {
		t.Errorf("ticket text confidence = %v, want >= 0.8", got)
	}
	if got := Confidence(""); got != 0 {
		t.Errorf("empty text confidence = %v, want 0", got)
	}
	if got := Confidence("lorem ipsum"); got > 0.5 {
		t.Errorf("prose confidence = %v, want low", got)
	}
}
