package report

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeWorkbook(t *testing.T, path string, rows [][]any) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", "LineItems"); err != nil {
		t.Fatalf("SetSheetName: %v", err)
	}
	header := make([]any, len(RequiredColumns))
	for i, c := range RequiredColumns {
		header[i] = c
	}
	all := append([][]any{header}, rows...)
	for i, row := range all {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("LineItems", cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
}

func TestBuildDirGroupsAndTotals(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "a.xlsx"), [][]any{
		{"Mix Customer", "35MPA NA 20MM HR", 6.0, "m3", 210.0, "", "Tower A", "3", "8812345"},
		{"Mix Customer", "35MPA NA 20MM HR", 4.0, "m3", "", 1000.0, "Tower A", "3", "8812346"},
		{"Extra Charge", "SITE WASH", 1.0, "ea", "", "", "Tower A", "3", "8812345"},
	})
	writeWorkbook(t, filepath.Join(dir, "b.xlsx"), [][]any{
		{"Mix Customer", "35MPA NA 20MM HR", 2.0, "m3", "", "", "Tower A", "3", "8812347"},
		{"Mix Customer", "30MPA NA 20MM", 3.0, "m3", "", "", "Tower A", "2", "8812348"},
		{"", "no item type", 1.0, "m3", "", "", "Tower A", "2", "8812348"},
		{"Extra Charge", "", 2.0, "ea", "", "", "Tower A", "2", "8812348"},
		{"Extra Charge", "FIBERS", "n/a", "ea", "", "", "Tower A", "2", "8812348"},
	})

	outPath := filepath.Join(dir, "report.csv")
	summary, err := BuildDir(dir, outPath, testLogger())
	if err != nil {
		t.Fatalf("BuildDir: %v", err)
	}

	if summary.ProcessedFiles != 2 {
		t.Errorf("ProcessedFiles = %d, want 2", summary.ProcessedFiles)
	}
	if summary.IncludedMain != 4 || summary.IncludedAdditional != 1 {
		t.Errorf("Included = (%d, %d), want (4, 1)", summary.IncludedMain, summary.IncludedAdditional)
	}
	if summary.SkippedDescription != 1 || summary.SkippedQty != 1 {
		t.Errorf("Skipped = (%d, %d), want (1, 1)", summary.SkippedDescription, summary.SkippedQty)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")

	if lines[0] != "Main Mixes" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "Level,Location,Item Type,Mix Description") {
		t.Errorf("line 1 = %q", lines[1])
	}
	// level 2 sorts before level 3
	if lines[2] != "2,Tower A,Mix Customer,30MPA NA 20MM,1,3.00,m3,," {
		t.Errorf("line 2 = %q", lines[2])
	}
	// 6+4+2 m3 over three tickets; cost 6*210 + 1000; rate = 2260/12
	if lines[3] != "3,Tower A,Mix Customer,35MPA NA 20MM HR,3,12.00,m3,188.33,2260.00" {
		t.Errorf("line 3 = %q", lines[3])
	}
	if lines[4] != "" {
		t.Errorf("line 4 = %q, want blank separator", lines[4])
	}
	if lines[5] != "Additional Mixes" {
		t.Errorf("line 5 = %q", lines[5])
	}
	if lines[7] != "3,Tower A,Extra Charge,SITE WASH,1,1.00,ea,," {
		t.Errorf("line 7 = %q", lines[7])
	}
	if len(lines) != 8 {
		t.Errorf("report has %d lines, want 8", len(lines))
	}
}

func TestBuildDirNoWorkbooks(t *testing.T) {
	dir := t.TempDir()
	if _, err := BuildDir(dir, filepath.Join(dir, "report.csv"), testLogger()); err == nil {
		t.Fatalf("BuildDir on empty dir succeeded")
	}
}

func TestAddWorkbookSkipsWithoutLineItems(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "other.xlsx")
	f := excelize.NewFile()
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	r := NewReport(testLogger())
	if err := r.AddWorkbook(path); err != nil {
		t.Fatalf("AddWorkbook: %v", err)
	}
	if r.Summary.ProcessedFiles != 0 {
		t.Errorf("workbook without LineItems counted as processed")
	}
}

func TestAddWorkbookSkipsMissingColumns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "short.xlsx")
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", "LineItems"); err != nil {
		t.Fatalf("SetSheetName: %v", err)
	}
	row := []any{"Item Type", "Item Description", "Qty Value"}
	if err := f.SetSheetRow("LineItems", "A1", &row); err != nil {
		t.Fatalf("SetSheetRow: %v", err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	r := NewReport(testLogger())
	if err := r.AddWorkbook(path); err != nil {
		t.Fatalf("AddWorkbook: %v", err)
	}
	if r.Summary.ProcessedFiles != 0 {
		t.Errorf("workbook with missing columns counted as processed")
	}
}

func TestLevelOrderingNumericFirst(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "levels.xlsx"), [][]any{
		{"Mix Customer", "MIX", 1.0, "m3", "", "", "Site", "B1", "1"},
		{"Mix Customer", "MIX", 1.0, "m3", "", "", "Site", "10", "2"},
		{"Mix Customer", "MIX", 1.0, "m3", "", "", "Site", "2", "3"},
		{"Mix Customer", "MIX", 1.0, "m3", "", "", "Site", "", "4"},
	})

	outPath := filepath.Join(dir, "report.csv")
	if _, err := BuildDir(dir, outPath, testLogger()); err != nil {
		t.Fatalf("BuildDir: %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")

	var levels []string
	for _, line := range lines[2:] {
		if line == "" {
			break
		}
		levels = append(levels, strings.SplitN(line, ",", 2)[0])
	}
	want := []string{"2", "10", "B1", "Unknown"}
	if strings.Join(levels, "|") != strings.Join(want, "|") {
		t.Errorf("level order = %v, want %v", levels, want)
	}
}
