// Package report aggregates exported LineItems sheets into the mix report:
// main mixes grouped by pour location, level, description, and unit;
// additional mixes and charges grouped with their item type.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/devinhayward/concrete-tickets/constants"
	"github.com/devinhayward/concrete-tickets/internal/common"
)

const lineItemsSheet = "LineItems"

// RequiredColumns must all be present in a LineItems header for the sheet
// to be counted; workbooks missing any of them are skipped.
var RequiredColumns = []string{
	"Item Type",
	"Item Description",
	"Qty Value",
	"Qty Unit",
	"Unit Rate",
	"Cost",
	"Location",
	"Level",
	"Ticket No.",
}

type mixKey struct {
	Location    string
	Level       string
	ItemType    string
	Description string
	QtyUnit     string
}

type aggregate struct {
	totalQty  float64
	totalCost float64
	costCount int
	tickets   map[string]struct{}
}

// Summary mirrors the counters printed after a report run.
type Summary struct {
	ProcessedFiles     int
	IncludedMain       int
	IncludedAdditional int
	SkippedDescription int
	SkippedQty         int
}

// Report accumulates line items across workbooks and renders the CSV.
type Report struct {
	main       map[mixKey]*aggregate
	additional map[mixKey]*aggregate
	Summary    Summary
	logger     *slog.Logger
}

func NewReport(logger *slog.Logger) *Report {
	if logger == nil {
		logger = slog.Default()
	}
	return &Report{
		main:       map[mixKey]*aggregate{},
		additional: map[mixKey]*aggregate{},
		logger:     logger,
	}
}

// AddWorkbook reads one workbook's LineItems sheet into the report.
// Workbooks without a usable sheet are skipped, not failed; an unreadable
// file is an error.
func (r *Report) AddWorkbook(path string) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	base := filepath.Base(path)
	if idx, _ := f.GetSheetIndex(lineItemsSheet); idx == -1 {
		r.logger.Warn("report.file.skipped", "file", base, "reason", "no LineItems sheet")
		return nil
	}
	rows, err := f.GetRows(lineItemsSheet)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) == 0 {
		r.logger.Warn("report.file.skipped", "file", base, "reason", "empty LineItems")
		return nil
	}

	header := map[string]int{}
	for i, name := range rows[0] {
		key := strings.TrimSpace(name)
		if key == "" {
			continue
		}
		if _, seen := header[key]; !seen {
			header[key] = i
		}
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := header[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		r.logger.Warn("report.file.skipped", "file", base, "reason", "missing columns", "columns", strings.Join(missing, ", "))
		return nil
	}
	if len(rows) == 1 {
		return nil
	}

	r.Summary.ProcessedFiles++
	for _, row := range rows[1:] {
		r.addRow(row, header)
	}
	return nil
}

func (r *Report) addRow(row []string, header map[string]int) {
	get := func(name string) string {
		i := header[name]
		if i < len(row) {
			return row[i]
		}
		return ""
	}

	itemType := strings.TrimSpace(get("Item Type"))
	if itemType == "" {
		return
	}
	description := strings.TrimSpace(get("Item Description"))
	if description == "" {
		r.Summary.SkippedDescription++
		return
	}
	qty, ok := parseNumber(get("Qty Value"))
	if !ok {
		r.Summary.SkippedQty++
		return
	}

	qtyUnit := normalizeText(get("Qty Unit"))
	location := normalizeText(get("Location"))
	level := normalizeText(get("Level"))
	ticketNo := strings.TrimSpace(get("Ticket No."))

	unitRate, hasRate := parseNumber(get("Unit Rate"))
	cost, hasCost := parseNumber(get("Cost"))
	var computedCost float64
	computed := false
	switch {
	case hasCost && cost > 0:
		computedCost, computed = cost, true
	case hasRate:
		computedCost, computed = qty*unitRate, true
	}

	key := mixKey{Location: location, Level: level, ItemType: itemType, Description: description, QtyUnit: qtyUnit}
	var agg *aggregate
	if itemType == constants.ItemTypeMixCustomer {
		agg = fetch(r.main, key)
		r.Summary.IncludedMain++
	} else {
		agg = fetch(r.additional, key)
		r.Summary.IncludedAdditional++
	}

	agg.totalQty += qty
	if computed {
		agg.totalCost += computedCost
		agg.costCount++
	}
	if ticketNo != "" {
		agg.tickets[ticketNo] = struct{}{}
	}
}

func fetch(m map[mixKey]*aggregate, key mixKey) *aggregate {
	if agg, ok := m[key]; ok {
		return agg
	}
	agg := &aggregate{tickets: map[string]struct{}{}}
	m[key] = agg
	return agg
}

var csvHeader = []string{
	"Level",
	"Location",
	"Item Type",
	"Mix Description",
	"Ticket Count",
	"Total Qty",
	"Qty Unit",
	"Unit Rate",
	"Total Cost",
}

// WriteCSV renders the two-block report: Main Mixes, then Additional Mixes.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"Main Mixes"}); err != nil {
		return err
	}
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, key := range sortedKeys(r.main) {
		if err := cw.Write(reportRow(key, r.main[key])); err != nil {
			return err
		}
	}

	if err := cw.Write([]string{}); err != nil {
		return err
	}
	if err := cw.Write([]string{"Additional Mixes"}); err != nil {
		return err
	}
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, key := range sortedKeys(r.additional) {
		if err := cw.Write(reportRow(key, r.additional[key])); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func reportRow(key mixKey, agg *aggregate) []string {
	totalQty := agg.totalQty
	totalCost := ""
	unitRate := ""
	if agg.costCount > 0 {
		totalCost = formatNumber(agg.totalCost)
		if totalQty > 0 {
			unitRate = formatNumber(agg.totalCost / totalQty)
		}
	}
	return []string{
		key.Level,
		key.Location,
		key.ItemType,
		key.Description,
		strconv.Itoa(len(agg.tickets)),
		formatNumber(totalQty),
		key.QtyUnit,
		unitRate,
		totalCost,
	}
}

// Levels sort numerically when they parse as numbers, before everything
// that does not; ties fall back to the raw string.
func sortedKeys(m map[mixKey]*aggregate) []mixKey {
	keys := make([]mixKey, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		ar, an := levelRank(a.Level)
		br, bn := levelRank(b.Level)
		if ar != br {
			return ar < br
		}
		if ar == 0 && an != bn {
			return an < bn
		}
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		if a.Location != b.Location {
			return a.Location < b.Location
		}
		if a.ItemType != b.ItemType {
			return a.ItemType < b.ItemType
		}
		if a.Description != b.Description {
			return a.Description < b.Description
		}
		return a.QtyUnit < b.QtyUnit
	})
	return keys
}

func levelRank(level string) (int, float64) {
	if v, ok := parseNumber(level); ok {
		return 0, v
	}
	return 1, 0
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func normalizeText(s string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return "Unknown"
}

func formatNumber(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// BuildDir aggregates every .xlsx workbook under inputDir and writes the
// CSV report to outputPath.
func BuildDir(inputDir, outputPath string, logger *slog.Logger) (Summary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	paths, err := filepath.Glob(filepath.Join(inputDir, "*.xlsx"))
	if err != nil {
		return Summary{}, err
	}
	if len(paths) == 0 {
		return Summary{}, common.NewAppError("REPORT_INPUT", "no .xlsx files found in "+inputDir, common.ErrNotFound)
	}

	r := NewReport(logger)
	for _, path := range paths {
		if err := r.AddWorkbook(path); err != nil {
			return Summary{}, err
		}
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return Summary{}, fmt.Errorf("create report: %w", err)
	}
	defer out.Close()
	if err := r.WriteCSV(out); err != nil {
		return Summary{}, fmt.Errorf("write report: %w", err)
	}

	logger.Info("report.ok",
		"files", r.Summary.ProcessedFiles,
		"main_rows", r.Summary.IncludedMain,
		"additional_rows", r.Summary.IncludedAdditional,
		"output", outputPath,
	)
	return r.Summary, nil
}
