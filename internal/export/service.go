// Package export writes extraction results out: one JSON file per ticket and
// an XLSX workbook whose LineItems sheet feeds the mix report.
package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/devinhayward/concrete-tickets/constants"
	"github.com/devinhayward/concrete-tickets/internal/ticket"
)

// TicketPage is one decoded ticket together with where it came from.
type TicketPage struct {
	Ticket     *ticket.Ticket
	Page       int
	SourceFile string
}

// WorkbookOptions carries the per-batch annotations that tickets themselves
// do not have. A batch is one pour area, so location and level apply to
// every row; pricing is filled in later from invoices.
type WorkbookOptions struct {
	Location string
	Level    string
}

// Service produces the JSON and XLSX outputs for a batch of tickets.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// WriteTicketJSON writes one ticket as indented JSON under dir. The filename
// is the sanitized ticket number, or the page number when a ticket has none.
func (s *Service) WriteTicketJSON(dir string, tp TicketPage) (string, error) {
	name := SanitizeFilename(ticket.Str(tp.Ticket.TicketNo))
	if name == "" {
		name = fmt.Sprintf("page_%03d", tp.Page)
	}
	path := filepath.Join(dir, name+".json")

	data, err := ticket.EncodeIndent(tp.Ticket)
	if err != nil {
		return "", fmt.Errorf("encode ticket: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write ticket json: %w", err)
	}
	s.logger.Info("export.json.ok", "path", path, "page", tp.Page)
	return path, nil
}

// LineItemColumns is the LineItems sheet header, in order. The mix report
// reader requires every one of these names.
var LineItemColumns = []string{
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

var ticketColumns = []string{
	constants.FieldTicketNo,
	constants.FieldDeliveryDate,
	constants.FieldDeliveryTime,
	constants.FieldDeliveryAddress,
	constants.FieldQty,
	constants.FieldCustDescr,
	constants.FieldDescription,
	constants.FieldCode,
	constants.FieldSlump,
	constants.FieldExtraCharges,
	"Source File",
	"Page",
}

// WriteWorkbook builds the batch workbook and writes it to path.
func (s *Service) WriteWorkbook(path string, pages []TicketPage, opts WorkbookOptions) error {
	buf, err := s.BuildWorkbookXLSX(pages, opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// BuildWorkbookXLSX returns an XLSX workbook (as bytes) with a Tickets
// summary sheet and the LineItems sheet the mix report consumes.
func (s *Service) BuildWorkbookXLSX(pages []TicketPage, opts WorkbookOptions) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const ticketsSheet = "Tickets"
	const itemsSheet = "LineItems"
	if err := f.SetSheetName("Sheet1", ticketsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(ticketsSheet)
	f.SetActiveSheet(activeIndex)

	for i, h := range ticketColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(ticketsSheet, cell, h)
	}
	for i, h := range LineItemColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(itemsSheet, cell, h)
	}

	ticketRow := 2
	itemRow := 2
	lineItems := 0
	for _, tp := range pages {
		t := tp.Ticket
		if t == nil {
			continue
		}

		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, ticketRow)
			_ = f.SetCellValue(ticketsSheet, cell, v)
		}
		write(1, ticket.Str(t.TicketNo))
		write(2, ticket.Str(t.DeliveryDate))
		write(3, ticket.Str(t.DeliveryTime))
		write(4, ticket.Str(t.DeliveryAddress))
		if c := t.MixCustomer; c != nil {
			write(5, ticket.Str(c.Qty))
			write(6, ticket.Str(c.CustDescr))
			write(7, ticket.Str(c.Descr))
			write(8, ticket.Str(c.Code))
			write(9, ticket.Str(c.Slump))
		}
		write(10, truncate(chargeSummary(t.ExtraCharges), 140))
		write(11, tp.SourceFile)
		write(12, tp.Page)
		ticketRow++

		writeItem := func(itemType, description, qty, unit string) {
			if description == "" {
				return
			}
			cell := func(col int) string {
				name, _ := excelize.CoordinatesToCellName(col, itemRow)
				return name
			}
			_ = f.SetCellValue(itemsSheet, cell(1), itemType)
			_ = f.SetCellValue(itemsSheet, cell(2), description)
			if v, ok := parseQty(qty); ok {
				_ = f.SetCellValue(itemsSheet, cell(3), v)
			} else {
				_ = f.SetCellValue(itemsSheet, cell(3), qty)
			}
			_ = f.SetCellValue(itemsSheet, cell(4), unit)
			// Unit Rate and Cost stay blank until priced
			_ = f.SetCellValue(itemsSheet, cell(7), opts.Location)
			_ = f.SetCellValue(itemsSheet, cell(8), opts.Level)
			_ = f.SetCellValue(itemsSheet, cell(9), ticket.Str(t.TicketNo))
			itemRow++
			lineItems++
		}
		writeMix := func(itemType string, row *ticket.MixRow) {
			if row == nil {
				return
			}
			desc := ticket.Str(row.Descr)
			if desc == "" {
				desc = ticket.Str(row.CustDescr)
			}
			writeItem(itemType, desc, ticket.Str(row.Qty), "m3")
		}
		writeMix(constants.ItemTypeMixCustomer, t.MixCustomer)
		writeMix(constants.ItemTypeMixAdditional1, t.MixAdditional1)
		writeMix(constants.ItemTypeMixAdditional2, t.MixAdditional2)
		for _, c := range t.ExtraCharges {
			writeItem(constants.ItemTypeExtraCharge, ticket.Str(c.Description), ticket.Str(c.Qty), "ea")
		}
	}

	// Widen a few columns
	_ = f.SetColWidth(ticketsSheet, "A", "A", 12) // ticket no
	_ = f.SetColWidth(ticketsSheet, "B", "D", 18) // date, time, address
	_ = f.SetColWidth(ticketsSheet, "F", "G", 32) // descriptions
	_ = f.SetColWidth(ticketsSheet, "J", "J", 48) // charges
	_ = f.SetColWidth(ticketsSheet, "K", "K", 40) // source file
	_ = f.SetColWidth(itemsSheet, "A", "A", 16)   // item type
	_ = f.SetColWidth(itemsSheet, "B", "B", 36)   // description
	_ = f.SetColWidth(itemsSheet, "G", "H", 14)   // location, level

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"tickets", ticketRow-2,
		"line_items", lineItems,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// chargeSummary flattens extra charges for the summary sheet.
func chargeSummary(charges []ticket.ExtraCharge) string {
	parts := make([]string, 0, len(charges))
	for _, c := range charges {
		p := ticket.Str(c.Description)
		if ticket.HasValue(c.Qty) {
			p += " (" + ticket.Str(c.Qty) + ")"
		}
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "; ")
}

// parseQty reads a quantity cell value like "6.00" or "1,250.5".
func parseQty(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// SanitizeFilename keeps letters, digits, dashes, and underscores, mapping
// runs of anything else to a single underscore.
func SanitizeFilename(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
