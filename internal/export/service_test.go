package export

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/devinhayward/concrete-tickets/internal/ticket"
)

func testService() *Service {
	return NewService(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func sampleTicket() *ticket.Ticket {
	return &ticket.Ticket{
		TicketNo:        ticket.String("8812345"),
		DeliveryDate:    ticket.String("16/10/2024"),
		DeliveryTime:    ticket.String("10:42"),
		DeliveryAddress: ticket.String("12 HARBOUR RD"),
		MixCustomer: &ticket.MixRow{
			Qty:       ticket.String("6.00"),
			CustDescr: ticket.String("35MPA NA 20MM HR"),
			Descr:     ticket.String("35MPA NA 20MM HR"),
			Code:      ticket.String("RMXD445N51N"),
			Slump:     ticket.String("150+-30"),
		},
		MixAdditional1: &ticket.MixRow{
			Qty:   ticket.String("6.00"),
			Descr: ticket.String("CORINH"),
			Code:  ticket.String("907489"),
		},
		ExtraCharges: []ticket.ExtraCharge{
			{Description: ticket.String("SEASONAL/MANUTE (PER M3)"), Qty: ticket.String("6.00")},
			{Description: ticket.String("SITE WASH"), Qty: ticket.String("1.00")},
		},
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"8812345", "8812345"},
		{"88/123 45", "88_123_45"},
		{"  TK-9 (a)  ", "TK-9_a"},
		{"a//b", "a_b"},
		{"///", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := SanitizeFilename(tc.in); got != tc.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestWriteTicketJSON(t *testing.T) {
	dir := t.TempDir()
	svc := testService()

	path, err := svc.WriteTicketJSON(dir, TicketPage{Ticket: sampleTicket(), Page: 1, SourceFile: "tickets.pdf"})
	if err != nil {
		t.Fatalf("WriteTicketJSON: %v", err)
	}
	if filepath.Base(path) != "8812345.json" {
		t.Errorf("filename = %s, want 8812345.json", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	got, err := ticket.Decode(data)
	if err != nil {
		t.Fatalf("decode written file: %v", err)
	}
	if ticket.Str(got.TicketNo) != "8812345" {
		t.Errorf("round-trip ticket no = %q", ticket.Str(got.TicketNo))
	}
	if len(got.ExtraCharges) != 2 {
		t.Errorf("round-trip charges = %d, want 2", len(got.ExtraCharges))
	}
}

func TestWriteTicketJSONFallsBackToPage(t *testing.T) {
	dir := t.TempDir()
	svc := testService()

	tk := sampleTicket()
	tk.TicketNo = nil
	path, err := svc.WriteTicketJSON(dir, TicketPage{Ticket: tk, Page: 7})
	if err != nil {
		t.Fatalf("WriteTicketJSON: %v", err)
	}
	if filepath.Base(path) != "page_007.json" {
		t.Errorf("filename = %s, want page_007.json", filepath.Base(path))
	}
}

func TestBuildWorkbookXLSX(t *testing.T) {
	svc := testService()
	pages := []TicketPage{{Ticket: sampleTicket(), Page: 1, SourceFile: "tickets.pdf"}}

	buf, err := svc.BuildWorkbookXLSX(pages, WorkbookOptions{Location: "Tower A", Level: "3"})
	if err != nil {
		t.Fatalf("BuildWorkbookXLSX: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("LineItems")
	if err != nil {
		t.Fatalf("GetRows LineItems: %v", err)
	}
	if len(rows) == 0 {
		t.Fatalf("LineItems sheet is empty")
	}
	for i, want := range LineItemColumns {
		if i >= len(rows[0]) || rows[0][i] != want {
			t.Fatalf("LineItems header = %v, want %v", rows[0], LineItemColumns)
		}
	}

	// customer + additional1 + two charges
	if len(rows) != 5 {
		t.Fatalf("LineItems rows = %d, want 5 (header + 4 items)", len(rows))
	}
	customer := rows[1]
	if customer[0] != "Mix Customer" || customer[1] != "35MPA NA 20MM HR" {
		t.Errorf("customer row = %v", customer)
	}
	if customer[2] != "6" {
		t.Errorf("customer qty cell = %q, want numeric 6", customer[2])
	}
	if customer[3] != "m3" || customer[6] != "Tower A" || customer[7] != "3" || customer[8] != "8812345" {
		t.Errorf("customer row annotations = %v", customer)
	}
	charge := rows[3]
	if charge[0] != "Extra Charge" || charge[1] != "SEASONAL/MANUTE (PER M3)" || charge[3] != "ea" {
		t.Errorf("charge row = %v", charge)
	}

	tickets, err := f.GetRows("Tickets")
	if err != nil {
		t.Fatalf("GetRows Tickets: %v", err)
	}
	if len(tickets) != 2 {
		t.Fatalf("Tickets rows = %d, want 2", len(tickets))
	}
	if tickets[1][0] != "8812345" || tickets[1][7] != "RMXD445N51N" {
		t.Errorf("ticket summary row = %v", tickets[1])
	}
}

func TestBuildWorkbookSkipsNilAndEmpty(t *testing.T) {
	svc := testService()
	tk := sampleTicket()
	tk.MixAdditional1 = &ticket.MixRow{Qty: ticket.String("6.00")} // no description at all
	tk.ExtraCharges = nil
	pages := []TicketPage{
		{Ticket: tk, Page: 1},
		{Ticket: nil, Page: 2},
	}

	buf, err := svc.BuildWorkbookXLSX(pages, WorkbookOptions{})
	if err != nil {
		t.Fatalf("BuildWorkbookXLSX: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("LineItems")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	// only the customer row survives
	if len(rows) != 2 {
		t.Fatalf("LineItems rows = %d, want 2", len(rows))
	}
}
