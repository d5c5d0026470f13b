package ticket

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sanitizeToMap(t *testing.T, raw string) (map[string]any, []string) {
	t.Helper()
	out, dropped, err := SanitizeTicketJSON([]byte(raw), discardLogger())
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(out, &m); err != nil {
		t.Fatalf("unmarshal sanitized: %v", err)
	}
	return m, dropped
}

func TestSanitizeRenamesSynonyms(t *testing.T) {
	m, dropped := sanitizeToMap(t, `{
		"Ticket No": "8812345",
		"Mix Customer": {"Cust Descr": "STANDARD 35MPA", "Desc": "35MPA"}
	}`)

	if got := m["Ticket No."]; got != "8812345" {
		t.Errorf("Ticket No. = %v, want %q", got, "8812345")
	}
	if _, stale := m["Ticket No"]; stale {
		t.Error("old key left behind after rename")
	}
	row := m["Mix Customer"].(map[string]any)
	if got := row["Cust. Descr."]; got != "STANDARD 35MPA" {
		t.Errorf("Cust. Descr. = %v, want %q", got, "STANDARD 35MPA")
	}
	if got := row["Description"]; got != "35MPA" {
		t.Errorf("Description = %v, want %q", got, "35MPA")
	}
	if len(dropped) == 0 {
		t.Error("renames not recorded")
	}
}

func TestSanitizeCoercesNumbers(t *testing.T) {
	m, _ := sanitizeToMap(t, `{
		"Ticket No.": 8812345,
		"Mix Customer": {"Qty": 9, "Slump": 150},
		"Extra Charges": [{"Description": "PUMP FEE", "Qty": 1.5}]
	}`)

	if got := m["Ticket No."]; got != "8812345" {
		t.Errorf("Ticket No. = %v (%T), want string %q", got, got, "8812345")
	}
	row := m["Mix Customer"].(map[string]any)
	if got := row["Qty"]; got != "9" {
		t.Errorf("Qty = %v, want %q", got, "9")
	}
	if got := row["Slump"]; got != "150" {
		t.Errorf("Slump = %v, want %q", got, "150")
	}
	chg := m["Extra Charges"].([]any)[0].(map[string]any)
	if got := chg["Qty"]; got != "1.50" {
		t.Errorf("charge Qty = %v, want %q", got, "1.50")
	}
}

func TestSanitizeWrapsSingleCharge(t *testing.T) {
	m, _ := sanitizeToMap(t, `{
		"Ticket No.": "1",
		"Mix Customer": {},
		"Extra Charges": {"Description": "SITE WASH", "Qty": "1.00"}
	}`)

	arr, ok := m["Extra Charges"].([]any)
	if !ok {
		t.Fatalf("Extra Charges = %T, want array", m["Extra Charges"])
	}
	if len(arr) != 1 {
		t.Fatalf("got %d charges, want 1", len(arr))
	}
	if got := arr[0].(map[string]any)["Description"]; got != "SITE WASH" {
		t.Errorf("Description = %v, want %q", got, "SITE WASH")
	}
}

func TestSanitizePrunesUnknownKeys(t *testing.T) {
	m, dropped := sanitizeToMap(t, `{
		"Ticket No.": "1",
		"Page": 3,
		"Mix Customer": {"Qty": "9.0 m3", "Rate": 180},
		"Extra Charges": [{"Description": "PUMP", "Qty": "1.00", "Amount": 90}]
	}`)

	if _, ok := m["Page"]; ok {
		t.Error("unknown top-level key survived")
	}
	row := m["Mix Customer"].(map[string]any)
	if _, ok := row["Rate"]; ok {
		t.Error("unknown row key survived")
	}
	chg := m["Extra Charges"].([]any)[0].(map[string]any)
	if _, ok := chg["Amount"]; ok {
		t.Error("unknown charge key survived")
	}
	if len(dropped) == 0 {
		t.Error("prunes not recorded")
	}
}

func TestSanitizeDropsUncoercibleValues(t *testing.T) {
	m, _ := sanitizeToMap(t, `{
		"Ticket No.": "1",
		"Mix Customer": {"Qty": true}
	}`)

	row := m["Mix Customer"].(map[string]any)
	if _, ok := row["Qty"]; ok {
		t.Errorf("Qty = %v, want dropped", row["Qty"])
	}
}

func TestSanitizeTrimsScalars(t *testing.T) {
	m, _ := sanitizeToMap(t, `{
		"Ticket No.": "  8812345 ",
		"Delivery Date": " Tue, Nov 4 2025 ",
		"Mix Customer": {}
	}`)

	if got := m["Ticket No."]; got != "8812345" {
		t.Errorf("Ticket No. = %q, want trimmed", got)
	}
	if got := m["Delivery Date"]; got != "Tue, Nov 4 2025" {
		t.Errorf("Delivery Date = %q, want trimmed", got)
	}
}

func TestSanitizeMalformedInput(t *testing.T) {
	if _, _, err := SanitizeTicketJSON([]byte(`{"Ticket No.":`), discardLogger()); err == nil {
		t.Error("want error for malformed input")
	}
}
