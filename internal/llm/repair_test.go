package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/devinhayward/concrete-tickets/internal/common"
	"github.com/devinhayward/concrete-tickets/internal/ticket"
)

type stubCompleter struct {
	response string
	err      error
	prompts  []Prompt
}

func (s *stubCompleter) Complete(_ context.Context, p Prompt) (string, error) {
	s.prompts = append(s.prompts, p)
	return s.response, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func baseTicket() *ticket.Ticket {
	return &ticket.Ticket{
		TicketNo: ticket.String("8812345"),
		MixCustomer: &ticket.MixRow{
			Qty:   ticket.String("lots"),
			Code:  ticket.String("RMXD445N51N"),
			Slump: ticket.String("150+-30"),
		},
	}
}

func qtyIssue() []ticket.Issue {
	return []ticket.Issue{{Path: "Mix Customer.Qty", Message: "not a quantity"}}
}

func TestRepairTicketAppliesPatch(t *testing.T) {
	stub := &stubCompleter{
		response: `Here is the fix: {"Mix Customer": {"Qty": "9.0 m3"}}`,
	}

	repaired, err := RepairTicket(context.Background(), stub, baseTicket(), qtyIssue(), discardLogger())
	if err != nil {
		t.Fatalf("repair: %v", err)
	}

	if got := ticket.Str(repaired.MixCustomer.Qty); got != "9.0 m3" {
		t.Errorf("qty = %q, want patched value", got)
	}
	// Untouched fields survive the merge.
	if got := ticket.Str(repaired.MixCustomer.Code); got != "RMXD445N51N" {
		t.Errorf("code = %q, want base value preserved", got)
	}
	if got := ticket.Str(repaired.TicketNo); got != "8812345" {
		t.Errorf("ticket no = %q, want base value preserved", got)
	}
}

func TestRepairTicketSendsIssues(t *testing.T) {
	stub := &stubCompleter{response: `{"Mix Customer": {"Qty": "9.0 m3"}}`}

	if _, err := RepairTicket(context.Background(), stub, baseTicket(), qtyIssue(), discardLogger()); err != nil {
		t.Fatalf("repair: %v", err)
	}
	if len(stub.prompts) != 1 {
		t.Fatalf("got %d prompts, want 1", len(stub.prompts))
	}
	if got := stub.prompts[0].User; !strings.Contains(got, "Mix Customer.Qty: not a quantity") {
		t.Errorf("prompt missing issue text:\n%s", got)
	}
}

func TestRepairTicketNoPatchObject(t *testing.T) {
	stub := &stubCompleter{response: "sorry, I cannot help with that"}

	_, err := RepairTicket(context.Background(), stub, baseTicket(), qtyIssue(), discardLogger())
	if !errors.Is(err, common.ErrRepairFailed) {
		t.Errorf("err = %v, want ErrRepairFailed", err)
	}
}

func TestRepairTicketCompleterError(t *testing.T) {
	stub := &stubCompleter{err: errors.New("boom")}

	_, err := RepairTicket(context.Background(), stub, baseTicket(), qtyIssue(), discardLogger())
	if !errors.Is(err, common.ErrRepairFailed) {
		t.Errorf("err = %v, want ErrRepairFailed", err)
	}
}

func TestRepairTicketPatchDropsCustomerRow(t *testing.T) {
	// A patch nulling the customer row leaves an undecodable ticket.
	stub := &stubCompleter{response: `{"Mix Customer": null}`}

	_, err := RepairTicket(context.Background(), stub, baseTicket(), qtyIssue(), discardLogger())
	if !errors.Is(err, common.ErrRepairFailed) {
		t.Errorf("err = %v, want ErrRepairFailed", err)
	}
}

func TestDeepMerge(t *testing.T) {
	base := map[string]any{
		"a": "1",
		"b": map[string]any{"x": "keep", "y": "old"},
		"c": []any{"one", "two"},
	}
	patch := map[string]any{
		"b": map[string]any{"y": "new"},
		"c": []any{"three"},
		"d": "added",
	}

	got := deepMerge(base, patch)

	want := map[string]any{
		"a": "1",
		"b": map[string]any{"x": "keep", "y": "new"},
		"c": []any{"three"},
		"d": "added",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("deepMerge = %v, want %v", got, want)
	}
	// The base map itself is left alone.
	if base["b"].(map[string]any)["y"] != "old" {
		t.Error("deepMerge mutated its input")
	}
}
