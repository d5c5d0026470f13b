// Package pipeline turns raw page text into validated delivery tickets and
// drives the per-file extraction flow around it: ingest, job bookkeeping,
// model calls, reconciliation, archiving and export.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/devinhayward/concrete-tickets/constants"
	"github.com/devinhayward/concrete-tickets/internal/common"
	"github.com/devinhayward/concrete-tickets/internal/extract"
	"github.com/devinhayward/concrete-tickets/internal/llm"
	"github.com/devinhayward/concrete-tickets/internal/ticket"
)

// Config carries the per-page knobs of the extraction pipeline.
type Config struct {
	// IgnoreFields holds validation paths that do not block a ticket at the
	// final gate. Issues on these paths are still logged.
	IgnoreFields map[string]struct{}
	// RepairRounds caps the model repair rounds per page. Zero means the
	// default of one; negative disables repair.
	RepairRounds int
}

// Pipeline extracts one ticket from one page of text. It is stateless and
// safe for concurrent use as long as the Completer is.
type Pipeline struct {
	Logger    *slog.Logger
	Cfg       Config
	Completer llm.Completer
}

// NewPipeline wires a page pipeline. A nil logger falls back to slog.Default.
func NewPipeline(logger *slog.Logger, cfg Config, completer llm.Completer) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RepairRounds == 0 {
		cfg.RepairRounds = 1
	}
	return &Pipeline{Logger: logger, Cfg: cfg, Completer: completer}
}

// PageResult is the outcome of a successfully processed page.
type PageResult struct {
	Ticket *ticket.Ticket
	// Issues holds every validation finding before the ignore list is
	// applied, so callers can report waived problems too.
	Issues   []ticket.Issue
	Repaired bool
}

// ProcessPage runs the full extraction flow for a single page of ticket text:
// deterministic section parsing, one model call, sanitize/decode, hint
// reconciliation, extra-charge merge, normalization and validation, with up
// to Cfg.RepairRounds repair rounds when the validation gate fails.
func (p *Pipeline) ProcessPage(ctx context.Context, pageText string) (*PageResult, error) {
	start := time.Now()
	reqID := uuid.New().String()
	ctx = common.WithRequestID(ctx, reqID)

	mixSection := extract.Section(pageText, constants.MixStartMarkers, constants.MixEndMarkers)
	rows := extract.SplitMixRows(extract.MixTable(mixSection))
	hints := extract.RowHints(rows, strings.Split(mixSection, "\n"))

	chargeSection := extract.Section(pageText, constants.ExtraChargesStartMarkers, constants.ExtraChargesEndMarkers)
	charges := extract.ExtraChargeLines(chargeSection)

	p.Logger.Debug("pipeline.page.sections",
		"req_id", reqID,
		"mix_rows", len(rows),
		"row_hints", len(hints),
		"parsed_charges", len(charges))

	out, err := p.Completer.Complete(ctx, llm.BuildExtractPrompt(pageText))
	if err != nil {
		return nil, fmt.Errorf("llm complete: %w", err)
	}

	t, err := p.decodeFirst(out)
	if err != nil {
		return nil, err
	}

	ticket.ApplyHints(t, hints)
	ticket.MergeExtraCharges(t, charges)
	ticket.Normalize(t)

	issues := ticket.Validate(t, nil)
	for _, is := range issues {
		p.Logger.Warn("pipeline.page.issue", "req_id", reqID, "path", is.Path, "message", is.Message)
	}

	repaired := false
	gate := ticket.Validate(t, p.Cfg.IgnoreFields)
	for round := 0; round < p.Cfg.RepairRounds && len(gate) > 0; round++ {
		fixed, err := llm.RepairTicket(ctx, p.Completer, t, gate, p.Logger)
		if err != nil {
			return nil, err
		}
		ticket.Normalize(fixed)
		t = fixed
		repaired = true
		gate = ticket.Validate(t, p.Cfg.IgnoreFields)
	}
	if len(gate) > 0 {
		return nil, common.NewAppError("TICKET_VALIDATE", issueSummary(gate), common.ErrValidationFailed)
	}

	p.Logger.Info("pipeline.page.ok",
		"req_id", reqID,
		"ticket_no", ticket.Str(t.TicketNo),
		"repaired", repaired,
		"elapsed_ms", time.Since(start).Milliseconds())

	return &PageResult{Ticket: t, Issues: issues, Repaired: repaired}, nil
}

// decodeFirst walks the JSON candidates in the model output and returns the
// first one that survives sanitize + decode. Candidates that drift from the
// ticket schema are logged but not rejected.
func (p *Pipeline) decodeFirst(out string) (*ticket.Ticket, error) {
	objs := extract.JSONObjects(out)
	if len(objs) == 0 {
		return nil, common.NewAppError("NO_JSON", "model output contains no JSON object", common.ErrNoJSONFound)
	}

	var lastErr error
	for _, obj := range objs {
		sanitized, _, err := ticket.SanitizeTicketJSON([]byte(obj), p.Logger)
		if err != nil {
			lastErr = err
			continue
		}
		// Schema violations are not fatal here: a missing field surfaces
		// again at validation and feeds the repair round.
		if err := ticket.ValidateTicketJSON(sanitized); err != nil {
			p.Logger.Warn("pipeline.page.schema", "err", err)
		}
		t, err := ticket.Decode(sanitized)
		if err != nil {
			lastErr = err
			continue
		}
		return t, nil
	}
	return nil, fmt.Errorf("%w: %v", common.ErrDecodeFailed, lastErr)
}

func issueSummary(issues []ticket.Issue) string {
	msgs := make([]string, 0, len(issues))
	for _, is := range issues {
		msgs = append(msgs, is.String())
	}
	return strings.Join(msgs, "; ")
}
