package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/devinhayward/concrete-tickets/internal/common"
	"github.com/devinhayward/concrete-tickets/internal/extract"
	"github.com/devinhayward/concrete-tickets/internal/ticket"
)

// RepairTicket runs one repair round: the base ticket and its validation
// issues go back to the model, the returned patch object is deep-merged into
// the base, and the result is sanitized and re-decoded. The caller
// re-validates; this function only guarantees a well-formed ticket.
func RepairTicket(ctx context.Context, c Completer, base *ticket.Ticket, issues []ticket.Issue, logger *slog.Logger) (*ticket.Ticket, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
	}
	start := time.Now()

	baseJSON, err := ticket.Encode(base)
	if err != nil {
		return nil, common.WrapError(err, "encode base ticket")
	}

	issueText := make([]string, len(issues))
	for i, is := range issues {
		issueText[i] = is.String()
	}
	logger.Info("llm.repair.start",
		"req_id", rid,
		"ticket_no", ticket.Str(base.TicketNo),
		"issues", issueText,
	)

	out, err := c.Complete(ctx, BuildRepairPrompt(baseJSON, issueText))
	if err != nil {
		logger.Error("llm.repair.complete_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("%w: %v", common.ErrRepairFailed, err)
	}

	objects := extract.JSONObjects(out)
	if len(objects) == 0 {
		logger.Error("llm.repair.no_patch",
			"req_id", rid, "response_len", len(out),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("%w: response contained no patch object", common.ErrRepairFailed)
	}

	var patch map[string]any
	if err := json.Unmarshal([]byte(objects[0]), &patch); err != nil {
		return nil, fmt.Errorf("%w: patch not an object: %v", common.ErrRepairFailed, err)
	}
	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return nil, common.WrapError(err, "decode base ticket")
	}

	mergedJSON, err := json.Marshal(deepMerge(baseMap, patch))
	if err != nil {
		return nil, common.WrapError(err, "encode merged ticket")
	}
	cleaned, _, err := ticket.SanitizeTicketJSON(mergedJSON, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrRepairFailed, err)
	}
	repaired, err := ticket.Decode(cleaned)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrRepairFailed, err)
	}

	logger.Info("llm.repair.ok",
		"req_id", rid,
		"ticket_no", ticket.Str(repaired.TicketNo),
		"patched_keys", len(patch),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return repaired, nil
}

// deepMerge folds patch into base. Nested objects merge recursively;
// scalars, arrays, and nulls from the patch replace the base value outright.
func deepMerge(base, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, pv := range patch {
		pm, patchIsObj := pv.(map[string]any)
		bm, baseIsObj := out[k].(map[string]any)
		if patchIsObj && baseIsObj {
			out[k] = deepMerge(bm, pm)
			continue
		}
		out[k] = pv
	}
	return out
}
