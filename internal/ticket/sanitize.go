package ticket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/devinhayward/concrete-tickets/constants"
)

// SanitizeTicketJSON
// - Renames known label synonyms ("Ticket No" -> "Ticket No.")
// - Coerces numeric values to strings for Qty / Slump / Ticket No.
// - Wraps a single extra-charge object into the expected array
// - Removes unknown keys at every level (strict additionalProperties = false friendliness)
// Returns the cleaned JSON plus a note per adjustment.
func SanitizeTicketJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 8)
	rename := func(obj map[string]any, from, to string) {
		if v, ok := obj[from]; ok {
			if _, exists := obj[to]; !exists {
				obj[to] = v
			}
			delete(obj, from)
			dropped = append(dropped, from+"->"+to)
		}
	}

	// 1) rename top-level synonyms the model drifts into
	rename(m, "Ticket No", constants.FieldTicketNo)
	rename(m, "Ticket Number", constants.FieldTicketNo)
	rename(m, "TicketNo", constants.FieldTicketNo)
	rename(m, "Extra Charge", constants.FieldExtraCharges)

	// 2) a lone extra-charge object becomes a one-element array
	if v, ok := m[constants.FieldExtraCharges]; ok {
		if obj, isObj := v.(map[string]any); isObj {
			m[constants.FieldExtraCharges] = []any{obj}
			dropped = append(dropped, constants.FieldExtraCharges+"(wrapped)")
		}
	}

	// 3) coerce and prune the mix rows
	for _, key := range []string{constants.FieldMixCustomer, constants.FieldMixAdditional1, constants.FieldMixAdditional2} {
		row, ok := m[key].(map[string]any)
		if !ok {
			continue
		}
		rename(row, "Cust Descr", constants.FieldCustDescr)
		rename(row, "Cust. Descr", constants.FieldCustDescr)
		rename(row, "Customer Description", constants.FieldCustDescr)
		rename(row, "Desc", constants.FieldDescription)

		coerceString(row, constants.FieldQty, "%.2f", &dropped)
		coerceString(row, constants.FieldSlump, "%.0f", &dropped)

		allowed := map[string]struct{}{
			constants.FieldQty: {}, constants.FieldCustDescr: {}, constants.FieldDescription: {},
			constants.FieldCode: {}, constants.FieldSlump: {},
		}
		pruneUnknown(row, allowed, key, &dropped)
	}

	// 4) coerce the extra-charge entries
	if arr, ok := m[constants.FieldExtraCharges].([]any); ok {
		for _, item := range arr {
			charge, isObj := item.(map[string]any)
			if !isObj {
				continue
			}
			rename(charge, "Desc", constants.FieldDescription)
			coerceString(charge, constants.FieldQty, "%.2f", &dropped)
			allowed := map[string]struct{}{
				constants.FieldDescription: {}, constants.FieldQty: {},
			}
			pruneUnknown(charge, allowed, constants.FieldExtraCharges, &dropped)
		}
	}

	// 5) the ticket number is a label, never a number
	coerceString(m, constants.FieldTicketNo, "%.0f", &dropped)

	// 6) remove unknown top-level keys
	allowed := map[string]struct{}{
		constants.FieldTicketNo: {}, constants.FieldDeliveryDate: {}, constants.FieldDeliveryTime: {},
		constants.FieldDeliveryAddress: {}, constants.FieldMixCustomer: {}, constants.FieldMixAdditional1: {},
		constants.FieldMixAdditional2: {}, constants.FieldExtraCharges: {},
	}
	pruneUnknown(m, allowed, "", &dropped)

	// 7) trim the scalar strings
	for _, k := range []string{constants.FieldTicketNo, constants.FieldDeliveryDate, constants.FieldDeliveryTime} {
		if v, ok := m[k].(string); ok {
			m[k] = strings.TrimSpace(v)
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("ticket.sanitize", "adjusted", dropped)
	}
	return out, dropped, nil
}

// coerceString rewrites a numeric value under key as a string using format.
// Whole numbers never pick up a fake decimal tail.
func coerceString(obj map[string]any, key, format string, dropped *[]string) {
	v, ok := obj[key]
	if !ok {
		return
	}
	switch t := v.(type) {
	case float64:
		if t == float64(int64(t)) {
			obj[key] = fmt.Sprintf("%d", int64(t))
		} else {
			obj[key] = fmt.Sprintf(format, t)
		}
		*dropped = append(*dropped, key+"(number)")
	case string, nil:
	default:
		delete(obj, key)
		*dropped = append(*dropped, key+"(type)")
	}
}

func pruneUnknown(obj map[string]any, allowed map[string]struct{}, scope string, dropped *[]string) {
	for k := range maps.Clone(obj) {
		if _, ok := allowed[k]; ok {
			continue
		}
		delete(obj, k)
		label := k
		if scope != "" {
			label = scope + "." + k
		}
		*dropped = append(*dropped, label+"(unknown)")
	}
}
