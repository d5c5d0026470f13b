package ticket

import (
	"encoding/json"
	"fmt"

	"github.com/devinhayward/concrete-tickets/constants"
	"github.com/devinhayward/concrete-tickets/internal/common"
)

// Decode parses one JSON object into a Ticket. The mapping is pure shape:
// unknown keys are ignored, missing or null optionals come back nil, and no
// value normalization happens here. Malformed JSON, a wrong field type, or a
// missing customer mix row all fail with ErrDecodeFailed.
func Decode(data []byte) (*Ticket, error) {
	var t Ticket
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecodeFailed, err)
	}
	if t.MixCustomer == nil {
		return nil, fmt.Errorf("%w: missing %q object", common.ErrDecodeFailed, constants.FieldMixCustomer)
	}
	return &t, nil
}

// Encode renders t back to JSON with fields in page order and null for
// absent optionals.
func Encode(t *Ticket) ([]byte, error) {
	out, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode ticket: %w", err)
	}
	return out, nil
}

// EncodeIndent is Encode with two-space indentation, for files meant to be
// read by people.
func EncodeIndent(t *Ticket) ([]byte, error) {
	out, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode ticket: %w", err)
	}
	return out, nil
}
