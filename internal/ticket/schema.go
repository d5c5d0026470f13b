package ticket

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/devinhayward/concrete-tickets/constants"
)

// BuildTicketJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. We embed it in the extraction prompt so the model echoes the
// exact field names, and check candidate objects against it before decoding
// to spot shape drift.
func BuildTicketJSONSchema() map[string]any {
	props := map[string]any{
		constants.FieldTicketNo:        map[string]any{"type": "string", "minLength": 1},
		constants.FieldDeliveryDate:    stringOrNull(),
		constants.FieldDeliveryTime:    stringOrNull(),
		constants.FieldDeliveryAddress: stringOrNull(),
		constants.FieldMixCustomer:     mixRowSchema(false),
		constants.FieldMixAdditional1:  mixRowSchema(true),
		constants.FieldMixAdditional2:  mixRowSchema(true),
		constants.FieldExtraCharges: map[string]any{
			"type": []string{"array", "null"},
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					constants.FieldDescription: stringOrNull(),
					constants.FieldQty:         stringOrNull(),
				},
			},
		},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             []string{constants.FieldTicketNo, constants.FieldMixCustomer},
	}
}

func mixRowSchema(nullable bool) map[string]any {
	schema := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			constants.FieldQty:         stringOrNull(),
			constants.FieldCustDescr:   stringOrNull(),
			constants.FieldDescription: stringOrNull(),
			constants.FieldCode:        stringOrNull(),
			constants.FieldSlump:       stringOrNull(),
		},
	}
	if nullable {
		schema["type"] = []string{"object", "null"}
	}
	return schema
}

func stringOrNull() map[string]any {
	return map[string]any{"type": []string{"string", "null"}}
}

// ValidateTicketJSON validates data against the ticket schema.
func ValidateTicketJSON(data []byte) error {
	b, err := json.Marshal(BuildTicketJSONSchema())
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
