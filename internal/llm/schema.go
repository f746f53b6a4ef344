package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/receipts-bot/internal/layout"
)

// BuildReceiptJSONSchema returns the shape a sanitized response must have for the layout.
// Every key is optional; money is a decimal string, everything else a string.
func BuildReceiptJSONSchema(l layout.Layout, allowedCategories []string) map[string]any {
	props := make(map[string]any, len(l.Fields))
	for _, f := range l.Fields {
		if f.Money {
			props[f.Key] = decimalProp()
			continue
		}
		props[f.Key] = map[string]any{"type": "string"}
	}
	if _, ok := props["currency"]; ok {
		props["currency"] = map[string]any{"type": "string", "maxLength": 3}
	}
	if _, ok := props["date"]; ok {
		props["date"] = map[string]any{"type": "string"}
	}
	if len(allowedCategories) > 0 {
		props["category"] = map[string]any{"type": "string", "enum": allowedCategories}
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

func decimalProp() map[string]any {
	return map[string]any{
		"type":    "string",
		"pattern": `^-?\d+(\.\d{1,2})?$`,
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
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
