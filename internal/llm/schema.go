package llm

// BuildExtractionSchema returns a JSON-Schema (draft 2020-12 subset) for the reply. Template fields
// become known properties of each data row; rows may still carry extra keys.
func BuildExtractionSchema(fields []string) map[string]any {
	row := map[string]any{"type": "object"}
	if len(fields) > 0 {
		props := make(map[string]any, len(fields))
		for _, f := range fields {
			props[f] = map[string]any{"type": []string{"string", "number", "integer", "boolean", "array", "object"}}
		}
		row["properties"] = props
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"data":       map[string]any{"type": "array", "items": row},
			"summary":    map[string]any{"type": "string"},
			"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			"notes":      map[string]any{"type": "string"},
		},
		"required": []string{"data"},
	}
}
