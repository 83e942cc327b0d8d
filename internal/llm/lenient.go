package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"strconv"
	"strings"
)

const (
	plainTextConfidence     = 0.8
	parseFallbackConfidence = 0.7
)

// dataSynonyms are keys models use instead of "data".
var dataSynonyms = []string{"results", "items", "rows", "records", "extracted_data"}

// ParseResponse turns a model reply into ExtractedData. It never fails: a reply without a JSON object
// becomes one {"content": text} row, and an object that cannot be repaired falls back the same way.
func ParseResponse(text string, schema map[string]any, logger *slog.Logger) ExtractedData {
	if logger == nil {
		logger = slog.Default()
	}
	text = strings.TrimSpace(text)

	span, ok := jsonObjectSpan(text)
	if !ok {
		return ExtractedData{
			Data:       []map[string]any{{"content": text}},
			Summary:    "Processed successfully",
			Confidence: plainTextConfidence,
			Notes:      "Response returned as plain text",
		}
	}

	fallback := func(reason error) ExtractedData {
		logger.Warn("llm.parse.fallback", "error", reason, "reply_chars", len(text))
		return ExtractedData{
			Data:       []map[string]any{{"content": text}},
			Summary:    "Processed with parsing fallback",
			Confidence: parseFallbackConfidence,
			Notes:      "Could not parse structured response",
		}
	}

	cleaned, dropped, err := NormalizeResponse([]byte(span))
	if err != nil {
		return fallback(err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.parse.normalized", "dropped", dropped)
	}
	if schema != nil {
		if err := ValidateJSONAgainstSchema(schema, cleaned); err != nil {
			return fallback(err)
		}
	}

	var out ExtractedData
	if err := json.Unmarshal(cleaned, &out); err != nil {
		return fallback(err)
	}
	if out.Data == nil {
		out.Data = []map[string]any{}
	}
	return out
}

// jsonObjectSpan returns the text from the first '{' to the last '}'.
func jsonObjectSpan(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// NormalizeResponse
// - Renames data synonyms (results, items, rows ...) to "data"
// - Wraps a single object in a list; scalar rows become {"value": x}
// - Coerces confidence to a number in [0,1]
// - Drops nulls and unknown top-level keys
func NormalizeResponse(raw []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("normalize: decode: %w", err)
	}

	var dropped []string
	if _, ok := m["data"]; !ok {
		for _, k := range dataSynonyms {
			if v, ok := m[k]; ok {
				m["data"] = v
				delete(m, k)
				dropped = append(dropped, k+"->data")
				break
			}
		}
	}

	switch v := m["data"].(type) {
	case nil:
		m["data"] = []any{}
	case map[string]any:
		m["data"] = []any{v}
	case []any:
		rows := make([]any, 0, len(v))
		for _, el := range v {
			switch t := el.(type) {
			case nil:
				dropped = append(dropped, "data[](null)")
			case map[string]any:
				rows = append(rows, t)
			default:
				rows = append(rows, map[string]any{"value": t})
			}
		}
		m["data"] = rows
	default:
		m["data"] = []any{map[string]any{"value": v}}
	}

	if v, ok := m["confidence"]; ok {
		if c, ok := coerceConfidence(v); ok {
			m["confidence"] = c
		} else {
			delete(m, "confidence")
			dropped = append(dropped, "confidence(type)")
		}
	}

	for _, k := range []string{"summary", "notes"} {
		switch v := m[k].(type) {
		case nil:
			if _, ok := m[k]; ok {
				delete(m, k)
				dropped = append(dropped, k+"(null)")
			}
		case string:
			m[k] = strings.TrimSpace(v)
		default:
			b, _ := json.Marshal(v)
			m[k] = string(b)
		}
	}

	allowed := map[string]struct{}{"data": {}, "summary": {}, "confidence": {}, "notes": {}}
	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}
	sort.Strings(dropped)

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("normalize: encode: %w", err)
	}
	return out, dropped, nil
}

// coerceConfidence accepts numbers and numeric strings, reads values in (1,100] as percentages,
// and clamps the result to [0,1].
func coerceConfidence(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(t), "%")
		p, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if f > 1 && f <= 100 {
		f /= 100
	}
	switch {
	case f < 0:
		f = 0
	case f > 1:
		f = 1
	}
	return f, true
}
