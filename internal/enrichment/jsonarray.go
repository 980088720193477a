package enrichment

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Record is one loosely typed element of a model-produced JSON array.
type Record = map[string]any

var codeFence = regexp.MustCompile("(?i)```(?:json)?\\s*")

// ParseJSONArray extracts a JSON array of objects from noisy model output.
// It never fails: unrecoverable input yields an empty slice.
func ParseJSONArray(text string) []Record {
	records, _ := parseJSONArray(text)
	return records
}

// ExtractJSONArray is the strict variant. Text without any '[' yields an
// empty slice; an array span that cannot be recovered yields ErrUnparseable.
func ExtractJSONArray(text string) ([]Record, error) {
	records, ok := parseJSONArray(text)
	if !ok {
		return nil, ErrUnparseable
	}
	return records, nil
}

// parseJSONArray reports ok=false only when an array span was found but
// could not be decoded.
func parseJSONArray(text string) ([]Record, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []Record{}, true
	}

	if records, ok := decodeArray(text); ok {
		return records, true
	}

	cleaned := codeFence.ReplaceAllString(text, "")
	start := strings.Index(cleaned, "[")
	if start < 0 {
		return []Record{}, true
	}
	span := cleaned[start:]
	if end := strings.LastIndex(span, "]"); end > 0 {
		span = span[:end+1]
	}

	if records, ok := decodeArray(span); ok {
		return records, true
	}

	// Truncated output: cut at the last complete element and close the array.
	if cut := strings.LastIndex(span, "},"); cut > 0 {
		if records, ok := decodeArray(span[:cut+1] + "]"); ok {
			return records, true
		}
	}

	// The span may have ended inside the final element with no separator left.
	if records, ok := decodeArray(strings.TrimSpace(span) + "]"); ok {
		return records, true
	}

	return []Record{}, false
}

// decodeArray parses s as a JSON array, dropping elements that are not objects.
func decodeArray(s string) ([]Record, bool) {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, false
	}
	records := make([]Record, 0, len(raw))
	for _, item := range raw {
		var rec Record
		if err := json.Unmarshal(item, &rec); err != nil || rec == nil {
			continue
		}
		records = append(records, rec)
	}
	return records, true
}
