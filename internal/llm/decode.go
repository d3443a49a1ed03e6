package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SchemaError marks provider output that failed strict structured decoding.
// Raw carries a truncated copy of the offending output for diagnostics.
type SchemaError struct {
	Raw string
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("llm output failed schema decode: %v (raw: %s)", e.Err, e.Raw)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// DecodeStructured strictly decodes a structured completion into v. Unknown
// fields are rejected so drifting provider output surfaces as a SchemaError
// instead of silently dropping data. Markdown code fences around the JSON are
// tolerated since some models emit them even under response_format.
func DecodeStructured(raw string, v interface{}) error {
	payload := stripCodeFence(raw)

	dec := json.NewDecoder(strings.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &SchemaError{Raw: truncate(payload, rawErrorLimit), Err: err}
	}
	return nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
