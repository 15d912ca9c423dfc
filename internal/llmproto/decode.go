package llmproto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// decode parses raw LLM text against contract name into T, the same
// single-JSON-object-only, no-unknown-fields discipline as the teacher's
// llmcontracts.Validate. Any violation returns an error; callers treat
// that as a StageFailure and fall back deterministically (spec.md §7).
func decode[T any](name ContractName, raw string) (T, error) {
	var zero T
	if !HasContract(name) {
		return zero, fmt.Errorf("unknown contract: %s", name)
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return zero, fmt.Errorf("empty LLM response")
	}

	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.DisallowUnknownFields()

	var out T
	if err := dec.Decode(&out); err != nil {
		return zero, fmt.Errorf("decode %s: %w", name, err)
	}
	if err := ensureSingleJSON(dec); err != nil {
		return zero, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func ensureSingleJSON(dec *json.Decoder) error {
	var extra json.RawMessage
	if err := dec.Decode(&extra); err != nil && err != io.EOF {
		return fmt.Errorf("trailing data after JSON: %w", err)
	}
	if len(bytes.TrimSpace(extra)) > 0 {
		return fmt.Errorf("trailing data after JSON")
	}
	return nil
}
