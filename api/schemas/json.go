package schemas

import (
	"encoding/json"
	"fmt"
)

// RawColor serializes as a two-element [color, count] tuple. Downstream
// consumers index into the pair positionally, so the array form is part of
// the artifact contract.

// MarshalJSON implements json.Marshaler.
func (r RawColor) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{r.Color, r.Count})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *RawColor) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("rawColors entry is not an array: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("rawColors entry has %d elements, want 2", len(pair))
	}
	if err := json.Unmarshal(pair[0], &r.Color); err != nil {
		return fmt.Errorf("rawColors color: %w", err)
	}
	// Counts may arrive as floats from loosely-typed producers.
	var count float64
	if err := json.Unmarshal(pair[1], &count); err != nil {
		return fmt.Errorf("rawColors count: %w", err)
	}
	r.Count = int(count)
	return nil
}
