package utils

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration is a time.Duration which marshals to and from its string form
// ("2s", "1500ms") in JSON documents.
type Duration struct {
	time.Duration
}

// MarshalJSON encodes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts either a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		d.Duration = dur
	default:
		return fmt.Errorf("invalid duration type %T", v)
	}
	return nil
}
