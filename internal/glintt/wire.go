package glintt

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// unmarshalStrictNumbers decodes JSON into v, keeping number literals as
// json.Number inside loosely typed fields. The gateway's error envelopes
// mix numeric and string values and reformatting them loses information.
func unmarshalStrictNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// formatDetails renders a loosely typed error envelope for display.
func formatDetails(details map[string]any) string {
	data, err := json.Marshal(details)
	if err != nil {
		return fmt.Sprintf("%v", details)
	}
	return string(data)
}

// renderValue renders a response field that may be a string, a number,
// or a nested object.
func renderValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
