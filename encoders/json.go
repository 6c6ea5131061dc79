package encoders

import (
	"encoding/json"
	"fmt"
)

// JSONEncoder marshals values as JSON documents.
type JSONEncoder struct{}

func (JSONEncoder) Encode(_ string, v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoders: json encode: %w", err)
	}
	return b, nil
}

// Decode unmarshals data into vPtr. Empty payloads leave vPtr untouched.
func (JSONEncoder) Decode(_ string, data []byte, vPtr any) error {
	if len(data) == 0 {
		return nil
	}
	switch arg := vPtr.(type) {
	case *string:
		// Plain text publishers are common; accept both quoted and raw strings.
		if data[0] != '"' {
			*arg = string(data)
			return nil
		}
	case *[]byte:
		*arg = append([]byte(nil), data...)
		return nil
	}
	if err := json.Unmarshal(data, vPtr); err != nil {
		return fmt.Errorf("encoders: json decode: %w", err)
	}
	return nil
}
