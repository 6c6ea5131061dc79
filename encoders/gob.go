package encoders

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// GobEncoder uses encoding/gob. Both ends must be Go programs sharing the types.
type GobEncoder struct{}

func (GobEncoder) Encode(_ string, v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("encoders: gob encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (GobEncoder) Decode(_ string, data []byte, vPtr any) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(vPtr); err != nil {
		return fmt.Errorf("encoders: gob decode: %w", err)
	}
	return nil
}
