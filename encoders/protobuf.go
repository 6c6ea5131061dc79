package encoders

import (
	"fmt"

	"google.golang.org/protobuf/proto"
)

// ProtobufEncoder marshals generated protobuf messages.
type ProtobufEncoder struct{}

func (ProtobufEncoder) Encode(_ string, v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	msg, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not a proto.Message", ErrUnsupportedType, v)
	}
	b, err := proto.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encoders: protobuf encode: %w", err)
	}
	return b, nil
}

func (ProtobufEncoder) Decode(_ string, data []byte, vPtr any) error {
	msg, ok := vPtr.(proto.Message)
	if !ok {
		return fmt.Errorf("%w: %T is not a proto.Message", ErrUnsupportedType, vPtr)
	}
	if err := proto.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("encoders: protobuf decode: %w", err)
	}
	return nil
}
