package encoders

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultEncoder sends scalars in their plain text form, e.g. 21.5 as "21.5".
type DefaultEncoder struct{}

func (DefaultEncoder) Encode(_ string, v any) ([]byte, error) {
	switch arg := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(arg), nil
	case []byte:
		return arg, nil
	case bool:
		return strconv.AppendBool(nil, arg), nil
	case int:
		return strconv.AppendInt(nil, int64(arg), 10), nil
	case int32:
		return strconv.AppendInt(nil, int64(arg), 10), nil
	case int64:
		return strconv.AppendInt(nil, arg, 10), nil
	case uint:
		return strconv.AppendUint(nil, uint64(arg), 10), nil
	case uint32:
		return strconv.AppendUint(nil, uint64(arg), 10), nil
	case uint64:
		return strconv.AppendUint(nil, arg, 10), nil
	case float32:
		return strconv.AppendFloat(nil, float64(arg), 'f', -1, 32), nil
	case float64:
		return strconv.AppendFloat(nil, arg, 'f', -1, 64), nil
	case decimal.Decimal:
		return []byte(arg.String()), nil
	case fmt.Stringer:
		return []byte(arg.String()), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
}

func (DefaultEncoder) Decode(_ string, data []byte, vPtr any) error {
	text := strings.TrimSpace(string(data))
	var err error
	switch arg := vPtr.(type) {
	case *string:
		*arg = string(data)
	case *[]byte:
		*arg = append([]byte(nil), data...)
	case *bool:
		*arg, err = strconv.ParseBool(text)
	case *int:
		var n int64
		n, err = strconv.ParseInt(text, 10, strconv.IntSize)
		*arg = int(n)
	case *int32:
		var n int64
		n, err = strconv.ParseInt(text, 10, 32)
		*arg = int32(n)
	case *int64:
		*arg, err = strconv.ParseInt(text, 10, 64)
	case *uint:
		var n uint64
		n, err = strconv.ParseUint(text, 10, strconv.IntSize)
		*arg = uint(n)
	case *uint32:
		var n uint64
		n, err = strconv.ParseUint(text, 10, 32)
		*arg = uint32(n)
	case *uint64:
		*arg, err = strconv.ParseUint(text, 10, 64)
	case *float32:
		var f float64
		f, err = strconv.ParseFloat(text, 32)
		*arg = float32(f)
	case *float64:
		*arg, err = strconv.ParseFloat(text, 64)
	case *decimal.Decimal:
		*arg, err = decimal.NewFromString(text)
	case *any:
		*arg = string(data)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedType, vPtr)
	}
	if err != nil {
		return fmt.Errorf("encoders: decode %q as %T: %w", text, vPtr, err)
	}
	return nil
}
