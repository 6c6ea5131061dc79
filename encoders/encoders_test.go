package encoders

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type order struct {
	ID       string  `json:"id"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

func TestLookupBuiltins(t *testing.T) {
	for _, name := range []string{JSON, Gob, Default, Protobuf, " JSON "} {
		enc, err := Lookup(name)
		require.NoError(t, err, name)
		require.NotNil(t, enc)
	}
	_, err := Lookup("msgpack")
	require.ErrorIs(t, err, ErrUnknownEncoder)
}

type upperEncoder struct{ DefaultEncoder }

func TestRegisterCustomEncoder(t *testing.T) {
	require.Error(t, Register("", upperEncoder{}))
	require.Error(t, Register("upper", nil))
	require.NoError(t, Register("Upper", upperEncoder{}))

	enc, err := Lookup("upper")
	require.NoError(t, err)
	require.IsType(t, upperEncoder{}, enc)
	require.Contains(t, Names(), "upper")
}

func TestJSONEncoder(t *testing.T) {
	enc := JSONEncoder{}
	data, err := enc.Encode("orders", order{ID: "o-1", Quantity: 3, Price: 9.5})
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"o-1","quantity":3,"price":9.5}`, string(data))

	var out order
	require.NoError(t, enc.Decode("orders", data, &out))
	require.Equal(t, order{ID: "o-1", Quantity: 3, Price: 9.5}, out)

	var text string
	require.NoError(t, enc.Decode("greet", []byte("hello"), &text))
	require.Equal(t, "hello", text)
	require.NoError(t, enc.Decode("greet", []byte(`"quoted"`), &text))
	require.Equal(t, "quoted", text)

	untouched := order{ID: "keep"}
	require.NoError(t, enc.Decode("orders", nil, &untouched))
	require.Equal(t, "keep", untouched.ID)

	require.Error(t, enc.Decode("orders", []byte("{broken"), &out))
	_, err = enc.Encode("bad", make(chan int))
	require.Error(t, err)
}

func TestGobEncoder(t *testing.T) {
	enc := GobEncoder{}
	data, err := enc.Encode("orders", order{ID: "o-2", Quantity: 1})
	require.NoError(t, err)

	var out order
	require.NoError(t, enc.Decode("orders", data, &out))
	require.Equal(t, order{ID: "o-2", Quantity: 1}, out)
	require.Error(t, enc.Decode("orders", []byte("garbage"), &out))
}

func TestDefaultEncoderScalars(t *testing.T) {
	enc := DefaultEncoder{}
	tests := []struct {
		value any
		want  string
	}{
		{value: "text", want: "text"},
		{value: []byte("raw"), want: "raw"},
		{value: true, want: "true"},
		{value: 42, want: "42"},
		{value: int64(-7), want: "-7"},
		{value: uint32(7), want: "7"},
		{value: 21.5, want: "21.5"},
		{value: float32(0.25), want: "0.25"},
		{value: decimal.RequireFromString("1234.5678"), want: "1234.5678"},
	}
	for _, tc := range tests {
		data, err := enc.Encode("s", tc.value)
		require.NoError(t, err)
		require.Equal(t, tc.want, string(data))
	}

	_, err := enc.Encode("s", struct{}{})
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestDefaultEncoderDecode(t *testing.T) {
	enc := DefaultEncoder{}

	var f float64
	require.NoError(t, enc.Decode("s", []byte(" 21.5 "), &f))
	require.Equal(t, 21.5, f)

	var i int
	require.NoError(t, enc.Decode("s", []byte("12"), &i))
	require.Equal(t, 12, i)

	var b bool
	require.NoError(t, enc.Decode("s", []byte("true"), &b))
	require.True(t, b)

	var d decimal.Decimal
	require.NoError(t, enc.Decode("s", []byte("0.1"), &d))
	require.True(t, d.Equal(decimal.RequireFromString("0.1")))

	var s string
	require.NoError(t, enc.Decode("s", []byte("hi"), &s))
	require.Equal(t, "hi", s)

	require.Error(t, enc.Decode("s", []byte("x"), &i))
	require.ErrorIs(t, enc.Decode("s", []byte("x"), &struct{}{}), ErrUnsupportedType)
}

func TestProtobufEncoder(t *testing.T) {
	enc := ProtobufEncoder{}
	data, err := enc.Encode("s", wrapperspb.String("hello"))
	require.NoError(t, err)

	out := &wrapperspb.StringValue{}
	require.NoError(t, enc.Decode("s", data, out))
	require.Equal(t, "hello", out.GetValue())

	_, err = enc.Encode("s", "not proto")
	require.ErrorIs(t, err, ErrUnsupportedType)
	var plain string
	require.ErrorIs(t, enc.Decode("s", data, &plain), ErrUnsupportedType)
}
