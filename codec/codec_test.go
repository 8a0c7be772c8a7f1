package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := Payload{Values: []any{"a", "b", "c"}, ChildIDs: nil}

	data, err := Encode(p)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	got, err := Decode("key", data)
	require.NoError(t, err)
	require.Equal(t, []any{"a", "b", "c"}, got.Values)
	require.Nil(t, got.ChildIDs)
}

func TestEncodeDecodeInternalNode(t *testing.T) {
	p := Payload{Values: []any{5.0}, ChildIDs: []string{"AAA", "BBB"}}

	data, err := Encode(p)
	require.NoError(t, err)

	got, err := Decode("key", data)
	require.NoError(t, err)
	require.Equal(t, []string{"AAA", "BBB"}, got.ChildIDs)
	require.Equal(t, []any{5.0}, got.Values)
}

func TestDecodeNumbersBecomeFloat64(t *testing.T) {
	data, err := Encode(Payload{Values: []any{1, 2, 3}})
	require.NoError(t, err)

	got, err := Decode("", data)
	require.NoError(t, err)
	require.Equal(t, []any{1.0, 2.0, 3.0}, got.Values)
}

func TestDecodeGarbageReturnsErrDecode(t *testing.T) {
	_, err := Decode("bad-key", []byte("not flate data"))
	require.Error(t, err)

	var decodeErr *ErrDecode
	require.ErrorAs(t, err, &decodeErr)
	require.Equal(t, "bad-key", decodeErr.Key)
}

func TestHashIsStableAndContentAddressed(t *testing.T) {
	data, err := Encode(Payload{Values: []any{"x"}})
	require.NoError(t, err)

	h1 := Hash(data)
	h2 := Hash(data)
	require.Equal(t, h1, h2)

	other, err := Encode(Payload{Values: []any{"y"}})
	require.NoError(t, err)
	require.NotEqual(t, h1, Hash(other))
}
