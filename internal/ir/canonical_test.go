package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalSortsKeys(t *testing.T) {
	got, err := MarshalCanonical(Object{
		"b": Int(2),
		"a": String("x"),
		"c": Array{Bool(true), Int(-1)},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":2,"c":[true,-1]}`, string(got))
}

func TestMarshalCanonicalDoesNotEscapeHTML(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{"k": "<a&b>"})
	require.NoError(t, err)
	assert.Equal(t, `{"k":"<a&b>"}`, string(got))
}

func TestMarshalCanonicalNormalisesNFC(t *testing.T) {
	decomposed := "e\u0301"
	got, err := MarshalCanonical(String(decomposed))
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(got))
}

func TestMarshalCanonicalEscapesControlCharacters(t *testing.T) {
	got, err := MarshalCanonical("a\nb\x01")
	require.NoError(t, err)
	assert.Equal(t, `"a\nb\u0001"`, string(got))
}

func TestMarshalCanonicalRejectsFloatsAndNull(t *testing.T) {
	_, err := MarshalCanonical(1.5)
	assert.ErrorContains(t, err, "floats")

	_, err = MarshalCanonical(nil)
	assert.ErrorContains(t, err, "null")

	_, err = MarshalCanonical(map[string]any{"k": nil})
	assert.ErrorContains(t, err, "null")
}

func TestSortedKeysUsesUTF16Order(t *testing.T) {
	// U+FF61 sorts before U+1F600 in UTF-8 byte order but after it in UTF-16.
	obj := Object{"\U0001F600": Int(1), "｡": Int(2)}
	assert.Equal(t, []string{"\U0001F600", "｡"}, obj.SortedKeys())
}

func TestIndentKeepsOrder(t *testing.T) {
	out, err := Indent([]byte(`{"a":1,"b":[true]}`))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1,\n  \"b\": [\n    true\n  ]\n}\n", string(out))
}

func TestUnmarshalValueRoundTrip(t *testing.T) {
	in := Object{"n": Int(1 << 60), "s": String("x"), "a": Array{Bool(false)}}
	data, err := MarshalCanonical(in)
	require.NoError(t, err)

	out, err := UnmarshalObject(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = UnmarshalValue([]byte(`1.5`))
	assert.Error(t, err)
	_, err = UnmarshalObject([]byte(`[1]`))
	assert.Error(t, err)
}
