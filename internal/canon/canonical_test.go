package canon

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_Basic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int", 42, "42"},
		{"negative int", -100, "-100"},
		{"max int64", int64(math.MaxInt64), "9223372036854775807"},
		{"float", 0.5, "0.5"},
		{"integral float", 10.0, "10"},
		{"negative zero", math.Copysign(0, -1), "0"},
		{"small float", 1e-7, "1e-7"},
		{"large float", 1e21, "1e+21"},
		{"null", nil, "null"},
		{"bool", true, "true"},
		{"empty array", []int{}, "[]"},
		{"empty object", map[string]int{}, "{}"},
		{"html not escaped", "<a&b>", `"<a&b>"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Marshal(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(out))
		})
	}
}

func TestMarshal_SortedKeys(t *testing.T) {
	obj := map[string]any{
		"zebra": 1,
		"alpha": map[string]any{"b": 1, "a": 2},
		"beta":  []any{3, "x"},
	}
	out, err := Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":{"a":2,"b":1},"beta":[3,"x"],"zebra":1}`, string(out))
}

func TestMarshal_UTF16KeyOrder(t *testing.T) {
	// U+FF61 sorts before U+1F600 in UTF-8 byte order too, but the emoji
	// is a surrogate pair (0xD83D...) in UTF-16 and sorts first there.
	obj := map[string]int{"\uff61": 1, "\U0001F600": 2}
	out, err := Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"｡\":1}", string(out))
}

func TestMarshal_StructTags(t *testing.T) {
	type row struct {
		Name    string   `json:"name"`
		Optimal *float64 `json:"optimal"`
		Vary    bool     `json:"vary"`
	}
	out, err := Marshal(row{Name: "recharge_A", Vary: true})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"recharge_A","optimal":null,"vary":true}`, string(out))
}

func TestMarshal_NFC(t *testing.T) {
	// "e" followed by a combining acute accent normalizes to U+00E9.
	decomposed, err := Marshal("cafe\u0301")
	require.NoError(t, err)
	composed, err := Marshal("caf\u00e9")
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}

func TestMarshal_LineSeparators(t *testing.T) {
	out, err := Marshal("a\u2028b\u2029c")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(out))

	// A literal backslash followed by the text u2028 stays escaped.
	out, err = Marshal(`x\u2028`)
	require.NoError(t, err)
	assert.Equal(t, `"x\\u2028"`, string(out))
}

func TestMarshal_Errors(t *testing.T) {
	_, err := Marshal(math.NaN())
	assert.Error(t, err)

	_, err = Marshal(func() {})
	assert.Error(t, err)
}

func TestCanonicalize(t *testing.T) {
	out, err := Canonicalize([]byte(`{ "b" : 1.50, "a" : [ true , null ] }`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":[true,null],"b":1.5}`, string(out))

	_, err = Canonicalize([]byte(`{"a":1} {"b":2}`))
	assert.Error(t, err)

	_, err = Canonicalize([]byte(`{"a":`))
	assert.Error(t, err)
}

func TestCanonicalize_Idempotent(t *testing.T) {
	in := json.RawMessage(`{"z":[1e3,2.25e-8,"é"],"a":{"y":false}}`)
	once, err := Canonicalize(in)
	require.NoError(t, err)
	twice, err := Canonicalize(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
	assert.Equal(t, `{"a":{"y":false},"z":[1000,2.25e-8,"é"]}`, string(once))
}
