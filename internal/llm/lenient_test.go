package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFences(t *testing.T) {
	cases := []struct{ in, want string }{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"```JSON{\"a\":1}```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
		{"Sure!\n```json\n{\"a\":1}\n```\nAnything else?", `{"a":1}`},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StripFences(tc.in))
	}
}

func TestDecodeObject(t *testing.T) {
	cases := []struct {
		name string
		in   string
		key  string
		want any
	}{
		{"plain", `{"merchant":"A"}`, "merchant", "A"},
		{"fenced", "```json\n{\"total\": 12.50}\n```", "total", json.Number("12.50")},
		{"prose around", `The JSON is {"merchant":"B"} hope it helps`, "merchant", "B"},
		{"brace in string", `note {"merchant":"C {inc}","x":"}"} end`, "merchant", "C {inc}"},
		{"escaped quote", `{"merchant":"D \"quoted\" {"}`, "merchant", `D "quoted" {`},
		{"broken first", `{oops} then {"merchant":"E"}`, "merchant", "E"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := DecodeObject(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, m[tc.key])
		})
	}
}

func TestDecodeObjectFailures(t *testing.T) {
	for _, in := range []string{"", "Total: $0.00, Store: ???", "[1,2,3]", "null", `{"unterminated": "x`} {
		_, err := DecodeObject(in)
		assert.ErrorIs(t, err, ErrNoJSONObject, in)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héll", Truncate("héllo", 4))
	assert.Equal(t, "héllo", Truncate("héllo", 10))
	assert.Equal(t, "", Truncate("héllo", 0))
	assert.Equal(t, "₹₹", Truncate("₹₹₹", 2))
}

func TestDataURL(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,aGk=", DataURL("image/png", []byte("hi")))
}
