package llm

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receipts-bot/constants"
	"github.com/joseph-ayodele/receipts-bot/internal/layout"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in   any
		want string
		ok   bool
	}{
		{json.Number("12.5"), "12.5", true},
		{72.25, "72.25", true},
		{"₹1,234.50", "1234.5", true},
		{"USD 99", "99", true},
		{"Rs. 45.00 only", "45", true},
		{"-3.10", "-3.1", true},
		{".75", "0.75", true},
		{"", "", false},
		{"null", "", false},
		{"N/A", "", false},
		{nil, "", false},
		{true, "", false},
	}
	for _, tc := range cases {
		d, ok := ParseMoney(tc.in)
		require.Equal(t, tc.ok, ok, "%v", tc.in)
		if ok {
			assert.Equal(t, tc.want, d.String(), "%v", tc.in)
		}
	}
}

func TestSanitizeFields(t *testing.T) {
	m, err := DecodeObject(`{
		"merchant": "  Big Bazaar ",
		"total": "₹1,234.5",
		"tax": "n/a",
		"subtotal": 1100,
		"currency": "inr",
		"category": "Groceries",
		"items": ["Rice: 1 x 100", 2, null],
		"receipt_number": 991,
		"description": null,
		"confidence": 0.9
	}`)
	require.NoError(t, err)

	out, dropped, err := SanitizeFields(m, layout.SimpleLayout(), nil)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "Big Bazaar", got["merchant"])
	assert.Equal(t, "1234.50", got["total"])
	assert.Equal(t, "1100.00", got["subtotal"])
	assert.Equal(t, "INR", got["currency"])
	assert.Equal(t, "Meals", got["category"])
	assert.Equal(t, "Rice: 1 x 100; 2", got["items"])
	assert.Equal(t, "991", got["receipt_number"])
	assert.NotContains(t, got, "tax")
	assert.NotContains(t, got, "description")
	assert.NotContains(t, got, "confidence")

	joined := strings.Join(dropped, ",")
	assert.Contains(t, joined, "confidence(unknown)")
	assert.Contains(t, joined, "tax(money)")
	assert.Contains(t, joined, "description(null)")
}

func TestSanitizeUnknownCategoryBecomesOther(t *testing.T) {
	m := map[string]any{"category": "Spaceships"}
	out, dropped, err := SanitizeFields(m, layout.SimpleLayout(), nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"category":"Other"}`, string(out))
	assert.Equal(t, []string{"category(Spaceships->Other)"}, dropped)
}

func TestSanitizedOutputPassesSchema(t *testing.T) {
	l := layout.RichLayout()
	schema := BuildReceiptJSONSchema(l, constants.AsStringSlice())

	m, err := DecodeObject(`{"merchant":"Taj","total":5900,"cgst":"450","sgst":"₹450.00","category":"hotel","gstin":"X"}`)
	require.NoError(t, err)
	out, _, err := SanitizeFields(m, l, nil)
	require.NoError(t, err)
	assert.NoError(t, ValidateJSONAgainstSchema(schema, out))
}

func TestSchemaRejects(t *testing.T) {
	schema := BuildReceiptJSONSchema(layout.SimpleLayout(), constants.AsStringSlice())

	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`{"total":"12.345"}`)))
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`{"category":"Snacks"}`)))
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`{"cgst":"1.00"}`)))
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`{"merchant":7}`)))
	assert.NoError(t, ValidateJSONAgainstSchema(schema, []byte(`{}`)))
}

func TestCoerceFields(t *testing.T) {
	m, err := DecodeObject(`{
		"merchant": "Cafe Uno",
		"total": 450,
		"currency": "Rupees",
		"items": [{"name":"Tea","qty":2}, "Bun", null],
		"description": {"note": "team lunch"},
		"receipt_number": ["A", 12]
	}`)
	require.NoError(t, err)

	changed := CoerceFields(m, layout.SimpleLayout())
	assert.ElementsMatch(t, []string{"items(list)", "description(object)", "currency(Rupees)"}, changed)
	assert.NotContains(t, m, "currency")
	assert.Equal(t, `{"name":"Tea","qty":2}; Bun`, m["items"])
	assert.Equal(t, `{"note":"team lunch"}`, m["description"])

	out, _, err := SanitizeFields(m, layout.SimpleLayout(), nil)
	require.NoError(t, err)
	schema := BuildReceiptJSONSchema(layout.SimpleLayout(), constants.AsStringSlice())
	assert.NoError(t, ValidateJSONAgainstSchema(schema, out))
}

func TestCoerceFieldsKeepsValidCurrency(t *testing.T) {
	m := map[string]any{"currency": "usd", "merchant": "Shop"}
	assert.Empty(t, CoerceFields(m, layout.SimpleLayout()))
	assert.Equal(t, "usd", m["currency"])

	m = map[string]any{"currency": json.Number("356")}
	assert.Equal(t, []string{"currency(non-text)"}, CoerceFields(m, layout.SimpleLayout()))
}
