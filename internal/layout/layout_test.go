package layout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receipts-bot/internal/entity"
)

func sampleInput() Input {
	return Input{
		Attribution: "Shashank",
		Receipt: entity.Receipt{
			Merchant: "Cafe Uno",
			Date:     "2024-03-05",
			Total:    decimal.RequireFromString("450.00"),
			Tax:      decimal.RequireFromString("22.50"),
			CGST:     decimal.RequireFromString("11.25"),
			SGST:     decimal.RequireFromString("11.25"),
			GSTIN:    "27AAAPL1234C1ZV",
		},
		ImageLink:       "https://files.example/1",
		DefaultCurrency: "INR",
	}
}

func TestSimpleLayout(t *testing.T) {
	l := SimpleLayout()
	assert.Equal(t, []string{"Date", "Investor/Person", "Merchant", "Total", "Currency", "Category",
		"Description", "Items", "Tax", "Subtotal", "Receipt Number", "Image Link"}, l.Header())
	assert.Equal(t, []int{3, 8, 9}, l.AmountColumns())
	assert.Equal(t, []string{"total", "tax", "subtotal"}, l.MoneyKeys())
	assert.Equal(t, "L", l.LastColumn())

	row := l.Row(sampleInput())
	require.Len(t, row, 12)
	assert.Equal(t, "Shashank", row[1])
	assert.Equal(t, 450.0, row[3])
	assert.Equal(t, "INR", row[4], "currency falls back to the default")
	assert.Equal(t, 0.0, row[9])
	assert.Equal(t, "https://files.example/1", row[11])
}

func TestRichLayout(t *testing.T) {
	l := RichLayout()
	require.Len(t, l.Columns, 19)
	assert.Equal(t, "S", l.LastColumn())
	assert.Equal(t, []int{3, 5, 6, 7}, l.AmountColumns())
	assert.Len(t, l.Fields, 17)

	in := sampleInput()
	in.Receipt.Currency = "USD"
	row := l.Row(in)
	require.Len(t, row, 19)
	assert.Equal(t, "USD", row[4])
	assert.Equal(t, 11.25, row[6])
	assert.Equal(t, "27AAAPL1234C1ZV", row[17])
	assert.Equal(t, "https://files.example/1", row[18])
}

func TestRowLengthForEmptyReceipt(t *testing.T) {
	for _, l := range []Layout{SimpleLayout(), RichLayout()} {
		row := l.Row(Input{})
		assert.Len(t, row, len(l.Columns))
	}
}

func TestColumnName(t *testing.T) {
	cases := map[int]string{1: "A", 12: "L", 19: "S", 26: "Z", 27: "AA", 52: "AZ", 53: "BA", 702: "ZZ", 703: "AAA"}
	for n, want := range cases {
		assert.Equal(t, want, ColumnName(n), n)
	}
	assert.Equal(t, "", ColumnName(0))
}

func TestByVersion(t *testing.T) {
	l, err := ByVersion("")
	require.NoError(t, err)
	assert.Equal(t, Simple, l.Version)

	l, err = ByVersion(" RICH ")
	require.NoError(t, err)
	assert.Equal(t, Rich, l.Version)

	_, err = ByVersion("fancy")
	assert.Error(t, err)
}

func TestFieldKeysCoverMoneyColumns(t *testing.T) {
	for _, l := range []Layout{SimpleLayout(), RichLayout()} {
		keys := l.FieldKeys()
		for _, k := range l.MoneyKeys() {
			assert.Contains(t, keys, k)
		}
	}
}
