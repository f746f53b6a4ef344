package layout

import (
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/receipts-bot/internal/entity"
)

// SimpleLayout is the 12-column layout.
func SimpleLayout() Layout {
	return Layout{
		Version: Simple,
		Columns: []Column{
			colDate,
			colPerson,
			colMerchant,
			colTotal,
			colCurrency,
			colCategory,
			colDescription,
			colItems,
			colTax,
			{Header: "Subtotal", Width: 100, Amount: true, Value: amount(func(r entity.Receipt) decimal.Decimal { return r.Subtotal })},
			{Header: "Receipt Number", Width: 100, Value: text(func(r entity.Receipt) string { return r.ReceiptNumber })},
			colImage,
		},
		Fields: []Field{
			{Key: "merchant", Hint: `"exact merchant name"`},
			{Key: "date", Hint: `"YYYY-MM-DD format (convert if needed, if not found use today's date)"`},
			{Key: "total", Money: true, Hint: `number like 724.50 (extract from total/grand total/amount)`},
			{Key: "currency", Hint: `"INR or USD or from text (default %s for Indian receipts)"`},
			{Key: "category", Hint: `one of %s`},
			{Key: "description", Hint: `"brief 1-sentence summary"`},
			{Key: "items", Hint: `"semicolon-separated list e.g. 'White Basic Tank Top: 2 x $100.00 = $200.00; Denim Jacket: 5 x $50.00 = $250.00'"`},
			{Key: "tax", Money: true, Hint: `number like 34.50 (GST/VAT/Tax amount)`},
			{Key: "subtotal", Money: true, Hint: `number like 690.00`},
			{Key: "receipt_number", Hint: `"invoice/receipt number if available, else empty"`},
		},
	}
}
