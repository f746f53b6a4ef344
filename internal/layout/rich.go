package layout

import (
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/receipts-bot/internal/entity"
)

// RichLayout is the 19-column layout with the GST breakdown and contact fields.
func RichLayout() Layout {
	return Layout{
		Version: Rich,
		Columns: []Column{
			colDate,
			colPerson,
			colMerchant,
			colTotal,
			colCurrency,
			colTax,
			{Header: "CGST", Width: 90, Amount: true, Value: amount(func(r entity.Receipt) decimal.Decimal { return r.CGST })},
			{Header: "SGST", Width: 90, Amount: true, Value: amount(func(r entity.Receipt) decimal.Decimal { return r.SGST })},
			colCategory,
			colDescription,
			colItems,
			{Header: "Invoice Number", Width: 130, Value: text(func(r entity.Receipt) string { return r.ReceiptNumber })},
			{Header: "Payment Method", Width: 130, Value: text(func(r entity.Receipt) string { return r.PaymentMethod })},
			{Header: "Payment Status", Width: 120, Value: text(func(r entity.Receipt) string { return r.PaymentStatus })},
			{Header: "Merchant Email", Width: 180, Value: text(func(r entity.Receipt) string { return r.MerchantEmail })},
			{Header: "Customer Email", Width: 180, Value: text(func(r entity.Receipt) string { return r.CustomerEmail })},
			{Header: "Address", Width: 250, Value: text(func(r entity.Receipt) string { return r.Address })},
			{Header: "GSTIN", Width: 150, Value: text(func(r entity.Receipt) string { return r.GSTIN })},
			colImage,
		},
		Fields: []Field{
			{Key: "merchant", Hint: `"exact merchant name"`},
			{Key: "date", Hint: `"YYYY-MM-DD format (convert if needed, if not found use today's date)"`},
			{Key: "total", Money: true, Hint: `number like 724.50 (extract from total/grand total/amount payable)`},
			{Key: "currency", Hint: `"INR or USD or from text (default %s for Indian receipts)"`},
			{Key: "tax", Money: true, Hint: `number, total tax (GST/VAT) amount`},
			{Key: "cgst", Money: true, Hint: `number, Central GST amount if shown, else 0`},
			{Key: "sgst", Money: true, Hint: `number, State GST amount if shown, else 0`},
			{Key: "category", Hint: `one of %s`},
			{Key: "description", Hint: `"brief 1-sentence summary"`},
			{Key: "items", Hint: `"semicolon-separated list of 'name: qty x price = amount'"`},
			{Key: "receipt_number", Hint: `"invoice/receipt/bill number if available, else empty"`},
			{Key: "payment_method", Hint: `"Cash, Card, UPI, Net Banking, etc. if shown, else empty"`},
			{Key: "payment_status", Hint: `"Paid, Unpaid, Partially Paid if shown, else empty"`},
			{Key: "merchant_email", Hint: `"merchant email if printed, else empty"`},
			{Key: "customer_email", Hint: `"customer email if printed, else empty"`},
			{Key: "address", Hint: `"merchant postal address, single line"`},
			{Key: "gstin", Hint: `"15-character GSTIN of the merchant if printed, else empty"`},
		},
	}
}
