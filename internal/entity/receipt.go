package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ManualReviewMerchant is the merchant sentinel written when extraction could not be trusted.
const ManualReviewMerchant = "Manual Review Needed"

// ParseErrorMerchant is the sentinel some model responses use for "could not read".
const ParseErrorMerchant = "Parse Error"

// Receipt is the structured result of field extraction. Every field is optional;
// absent text is "" and absent money is zero.
type Receipt struct {
	Merchant      string          `json:"merchant"`
	Date          string          `json:"date"` // YYYY-MM-DD
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	CGST          decimal.Decimal `json:"cgst"`
	SGST          decimal.Decimal `json:"sgst"`
	Category      string          `json:"category"`
	Description   string          `json:"description"`
	Items         string          `json:"items"` // "; "-separated line items
	ReceiptNumber string          `json:"receipt_number"`
	PaymentMethod string          `json:"payment_method"`
	PaymentStatus string          `json:"payment_status"`
	MerchantEmail string          `json:"merchant_email"`
	CustomerEmail string          `json:"customer_email"`
	Address       string          `json:"address"`
	GSTIN         string          `json:"gstin"`
}

// LooksFailed reports the low-confidence signals: a sentinel merchant or a total of exactly zero.
// Genuine zero-value receipts are classified the same way.
func (r Receipt) LooksFailed() bool {
	return r.Merchant == ManualReviewMerchant || r.Merchant == ParseErrorMerchant || r.Total.IsZero()
}

// TxDate parses Date as a calendar date in UTC.
func (r Receipt) TxDate() (time.Time, bool) {
	t, err := time.ParseInLocation("2006-01-02", r.Date, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
