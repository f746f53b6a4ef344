// Package layout defines the versioned column layouts rows are projected into.
package layout

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/receipts-bot/internal/entity"
)

// Version names a column layout.
type Version string

const (
	Simple Version = "simple"
	Rich   Version = "rich"
)

// Input is everything a row is built from.
type Input struct {
	Attribution     string
	Receipt         entity.Receipt
	ImageLink       string
	DefaultCurrency string
}

// Column is one positional cell of the output row.
type Column struct {
	Header string
	Width  float64 // pixels
	Amount bool    // gets the currency number format
	Value  func(Input) any
}

// Layout is an ordered column set plus the field keys the extraction prompt asks for.
type Layout struct {
	Version Version
	Columns []Column
	Fields  []Field
}

// Field is one key of the JSON object requested from the text model.
type Field struct {
	Key   string
	Money bool
	Hint  string
}

// Header returns the header row.
func (l Layout) Header() []string {
	out := make([]string, len(l.Columns))
	for i, c := range l.Columns {
		out[i] = c.Header
	}
	return out
}

// Row projects in into a row whose length always equals len(l.Columns).
func (l Layout) Row(in Input) []any {
	row := make([]any, len(l.Columns))
	for i, c := range l.Columns {
		row[i] = c.Value(in)
	}
	return row
}

// AmountColumns returns the zero-based indexes of currency columns.
func (l Layout) AmountColumns() []int {
	var out []int
	for i, c := range l.Columns {
		if c.Amount {
			out = append(out, i)
		}
	}
	return out
}

// FieldKeys lists the JSON keys in prompt order.
func (l Layout) FieldKeys() []string {
	out := make([]string, len(l.Fields))
	for i, f := range l.Fields {
		out[i] = f.Key
	}
	return out
}

// MoneyKeys lists the JSON keys holding amounts.
func (l Layout) MoneyKeys() []string {
	var out []string
	for _, f := range l.Fields {
		if f.Money {
			out = append(out, f.Key)
		}
	}
	return out
}

// LastColumn is the A1 letter of the final column.
func (l Layout) LastColumn() string {
	return ColumnName(len(l.Columns))
}

// ColumnName converts a 1-based column number to its A1 letters.
func ColumnName(n int) string {
	var sb strings.Builder
	var buf []byte
	for n > 0 {
		n--
		buf = append(buf, byte('A'+n%26))
		n /= 26
	}
	for i := len(buf) - 1; i >= 0; i-- {
		sb.WriteByte(buf[i])
	}
	return sb.String()
}

// ByVersion resolves a configured layout name.
func ByVersion(v string) (Layout, error) {
	switch Version(strings.ToLower(strings.TrimSpace(v))) {
	case Simple, "":
		return SimpleLayout(), nil
	case Rich:
		return RichLayout(), nil
	default:
		return Layout{}, fmt.Errorf("unknown layout %q", v)
	}
}

func money(d decimal.Decimal) any {
	return d.InexactFloat64()
}

func currency(in Input) any {
	if c := strings.TrimSpace(in.Receipt.Currency); c != "" {
		return c
	}
	return in.DefaultCurrency
}

func text(get func(entity.Receipt) string) func(Input) any {
	return func(in Input) any { return get(in.Receipt) }
}

func amount(get func(entity.Receipt) decimal.Decimal) func(Input) any {
	return func(in Input) any { return money(get(in.Receipt)) }
}

var (
	colDate        = Column{Header: "Date", Width: 120, Value: text(func(r entity.Receipt) string { return r.Date })}
	colPerson      = Column{Header: "Investor/Person", Width: 150, Value: func(in Input) any { return in.Attribution }}
	colMerchant    = Column{Header: "Merchant", Width: 180, Value: text(func(r entity.Receipt) string { return r.Merchant })}
	colTotal       = Column{Header: "Total", Width: 100, Amount: true, Value: amount(func(r entity.Receipt) decimal.Decimal { return r.Total })}
	colCurrency    = Column{Header: "Currency", Width: 100, Value: currency}
	colCategory    = Column{Header: "Category", Width: 130, Value: text(func(r entity.Receipt) string { return r.Category })}
	colDescription = Column{Header: "Description", Width: 250, Value: text(func(r entity.Receipt) string { return r.Description })}
	colItems       = Column{Header: "Items", Width: 300, Value: text(func(r entity.Receipt) string { return r.Items })}
	colTax         = Column{Header: "Tax", Width: 100, Amount: true, Value: amount(func(r entity.Receipt) decimal.Decimal { return r.Tax })}
	colImage       = Column{Header: "Image Link", Width: 200, Value: func(in Input) any { return in.ImageLink }}
)
