// Package sink appends projected receipt rows to a spreadsheet.
package sink

import (
	"context"
	"fmt"

	"github.com/joseph-ayodele/receipts-bot/internal/layout"
)

// Sink is a spreadsheet the pipeline writes rows into.
type Sink interface {
	// EnsureHeader rewrites the sheet when its first row is not the layout header.
	// The rewrite clears every existing row.
	EnsureHeader(ctx context.Context, l layout.Layout) error
	// AppendRow adds row after the last used row and returns its 1-based row number.
	AppendRow(ctx context.Context, row []any) (int, error)
	// FormatRow applies the alternating background and the currency format.
	FormatRow(ctx context.Context, rowNumber int, l layout.Layout) error
}

// RGB is a color with 0..1 channels, as the Sheets API takes it.
type RGB struct {
	R, G, B float64
}

// Hex renders the color as RRGGBB.
func (c RGB) Hex() string {
	return fmt.Sprintf("%02X%02X%02X", channel(c.R), channel(c.G), channel(c.B))
}

func channel(v float64) int {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return int(v*255 + 0.5)
	}
}

// Header and row styling shared by the sinks.
var (
	HeaderBackground = RGB{0.2, 0.4, 0.7}
	HeaderForeground = RGB{1, 1, 1}
	EvenRowColor     = RGB{0.95, 0.95, 0.95}
	OddRowColor      = RGB{1, 1, 1}
)

const HeaderFontSize = 11

// DefaultCurrencyPattern is the number format applied to amount columns.
const DefaultCurrencyPattern = "$#,##0.00"

// RowColor picks the background for a 1-based row number.
func RowColor(rowNumber int) RGB {
	if rowNumber%2 == 0 {
		return EvenRowColor
	}
	return OddRowColor
}

// HeaderMatches reports whether the existing first row equals the layout header exactly.
func HeaderMatches(existing []string, l layout.Layout) bool {
	want := l.Header()
	if len(existing) != len(want) {
		return false
	}
	for i := range want {
		if existing[i] != want[i] {
			return false
		}
	}
	return true
}
