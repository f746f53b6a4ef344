package xlsx

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/receipts-bot/internal/layout"
	"github.com/joseph-ayodele/receipts-bot/internal/sink"
)

func newMemorySink(t *testing.T) *Sink {
	t.Helper()
	s, err := New(excelize.NewFile(), Config{SheetName: "Receipts"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func simpleRow(merchant string, total float64) []any {
	r := make([]any, 12)
	for i := range r {
		r[i] = ""
	}
	r[0], r[1], r[2], r[3], r[4] = "2024-03-05", "Vikas Uppal", merchant, total, "INR"
	return r
}

func TestEnsureHeaderOnEmptySheet(t *testing.T) {
	s := newMemorySink(t)
	l := layout.SimpleLayout()
	ctx := context.Background()

	require.NoError(t, s.EnsureHeader(ctx, l))
	rows, err := s.File().GetRows("Receipts")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, l.Header(), rows[0])

	id, err := s.File().GetCellStyle("Receipts", "C1")
	require.NoError(t, err)
	style, err := s.File().GetStyle(id)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
	require.NotEmpty(t, style.Fill.Color)
	assert.Contains(t, strings.ToUpper(style.Fill.Color[0]), sink.HeaderBackground.Hex())

	width, err := s.File().GetColWidth("Receipts", "H")
	require.NoError(t, err)
	assert.InDelta(t, 300.0/7, width, 0.5)
}

func TestEnsureHeaderKeepsMatchingSheet(t *testing.T) {
	s := newMemorySink(t)
	l := layout.SimpleLayout()
	ctx := context.Background()

	require.NoError(t, s.EnsureHeader(ctx, l))
	_, err := s.AppendRow(ctx, simpleRow("Cafe Uno", 450))
	require.NoError(t, err)

	require.NoError(t, s.EnsureHeader(ctx, l))
	rows, err := s.File().GetRows("Receipts")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestEnsureHeaderResyncClearsSheet(t *testing.T) {
	s := newMemorySink(t)
	ctx := context.Background()

	old := []string{"Date", "Person", "Shop"}
	require.NoError(t, s.File().SetSheetRow("Receipts", "A1", &old))
	data := []any{"2023-01-01", "x", "y"}
	require.NoError(t, s.File().SetSheetRow("Receipts", "A2", &data))
	require.NoError(t, s.File().SetSheetRow("Receipts", "A3", &data))

	l := layout.RichLayout()
	require.NoError(t, s.EnsureHeader(ctx, l))

	rows, err := s.File().GetRows("Receipts")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, l.Header(), rows[0])
}

func TestAppendAndFormatRows(t *testing.T) {
	s := newMemorySink(t)
	l := layout.SimpleLayout()
	ctx := context.Background()
	require.NoError(t, s.EnsureHeader(ctx, l))

	n, err := s.AppendRow(ctx, simpleRow("Cafe Uno", 450))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, s.FormatRow(ctx, n, l))

	n, err = s.AppendRow(ctx, simpleRow("Big Bazaar", 1234.5))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, s.FormatRow(ctx, n, l))

	v, err := s.File().GetCellValue("Receipts", "C3")
	require.NoError(t, err)
	assert.Equal(t, "Big Bazaar", v)

	// even rows are shaded, odd rows are white
	assertFill(t, s, "B2", sink.EvenRowColor)
	assertFill(t, s, "B3", sink.OddRowColor)

	// amount columns carry the currency format, text columns do not
	for _, cell := range []string{"D2", "I2", "J2"} {
		style := cellStyle(t, s, cell)
		require.NotNil(t, style.CustomNumFmt, cell)
		assert.Equal(t, sink.DefaultCurrencyPattern, *style.CustomNumFmt, cell)
	}
	assert.Nil(t, cellStyle(t, s, "C2").CustomNumFmt)
}

func TestOpenPersistsWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipts.xlsx")
	l := layout.SimpleLayout()
	ctx := context.Background()

	s, err := Open(Config{Path: path}, nil)
	require.NoError(t, err)
	require.NoError(t, s.EnsureHeader(ctx, l))
	_, err = s.AppendRow(ctx, simpleRow("Cafe Uno", 450))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(Config{Path: path}, nil)
	require.NoError(t, err)
	defer reopened.Close()

	rows, err := reopened.File().GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Cafe Uno", rows[1][2])

	n, err := reopened.AppendRow(ctx, simpleRow("Next", 1))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func cellStyle(t *testing.T, s *Sink, cell string) *excelize.Style {
	t.Helper()
	id, err := s.File().GetCellStyle("Receipts", cell)
	require.NoError(t, err)
	style, err := s.File().GetStyle(id)
	require.NoError(t, err)
	return style
}

func assertFill(t *testing.T, s *Sink, cell string, want sink.RGB) {
	t.Helper()
	style := cellStyle(t, s, cell)
	require.NotEmpty(t, style.Fill.Color, cell)
	assert.Contains(t, strings.ToUpper(style.Fill.Color[0]), want.Hex(), cell)
}
