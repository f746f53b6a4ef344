// Package sheets is the Google Sheets sink.
package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/joseph-ayodele/receipts-bot/internal/common"
	"github.com/joseph-ayodele/receipts-bot/internal/layout"
	"github.com/joseph-ayodele/receipts-bot/internal/sink"
)

// Config for the Sheets sink.
type Config struct {
	SpreadsheetID   string
	SheetName       string // default Sheet1
	CurrencyPattern string // default sink.DefaultCurrencyPattern
}

type Sink struct {
	cfg    Config
	svc    *gsheets.Service
	logger *slog.Logger

	mu      sync.Mutex
	sheetID *int64
}

// New authenticates with a service-account JSON key.
func New(ctx context.Context, credentialsJSON []byte, cfg Config, logger *slog.Logger) (*Sink, error) {
	jwt, err := google.JWTConfigFromJSON(credentialsJSON, gsheets.SpreadsheetsScope)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, "parse sheet credentials", err)
	}
	svc, err := gsheets.NewService(ctx, option.WithHTTPClient(jwt.Client(ctx)))
	if err != nil {
		return nil, common.NewAppError(common.CodeSink, "create sheets service", err)
	}
	return NewWithService(svc, cfg, logger), nil
}

// NewWithService wraps an existing Sheets client.
func NewWithService(svc *gsheets.Service, cfg Config, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SheetName == "" {
		cfg.SheetName = "Sheet1"
	}
	if cfg.CurrencyPattern == "" {
		cfg.CurrencyPattern = sink.DefaultCurrencyPattern
	}
	return &Sink{cfg: cfg, svc: svc, logger: logger}
}

func (s *Sink) EnsureHeader(ctx context.Context, l layout.Layout) error {
	resp, err := s.svc.Spreadsheets.Values.Get(s.cfg.SpreadsheetID, s.a1("1:1")).Context(ctx).Do()
	if err != nil {
		return common.NewAppError(common.CodeSink, "read header", err)
	}
	var existing []string
	if len(resp.Values) > 0 {
		for _, v := range resp.Values[0] {
			existing = append(existing, fmt.Sprint(v))
		}
	}
	if sink.HeaderMatches(existing, l) {
		return nil
	}

	s.logger.Warn("sink.sheets.header_resync", "sheet", s.cfg.SheetName, "existing", existing)
	if _, err := s.svc.Spreadsheets.Values.Clear(s.cfg.SpreadsheetID, s.a1(""), &gsheets.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return common.NewAppError(common.CodeSink, "clear sheet", err)
	}

	header := make([]any, 0, len(l.Columns))
	for _, h := range l.Header() {
		header = append(header, h)
	}
	if _, err := s.svc.Spreadsheets.Values.Update(s.cfg.SpreadsheetID, s.a1("A1"),
		&gsheets.ValueRange{Values: [][]any{header}}).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return common.NewAppError(common.CodeSink, "write header", err)
	}

	sheetID, err := s.lookupSheetID(ctx)
	if err != nil {
		return err
	}
	reqs := []*gsheets.Request{{
		RepeatCell: &gsheets.RepeatCellRequest{
			Range: &gsheets.GridRange{SheetId: sheetID, StartRowIndex: 0, EndRowIndex: 1,
				StartColumnIndex: 0, EndColumnIndex: int64(len(l.Columns))},
			Cell: &gsheets.CellData{UserEnteredFormat: &gsheets.CellFormat{
				BackgroundColor: color(sink.HeaderBackground),
				TextFormat: &gsheets.TextFormat{
					Bold:            true,
					FontSize:        sink.HeaderFontSize,
					ForegroundColor: color(sink.HeaderForeground),
				},
				HorizontalAlignment: "CENTER",
			}},
			Fields: "userEnteredFormat(backgroundColor,textFormat,horizontalAlignment)",
		},
	}}
	for i, c := range l.Columns {
		reqs = append(reqs, &gsheets.Request{
			UpdateDimensionProperties: &gsheets.UpdateDimensionPropertiesRequest{
				Range: &gsheets.DimensionRange{SheetId: sheetID, Dimension: "COLUMNS",
					StartIndex: int64(i), EndIndex: int64(i + 1)},
				Properties: &gsheets.DimensionProperties{PixelSize: int64(c.Width)},
				Fields:     "pixelSize",
			},
		})
	}
	return s.batch(ctx, "style header", reqs)
}

var reUpdatedRow = regexp.MustCompile(`![A-Z]+(\d+)`)

// AppendRow writes the row RAW: model-supplied text starting with "=" or "+" stays
// text and receipt numbers keep their leading zeros.
func (s *Sink) AppendRow(ctx context.Context, row []any) (int, error) {
	resp, err := s.svc.Spreadsheets.Values.Append(s.cfg.SpreadsheetID, s.a1("A1"),
		&gsheets.ValueRange{Values: [][]any{row}}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return 0, common.NewAppError(common.CodeSink, "append row", err)
	}
	if resp.Updates == nil {
		return 0, common.NewAppError(common.CodeSink, "append row: no update range in response", nil)
	}
	n, err := RowFromRange(resp.Updates.UpdatedRange)
	if err != nil {
		return 0, common.NewAppError(common.CodeSink, "append row", err)
	}
	s.logger.Info("sink.sheets.append", "sheet", s.cfg.SheetName, "row", n, "range", resp.Updates.UpdatedRange)
	return n, nil
}

func (s *Sink) FormatRow(ctx context.Context, rowNumber int, l layout.Layout) error {
	sheetID, err := s.lookupSheetID(ctx)
	if err != nil {
		return err
	}
	rowIdx := int64(rowNumber - 1)
	reqs := []*gsheets.Request{{
		RepeatCell: &gsheets.RepeatCellRequest{
			Range: &gsheets.GridRange{SheetId: sheetID, StartRowIndex: rowIdx, EndRowIndex: rowIdx + 1,
				StartColumnIndex: 0, EndColumnIndex: int64(len(l.Columns))},
			Cell:   &gsheets.CellData{UserEnteredFormat: &gsheets.CellFormat{BackgroundColor: color(sink.RowColor(rowNumber))}},
			Fields: "userEnteredFormat.backgroundColor",
		},
	}}
	for _, idx := range l.AmountColumns() {
		reqs = append(reqs, &gsheets.Request{
			RepeatCell: &gsheets.RepeatCellRequest{
				Range: &gsheets.GridRange{SheetId: sheetID, StartRowIndex: rowIdx, EndRowIndex: rowIdx + 1,
					StartColumnIndex: int64(idx), EndColumnIndex: int64(idx + 1)},
				Cell: &gsheets.CellData{UserEnteredFormat: &gsheets.CellFormat{
					NumberFormat: &gsheets.NumberFormat{Type: "CURRENCY", Pattern: s.cfg.CurrencyPattern},
				}},
				Fields: "userEnteredFormat.numberFormat",
			},
		})
	}
	return s.batch(ctx, "format row", reqs)
}

// RowFromRange extracts the first row number from an A1 range like "Sheet1!A5:L5".
func RowFromRange(rng string) (int, error) {
	m := reUpdatedRow.FindStringSubmatch(rng)
	if m == nil {
		return 0, fmt.Errorf("no row in range %q", rng)
	}
	return strconv.Atoi(m[1])
}

func (s *Sink) lookupSheetID(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sheetID != nil {
		return *s.sheetID, nil
	}
	ss, err := s.svc.Spreadsheets.Get(s.cfg.SpreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, common.NewAppError(common.CodeSink, "read spreadsheet", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == s.cfg.SheetName {
			id := sh.Properties.SheetId
			s.sheetID = &id
			return id, nil
		}
	}
	return 0, common.NewAppError(common.CodeSink, "sheet "+s.cfg.SheetName+" not found", common.ErrNotFound)
}

func (s *Sink) batch(ctx context.Context, what string, reqs []*gsheets.Request) error {
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.cfg.SpreadsheetID,
		&gsheets.BatchUpdateSpreadsheetRequest{Requests: reqs}).Context(ctx).Do(); err != nil {
		return common.NewAppError(common.CodeSink, what, err)
	}
	return nil
}

// a1 qualifies a range with the quoted sheet name; an empty range means the whole sheet.
func (s *Sink) a1(rng string) string {
	name := "'" + strings.ReplaceAll(s.cfg.SheetName, "'", "''") + "'"
	if rng == "" {
		return name
	}
	return name + "!" + rng
}

func color(c sink.RGB) *gsheets.Color {
	return &gsheets.Color{Red: c.R, Green: c.G, Blue: c.B}
}
