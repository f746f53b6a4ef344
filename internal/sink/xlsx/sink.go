// Package xlsx is a local workbook sink built on excelize.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/receipts-bot/internal/common"
	"github.com/joseph-ayodele/receipts-bot/internal/layout"
	"github.com/joseph-ayodele/receipts-bot/internal/sink"
)

// Config for the workbook sink.
type Config struct {
	Path            string // empty keeps the workbook in memory
	SheetName       string // default Sheet1
	CurrencyPattern string // default sink.DefaultCurrencyPattern
}

// Sink writes rows into one sheet of an excelize workbook, saving after every change.
type Sink struct {
	mu     sync.Mutex
	cfg    Config
	f      *excelize.File
	logger *slog.Logger
}

// Open loads the workbook at cfg.Path, creating it when missing.
func Open(cfg Config, logger *slog.Logger) (*Sink, error) {
	var f *excelize.File
	if cfg.Path != "" {
		if _, err := os.Stat(cfg.Path); err == nil {
			f, err = excelize.OpenFile(cfg.Path)
			if err != nil {
				return nil, common.NewAppError(common.CodeSink, "open workbook "+cfg.Path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, common.NewAppError(common.CodeSink, "stat workbook "+cfg.Path, err)
		}
	}
	if f == nil {
		f = excelize.NewFile()
	}
	return New(f, cfg, logger)
}

// New wraps an already open workbook.
func New(f *excelize.File, cfg Config, logger *slog.Logger) (*Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SheetName == "" {
		cfg.SheetName = "Sheet1"
	}
	if cfg.CurrencyPattern == "" {
		cfg.CurrencyPattern = sink.DefaultCurrencyPattern
	}
	idx, err := f.GetSheetIndex(cfg.SheetName)
	if err != nil {
		return nil, common.NewAppError(common.CodeSink, "look up sheet "+cfg.SheetName, err)
	}
	if idx < 0 {
		if _, err := f.NewSheet(cfg.SheetName); err != nil {
			return nil, common.NewAppError(common.CodeSink, "create sheet "+cfg.SheetName, err)
		}
	}
	return &Sink{cfg: cfg, f: f, logger: logger}, nil
}

// File exposes the workbook, mainly for tests.
func (s *Sink) File() *excelize.File { return s.f }

func (s *Sink) EnsureHeader(ctx context.Context, l layout.Layout) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.f.GetRows(s.cfg.SheetName)
	if err != nil {
		return common.NewAppError(common.CodeSink, "read rows", err)
	}
	if len(rows) > 0 && sink.HeaderMatches(rows[0], l) {
		return nil
	}

	s.logger.Warn("sink.xlsx.header_resync", "sheet", s.cfg.SheetName, "existing_rows", len(rows))
	for i := len(rows); i >= 1; i-- {
		if err := s.f.RemoveRow(s.cfg.SheetName, i); err != nil {
			return common.NewAppError(common.CodeSink, "clear sheet", err)
		}
	}

	header := l.Header()
	if err := s.f.SetSheetRow(s.cfg.SheetName, "A1", &header); err != nil {
		return common.NewAppError(common.CodeSink, "write header", err)
	}
	style, err := s.f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{sink.HeaderBackground.Hex()}},
		Font: &excelize.Font{Bold: true, Color: sink.HeaderForeground.Hex(), Size: sink.HeaderFontSize},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return common.NewAppError(common.CodeSink, "header style", err)
	}
	if err := s.f.SetCellStyle(s.cfg.SheetName, "A1", l.LastColumn()+"1", style); err != nil {
		return common.NewAppError(common.CodeSink, "apply header style", err)
	}
	for i, c := range l.Columns {
		col := layout.ColumnName(i + 1)
		if err := s.f.SetColWidth(s.cfg.SheetName, col, col, pixelsToWidth(c.Width)); err != nil {
			return common.NewAppError(common.CodeSink, "column width "+col, err)
		}
	}
	return s.save()
}

func (s *Sink) AppendRow(ctx context.Context, row []any) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.f.GetRows(s.cfg.SheetName)
	if err != nil {
		return 0, common.NewAppError(common.CodeSink, "read rows", err)
	}
	n := len(rows) + 1
	if err := s.f.SetSheetRow(s.cfg.SheetName, "A"+strconv.Itoa(n), &row); err != nil {
		return 0, common.NewAppError(common.CodeSink, "append row", err)
	}
	if err := s.save(); err != nil {
		return 0, err
	}
	s.logger.Info("sink.xlsx.append", "sheet", s.cfg.SheetName, "row", n)
	return n, nil
}

func (s *Sink) FormatRow(ctx context.Context, rowNumber int, l layout.Layout) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fill := excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{sink.RowColor(rowNumber).Hex()}}
	base, err := s.f.NewStyle(&excelize.Style{Fill: fill})
	if err != nil {
		return common.NewAppError(common.CodeSink, "row style", err)
	}
	pattern := s.cfg.CurrencyPattern
	money, err := s.f.NewStyle(&excelize.Style{Fill: fill, CustomNumFmt: &pattern})
	if err != nil {
		return common.NewAppError(common.CodeSink, "currency style", err)
	}

	r := strconv.Itoa(rowNumber)
	if err := s.f.SetCellStyle(s.cfg.SheetName, "A"+r, l.LastColumn()+r, base); err != nil {
		return common.NewAppError(common.CodeSink, "apply row style", err)
	}
	for _, idx := range l.AmountColumns() {
		cell := layout.ColumnName(idx+1) + r
		if err := s.f.SetCellStyle(s.cfg.SheetName, cell, cell, money); err != nil {
			return common.NewAppError(common.CodeSink, "apply currency style "+cell, err)
		}
	}
	return s.save()
}

// Close releases the workbook.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

func (s *Sink) save() error {
	if s.cfg.Path == "" {
		return nil
	}
	if err := s.f.SaveAs(s.cfg.Path); err != nil {
		return common.NewAppError(common.CodeSink, fmt.Sprintf("save workbook %s", s.cfg.Path), err)
	}
	return nil
}

// pixelsToWidth converts a pixel width to excelize character units.
func pixelsToWidth(px float64) float64 {
	if px <= 0 {
		return 10
	}
	return px / 7
}
