package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/receipts-bot/constants"
	"github.com/joseph-ayodele/receipts-bot/internal/entity"
	"github.com/joseph-ayodele/receipts-bot/internal/layout"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Run text and field extraction on a local receipt and print the result",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

type extractOutput struct {
	File          string         `json:"file"`
	Method        string         `json:"method"`
	Transcription string         `json:"transcription"`
	Outcome       entity.Outcome `json:"outcome"`
	Placeholder   bool           `json:"placeholder"`
	ModelCalls    int            `json:"model_calls"`
	Receipt       entity.Receipt `json:"receipt"`
	ElapsedMS     int64          `json:"elapsed_ms"`
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateLLM(); err != nil {
		return err
	}
	l, err := layout.ByVersion(cfg.Sheet.Layout)
	if err != nil {
		return err
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	start := time.Now()
	ocr, parse := extractors(cfg, l, logger)
	tr, err := ocr.Run(ctx, data, constants.MimeForExt(constants.ExtFromName(path)))
	if err != nil {
		return err
	}
	ex := parse.Run(ctx, tr.Text)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(extractOutput{
		File:          filepath.Base(path),
		Method:        tr.Method,
		Transcription: tr.Text,
		Outcome:       ex.Outcome,
		Placeholder:   ex.Placeholder,
		ModelCalls:    ex.ModelCalls,
		Receipt:       ex.Receipt,
		ElapsedMS:     time.Since(start).Milliseconds(),
	})
}
