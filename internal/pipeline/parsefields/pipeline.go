package parsefields

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/receipts-bot/constants"
	"github.com/joseph-ayodele/receipts-bot/internal/entity"
	"github.com/joseph-ayodele/receipts-bot/internal/layout"
	"github.com/joseph-ayodele/receipts-bot/internal/llm"
)

// ErrLowConfidence marks a decoded response that carries a sentinel merchant or a zero total.
var ErrLowConfidence = errors.New("insufficient data extracted")

const (
	descriptionExcerpt = 150
	itemsExcerpt       = 300
	noTextItems        = "No text extracted"
)

// Config holds the text model settings for the parse stage.
type Config struct {
	Model           string
	MaxTokens       int     // default 800
	RepairMaxTokens int     // default 500
	Temperature     float32 // default 0.1
	DefaultCurrency string  // default INR
	Layout          layout.Layout
	Categories      []string
	Now             func() time.Time
}

type Pipeline struct {
	Logger    *slog.Logger
	Cfg       Config
	Completer llm.Completer
	schema    map[string]any
}

func NewPipeline(logger *slog.Logger, cfg Config, c llm.Completer) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 800
	}
	if cfg.RepairMaxTokens <= 0 {
		cfg.RepairMaxTokens = 500
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.1
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "INR"
	}
	if len(cfg.Layout.Columns) == 0 {
		cfg.Layout = layout.SimpleLayout()
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = constants.AsStringSlice()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Pipeline{
		Logger:    logger,
		Cfg:       cfg,
		Completer: c,
		schema:    llm.BuildReceiptJSONSchema(cfg.Layout, cfg.Categories),
	}
}

// Run turns a transcription into a receipt. It never fails: a bad first response
// gets exactly one repair request, and a repair without a readable JSON object
// yields the manual-review placeholder.
func (p *Pipeline) Run(ctx context.Context, rawText string) entity.Extraction {
	start := time.Now()

	resp, err := p.Completer.Complete(ctx, llm.CompletionRequest{
		Model:       p.Cfg.Model,
		Prompt:      llm.BuildFieldsPrompt(p.Cfg.Layout, rawText, p.Cfg.DefaultCurrency, p.Cfg.Categories),
		MaxTokens:   p.Cfg.MaxTokens,
		Temperature: p.Cfg.Temperature,
	})
	if err == nil {
		var rec entity.Receipt
		rec, err = p.Decode(resp)
		if err == nil {
			err = checkConfidence(rec)
		}
		if err == nil {
			p.Logger.Info("parsefields.ok",
				"merchant", rec.Merchant, "date", rec.Date, "total", rec.Total.String(),
				"category", rec.Category, "model_calls", 1,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return entity.Extraction{Receipt: rec, Outcome: entity.Classify(rec), ModelCalls: 1, RawResponse: resp}
		}
	}

	p.Logger.Warn("parsefields.repair", "reason", err, "response_len", len(resp))
	fixed, ferr := p.Completer.Complete(ctx, llm.CompletionRequest{
		Model:       p.Cfg.Model,
		Prompt:      llm.BuildRepairPrompt(p.Cfg.Layout, resp, rawText),
		MaxTokens:   p.Cfg.RepairMaxTokens,
		Temperature: p.Cfg.Temperature,
	})
	if ferr != nil {
		p.Logger.Error("parsefields.repair.call_failed", "error", ferr)
		return p.placeholder(rawText, resp)
	}

	rec, derr := p.decodeRepair(fixed)
	if derr != nil {
		p.Logger.Error("parsefields.repair.decode_failed", "error", derr, "response_len", len(fixed))
		return p.placeholder(rawText, fixed)
	}

	outcome := entity.Classify(rec)
	p.Logger.Info("parsefields.repaired",
		"merchant", rec.Merchant, "total", rec.Total.String(), "outcome", outcome,
		"model_calls", 2, "elapsed_ms", time.Since(start).Milliseconds(),
	)
	return entity.Extraction{Receipt: rec, Outcome: outcome, ModelCalls: 2, RawResponse: fixed}
}

// Decode runs the tolerant decode, sanitize and shape check on one model response.
func (p *Pipeline) Decode(resp string) (entity.Receipt, error) {
	obj, err := llm.DecodeObject(resp)
	if err != nil {
		return entity.Receipt{}, err
	}
	clean, _, err := llm.SanitizeFields(obj, p.Cfg.Layout, p.Logger)
	if err != nil {
		return entity.Receipt{}, err
	}
	if err := llm.ValidateJSONAgainstSchema(p.schema, clean); err != nil {
		return entity.Receipt{}, err
	}
	var rec entity.Receipt
	if err := json.Unmarshal(clean, &rec); err != nil {
		return entity.Receipt{}, fmt.Errorf("unmarshal fields: %w", err)
	}
	return rec, nil
}

// decodeRepair decodes the repair response. Only a response with no readable JSON
// object is an error; shape problems are coerced, and what the schema still flags is logged.
func (p *Pipeline) decodeRepair(resp string) (entity.Receipt, error) {
	obj, err := llm.DecodeObject(resp)
	if err != nil {
		return entity.Receipt{}, err
	}
	if changed := llm.CoerceFields(obj, p.Cfg.Layout); len(changed) > 0 {
		p.Logger.Warn("parsefields.repair.coerced", "fields", changed)
	}
	clean, _, err := llm.SanitizeFields(obj, p.Cfg.Layout, p.Logger)
	if err != nil {
		return entity.Receipt{}, err
	}
	if err := llm.ValidateJSONAgainstSchema(p.schema, clean); err != nil {
		p.Logger.Warn("parsefields.repair.shape", "error", err)
	}
	var rec entity.Receipt
	if err := json.Unmarshal(clean, &rec); err != nil {
		return entity.Receipt{}, fmt.Errorf("unmarshal fields: %w", err)
	}
	return rec, nil
}

func checkConfidence(r entity.Receipt) error {
	if r.LooksFailed() {
		return fmt.Errorf("%w: merchant=%q total=%s", ErrLowConfidence, r.Merchant, r.Total.String())
	}
	return nil
}

func (p *Pipeline) placeholder(rawText, lastResponse string) entity.Extraction {
	return entity.Extraction{
		Receipt:     Placeholder(rawText, p.Cfg.Now(), p.Cfg.DefaultCurrency),
		Outcome:     entity.NeedsReview,
		Placeholder: true,
		ModelCalls:  2,
		RawResponse: lastResponse,
	}
}

// Placeholder is the fixed record saved when nothing usable came back from the model.
func Placeholder(rawText string, now time.Time, currency string) entity.Receipt {
	items := llm.Truncate(rawText, itemsExcerpt)
	if strings.TrimSpace(rawText) == "" {
		items = noTextItems
	}
	return entity.Receipt{
		Merchant:    entity.ManualReviewMerchant,
		Date:        now.Format("2006-01-02"),
		Total:       decimal.Zero,
		Currency:    currency,
		Subtotal:    decimal.Zero,
		Tax:         decimal.Zero,
		Category:    string(constants.Other),
		Description: "Auto-extraction failed. Raw: " + llm.Truncate(rawText, descriptionExcerpt),
		Items:       items,
	}
}
