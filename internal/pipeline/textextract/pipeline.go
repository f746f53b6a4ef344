package textextract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/receipts-bot/constants"
	"github.com/joseph-ayodele/receipts-bot/internal/common"
	"github.com/joseph-ayodele/receipts-bot/internal/entity"
	"github.com/joseph-ayodele/receipts-bot/internal/llm"
)

const (
	MethodVision  = "vision"
	MethodPDFText = "pdf-text"
)

// Config holds the vision request settings.
type Config struct {
	Model       string
	MaxTokens   int     // default 2000
	Temperature float32 // default 0.1
	MinChars    int     // default 10
}

type Pipeline struct {
	Completer llm.Completer
	Cfg       Config
	Log       *slog.Logger
}

func NewPipeline(c llm.Completer, cfg Config, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.1
	}
	if cfg.MinChars <= 0 {
		cfg.MinChars = 10
	}
	return &Pipeline{Completer: c, Cfg: cfg, Log: log}
}

// Run transcribes the receipt. PDFs with an embedded text layer are read directly;
// everything else goes to the vision model as a data URL. A trimmed result shorter
// than MinChars is ErrNoText.
func (p *Pipeline) Run(ctx context.Context, data []byte, mimeType string) (entity.Transcription, error) {
	start := time.Now()

	if mimeType == constants.MimePDF {
		text, err := ExtractPDF(data)
		switch {
		case err != nil:
			p.Log.Info("textextract.pdf.no_text_layer", "error", err)
		case p.longEnough(text):
			p.Log.Info("textextract.ok",
				"method", MethodPDFText, "text_len", len(text),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return entity.Transcription{Text: text, Method: MethodPDFText}, nil
		}
	}

	resp, err := p.Completer.Complete(ctx, llm.CompletionRequest{
		Model:        p.Cfg.Model,
		Prompt:       llm.VisionPrompt,
		ImageDataURL: llm.DataURL(mimeType, data),
		MaxTokens:    p.Cfg.MaxTokens,
		Temperature:  p.Cfg.Temperature,
	})
	if err != nil {
		p.Log.Error("textextract.vision.failed", "model", p.Cfg.Model, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return entity.Transcription{}, common.NewAppError(common.CodeTranscribe, "vision transcription", err)
	}

	text := strings.TrimSpace(resp)
	if !p.longEnough(text) {
		p.Log.Warn("textextract.vision.too_short", "model", p.Cfg.Model, "text_len", len(text))
		return entity.Transcription{}, common.NewAppError(common.CodeTranscribe,
			fmt.Sprintf("transcription shorter than %d characters", p.Cfg.MinChars), common.ErrNoText)
	}

	p.Log.Info("textextract.ok",
		"method", MethodVision, "model", p.Cfg.Model, "text_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return entity.Transcription{Text: text, Method: MethodVision, Model: p.Cfg.Model}, nil
}

func (p *Pipeline) longEnough(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) >= p.Cfg.MinChars
}
