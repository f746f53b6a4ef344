// Package pipeline runs one attributed upload from download to saved row.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipts-bot/internal/chat"
	"github.com/joseph-ayodele/receipts-bot/internal/common"
	"github.com/joseph-ayodele/receipts-bot/internal/entity"
	"github.com/joseph-ayodele/receipts-bot/internal/layout"
	"github.com/joseph-ayodele/receipts-bot/internal/pipeline/parsefields"
	"github.com/joseph-ayodele/receipts-bot/internal/pipeline/textextract"
	"github.com/joseph-ayodele/receipts-bot/internal/repository"
	"github.com/joseph-ayodele/receipts-bot/internal/session"
	"github.com/joseph-ayodele/receipts-bot/internal/sink"
)

// Flow is one upload with its attribution settled.
type Flow struct {
	Upload      entity.PendingUpload
	Attribution string
	// StatusMessageID is edited with progress; 0 sends a fresh status message.
	StatusMessageID int
}

// Archiver copies the upload somewhere durable and returns the link to use in the row.
type Archiver interface {
	Put(ctx context.Context, submitterID int64, ext string, data []byte, contentType string) (string, error)
}

// Config for the processor.
type Config struct {
	TempDir         string
	DefaultCurrency string
	Layout          layout.Layout
}

// Processor coordinates text extraction then field extraction, then writes the row.
type Processor struct {
	Logger    *slog.Logger
	Cfg       Config
	Files     chat.FileSource
	Messenger chat.Messenger
	OCR       *textextract.Pipeline
	Parse     *parsefields.Pipeline
	Sink      sink.Sink
	Sessions  session.Store

	// optional
	Jobs    repository.ExtractJobRepository
	Archive Archiver
}

func NewProcessor(logger *slog.Logger, cfg Config, files chat.FileSource, msgr chat.Messenger,
	ocr *textextract.Pipeline, parse *parsefields.Pipeline, out sink.Sink, sessions session.Store) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "INR"
	}
	if len(cfg.Layout.Columns) == 0 {
		cfg.Layout = layout.SimpleLayout()
	}
	return &Processor{
		Logger:    logger,
		Cfg:       cfg,
		Files:     files,
		Messenger: msgr,
		OCR:       ocr,
		Parse:     parse,
		Sink:      out,
		Sessions:  sessions,
	}
}

// TempPath is where the upload is staged while the flow runs.
func (p *Processor) TempPath(u entity.PendingUpload) string {
	return filepath.Join(p.Cfg.TempDir, "receipt_"+strconv.FormatInt(u.SubmitterID, 10)+"."+u.Ext())
}

// Process runs the flow. Transcription failures are reported to the user and end the
// flow without an error; download and sink failures are returned. The staged file and
// the submitter's session are removed exactly once on every path.
func (p *Processor) Process(ctx context.Context, f Flow) error {
	u := f.Upload
	ctx = common.WithSubmitterID(ctx, u.SubmitterID)
	log := p.Logger.With("submitter_id", u.SubmitterID, "file_id", u.File.FileID)
	start := time.Now()

	path := p.TempPath(u)
	cleanup := sync.OnceFunc(func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warn("pipeline.cleanup.remove_failed", "path", path, "error", err)
		}
		if err := p.Sessions.Delete(context.WithoutCancel(ctx), u.SubmitterID); err != nil {
			log.Warn("pipeline.cleanup.session_failed", "error", err)
		}
	})
	defer cleanup()

	status := p.status(ctx, u.ChatID, f.StatusMessageID, processingText(f.Attribution))
	jobID := p.startJob(ctx, f)

	file, err := p.Files.Fetch(ctx, u.File.FileID)
	if err != nil {
		log.Error("pipeline.download.failed", "error", err)
		p.failJob(ctx, jobID, err)
		status.update(errorText(err), false)
		return common.NewAppError(common.CodeTransport, "download upload", err)
	}
	if err := os.WriteFile(path, file.Data, 0o600); err != nil {
		log.Error("pipeline.stage.failed", "path", path, "error", err)
		p.failJob(ctx, jobID, err)
		status.update(errorText(err), false)
		return fmt.Errorf("stage upload: %w", err)
	}

	// 1) text extraction
	tr, err := p.OCR.Run(ctx, file.Data, u.MimeType())
	if err != nil {
		log.Warn("pipeline.transcribe.failed", "error", err)
		p.failJob(ctx, jobID, err)
		status.update(transcriptionFailedText(err), false)
		return nil
	}
	if jobID != uuid.Nil {
		_ = p.Jobs.FinishOCRSuccess(ctx, jobID, tr.Text, tr.Method)
	}

	// 2) field extraction, never fails
	ex := p.Parse.Run(ctx, tr.Text)
	if jobID != uuid.Nil {
		if b, err := json.Marshal(ex.Receipt); err == nil {
			_ = p.Jobs.FinishParse(ctx, jobID, b, ex.Outcome == entity.NeedsReview, ex.ModelCalls)
		}
	}

	link := file.Link
	if p.Archive != nil {
		if archived, err := p.Archive.Put(ctx, u.SubmitterID, u.Ext(), file.Data, u.MimeType()); err != nil {
			log.Warn("pipeline.archive.failed", "error", err)
		} else {
			link = archived
		}
	}

	// 3) record emission
	row := p.Cfg.Layout.Row(layout.Input{
		Attribution:     f.Attribution,
		Receipt:         ex.Receipt,
		ImageLink:       link,
		DefaultCurrency: p.Cfg.DefaultCurrency,
	})
	rowNumber, err := p.Sink.AppendRow(ctx, row)
	if err != nil {
		log.Error("pipeline.sink.append_failed", "error", err)
		p.failJob(ctx, jobID, err)
		status.update(sinkFailedText(err), false)
		return err
	}
	if err := p.Sink.FormatRow(ctx, rowNumber, p.Cfg.Layout); err != nil {
		// the row is saved, formatting is cosmetic
		log.Warn("pipeline.sink.format_failed", "row", rowNumber, "error", err)
	}
	if jobID != uuid.Nil {
		_ = p.Jobs.FinishSaved(ctx, jobID, rowNumber, link)
	}

	status.update(ReplyText(f.Attribution, ex, link, tr.Text, p.Cfg.DefaultCurrency), true)
	log.Info("pipeline.ok",
		"row", rowNumber, "outcome", ex.Outcome, "placeholder", ex.Placeholder,
		"model_calls", ex.ModelCalls, "method", tr.Method,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// statusMessage is the single message a flow keeps rewriting.
type statusMessage struct {
	p      *Processor
	ctx    context.Context
	chatID int64
	id     int
}

// status posts (or edits into place) the processing message.
func (p *Processor) status(ctx context.Context, chatID int64, messageID int, text string) *statusMessage {
	s := &statusMessage{p: p, ctx: ctx, chatID: chatID, id: messageID}
	s.update(text, true)
	return s
}

func (s *statusMessage) update(text string, markdown bool) {
	opts := chat.SendOptions{Markdown: markdown}
	if s.id == 0 {
		id, err := s.p.Messenger.Send(s.ctx, s.chatID, text, opts)
		if err != nil {
			s.p.Logger.Warn("pipeline.status.send_failed", "error", err)
			return
		}
		s.id = id
		return
	}
	if err := s.p.Messenger.Edit(s.ctx, s.chatID, s.id, text, opts); err != nil {
		s.p.Logger.Warn("pipeline.status.edit_failed", "error", err)
	}
}

func (p *Processor) startJob(ctx context.Context, f Flow) uuid.UUID {
	if p.Jobs == nil {
		return uuid.Nil
	}
	job, err := p.Jobs.Start(ctx, repository.StartJob{
		SubmitterID: f.Upload.SubmitterID,
		ChatID:      f.Upload.ChatID,
		Attribution: f.Attribution,
		FileID:      f.Upload.File.FileID,
		FileExt:     f.Upload.Ext(),
	})
	if err != nil {
		p.Logger.Warn("pipeline.journal.start_failed", "error", err)
		return uuid.Nil
	}
	return job.ID
}

func (p *Processor) failJob(ctx context.Context, jobID uuid.UUID, err error) {
	if jobID == uuid.Nil {
		return
	}
	_ = p.Jobs.FinishFailure(ctx, jobID, err.Error())
}
