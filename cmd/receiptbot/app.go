package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/receipts-bot/internal/bot"
	"github.com/joseph-ayodele/receipts-bot/internal/common"
	"github.com/joseph-ayodele/receipts-bot/internal/layout"
	"github.com/joseph-ayodele/receipts-bot/internal/llm/openai"
	"github.com/joseph-ayodele/receipts-bot/internal/pipeline"
	"github.com/joseph-ayodele/receipts-bot/internal/pipeline/parsefields"
	"github.com/joseph-ayodele/receipts-bot/internal/pipeline/textextract"
	"github.com/joseph-ayodele/receipts-bot/internal/repository"
	"github.com/joseph-ayodele/receipts-bot/internal/session"
	"github.com/joseph-ayodele/receipts-bot/internal/sink"
	"github.com/joseph-ayodele/receipts-bot/internal/sink/sheets"
	"github.com/joseph-ayodele/receipts-bot/internal/sink/xlsx"
	"github.com/joseph-ayodele/receipts-bot/internal/storage"
	"github.com/joseph-ayodele/receipts-bot/internal/telegram"
)

// app is everything a serving command needs, wired from config.
type app struct {
	cfg      *common.Config
	logger   *slog.Logger
	telegram *telegram.Client
	bot      *bot.Bot
	closers  []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// extractors builds the two model-backed stages.
func extractors(cfg *common.Config, l layout.Layout, logger *slog.Logger) (*textextract.Pipeline, *parsefields.Pipeline) {
	client := openai.NewClient(openai.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.Timeout,
	}, logger)

	ocr := textextract.NewPipeline(client, textextract.Config{
		Model:       cfg.LLM.VisionModel,
		MaxTokens:   cfg.LLM.VisionMaxTokens,
		Temperature: cfg.LLM.Temperature,
	}, logger)

	parse := parsefields.NewPipeline(logger, parsefields.Config{
		Model:           cfg.LLM.TextModel,
		MaxTokens:       cfg.LLM.FieldsMaxTokens,
		RepairMaxTokens: cfg.LLM.RepairMaxTokens,
		Temperature:     cfg.LLM.Temperature,
		DefaultCurrency: cfg.Sheet.DefaultCurrency,
		Layout:          l,
	}, client)
	return ocr, parse
}

func newApp(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l, err := layout.ByVersion(cfg.Sheet.Layout)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	tg, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		APIEndpoint: cfg.Telegram.APIEndpoint,
	}, logger)
	if err != nil {
		return nil, err
	}
	a.telegram = tg

	store, err := openSessions(ctx, cfg, a)
	if err != nil {
		return nil, err
	}

	out, err := openSink(ctx, cfg, a, logger)
	if err != nil {
		return nil, err
	}
	if err := out.EnsureHeader(ctx, l); err != nil {
		return nil, err
	}

	ocr, parse := extractors(cfg, l, logger)
	proc := pipeline.NewProcessor(logger, pipeline.Config{
		TempDir:         cfg.Bot.TempDir,
		DefaultCurrency: cfg.Sheet.DefaultCurrency,
		Layout:          l,
	}, tg, tg, ocr, parse, out, store)

	if cfg.Journal.DSN != "" {
		db, err := openJournal(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		proc.Jobs = repository.NewExtractJobRepository(db, logger)
	}

	if cfg.Archive.Endpoint != "" {
		arch, err := storage.NewArchive(ctx, storage.Config{
			Endpoint:      cfg.Archive.Endpoint,
			AccessKey:     cfg.Archive.AccessKey,
			SecretKey:     cfg.Archive.SecretKey,
			Bucket:        cfg.Archive.Bucket,
			UseSSL:        cfg.Archive.UseSSL,
			PublicBaseURL: cfg.Archive.PublicBaseURL,
			PresignExpiry: cfg.Archive.PresignExpiry,
		}, logger)
		if err != nil {
			return nil, err
		}
		proc.Archive = arch
	}

	a.bot = bot.New(logger, store, tg, proc, cfg.Bot.Roster)
	ok = true
	return a, nil
}

func openSessions(ctx context.Context, cfg *common.Config, a *app) (session.Store, error) {
	if cfg.Session.Store != common.SessionRedis {
		return session.NewMemoryStore(cfg.Session.TTL), nil
	}
	rs, err := session.NewRedisStore(session.RedisConfig{
		Addr:     cfg.Session.RedisAddr,
		Password: cfg.Session.RedisPassword,
		DB:       cfg.Session.RedisDB,
		TTL:      cfg.Session.TTL,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = rs.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rs.Ping(pingCtx); err != nil {
		return nil, common.NewAppError(common.CodeConfig, "ping redis "+cfg.Session.RedisAddr, err)
	}
	return rs, nil
}

func openSink(ctx context.Context, cfg *common.Config, a *app, logger *slog.Logger) (sink.Sink, error) {
	switch cfg.Sheet.Sink {
	case common.SinkXLSX:
		s, err := xlsx.Open(xlsx.Config{
			Path:            cfg.Sheet.XLSXPath,
			SheetName:       cfg.Sheet.SheetName,
			CurrencyPattern: cfg.Sheet.CurrencyPattern,
		}, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = s.Close() })
		return s, nil
	default:
		return sheets.New(ctx, credentials(cfg.Sheet.CredentialsJSON), sheets.Config{
			SpreadsheetID:   cfg.Sheet.SpreadsheetID,
			SheetName:       cfg.Sheet.SheetName,
			CurrencyPattern: cfg.Sheet.CurrencyPattern,
		}, logger)
	}
}

// credentials accepts the JSON key inline or as a path to the key file.
func credentials(v string) []byte {
	if b, err := os.ReadFile(v); err == nil {
		return b
	}
	return []byte(v)
}

func openJournal(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*repository.DB, error) {
	if cfg.Journal.DSN == "" {
		return nil, common.NewAppError(common.CodeConfig, "JOURNAL_DSN is not set", common.ErrConfig)
	}
	db, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Journal.DSN,
		MaxConns:        cfg.Journal.MaxConns,
		MinConns:        cfg.Journal.MinConns,
		MaxConnLifetime: cfg.Journal.MaxConnLifetime,
		MaxConnIdleTime: cfg.Journal.MaxConnIdleTime,
		DialTimeout:     cfg.Journal.DialTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	if err := db.HealthCheck(ctx, 5*time.Second); err != nil {
		db.Close()
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
