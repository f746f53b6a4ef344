// Package server exposes the webhook endpoint and health checks.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/joseph-ayodele/receipts-bot/internal/chat"
	"github.com/joseph-ayodele/receipts-bot/internal/common"
	"github.com/joseph-ayodele/receipts-bot/internal/telegram"
)

// Handler acts on one converted update.
type Handler interface {
	Handle(ctx context.Context, u chat.Update) error
}

// WebhookConfig for the HTTP router.
type WebhookConfig struct {
	Path   string // default /webhook
	Secret string // empty disables the header check
	// HandleTimeout bounds one update. Handling is detached from the request,
	// so a client hanging up does not abort a flow already under way. Default 3m.
	HandleTimeout time.Duration
}

// NewRouter builds the HTTP surface: POST webhook and GET /health.
func NewRouter(h Handler, cfg WebhookConfig, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Path == "" {
		cfg.Path = "/webhook"
	}
	if cfg.HandleTimeout <= 0 {
		cfg.HandleTimeout = 3 * time.Minute
	}

	r := mux.NewRouter()
	r.Use(requestLogger(logger))
	r.Use(recovery(logger))

	wh := &webhook{handler: h, secret: cfg.Secret, timeout: cfg.HandleTimeout, logger: logger}
	r.Handle(cfg.Path, wh).Methods(http.MethodPost)
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	return r
}

type webhook struct {
	handler Handler
	secret  string
	timeout time.Duration
	logger  *slog.Logger
}

func (h *webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.secret != "" {
		got := r.Header.Get(telegram.SecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			h.logger.Warn("webhook.unauthorized", "req_id", common.RequestIDFromContext(ctx))
			http.Error(w, common.ErrUnauthorized.Error(), http.StatusUnauthorized)
			return
		}
	}

	raw, err := telegram.DecodeWebhook(r)
	if err != nil {
		h.logger.Warn("webhook.decode.failed", "req_id", common.RequestIDFromContext(ctx), "error", err)
		http.Error(w, err.Error(), common.HTTPStatus(err))
		return
	}

	u, ok := telegram.FromUpdate(raw)
	if !ok {
		h.logger.Debug("webhook.skip", "update_id", raw.UpdateID)
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.timeout)
	defer cancel()
	ctx = common.WithSubmitterID(ctx, u.SubmitterID)
	if err := h.handler.Handle(ctx, u); err != nil {
		h.logger.Error("webhook.handle.failed", "req_id", common.RequestIDFromContext(ctx),
			"update_id", u.UpdateID, "submitter_id", u.SubmitterID, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = uuid.NewString()
			}
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(common.WithRequestID(r.Context(), reqID)))
			logger.Info("http.request",
				"req_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

func recovery(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("http.panic", "req_id", common.RequestIDFromContext(r.Context()), "panic", rec)
					http.Error(w, common.ErrInternal.Error(), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// ListenAndServe runs h on addr until ctx is done, then shuts down within 10s.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logger.Info("http.listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
