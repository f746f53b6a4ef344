package main

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/receipts-bot/internal/server"
)

var skipRegister bool

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Serve the webhook endpoint and health checks",
	Args:  cobra.NoArgs,
	RunE:  runWebhook,
}

func init() {
	webhookCmd.Flags().BoolVar(&skipRegister, "no-register", false, "do not call setWebhook on startup")
}

func runWebhook(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if !skipRegister && cfg.Telegram.WebhookURL != "" {
		if err := a.telegram.SetWebhook(ctx, cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret); err != nil {
			return err
		}
	}

	router := server.NewRouter(a.bot, server.WebhookConfig{
		Secret:        cfg.Telegram.WebhookSecret,
		HandleTimeout: cfg.Bot.ProcessTimeout,
	}, logger)

	// the health service outlives the HTTP drain and reports NOT_SERVING during it
	healthCtx, stopHealth := context.WithCancel(context.WithoutCancel(ctx))
	defer stopHealth()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stopHealth()
		return server.ListenAndServe(gctx, cfg.Server.HTTPAddr, router, logger)
	})
	if cfg.Server.GRPCHealthAddr != "" {
		hs := server.NewHealthServer(logger)
		g.Go(func() error {
			return hs.Serve(healthCtx, cfg.Server.GRPCHealthAddr)
		})
		g.Go(func() error {
			<-gctx.Done()
			hs.SetServing(false)
			return nil
		})
	}

	logger.Info("receiptbot serving webhook", "bot", a.telegram.Username(), "addr", cfg.Server.HTTPAddr)
	return g.Wait()
}
