package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/receipts-bot/internal/async"
	"github.com/joseph-ayodele/receipts-bot/internal/chat"
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Receive updates by long polling",
	Args:  cobra.NoArgs,
	RunE:  runPoll,
}

func runPoll(cmd *cobra.Command, _ []string) error {
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

	d := async.NewDispatcher(a.bot.Handle, logger,
		async.WithWorkers(cfg.Bot.Workers),
		async.WithQueueSize(cfg.Bot.QueueSize),
		async.WithProcessTimeout(cfg.Bot.ProcessTimeout),
	)

	logger.Info("receiptbot polling", "bot", a.telegram.Username(), "workers", cfg.Bot.Workers)
	err = a.telegram.Poll(ctx, cfg.Telegram.PollTimeout, func(ctx context.Context, u chat.Update) {
		if err := d.Enqueue(ctx, u); err != nil {
			logger.Warn("dispatch.enqueue.failed", "update_id", u.UpdateID, "error", err)
		}
	})

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Bot.ProcessTimeout+10*time.Second)
	defer cancel()
	d.Shutdown(drainCtx)
	return err
}
