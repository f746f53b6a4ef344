package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/receipts-bot/internal/common"
)

var jsonLogs bool

var rootCmd = &cobra.Command{
	Use:           "receiptbot",
	Short:         "Telegram receipt bot that files receipts into a spreadsheet",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "log as JSON instead of text")
	rootCmd.AddCommand(pollCmd, webhookCmd, extractCmd, jobsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("receiptbot failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and installs the process logger.
func loadConfig() (*common.Config, *slog.Logger, error) {
	cfg, err := common.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := common.NewLogger(os.Stderr, cfg.LogLevel, jsonLogs)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
