// Package telegram adapts the Telegram Bot API to the chat contracts.
package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/joseph-ayodele/receipts-bot/internal/chat"
	"github.com/joseph-ayodele/receipts-bot/internal/common"
)

// SecretHeader carries the webhook secret token on inbound requests.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// maxDownload caps file downloads; the Bot API serves at most 20 MB.
const maxDownload = 20 << 20

// Config for the client.
type Config struct {
	Token       string
	APIEndpoint string // default tgbotapi.APIEndpoint
	HTTPClient  *http.Client
}

// Client is a chat.Messenger and chat.FileSource backed by the Bot API.
type Client struct {
	api    *tgbotapi.BotAPI
	http   *http.Client
	logger *slog.Logger
}

// New authenticates with getMe.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = tgbotapi.APIEndpoint
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 90 * time.Second}
	}
	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.APIEndpoint, cfg.HTTPClient)
	if err != nil {
		return nil, common.NewAppError(common.CodeTransport, "connect to telegram", err)
	}
	logger.Info("telegram.connected", "username", api.Self.UserName)
	return &Client{api: api, http: cfg.HTTPClient, logger: logger}, nil
}

// Username is the bot's handle.
func (c *Client) Username() string { return c.api.Self.UserName }

func (c *Client) Send(ctx context.Context, chatID int64, text string, opts chat.SendOptions) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if opts.Markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	if opts.ReplyTo != 0 {
		msg.ReplyToMessageID = opts.ReplyTo
	}
	if len(opts.Keyboard) > 0 {
		msg.ReplyMarkup = inlineKeyboard(opts.Keyboard)
	}
	sent, err := c.api.Send(msg)
	if err != nil {
		c.logger.Error("telegram.send.failed", "chat_id", chatID, "error", err)
		return 0, common.NewAppError(common.CodeTransport, "send message", err)
	}
	return sent.MessageID, nil
}

func (c *Client) Edit(ctx context.Context, chatID int64, messageID int, text string, opts chat.SendOptions) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if opts.Markdown {
		edit.ParseMode = tgbotapi.ModeMarkdown
	}
	if len(opts.Keyboard) > 0 {
		kb := inlineKeyboard(opts.Keyboard)
		edit.ReplyMarkup = &kb
	}
	if _, err := c.api.Request(edit); err != nil {
		c.logger.Error("telegram.edit.failed", "chat_id", chatID, "message_id", messageID, "error", err)
		return common.NewAppError(common.CodeTransport, "edit message", err)
	}
	return nil
}

func (c *Client) AnswerCallback(ctx context.Context, callbackID string) error {
	if _, err := c.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		return common.NewAppError(common.CodeTransport, "answer callback", err)
	}
	return nil
}

// Fetch resolves the file path and downloads the content.
func (c *Client) Fetch(ctx context.Context, fileID string) (chat.File, error) {
	f, err := c.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return chat.File{}, common.NewAppError(common.CodeTransport, "get file", err)
	}
	link := f.Link(c.api.Token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return chat.File{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return chat.File{}, common.NewAppError(common.CodeTransport, "download file", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Warn("telegram response body close error", "error", err)
		}
	}(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return chat.File{}, common.NewAppError(common.CodeTransport,
			fmt.Sprintf("download file: status %d", resp.StatusCode), nil)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownload))
	if err != nil {
		return chat.File{}, common.NewAppError(common.CodeTransport, "read file", err)
	}
	c.logger.Debug("telegram.fetch.ok", "file_id", fileID, "bytes", len(data))
	return chat.File{Data: data, Link: link}, nil
}

func inlineKeyboard(kb chat.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, r := range kb {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
