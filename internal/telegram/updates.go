package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/joseph-ayodele/receipts-bot/constants"
	"github.com/joseph-ayodele/receipts-bot/internal/chat"
	"github.com/joseph-ayodele/receipts-bot/internal/common"
	"github.com/joseph-ayodele/receipts-bot/internal/entity"
)

// FromUpdate converts a Bot API update. Updates the bot does not act on
// (edits, channel posts, messages without a sender) report false.
func FromUpdate(u tgbotapi.Update) (chat.Update, bool) {
	if cq := u.CallbackQuery; cq != nil {
		if cq.From == nil || cq.Message == nil || cq.Message.Chat == nil {
			return chat.Update{}, false
		}
		return chat.Update{
			UpdateID:    u.UpdateID,
			SubmitterID: cq.From.ID,
			ChatID:      cq.Message.Chat.ID,
			MessageID:   cq.Message.MessageID,
			Callback:    &chat.Callback{ID: cq.ID, Data: cq.Data, MessageID: cq.Message.MessageID},
		}, true
	}

	m := u.Message
	if m == nil || m.From == nil || m.Chat == nil {
		return chat.Update{}, false
	}
	out := chat.Update{
		UpdateID:    u.UpdateID,
		SubmitterID: m.From.ID,
		ChatID:      m.Chat.ID,
		MessageID:   m.MessageID,
	}
	switch {
	case m.IsCommand():
		out.Command = m.Command()
	case len(m.Photo) > 0:
		// largest size is last
		p := m.Photo[len(m.Photo)-1]
		out.Attachment = &chat.Attachment{
			Kind: constants.KindPhoto,
			File: entity.FileRef{FileID: p.FileID, Size: int64(p.FileSize)},
		}
	case m.Document != nil:
		d := m.Document
		out.Attachment = &chat.Attachment{
			Kind: constants.KindDocument,
			File: entity.FileRef{FileID: d.FileID, FileName: d.FileName, MimeType: d.MimeType, Size: int64(d.FileSize)},
		}
	case m.Text != "":
		out.Text = m.Text
	default:
		out.Attachment = &chat.Attachment{Kind: constants.KindOther}
	}
	return out, true
}

// Poll long-polls getUpdates and hands each update to handle until ctx is done.
// Updates queued while the bot was down are dropped on start.
func (c *Client) Poll(ctx context.Context, timeoutSeconds int, handle func(context.Context, chat.Update)) error {
	if _, err := c.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		c.logger.Warn("telegram.poll.delete_webhook_failed", "error", err)
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = timeoutSeconds
	updates := c.api.GetUpdatesChan(cfg)
	c.logger.Info("telegram.poll.start", "timeout", timeoutSeconds)

	for {
		select {
		case <-ctx.Done():
			c.api.StopReceivingUpdates()
			c.logger.Info("telegram.poll.stop")
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			if cu, ok := FromUpdate(u); ok {
				handle(ctx, cu)
			}
		}
	}
}

// SetWebhook registers the public webhook URL, with the secret token when given.
func (c *Client) SetWebhook(ctx context.Context, webhookURL, secret string) error {
	if _, err := url.ParseRequestURI(webhookURL); err != nil {
		return common.NewAppError(common.CodeConfig, "invalid webhook url", err)
	}
	params := tgbotapi.Params{}
	params["url"] = webhookURL
	params.AddNonEmpty("secret_token", secret)
	if _, err := c.api.MakeRequest("setWebhook", params); err != nil {
		return common.NewAppError(common.CodeTransport, "set webhook", err)
	}
	c.logger.Info("telegram.webhook.registered", "url", webhookURL, "secret", secret != "")
	return nil
}

// DecodeWebhook reads an update from an inbound webhook request.
func DecodeWebhook(r *http.Request) (tgbotapi.Update, error) {
	var u tgbotapi.Update
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return u, fmt.Errorf("%w: read body: %v", common.ErrInvalidInput, err)
	}
	if err := json.Unmarshal(body, &u); err != nil {
		return u, fmt.Errorf("%w: decode update: %v", common.ErrInvalidInput, err)
	}
	return u, nil
}
