// Package bot is the per-submitter conversation: intake, attribution, hand-off to the pipeline.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/receipts-bot/constants"
	"github.com/joseph-ayodele/receipts-bot/internal/chat"
	"github.com/joseph-ayodele/receipts-bot/internal/common"
	"github.com/joseph-ayodele/receipts-bot/internal/entity"
	"github.com/joseph-ayodele/receipts-bot/internal/pipeline"
	"github.com/joseph-ayodele/receipts-bot/internal/session"
)

// Runner executes an attributed flow.
type Runner interface {
	Process(ctx context.Context, f pipeline.Flow) error
}

// Bot routes updates through the conversation state machine.
type Bot struct {
	logger    *slog.Logger
	store     session.Store
	messenger chat.Messenger
	runner    Runner
	roster    []string
	now       func() time.Time
}

func New(logger *slog.Logger, store session.Store, msgr chat.Messenger, runner Runner, roster []string) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	if len(roster) > common.MaxRoster {
		roster = roster[:common.MaxRoster]
	}
	return &Bot{
		logger:    logger,
		store:     store,
		messenger: msgr,
		runner:    runner,
		roster:    append([]string(nil), roster...),
		now:       time.Now,
	}
}

// Keyboard lays the roster plus the escape option out two per row.
func (b *Bot) Keyboard() chat.Keyboard {
	labels := append(append([]string(nil), b.roster...), EscapeOption)
	var kb chat.Keyboard
	for i := 0; i < len(labels); i += 2 {
		row := []chat.Button{{Text: labels[i], Data: CallbackPrefix + strconv.Itoa(i)}}
		if i+1 < len(labels) {
			row = append(row, chat.Button{Text: labels[i+1], Data: CallbackPrefix + strconv.Itoa(i+1)})
		}
		kb = append(kb, row)
	}
	return kb
}

// Handle processes one update. Returned errors come from the transport, the session
// store or the pipeline's sink.
func (b *Bot) Handle(ctx context.Context, u chat.Update) error {
	switch {
	case u.Command != "":
		return b.onCommand(ctx, u)
	case u.Attachment != nil:
		return b.onAttachment(ctx, u)
	case u.Callback != nil:
		return b.onCallback(ctx, u)
	default:
		return b.onText(ctx, u)
	}
}

func (b *Bot) onCommand(ctx context.Context, u chat.Update) error {
	switch strings.ToLower(u.Command) {
	case "cancel":
		if err := b.store.Delete(ctx, u.SubmitterID); err != nil {
			return err
		}
		b.logger.Info("bot.cancel", "submitter_id", u.SubmitterID)
		_, err := b.messenger.Send(ctx, u.ChatID, CancelledText, chat.SendOptions{})
		return err
	case "start", "help":
		_, err := b.messenger.Send(ctx, u.ChatID, WelcomeText, chat.SendOptions{Markdown: true})
		return err
	default:
		b.logger.Debug("bot.command.unknown", "command", u.Command)
		_, err := b.messenger.Send(ctx, u.ChatID, RejectText, chat.SendOptions{})
		return err
	}
}

// Supported reports whether an attachment can be transcribed.
func Supported(a chat.Attachment) bool {
	switch a.Kind {
	case constants.KindPhoto:
		return true
	case constants.KindDocument:
		return constants.IsSupportedDocument(a.File.MimeType, a.File.FileName)
	default:
		return false
	}
}

func (b *Bot) onAttachment(ctx context.Context, u chat.Update) error {
	a := *u.Attachment
	if !Supported(a) {
		b.logger.Info("bot.intake.rejected", "submitter_id", u.SubmitterID,
			"mime_type", a.File.MimeType, "file_name", a.File.FileName)
		_, err := b.messenger.Send(ctx, u.ChatID, RejectText, chat.SendOptions{ReplyTo: u.MessageID})
		return err
	}

	sess := session.Session{
		SubmitterID: u.SubmitterID,
		State:       session.AwaitingAttribution,
		Upload: entity.PendingUpload{
			SubmitterID: u.SubmitterID,
			ChatID:      u.ChatID,
			MessageID:   u.MessageID,
			File:        a.File,
			Kind:        a.Kind,
			ReceivedAt:  b.now(),
		},
		UpdatedAt: b.now(),
	}
	if prev, ok, _ := b.store.Get(ctx, u.SubmitterID); ok {
		b.logger.Warn("bot.intake.overwrite", "submitter_id", u.SubmitterID,
			"previous_file_id", prev.Upload.File.FileID, "file_id", a.File.FileID)
	}

	id, err := b.messenger.Send(ctx, u.ChatID, AskAttributionText, chat.SendOptions{
		Markdown: true,
		ReplyTo:  u.MessageID,
		Keyboard: b.Keyboard(),
	})
	if err != nil {
		return err
	}
	sess.PromptMessageID = id
	if err := b.store.Put(ctx, sess); err != nil {
		return err
	}
	b.logger.Info("bot.intake.accepted", "submitter_id", u.SubmitterID, "kind", a.Kind, "file_id", a.File.FileID)
	return nil
}

// ParseCallback extracts the button index from inv_<n> data.
func ParseCallback(data string) (int, error) {
	if !strings.HasPrefix(data, CallbackPrefix) {
		return 0, fmt.Errorf("unexpected callback data %q", data)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(data, CallbackPrefix))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("unexpected callback data %q", data)
	}
	return n, nil
}

func (b *Bot) onCallback(ctx context.Context, u chat.Update) error {
	cb := u.Callback
	if err := b.messenger.AnswerCallback(ctx, cb.ID); err != nil {
		b.logger.Warn("bot.callback.answer_failed", "error", err)
	}

	idx, err := ParseCallback(cb.Data)
	if err != nil || idx > len(b.roster) {
		b.logger.Warn("bot.callback.invalid", "submitter_id", u.SubmitterID, "data", cb.Data)
		return nil
	}

	sess, ok, err := b.store.Get(ctx, u.SubmitterID)
	if err != nil {
		return err
	}
	if !ok {
		return b.messenger.Edit(ctx, u.ChatID, cb.MessageID, NotFoundText, chat.SendOptions{})
	}
	// a keyboard left over from an earlier prompt
	if sess.State != session.AwaitingAttribution {
		b.logger.Info("bot.callback.stale", "submitter_id", u.SubmitterID, "state", sess.State)
		return nil
	}

	if idx == len(b.roster) {
		sess.State = session.AwaitingCustomName
		sess.UpdatedAt = b.now()
		if err := b.store.Put(ctx, sess); err != nil {
			return err
		}
		return b.messenger.Edit(ctx, u.ChatID, cb.MessageID, AskNameText, chat.SendOptions{})
	}

	return b.run(ctx, sess, b.roster[idx], cb.MessageID)
}

func (b *Bot) onText(ctx context.Context, u chat.Update) error {
	sess, ok, err := b.store.Get(ctx, u.SubmitterID)
	if err != nil {
		return err
	}
	if !ok || sess.State != session.AwaitingCustomName {
		_, err := b.messenger.Send(ctx, u.ChatID, RejectText, chat.SendOptions{})
		return err
	}

	name := strings.TrimSpace(u.Text)
	if name == "" {
		_, err := b.messenger.Send(ctx, u.ChatID, EmptyNameText, chat.SendOptions{})
		return err
	}
	return b.run(ctx, sess, name, 0)
}

func (b *Bot) run(ctx context.Context, sess session.Session, attribution string, statusMessageID int) error {
	b.logger.Info("bot.attributed", "submitter_id", sess.SubmitterID, "attribution", attribution)
	return b.runner.Process(ctx, pipeline.Flow{
		Upload:          sess.Upload,
		Attribution:     attribution,
		StatusMessageID: statusMessageID,
	})
}
