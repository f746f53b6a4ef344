// Package chat is the transport-agnostic view of the chat platform the bot talks to.
package chat

import (
	"context"

	"github.com/joseph-ayodele/receipts-bot/constants"
	"github.com/joseph-ayodele/receipts-bot/internal/entity"
)

// Update is one inbound event. Exactly one of Command, Text, Attachment or Callback is set.
type Update struct {
	UpdateID    int
	SubmitterID int64
	ChatID      int64
	MessageID   int
	Command     string // without the slash, e.g. "start"
	Text        string
	Attachment  *Attachment
	Callback    *Callback
}

// Attachment is an uploaded photo or document.
type Attachment struct {
	Kind constants.FileKind
	File entity.FileRef
}

// Callback is an inline keyboard press.
type Callback struct {
	ID        string
	Data      string
	MessageID int // message the keyboard belongs to
}

// Button is one inline keyboard button.
type Button struct {
	Text string
	Data string
}

// Keyboard is rows of buttons.
type Keyboard [][]Button

// SendOptions modify outgoing messages.
type SendOptions struct {
	Markdown bool
	ReplyTo  int
	Keyboard Keyboard
}

// Messenger sends and edits chat messages.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string, opts SendOptions) (int, error)
	Edit(ctx context.Context, chatID int64, messageID int, text string, opts SendOptions) error
	AnswerCallback(ctx context.Context, callbackID string) error
}

// File is a downloaded upload plus the platform link to it.
type File struct {
	Data []byte
	Link string
}

// FileSource downloads uploads by file ID.
type FileSource interface {
	Fetch(ctx context.Context, fileID string) (File, error)
}
