// Package chattest provides in-memory chat fakes for tests.
package chattest

import (
	"context"
	"sync"

	"github.com/joseph-ayodele/receipts-bot/internal/chat"
	"github.com/joseph-ayodele/receipts-bot/internal/common"
)

// Message is one recorded Send or Edit.
type Message struct {
	ChatID    int64
	MessageID int
	Text      string
	Opts      chat.SendOptions
	Edit      bool
}

// Messenger records outgoing messages. Message IDs start at 100.
type Messenger struct {
	mu       sync.Mutex
	Messages []Message
	Answered []string
	SendErr  error
	EditErr  error
	next     int
}

func (m *Messenger) Send(_ context.Context, chatID int64, text string, opts chat.SendOptions) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return 0, m.SendErr
	}
	m.next++
	id := 99 + m.next
	m.Messages = append(m.Messages, Message{ChatID: chatID, MessageID: id, Text: text, Opts: opts})
	return id, nil
}

func (m *Messenger) Edit(_ context.Context, chatID int64, messageID int, text string, opts chat.SendOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EditErr != nil {
		return m.EditErr
	}
	m.Messages = append(m.Messages, Message{ChatID: chatID, MessageID: messageID, Text: text, Opts: opts, Edit: true})
	return nil
}

func (m *Messenger) AnswerCallback(_ context.Context, callbackID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Answered = append(m.Answered, callbackID)
	return nil
}

// Last returns the most recent message, or a zero Message.
func (m *Messenger) Last() Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Messages) == 0 {
		return Message{}
	}
	return m.Messages[len(m.Messages)-1]
}

// Texts returns every recorded text in order.
func (m *Messenger) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Messages))
	for _, msg := range m.Messages {
		out = append(out, msg.Text)
	}
	return out
}

// Files serves uploads from a map keyed by file ID.
type Files struct {
	mu      sync.Mutex
	Content map[string][]byte
	Calls   int
	Err     error
}

func (f *Files) Fetch(_ context.Context, fileID string) (chat.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if f.Err != nil {
		return chat.File{}, f.Err
	}
	data, ok := f.Content[fileID]
	if !ok {
		return chat.File{}, common.NewAppError(common.CodeTransport, "fetch "+fileID, common.ErrNotFound)
	}
	return chat.File{Data: data, Link: "https://files.example/" + fileID}, nil
}
