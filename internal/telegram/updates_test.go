package telegram

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receipts-bot/constants"
	"github.com/joseph-ayodele/receipts-bot/internal/chat"
	"github.com/joseph-ayodele/receipts-bot/internal/common"
)

func decode(t *testing.T, body string) tgbotapi.Update {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	u, err := DecodeWebhook(req)
	require.NoError(t, err)
	return u
}

func TestFromUpdate(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		skip  bool
		check func(t *testing.T, u chat.Update)
	}{
		{
			name: "command",
			body: `{"update_id":1,"message":{"message_id":5,"from":{"id":42},"chat":{"id":43,"type":"private"},
				"text":"/start","entities":[{"type":"bot_command","offset":0,"length":6}]}}`,
			check: func(t *testing.T, u chat.Update) {
				assert.Equal(t, "start", u.Command)
				assert.Empty(t, u.Text)
				assert.Equal(t, int64(42), u.SubmitterID)
				assert.Equal(t, int64(43), u.ChatID)
				assert.Equal(t, 5, u.MessageID)
			},
		},
		{
			name: "largest photo wins",
			body: `{"update_id":2,"message":{"message_id":6,"from":{"id":42},"chat":{"id":42,"type":"private"},
				"photo":[{"file_id":"small","file_unique_id":"s","width":90,"height":90,"file_size":1000},
				         {"file_id":"big","file_unique_id":"b","width":1280,"height":960,"file_size":50000}]}}`,
			check: func(t *testing.T, u chat.Update) {
				require.NotNil(t, u.Attachment)
				assert.Equal(t, constants.KindPhoto, u.Attachment.Kind)
				assert.Equal(t, "big", u.Attachment.File.FileID)
				assert.Equal(t, int64(50000), u.Attachment.File.Size)
			},
		},
		{
			name: "document",
			body: `{"update_id":3,"message":{"message_id":7,"from":{"id":42},"chat":{"id":42,"type":"private"},
				"document":{"file_id":"doc1","file_unique_id":"d","file_name":"bill.pdf","mime_type":"application/pdf","file_size":2048}}}`,
			check: func(t *testing.T, u chat.Update) {
				require.NotNil(t, u.Attachment)
				assert.Equal(t, constants.KindDocument, u.Attachment.Kind)
				assert.Equal(t, "doc1", u.Attachment.File.FileID)
				assert.Equal(t, "bill.pdf", u.Attachment.File.FileName)
				assert.Equal(t, "application/pdf", u.Attachment.File.MimeType)
			},
		},
		{
			name: "text",
			body: `{"update_id":4,"message":{"message_id":8,"from":{"id":42},"chat":{"id":42,"type":"private"},"text":"Rahul"}}`,
			check: func(t *testing.T, u chat.Update) {
				assert.Equal(t, "Rahul", u.Text)
				assert.Nil(t, u.Attachment)
			},
		},
		{
			name: "other media",
			body: `{"update_id":5,"message":{"message_id":9,"from":{"id":42},"chat":{"id":42,"type":"private"},
				"sticker":{"file_id":"st","file_unique_id":"st","width":512,"height":512,"is_animated":false}}}`,
			check: func(t *testing.T, u chat.Update) {
				require.NotNil(t, u.Attachment)
				assert.Equal(t, constants.KindOther, u.Attachment.Kind)
			},
		},
		{
			name: "callback",
			body: `{"update_id":6,"callback_query":{"id":"cb1","from":{"id":42},"data":"inv_3",
				"message":{"message_id":77,"chat":{"id":42,"type":"private"}}}}`,
			check: func(t *testing.T, u chat.Update) {
				require.NotNil(t, u.Callback)
				assert.Equal(t, "cb1", u.Callback.ID)
				assert.Equal(t, "inv_3", u.Callback.Data)
				assert.Equal(t, 77, u.Callback.MessageID)
				assert.Equal(t, int64(42), u.SubmitterID)
			},
		},
		{
			name: "message without sender",
			body: `{"update_id":7,"message":{"message_id":10,"chat":{"id":-100,"type":"channel"},"text":"hi"}}`,
			skip: true,
		},
		{
			name: "callback without message",
			body: `{"update_id":8,"callback_query":{"id":"cb2","from":{"id":42},"inline_message_id":"x","data":"inv_0"}}`,
			skip: true,
		},
		{
			name: "edited message",
			body: `{"update_id":9,"edited_message":{"message_id":11,"from":{"id":42},"chat":{"id":42,"type":"private"},"text":"x"}}`,
			skip: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := decode(t, tt.body)
			u, ok := FromUpdate(raw)
			if tt.skip {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, raw.UpdateID, u.UpdateID)
			tt.check(t, u)
		})
	}
}

func TestDecodeWebhookRejectsGarbage(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("<xml/>"))
	_, err := DecodeWebhook(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Equal(t, http.StatusBadRequest, common.HTTPStatus(err))
}
