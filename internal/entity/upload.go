package entity

import (
	"time"

	"github.com/joseph-ayodele/receipts-bot/constants"
)

// FileRef points at a file held by the chat platform.
type FileRef struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// PendingUpload is the receipt a submitter sent while attribution is still open.
type PendingUpload struct {
	SubmitterID int64              `json:"submitter_id"`
	ChatID      int64              `json:"chat_id"`
	MessageID   int                `json:"message_id"`
	File        FileRef            `json:"file"`
	Kind        constants.FileKind `json:"kind"`
	ReceivedAt  time.Time          `json:"received_at"`
}

// Ext is the extension used for the temp copy and the MIME tag.
func (u PendingUpload) Ext() string {
	if u.Kind == constants.KindDocument && u.File.FileName != "" {
		return constants.ExtFromName(u.File.FileName)
	}
	return constants.DefaultExt
}

// MimeType is derived from Ext, same as the stored file name.
func (u PendingUpload) MimeType() string {
	return constants.MimeForExt(u.Ext())
}
