package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ExtractJob is one processed upload as recorded in the journal.
type ExtractJob struct {
	ID            uuid.UUID       `json:"id"`
	SubmitterID   int64           `json:"submitter_id"`
	ChatID        int64           `json:"chat_id"`
	Attribution   string          `json:"attribution"`
	FileID        string          `json:"file_id"`
	FileExt       string          `json:"file_ext"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    *time.Time      `json:"finished_at,omitempty"`
	Status        string          `json:"status"`
	ErrorMessage  *string         `json:"error_message,omitempty"`
	NeedsReview   bool            `json:"needs_review"`
	Method        *string         `json:"method,omitempty"`
	OCRText       *string         `json:"ocr_text,omitempty"`
	ExtractedJSON json.RawMessage `json:"extracted_json,omitempty"`
	ModelCalls    int             `json:"model_calls"`
	RowNumber     *int            `json:"row_number,omitempty"`
	ImageLink     *string         `json:"image_link,omitempty"`
}
