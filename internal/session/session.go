// Package session holds per-submitter conversation state.
package session

import (
	"context"
	"time"

	"github.com/joseph-ayodele/receipts-bot/internal/entity"
)

// State is where a submitter is in the conversation.
type State string

const (
	AwaitingAttribution State = "awaiting_attribution"
	AwaitingCustomName  State = "awaiting_custom_name"
)

// Session is the single slot kept per submitter. A new upload replaces it wholesale.
type Session struct {
	SubmitterID     int64                `json:"submitter_id"`
	State           State                `json:"state"`
	Upload          entity.PendingUpload `json:"upload"`
	PromptMessageID int                  `json:"prompt_message_id,omitempty"` // message that carries the keyboard
	UpdatedAt       time.Time            `json:"updated_at"`
}

// Store keeps sessions keyed by submitter. Writers race last-writer-wins.
type Store interface {
	Get(ctx context.Context, submitterID int64) (Session, bool, error)
	Put(ctx context.Context, s Session) error
	Delete(ctx context.Context, submitterID int64) error
}
