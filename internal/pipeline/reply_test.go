package pipeline

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/receipts-bot/internal/common"
	"github.com/joseph-ayodele/receipts-bot/internal/entity"
)

func TestReplyTextConfident(t *testing.T) {
	ex := entity.Extraction{
		Receipt: entity.Receipt{
			Merchant: "Cafe_Uno",
			Date:     "2024-03-05",
			Total:    decimal.RequireFromString("450.50"),
			Category: "Meals",
		},
		Outcome: entity.Confident,
	}
	got := ReplyText("Anupam K", ex, "https://x/y.jpg", "raw", "INR")

	assert.True(t, strings.HasPrefix(got, "✅ *Receipt Saved Successfully!*"))
	assert.Contains(t, got, `*Merchant:* Cafe\_Uno`)
	assert.Contains(t, got, "*Total:* INR 450.5")
	assert.Contains(t, got, "[View Receipt](https://x/y.jpg)")
	assert.NotContains(t, got, "Extracted Text")
}

func TestReplyTextNeedsReview(t *testing.T) {
	raw := strings.Repeat("a`b", 100)
	ex := entity.Extraction{
		Receipt: entity.Receipt{Merchant: entity.ManualReviewMerchant, Currency: "USD"},
		Outcome: entity.NeedsReview,
	}
	got := ReplyText("Priya", ex, "", raw, "INR")

	assert.True(t, strings.HasPrefix(got, "⚠️ *Receipt Saved - Manual Review Needed*"))
	assert.Contains(t, got, "*Total:* USD 0")
	assert.Contains(t, got, "*Date:* N/A")
	assert.Contains(t, got, "*Image:* N/A")

	start := strings.Index(got, "\n`") + 2
	end := strings.Index(got[start:], "...`")
	excerpt := got[start : start+end]
	assert.Equal(t, 200, len([]rune(excerpt)))
	assert.NotContains(t, excerpt, "`")
}

func TestCauseTextUnwrapsAppError(t *testing.T) {
	err := common.NewAppError(common.CodeTranscribe, "vision transcription", errors.New("rate limited"))
	assert.Equal(t, "rate limited", causeText(err))
	assert.Equal(t, "plain", causeText(errors.New("plain")))
	assert.Equal(t, "no cause", causeText(common.NewAppError(common.CodeSink, "no cause", nil)))
}
