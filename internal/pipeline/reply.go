package pipeline

import (
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/joseph-ayodele/receipts-bot/internal/common"
	"github.com/joseph-ayodele/receipts-bot/internal/entity"
	"github.com/joseph-ayodele/receipts-bot/internal/llm"
)

const reviewExcerpt = 200

func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func processingText(attribution string) string {
	return "🔍 Processing receipt for *" + esc(attribution) + "*...\n⏳ Extracting details (10-20 sec)"
}

func transcriptionFailedText(err error) string {
	return "⚠️ Could not extract text from image. Error: " + causeText(err) +
		"\n\nPlease try:\n1. Taking a clearer photo\n2. Better lighting\n3. Flattening the receipt"
}

func errorText(err error) string {
	return "❌ Error processing receipt: " + causeText(err) + "\n\nPlease upload the receipt again."
}

func sinkFailedText(err error) string {
	return "❌ Error saving to the spreadsheet: " + causeText(err)
}

// causeText drops the AppError code so users see the underlying reason.
func causeText(err error) string {
	var ae *common.AppError
	if errors.As(err, &ae) {
		if ae.Cause != nil {
			return ae.Cause.Error()
		}
		return ae.Message
	}
	return err.Error()
}

// ReplyText renders the final Markdown message for a saved row.
func ReplyText(attribution string, ex entity.Extraction, link, rawText, defaultCurrency string) string {
	r := ex.Receipt
	currency := r.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	image := "N/A"
	if link != "" {
		image = "[View Receipt](" + link + ")"
	}

	var b strings.Builder
	if ex.Outcome == entity.NeedsReview {
		b.WriteString("⚠️ *Receipt Saved - Manual Review Needed*\n\n")
	} else {
		b.WriteString("✅ *Receipt Saved Successfully!*\n\n")
	}
	b.WriteString("👤 *Person:* " + esc(attribution) + "\n")
	b.WriteString("🏪 *Merchant:* " + esc(orNA(r.Merchant)) + "\n")
	b.WriteString("💰 *Total:* " + esc(currency) + " " + r.Total.String() + "\n")
	b.WriteString("📅 *Date:* " + esc(orNA(r.Date)) + "\n")
	b.WriteString("📂 *Category:* " + esc(orNA(r.Category)) + "\n")
	b.WriteString("🔗 *Image:* " + image + "\n\n")

	if ex.Outcome == entity.NeedsReview {
		excerpt := strings.ReplaceAll(llm.Truncate(rawText, reviewExcerpt), "`", "'")
		b.WriteString("❗ *Extracted Text:*\n`" + excerpt + "...`\n\n")
		b.WriteString("⚠️ Please review and update manually in the spreadsheet.\n")
		b.WriteString("Try uploading a clearer image if possible.")
	} else {
		b.WriteString("✨ All details saved to the spreadsheet with formatting!")
	}
	return b.String()
}
