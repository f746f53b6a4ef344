package llm

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/receipts-bot/internal/layout"
)

// VisionPrompt asks the vision model for a verbatim transcription.
const VisionPrompt = "Extract EVERY word, number, and line exactly as it appears on this receipt/invoice. " +
	"Include ALL details like merchant, address, date, items, quantities, prices, totals, tax, subtotal. " +
	"Return ONLY the raw extracted text—no explanations or formatting."

// RepairExcerpt is how much of the transcription is quoted back in the repair request.
const RepairExcerpt = 500

// BuildFieldsPrompt lists the layout's key set and the extraction rules, followed by the raw text.
func BuildFieldsPrompt(l layout.Layout, rawText, defaultCurrency string, categories []string) string {
	if defaultCurrency == "" {
		defaultCurrency = "INR"
	}
	cats := `"` + strings.Join(categories, "|") + `"`

	var b strings.Builder
	b.WriteString("You are an expert at parsing receipts. Analyze this raw text and return ONLY valid JSON—no extra text, no markdown, just the JSON object.\n\n")
	b.WriteString("Extract ALL important details accurately. Use these exact keys:\n\n{\n")
	for i, f := range l.Fields {
		hint := f.Hint
		switch {
		case f.Key == "currency":
			hint = fmt.Sprintf(hint, defaultCurrency)
		case f.Key == "category":
			hint = fmt.Sprintf(hint, cats)
		}
		b.WriteString(`  "` + f.Key + `": ` + hint)
		if i < len(l.Fields)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")
	b.WriteString("IMPORTANT:\n")
	b.WriteString("- If merchant not clear, look for shop/company name at top\n")
	b.WriteString(`- Total is usually the largest number or labeled as "Total/Grand Total/Amount"` + "\n")
	b.WriteString("- For Indian receipts, currency is " + defaultCurrency + " by default\n")
	b.WriteString("- Extract numbers carefully, don't return 0 if there's a valid amount\n\n")
	b.WriteString("Raw text:\n")
	b.WriteString(rawText)
	return b.String()
}

// BuildRepairPrompt quotes the bad response back together with the start of the transcription.
func BuildRepairPrompt(l layout.Layout, badResponse, rawText string) string {
	return "Fix this into valid JSON only: " + badResponse +
		". Use the exact keys: " + strings.Join(l.FieldKeys(), ", ") +
		". Make sure to extract merchant name and total amount from this text: " + Truncate(rawText, RepairExcerpt)
}
