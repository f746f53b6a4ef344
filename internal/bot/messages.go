package bot

// User-facing texts. Markdown ones are sent with SendOptions.Markdown.
const (
	WelcomeText = "👋 *Welcome to Expense Tracker Bot!*\n\n" +
		"📸 Upload a receipt and I'll:\n" +
		"1️⃣ Ask who made the purchase\n" +
		"2️⃣ Extract all details (merchant, items, total, tax, etc.)\n" +
		"3️⃣ Store the receipt image link\n" +
		"4️⃣ Save everything to the spreadsheet with colors!\n\n" +
		"✅ *Supported formats:* Photos, JPG, PNG, PDF, WEBP, GIF\n" +
		"📎 Send as photo or file - both work!\n\n" +
		"Let's get started! 🚀"

	RejectText         = "❌ Please send an image file (JPG, PNG, PDF, etc.)"
	AskAttributionText = "📋 *Who made this purchase?*\n\nSelect from the list or choose 'Other' to type a name:"
	AskNameText        = "✍️ Please type the person's name:"
	EmptyNameText      = "❌ Name cannot be empty. Please try again:"
	CancelledText      = "❌ Operation cancelled. Upload a receipt to start again!"
	NotFoundText       = "❌ Error: File data not found. Please upload the receipt again."
)

// EscapeOption is the last keyboard button; it switches to free-text attribution.
const EscapeOption = "Other (Type Name)"

// CallbackPrefix prefixes keyboard callback data, followed by the button index.
const CallbackPrefix = "inv_"
