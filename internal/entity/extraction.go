package entity

// Outcome tags how much the extracted record can be trusted.
type Outcome string

const (
	Confident   Outcome = "confident"
	NeedsReview Outcome = "needs_review"
)

// Extraction is the result of field extraction. It always carries a Receipt;
// Outcome says whether that receipt is a confident read or needs a human.
type Extraction struct {
	Receipt     Receipt
	Outcome     Outcome
	Placeholder bool   // true when the fixed manual-review record was used
	ModelCalls  int    // 1 without repair, 2 with
	RawResponse string // last model response that was decoded (or attempted)
}

// Classify derives the outcome from the receipt contents.
func Classify(r Receipt) Outcome {
	if r.LooksFailed() {
		return NeedsReview
	}
	return Confident
}

// Transcription is the result of text extraction.
type Transcription struct {
	Text   string
	Method string // "vision" | "pdf-text"
	Model  string
}
