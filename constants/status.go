package constants

// JobStatus is the canonical status for rows in extract_jobs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusRunning     JobStatus = "RUNNING"      // file downloaded, transcription in progress
	JobStatusOCROK       JobStatus = "OCR_OK"       // stage 1 completed (text extracted)
	JobStatusLLMOK       JobStatus = "LLM_OK"       // stage 2 completed with a confident record
	JobStatusNeedsReview JobStatus = "NEEDS_REVIEW" // stage 2 degraded to a low-confidence or placeholder record
	JobStatusSaved       JobStatus = "SAVED"        // row appended to the sink
	JobStatusFailed      JobStatus = "FAILED"       // terminal failure
)
