package pipeline

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receipts-bot/constants"
	"github.com/joseph-ayodele/receipts-bot/internal/chat/chattest"
	"github.com/joseph-ayodele/receipts-bot/internal/entity"
	"github.com/joseph-ayodele/receipts-bot/internal/layout"
	"github.com/joseph-ayodele/receipts-bot/internal/llm"
	"github.com/joseph-ayodele/receipts-bot/internal/pipeline/parsefields"
	"github.com/joseph-ayodele/receipts-bot/internal/pipeline/textextract"
	"github.com/joseph-ayodele/receipts-bot/internal/repository"
	"github.com/joseph-ayodele/receipts-bot/internal/session"
)

const (
	testSubmitter int64 = 42
	testChat      int64 = 7

	receiptText = "CAFE UNO\n05/03/2024\nCappuccino 2 x 200.00\nGST 22.50\nTOTAL 450.00"
	goodFields  = "```json\n{\"merchant\":\"Cafe Uno\",\"date\":\"2024-03-05\",\"total\":\"₹450.00\"," +
		"\"currency\":\"inr\",\"category\":\"restaurant\",\"tax\":22.5,\"items\":[\"Cappuccino: 2 x 200.00\"]}\n```"
)

// countingStore counts deletes so tests can assert cleanup ran exactly once.
type countingStore struct {
	*session.MemoryStore
	mu      sync.Mutex
	deletes int
}

func (c *countingStore) Delete(ctx context.Context, submitterID int64) error {
	c.mu.Lock()
	c.deletes++
	c.mu.Unlock()
	return c.MemoryStore.Delete(ctx, submitterID)
}

type fakeSink struct {
	rows      [][]any
	formatted []int
	appendErr error
	formatErr error
	onAppend  func()
}

func (s *fakeSink) EnsureHeader(context.Context, layout.Layout) error { return nil }

func (s *fakeSink) AppendRow(_ context.Context, row []any) (int, error) {
	if s.onAppend != nil {
		s.onAppend()
	}
	if s.appendErr != nil {
		return 0, s.appendErr
	}
	s.rows = append(s.rows, row)
	return len(s.rows) + 1, nil
}

func (s *fakeSink) FormatRow(_ context.Context, rowNumber int, _ layout.Layout) error {
	s.formatted = append(s.formatted, rowNumber)
	return s.formatErr
}

type fakeArchive struct {
	link string
	err  error
	keys []string
}

func (a *fakeArchive) Put(_ context.Context, submitterID int64, ext string, _ []byte, contentType string) (string, error) {
	a.keys = append(a.keys, ext+"|"+contentType)
	return a.link, a.err
}

// scripted answers vision requests with transcript and text requests from fields in order.
func scripted(transcript string, fields ...string) llm.Completer {
	var mu sync.Mutex
	i := 0
	return llm.CompleterFunc(func(_ context.Context, req llm.CompletionRequest) (string, error) {
		if req.ImageDataURL != "" {
			return transcript, nil
		}
		mu.Lock()
		defer mu.Unlock()
		if i >= len(fields) {
			return "", errors.New("unexpected model call")
		}
		out := fields[i]
		i++
		return out, nil
	})
}

type harness struct {
	proc  *Processor
	store *countingStore
	msgr  *chattest.Messenger
	files *chattest.Files
	sink  *fakeSink
	dir   string
}

func newHarness(t *testing.T, c llm.Completer) *harness {
	t.Helper()
	h := &harness{
		store: &countingStore{MemoryStore: session.NewMemoryStore(0)},
		msgr:  &chattest.Messenger{},
		files: &chattest.Files{Content: map[string][]byte{"file-1": []byte("\xff\xd8\xff fake jpeg")}},
		sink:  &fakeSink{},
		dir:   t.TempDir(),
	}
	l := layout.SimpleLayout()
	ocr := textextract.NewPipeline(c, textextract.Config{Model: "vision"}, nil)
	parse := parsefields.NewPipeline(nil, parsefields.Config{
		Model:  "text",
		Layout: l,
		Now:    func() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC) },
	}, c)
	h.proc = NewProcessor(nil, Config{TempDir: h.dir, DefaultCurrency: "INR", Layout: l},
		h.files, h.msgr, ocr, parse, h.sink, h.store)

	require.NoError(t, h.store.Put(context.Background(), session.Session{
		SubmitterID: testSubmitter,
		State:       session.AwaitingAttribution,
		Upload:      testUpload(),
	}))
	return h
}

func testUpload() entity.PendingUpload {
	return entity.PendingUpload{
		SubmitterID: testSubmitter,
		ChatID:      testChat,
		MessageID:   10,
		File:        entity.FileRef{FileID: "file-1"},
		Kind:        constants.KindPhoto,
	}
}

func (h *harness) flow() Flow {
	return Flow{Upload: testUpload(), Attribution: "Anupam K", StatusMessageID: 77}
}

func (h *harness) assertCleanedUp(t *testing.T) {
	t.Helper()
	assert.Equal(t, 1, h.store.deletes, "session deleted exactly once")
	assert.Equal(t, 0, h.store.Len())
	_, err := os.Stat(h.proc.TempPath(testUpload()))
	assert.True(t, os.IsNotExist(err), "temp file removed")
}

func TestTempPath(t *testing.T) {
	h := newHarness(t, scripted(receiptText))
	assert.Equal(t, h.dir+"/receipt_42.jpg", h.proc.TempPath(testUpload()))

	doc := testUpload()
	doc.Kind = constants.KindDocument
	doc.File.FileName = "Invoice.PDF"
	assert.Equal(t, h.dir+"/receipt_42.pdf", h.proc.TempPath(doc))
}

func TestProcessSavesConfidentRow(t *testing.T) {
	h := newHarness(t, scripted(receiptText, goodFields))
	h.sink.onAppend = func() {
		_, err := os.Stat(h.proc.TempPath(testUpload()))
		assert.NoError(t, err, "upload is staged while the row is written")
	}

	require.NoError(t, h.proc.Process(context.Background(), h.flow()))

	require.Len(t, h.sink.rows, 1)
	row := h.sink.rows[0]
	require.Len(t, row, 12)
	assert.Equal(t, "2024-03-05", row[0])
	assert.Equal(t, "Anupam K", row[1])
	assert.Equal(t, "Cafe Uno", row[2])
	assert.Equal(t, 450.0, row[3])
	assert.Equal(t, "INR", row[4])
	assert.Equal(t, "Meals", row[5])
	assert.Equal(t, "Cappuccino: 2 x 200.00", row[7])
	assert.Equal(t, 22.5, row[8])
	assert.Equal(t, "https://files.example/file-1", row[11])
	assert.Equal(t, []int{2}, h.sink.formatted)

	// every status update edits the keyboard message in place
	for _, m := range h.msgr.Messages {
		assert.True(t, m.Edit)
		assert.Equal(t, 77, m.MessageID)
	}
	last := h.msgr.Last()
	assert.Contains(t, last.Text, "Receipt Saved Successfully")
	assert.Contains(t, last.Text, "Cafe Uno")
	assert.True(t, last.Opts.Markdown)
	h.assertCleanedUp(t)
}

func TestProcessSendsFreshStatusForTypedName(t *testing.T) {
	h := newHarness(t, scripted(receiptText, goodFields))
	f := h.flow()
	f.StatusMessageID = 0

	require.NoError(t, h.proc.Process(context.Background(), f))

	require.GreaterOrEqual(t, len(h.msgr.Messages), 2)
	first := h.msgr.Messages[0]
	assert.False(t, first.Edit)
	assert.Contains(t, first.Text, "Processing receipt")
	for _, m := range h.msgr.Messages[1:] {
		assert.True(t, m.Edit)
		assert.Equal(t, first.MessageID, m.MessageID)
	}
}

func TestProcessTranscriptionFailureIsReported(t *testing.T) {
	h := newHarness(t, scripted("ok"))

	require.NoError(t, h.proc.Process(context.Background(), h.flow()))

	assert.Empty(t, h.sink.rows)
	last := h.msgr.Last()
	assert.Contains(t, last.Text, "Could not extract text from image")
	assert.False(t, last.Opts.Markdown)
	h.assertCleanedUp(t)
}

func TestProcessDownloadFailure(t *testing.T) {
	h := newHarness(t, scripted(receiptText, goodFields))
	h.files.Err = errors.New("telegram unreachable")

	err := h.proc.Process(context.Background(), h.flow())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram unreachable")
	assert.Empty(t, h.sink.rows)
	assert.Contains(t, h.msgr.Last().Text, "Error processing receipt: telegram unreachable")
	h.assertCleanedUp(t)
}

func TestProcessSinkFailureIsReturned(t *testing.T) {
	h := newHarness(t, scripted(receiptText, goodFields))
	h.sink.appendErr = errors.New("quota exceeded")

	err := h.proc.Process(context.Background(), h.flow())
	require.Error(t, err)
	assert.Contains(t, h.msgr.Last().Text, "Error saving to the spreadsheet: quota exceeded")
	assert.Empty(t, h.sink.formatted)
	h.assertCleanedUp(t)
}

func TestProcessFormatFailureOnlyWarns(t *testing.T) {
	h := newHarness(t, scripted(receiptText, goodFields))
	h.sink.formatErr = errors.New("batch update failed")

	require.NoError(t, h.proc.Process(context.Background(), h.flow()))
	assert.Len(t, h.sink.rows, 1)
	assert.Contains(t, h.msgr.Last().Text, "Receipt Saved Successfully")
	h.assertCleanedUp(t)
}

func TestProcessPlaceholderNeedsReview(t *testing.T) {
	h := newHarness(t, scripted(receiptText, "Total: $0.00, Store: ???", "still not json"))

	require.NoError(t, h.proc.Process(context.Background(), h.flow()))

	require.Len(t, h.sink.rows, 1)
	row := h.sink.rows[0]
	assert.Equal(t, "2024-03-09", row[0])
	assert.Equal(t, entity.ManualReviewMerchant, row[2])
	assert.Equal(t, 0.0, row[3])
	assert.Equal(t, "Other", row[5])
	assert.True(t, strings.HasPrefix(row[6].(string), "Auto-extraction failed. Raw: CAFE UNO"))

	last := h.msgr.Last()
	assert.Contains(t, last.Text, "Manual Review Needed")
	assert.Contains(t, last.Text, "Extracted Text")
	h.assertCleanedUp(t)
}

func TestProcessUsesArchiveLink(t *testing.T) {
	h := newHarness(t, scripted(receiptText, goodFields))
	arch := &fakeArchive{link: "https://s3.example/receipts/2024/03/42_x.jpg"}
	h.proc.Archive = arch

	require.NoError(t, h.proc.Process(context.Background(), h.flow()))
	require.Len(t, h.sink.rows, 1)
	assert.Equal(t, arch.link, h.sink.rows[0][11])
	assert.Equal(t, []string{"jpg|image/jpeg"}, arch.keys)
}

func TestProcessArchiveFailureFallsBack(t *testing.T) {
	h := newHarness(t, scripted(receiptText, goodFields))
	h.proc.Archive = &fakeArchive{err: errors.New("bucket gone")}

	require.NoError(t, h.proc.Process(context.Background(), h.flow()))
	require.Len(t, h.sink.rows, 1)
	assert.Equal(t, "https://files.example/file-1", h.sink.rows[0][11])
}

func TestProcessJournalsTheFlow(t *testing.T) {
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{DSN: "sqlite::memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	jobs := repository.NewExtractJobRepository(db, nil)

	h := newHarness(t, scripted(receiptText, goodFields))
	h.proc.Jobs = jobs
	require.NoError(t, h.proc.Process(ctx, h.flow()))

	recent, err := jobs.ListRecent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	j := recent[0]
	assert.Equal(t, string(constants.JobStatusSaved), j.Status)
	assert.Equal(t, "Anupam K", j.Attribution)
	assert.Equal(t, 1, j.ModelCalls)
	assert.False(t, j.NeedsReview)
	require.NotNil(t, j.RowNumber)
	assert.Equal(t, 2, *j.RowNumber)
	require.NotNil(t, j.Method)
	assert.Equal(t, textextract.MethodVision, *j.Method)
	assert.Contains(t, string(j.ExtractedJSON), `"merchant":"Cafe Uno"`)
}
