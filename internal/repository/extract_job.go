package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipts-bot/constants"
	"github.com/joseph-ayodele/receipts-bot/internal/common"
	"github.com/joseph-ayodele/receipts-bot/internal/entity"
)

const extractJobsTable = "extract_jobs"

// timeLayout is fixed-width so text timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// StartJob identifies the upload a journal entry is opened for.
type StartJob struct {
	SubmitterID int64
	ChatID      int64
	Attribution string
	FileID      string
	FileExt     string
}

type ExtractJobRepository interface {
	Start(ctx context.Context, in StartJob) (*entity.ExtractJob, error)
	FinishOCRSuccess(ctx context.Context, jobID uuid.UUID, ocrText, method string) error
	FinishParse(ctx context.Context, jobID uuid.UUID, extractedJSON []byte, needsReview bool, modelCalls int) error
	FinishSaved(ctx context.Context, jobID uuid.UUID, rowNumber int, imageLink string) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error
	Get(ctx context.Context, jobID uuid.UUID) (*entity.ExtractJob, error)
	ListRecent(ctx context.Context, limit int) ([]*entity.ExtractJob, error)
}

type extractJobRepo struct {
	db  *DB
	log *slog.Logger
	now func() time.Time
}

func NewExtractJobRepository(db *DB, log *slog.Logger) ExtractJobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &extractJobRepo{db: db, log: log, now: time.Now}
}

func (r *extractJobRepo) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.db.Dialect)
}

func (r *extractJobRepo) timestamp() string {
	return r.now().UTC().Format(timeLayout)
}

func (r *extractJobRepo) Start(ctx context.Context, in StartJob) (*entity.ExtractJob, error) {
	job := &entity.ExtractJob{
		ID:          uuid.New(),
		SubmitterID: in.SubmitterID,
		ChatID:      in.ChatID,
		Attribution: in.Attribution,
		FileID:      in.FileID,
		FileExt:     in.FileExt,
		StartedAt:   r.now().UTC(),
		Status:      string(constants.JobStatusRunning),
	}
	query, args := r.builder().Insert(extractJobsTable).
		Columns("id", "submitter_id", "chat_id", "attribution", "file_id", "file_ext", "started_at", "status").
		Values(job.ID.String(), job.SubmitterID, job.ChatID, job.Attribution, job.FileID, job.FileExt,
			job.StartedAt.Format(timeLayout), job.Status).
		Query()
	if err := r.db.Driver.Exec(ctx, query, args, nil); err != nil {
		r.log.Error("extract_job start failed", "file_id", in.FileID, "err", err)
		return nil, err
	}
	r.log.Info("extract_job started", "job_id", job.ID, "file_id", in.FileID, "submitter_id", in.SubmitterID)
	return job, nil
}

func (r *extractJobRepo) FinishOCRSuccess(ctx context.Context, jobID uuid.UUID, ocrText, method string) error {
	err := r.update(ctx, jobID, map[string]any{
		"ocr_text": ocrText,
		"method":   method,
		"status":   string(constants.JobStatusOCROK),
	})
	if err != nil {
		r.log.Error("extract_job finish(OCR_OK) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Info("extract_job finished (OCR_OK)", "job_id", jobID, "method", method)
	return nil
}

func (r *extractJobRepo) FinishParse(ctx context.Context, jobID uuid.UUID, extractedJSON []byte, needsReview bool, modelCalls int) error {
	status := constants.JobStatusLLMOK
	review := 0
	if needsReview {
		status = constants.JobStatusNeedsReview
		review = 1
	}
	err := r.update(ctx, jobID, map[string]any{
		"extracted_json": string(extractedJSON),
		"needs_review":   review,
		"model_calls":    modelCalls,
		"status":         string(status),
	})
	if err != nil {
		r.log.Error("extract_job finish(parse) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Info("extract_job finished ("+string(status)+")", "job_id", jobID, "model_calls", modelCalls)
	return nil
}

func (r *extractJobRepo) FinishSaved(ctx context.Context, jobID uuid.UUID, rowNumber int, imageLink string) error {
	err := r.update(ctx, jobID, map[string]any{
		"sheet_row":   rowNumber,
		"image_link":  imageLink,
		"finished_at": r.timestamp(),
		"status":      string(constants.JobStatusSaved),
	})
	if err != nil {
		r.log.Error("extract_job finish(SAVED) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Info("extract_job finished (SAVED)", "job_id", jobID, "row", rowNumber)
	return nil
}

func (r *extractJobRepo) FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error {
	err := r.update(ctx, jobID, map[string]any{
		"error_message": message,
		"finished_at":   r.timestamp(),
		"status":        string(constants.JobStatusFailed),
	})
	if err != nil {
		r.log.Error("extract_job finish(FAILED) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Warn("extract_job finished (FAILED)", "job_id", jobID, "error", message)
	return nil
}

func (r *extractJobRepo) update(ctx context.Context, jobID uuid.UUID, set map[string]any) error {
	u := r.builder().Update(extractJobsTable)
	// stable column order keeps the generated SQL deterministic
	for _, col := range []string{"ocr_text", "method", "extracted_json", "needs_review", "model_calls",
		"sheet_row", "image_link", "error_message", "finished_at", "status"} {
		if v, ok := set[col]; ok {
			u.Set(col, v)
		}
	}
	query, args := u.Where(entsql.EQ("id", jobID.String())).Query()

	var res sql.Result
	if err := r.db.Driver.Exec(ctx, query, args, &res); err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("extract_job %s: %w", jobID, common.ErrNotFound)
	}
	return nil
}

var jobColumns = []string{
	"id", "submitter_id", "chat_id", "attribution", "file_id", "file_ext", "started_at", "finished_at",
	"status", "error_message", "needs_review", "method", "ocr_text", "extracted_json", "model_calls",
	"sheet_row", "image_link",
}

func (r *extractJobRepo) Get(ctx context.Context, jobID uuid.UUID) (*entity.ExtractJob, error) {
	query, args := r.builder().Select(jobColumns...).
		From(entsql.Table(extractJobsTable)).
		Where(entsql.EQ("id", jobID.String())).
		Query()
	jobs, err := r.query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("extract_job %s: %w", jobID, common.ErrNotFound)
	}
	return jobs[0], nil
}

func (r *extractJobRepo) ListRecent(ctx context.Context, limit int) ([]*entity.ExtractJob, error) {
	if limit <= 0 {
		limit = 20
	}
	query, args := r.builder().Select(jobColumns...).
		From(entsql.Table(extractJobsTable)).
		OrderBy(entsql.Desc("started_at")).
		Limit(limit).
		Query()
	return r.query(ctx, query, args)
}

func (r *extractJobRepo) query(ctx context.Context, query string, args []any) ([]*entity.ExtractJob, error) {
	rows := &entsql.Rows{}
	if err := r.db.Driver.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.ExtractJob
	for rows.Next() {
		var (
			id, startedAt                          string
			finishedAt, errMsg, method, ocr, jsonS sql.NullString
			link                                   sql.NullString
			sheetRow                               sql.NullInt64
			review, calls                          int64
			job                                    entity.ExtractJob
		)
		if err := rows.Scan(&id, &job.SubmitterID, &job.ChatID, &job.Attribution, &job.FileID, &job.FileExt,
			&startedAt, &finishedAt, &job.Status, &errMsg, &review, &method, &ocr, &jsonS, &calls,
			&sheetRow, &link); err != nil {
			return nil, err
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("extract_job id %q: %w", id, err)
		}
		job.ID = parsed
		if job.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
			return nil, fmt.Errorf("extract_job started_at: %w", err)
		}
		if finishedAt.Valid {
			if t, err := time.Parse(timeLayout, finishedAt.String); err == nil {
				job.FinishedAt = &t
			}
		}
		job.ErrorMessage = nullString(errMsg)
		job.Method = nullString(method)
		job.OCRText = nullString(ocr)
		job.ImageLink = nullString(link)
		if jsonS.Valid && jsonS.String != "" {
			job.ExtractedJSON = json.RawMessage(jsonS.String)
		}
		job.NeedsReview = review != 0
		job.ModelCalls = int(calls)
		if sheetRow.Valid {
			n := int(sheetRow.Int64)
			job.RowNumber = &n
		}
		out = append(out, &job)
	}
	return out, rows.Err()
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
