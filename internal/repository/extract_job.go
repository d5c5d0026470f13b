package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/devinhayward/concrete-tickets/constants"
	"github.com/devinhayward/concrete-tickets/internal/common"
)

type ExtractJobRepository interface {
	Start(ctx context.Context, fileID uuid.UUID, format string) (*ExtractJob, error)
	MarkTextExtracted(ctx context.Context, jobID uuid.UUID, pageCount int) error
	FinishSuccess(ctx context.Context, jobID uuid.UUID, ticketCount int) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error
	GetByID(ctx context.Context, jobID uuid.UUID) (*ExtractJob, error)
}

type extractJobRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewExtractJobRepository(db *DB, logger *slog.Logger) ExtractJobRepository {
	return &extractJobRepo{db: db, logger: logger}
}

const extractJobColumns = `id, file_id, format, status, error_message, page_count, ticket_count, started_at, finished_at`

func (r *extractJobRepo) Start(ctx context.Context, fileID uuid.UUID, format string) (*ExtractJob, error) {
	job := &ExtractJob{
		ID:        uuid.New(),
		FileID:    fileID,
		Format:    format,
		Status:    constants.JobStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := r.db.SQL.ExecContext(ctx,
		r.db.bind(`INSERT INTO extract_jobs (id, file_id, format, status, started_at) VALUES (?, ?, ?, ?, ?)`),
		job.ID.String(), job.FileID.String(), job.Format, string(job.Status), encodeTime(job.StartedAt))
	if err != nil {
		r.logger.Error("extract_job start failed", "file_id", fileID, "error", err)
		return nil, err
	}
	r.logger.Info("extract_job started", "job_id", job.ID, "file_id", fileID, "format", format)
	return job, nil
}

func (r *extractJobRepo) MarkTextExtracted(ctx context.Context, jobID uuid.UUID, pageCount int) error {
	_, err := r.db.SQL.ExecContext(ctx,
		r.db.bind(`UPDATE extract_jobs SET status = ?, page_count = ? WHERE id = ?`),
		string(constants.JobStatusTextOK), pageCount, jobID.String())
	if err != nil {
		r.logger.Error("extract_job update failed", "job_id", jobID, "error", err)
		return err
	}
	r.logger.Info("extract_job text extracted", "job_id", jobID, "pages", pageCount)
	return nil
}

func (r *extractJobRepo) FinishSuccess(ctx context.Context, jobID uuid.UUID, ticketCount int) error {
	now := time.Now().UTC()
	_, err := r.db.SQL.ExecContext(ctx,
		r.db.bind(`UPDATE extract_jobs SET status = ?, ticket_count = ?, finished_at = ? WHERE id = ?`),
		string(constants.JobStatusLLMOK), ticketCount, encodeTime(now), jobID.String())
	if err != nil {
		r.logger.Error("extract_job finish(LLM_OK) failed", "job_id", jobID, "error", err)
		return err
	}
	r.logger.Info("extract_job finished (LLM_OK)", "job_id", jobID, "tickets", ticketCount)
	return nil
}

func (r *extractJobRepo) FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error {
	now := time.Now().UTC()
	_, err := r.db.SQL.ExecContext(ctx,
		r.db.bind(`UPDATE extract_jobs SET status = ?, error_message = ?, finished_at = ? WHERE id = ?`),
		string(constants.JobStatusFailed), message, encodeTime(now), jobID.String())
	if err != nil {
		r.logger.Error("extract_job finish(FAILED) failed", "job_id", jobID, "error", err)
		return err
	}
	r.logger.Warn("extract_job finished (FAILED)", "job_id", jobID, "error", message)
	return nil
}

func (r *extractJobRepo) GetByID(ctx context.Context, jobID uuid.UUID) (*ExtractJob, error) {
	row := r.db.SQL.QueryRowContext(ctx,
		r.db.bind(`SELECT `+extractJobColumns+` FROM extract_jobs WHERE id = ?`), jobID.String())

	var (
		job        ExtractJob
		id, fileID string
		status     string
		errMsg     sql.NullString
		startedAt  string
		finishedAt sql.NullString
	)
	err := row.Scan(&id, &fileID, &job.Format, &status, &errMsg, &job.PageCount, &job.TicketCount, &startedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		r.logger.Error("extract_job get failed", "job_id", jobID, "error", err)
		return nil, err
	}
	if job.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if job.FileID, err = uuid.Parse(fileID); err != nil {
		return nil, err
	}
	job.Status = constants.JobStatus(status)
	job.ErrorMessage = nullToPtr(errMsg)
	if job.StartedAt, err = decodeTime(startedAt); err != nil {
		return nil, err
	}
	if job.FinishedAt, err = decodeTimePtr(finishedAt); err != nil {
		return nil, err
	}
	return &job, nil
}
