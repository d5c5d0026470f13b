package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/devinhayward/concrete-tickets/internal/common"
)

type SourceFileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*SourceFile, error)
	// GetByHash returns common.ErrNotFound when no file carries the hash.
	GetByHash(ctx context.Context, hash string) (*SourceFile, error)
	// UpsertByHash registers a file unless its content hash is already known.
	// The bool reports whether the file existed before the call.
	UpsertByHash(ctx context.Context, sourcePath, filename, ext string, size int64, hash string, uploadedAt time.Time) (*SourceFile, bool, error)
}

type sourceFileRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewSourceFileRepository(db *DB, logger *slog.Logger) SourceFileRepository {
	return &sourceFileRepo{
		db:     db,
		logger: logger,
	}
}

const sourceFileColumns = `id, source_path, filename, file_ext, file_size, content_hash, uploaded_at`

func (r *sourceFileRepo) GetByID(ctx context.Context, id uuid.UUID) (*SourceFile, error) {
	row := r.db.SQL.QueryRowContext(ctx,
		r.db.bind(`SELECT `+sourceFileColumns+` FROM source_files WHERE id = ?`), id.String())
	return r.scan(row)
}

func (r *sourceFileRepo) GetByHash(ctx context.Context, hash string) (*SourceFile, error) {
	row := r.db.SQL.QueryRowContext(ctx,
		r.db.bind(`SELECT `+sourceFileColumns+` FROM source_files WHERE content_hash = ?`), hash)
	f, err := r.scan(row)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		r.logger.Error("failed to get source file by hash", "hash", hash, "error", err)
	}
	return f, err
}

func (r *sourceFileRepo) UpsertByHash(ctx context.Context, sourcePath, filename, ext string, size int64, hash string, uploadedAt time.Time) (*SourceFile, bool, error) {
	existing, err := r.GetByHash(ctx, hash)
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, false, err
	}

	f := &SourceFile{
		ID:          uuid.New(),
		SourcePath:  sourcePath,
		Filename:    filename,
		FileExt:     ext,
		FileSize:    size,
		ContentHash: hash,
		UploadedAt:  uploadedAt,
	}
	_, err = r.db.SQL.ExecContext(ctx,
		r.db.bind(`INSERT INTO source_files (`+sourceFileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		f.ID.String(), f.SourcePath, f.Filename, f.FileExt, f.FileSize, f.ContentHash, encodeTime(f.UploadedAt))
	if err != nil {
		r.logger.Error("failed to create source file", "source_path", sourcePath, "filename", filename, "error", err)
		return nil, false, err
	}
	r.logger.Info("source file registered", "file_id", f.ID, "filename", filename, "size", size)
	return f, false, nil
}

func (r *sourceFileRepo) scan(row *sql.Row) (*SourceFile, error) {
	var (
		f          SourceFile
		id         string
		uploadedAt string
	)
	err := row.Scan(&id, &f.SourcePath, &f.Filename, &f.FileExt, &f.FileSize, &f.ContentHash, &uploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if f.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if f.UploadedAt, err = decodeTime(uploadedAt); err != nil {
		return nil, err
	}
	return &f, nil
}
