package repository

import (
	"context"
	"log/slog"

	"github.com/devinhayward/concrete-tickets/internal/common"
)

// Timestamps are stored as RFC 3339 text so the same DDL and scan paths work
// on both drivers; records convert at the edges.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS source_files (
		id           TEXT PRIMARY KEY,
		source_path  TEXT NOT NULL,
		filename     TEXT NOT NULL,
		file_ext     TEXT NOT NULL,
		file_size    INTEGER NOT NULL,
		content_hash TEXT NOT NULL,
		uploaded_at  TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_source_files_hash ON source_files (content_hash)`,

	`CREATE TABLE IF NOT EXISTS extract_jobs (
		id            TEXT PRIMARY KEY,
		file_id       TEXT NOT NULL REFERENCES source_files (id),
		format        TEXT NOT NULL,
		status        TEXT NOT NULL,
		error_message TEXT,
		page_count    INTEGER NOT NULL DEFAULT 0,
		ticket_count  INTEGER NOT NULL DEFAULT 0,
		started_at    TEXT NOT NULL,
		finished_at   TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_extract_jobs_file ON extract_jobs (file_id)`,
	`CREATE INDEX IF NOT EXISTS idx_extract_jobs_status ON extract_jobs (status, started_at)`,

	`CREATE TABLE IF NOT EXISTS tickets (
		id               TEXT PRIMARY KEY,
		job_id           TEXT NOT NULL REFERENCES extract_jobs (id),
		file_id          TEXT NOT NULL REFERENCES source_files (id),
		page             INTEGER NOT NULL,
		ticket_no        TEXT NOT NULL,
		delivery_date    TEXT,
		delivery_address TEXT,
		customer_code    TEXT,
		payload          TEXT NOT NULL,
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_tickets_ticket_no ON tickets (ticket_no)`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_delivery_date ON tickets (delivery_date)`,
}

// Migrate creates the archive tables when they do not exist yet. Statements
// are idempotent, so running it on every startup is safe.
func Migrate(ctx context.Context, d *DB, logger *slog.Logger) error {
	for _, stmt := range migrations {
		if _, err := d.SQL.ExecContext(ctx, stmt); err != nil {
			logger.Error("migration statement failed", "error", err)
			return common.WrapError(err, "migrate archive schema")
		}
	}
	logger.Debug("archive schema up to date")
	return nil
}
