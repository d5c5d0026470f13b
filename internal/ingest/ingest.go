// Package ingest registers delivery-ticket files with the archive,
// deduplicating by content hash, and watches inbox directories for new
// drops.
package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string
	FileID       uuid.UUID
	Deduplicated bool
	HashHex      string
	FileExt      string
	FileSize     int64
	UploadedAt   time.Time
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor is the behavior the batch command and the daemon depend on.
type Ingestor interface {
	// IngestPath registers a single file.
	IngestPath(ctx context.Context, path string) (IngestionResult, error)
	// IngestDirectory registers all matching files under root.
	IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}
