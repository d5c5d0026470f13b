package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/devinhayward/concrete-tickets/constants"
	"github.com/devinhayward/concrete-tickets/internal/common"
	"github.com/devinhayward/concrete-tickets/internal/repository"
)

// FSIngestor reads from the local filesystem.
type FSIngestor struct {
	files       repository.SourceFileRepository
	AllowedExts map[string]struct{} // lowercased sans '.'; nil -> default set
	logger      *slog.Logger
}

func NewFSIngestor(files repository.SourceFileRepository, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{
		files:  files,
		logger: logger,
	}
}

func (i *FSIngestor) allowedExt(ext string) bool {
	allow := i.AllowedExts
	if allow == nil {
		allow = constants.AllowedExtensions
	}
	_, ok := allow[constants.NormalizeExt(ext)]
	return ok
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	var out IngestionResult

	abs, err := filepath.Abs(path)
	if err != nil {
		i.logger.Error("abs path error", "path", path, "error", err)
		return out, err
	}

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !i.allowedExt(ext) {
		i.logger.Warn("unsupported or missing extension", "path", abs, "ext", ext)
		return out, common.NewAppError("INGEST_EXT", "unsupported or missing extension: "+ext, common.ErrInvalidInput)
	}

	f, err := os.Open(abs)
	if err != nil {
		i.logger.Error("open error", "path", abs, "error", err)
		return out, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			i.logger.Warn("close file error", "path", abs, "error", err)
		}
	}()

	fi, err := f.Stat()
	if err != nil {
		i.logger.Error("stat error", "path", abs, "error", err)
		return out, err
	}

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		i.logger.Error("hash error", "path", abs, "error", err)
		return out, err
	}
	sum := hex.EncodeToString(h.Sum(nil))
	now := time.Now().UTC()

	row, dedup, err := i.files.UpsertByHash(ctx, abs, filepath.Base(abs), ext, fi.Size(), sum, now)
	if err != nil {
		return out, err
	}
	if dedup {
		i.logger.Debug("file already archived", "path", abs, "file_id", row.ID)
	}

	out = IngestionResult{
		SourcePath:   row.SourcePath,
		FileID:       row.ID,
		Deduplicated: dedup,
		HashHex:      sum,
		FileExt:      row.FileExt,
		FileSize:     row.FileSize,
		UploadedAt:   row.UploadedAt,
	}
	return out, nil
}

// IngestDirectory walks root, skips hidden entries if requested, and calls
// IngestPath for each matching file. Returns per-file results + aggregate
// stats.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, common.NewAppError("INGEST_ROOT", "root path is required", common.ErrInvalidInput)
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		if !i.allowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}

		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})

	if err != nil {
		return results, stats, common.WrapError(err, "walk")
	}
	return results, stats, nil
}
