package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/devinhayward/concrete-tickets/internal/common"
	"github.com/devinhayward/concrete-tickets/internal/repository"
)

func testIngestor(t *testing.T) *FSIngestor {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := repository.Open(context.Background(), common.DatabaseConfig{Driver: repository.DriverSQLite, SQLitePath: ":memory:"}, logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { repository.Close(db, logger) })
	if err := repository.Migrate(context.Background(), db, logger); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return NewFSIngestor(repository.NewSourceFileRepository(db, logger), logger)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestIngestPathHashesAndDedupes(t *testing.T) {
	ing := testIngestor(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "tickets.pdf")
	writeFile(t, path, "fake pdf content")

	sum := sha256.Sum256([]byte("fake pdf content"))
	wantHash := hex.EncodeToString(sum[:])

	first, err := ing.IngestPath(context.Background(), path)
	if err != nil {
		t.Fatalf("IngestPath: %v", err)
	}
	if first.Deduplicated {
		t.Errorf("fresh file reported as duplicate")
	}
	if first.HashHex != wantHash {
		t.Errorf("hash = %s, want %s", first.HashHex, wantHash)
	}
	if first.FileExt != "pdf" || first.FileSize != int64(len("fake pdf content")) {
		t.Errorf("result = %+v", first)
	}

	// same bytes under a different name dedupe to the same file ID
	copyPath := filepath.Join(dir, "tickets-copy.pdf")
	writeFile(t, copyPath, "fake pdf content")
	second, err := ing.IngestPath(context.Background(), copyPath)
	if err != nil {
		t.Fatalf("IngestPath copy: %v", err)
	}
	if !second.Deduplicated {
		t.Errorf("identical content not deduplicated")
	}
	if second.FileID != first.FileID {
		t.Errorf("duplicate got file_id %s, want %s", second.FileID, first.FileID)
	}
}

func TestIngestPathRejectsExtension(t *testing.T) {
	ing := testIngestor(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.docx")
	writeFile(t, path, "not a ticket")

	if _, err := ing.IngestPath(context.Background(), path); err == nil {
		t.Fatalf("IngestPath accepted a .docx")
	}
}

func TestIngestDirectory(t *testing.T) {
	ing := testIngestor(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.pdf"), "content a")
	writeFile(t, filepath.Join(dir, "b.txt"), "content b")
	writeFile(t, filepath.Join(dir, "dup.pdf"), "content a")
	writeFile(t, filepath.Join(dir, "skip.png"), "image")
	writeFile(t, filepath.Join(dir, ".archive", "c.pdf"), "hidden")

	results, stats, err := ing.IngestDirectory(context.Background(), dir, true)
	if err != nil {
		t.Fatalf("IngestDirectory: %v", err)
	}
	if stats.Matched != 3 || stats.Succeeded != 3 || stats.Failed != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Deduplicated != 1 {
		t.Errorf("deduplicated = %d, want 1", stats.Deduplicated)
	}
	if len(results) != 3 {
		t.Errorf("results = %d, want 3", len(results))
	}
	for _, r := range results {
		if filepath.Base(r.SourcePath) == "c.pdf" {
			t.Errorf("hidden directory was not skipped")
		}
	}
}

func TestIngestDirectoryRequiresRoot(t *testing.T) {
	ing := testIngestor(t)
	if _, _, err := ing.IngestDirectory(context.Background(), "  ", true); err == nil {
		t.Fatalf("empty root accepted")
	}
}

func TestWatcherInitialScan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "seed.pdf"), "seeded")
	writeFile(t, filepath.Join(dir, "ignore.png"), "skipped")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{dir}, InitialScan: true}, logger)
	if err != nil {
		t.Fatalf("StartWatcher: %v", err)
	}

	select {
	case p := <-events:
		if filepath.Base(p) != "seed.pdf" {
			t.Errorf("initial scan emitted %s", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("initial scan emitted nothing")
	}

	cancel()
	// channel closes when the watcher goroutine exits
	for range events {
	}
}
