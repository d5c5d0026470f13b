package async

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/devinhayward/concrete-tickets/internal/common"
	"github.com/devinhayward/concrete-tickets/internal/export"
	"github.com/devinhayward/concrete-tickets/internal/ingest"
	"github.com/devinhayward/concrete-tickets/internal/llm"
	"github.com/devinhayward/concrete-tickets/internal/pdftext"
	"github.com/devinhayward/concrete-tickets/internal/pipeline"
	"github.com/devinhayward/concrete-tickets/internal/repository"
)

var reTicketNo = regexp.MustCompile(`Ticket No\. (\d+)`)

// echoCompleter answers with a minimal ticket whose number it reads back out
// of the prompt, so responses stay correct under concurrent workers.
type echoCompleter struct{}

func (echoCompleter) Complete(_ context.Context, p llm.Prompt) (string, error) {
	m := reTicketNo.FindStringSubmatch(p.User)
	if m == nil {
		return "", fmt.Errorf("prompt carries no ticket number")
	}
	return fmt.Sprintf(`{"Ticket No.": %q, "Mix Customer": {"Qty": "9.0 m3"}}`, m[1]), nil
}

func pageText(ticketNo string) string {
	return "Ticket No. " + ticketNo + "\nMIX TABLE\n9.0 M3 STANDARD 35MPA NA\nINSTRUCTIONS\n"
}

func newTestQueue(t *testing.T) (*ProcessorQueue, repository.TicketRepository) {
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

	tickets := repository.NewTicketRepository(db, logger)
	proc := pipeline.NewProcessor(logger,
		pipeline.NewPipeline(logger, pipeline.Config{}, echoCompleter{}),
		pdftext.NewExtractor(logger),
		ingest.NewFSIngestor(repository.NewSourceFileRepository(db, logger), logger),
		repository.NewExtractJobRepository(db, logger),
		tickets,
		export.NewService(logger))
	proc.OutputDir = t.TempDir()
	proc.SkipDuplicates = true

	return NewProcessorQueue(proc, logger, WithWorkers(2), WithQueueSize(8)), tickets
}

func writeTicketFile(t *testing.T, dir, name, ticketNo string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(pageText(ticketNo)), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestQueueProcessesAndDrains(t *testing.T) {
	q, tickets := newTestQueue(t)
	dir := t.TempDir()

	paths := []string{
		writeTicketFile(t, dir, "a.txt", "8810001"),
		writeTicketFile(t, dir, "b.txt", "8810002"),
		writeTicketFile(t, dir, "c.txt", "8810003"),
	}
	for _, p := range paths {
		if err := q.Enqueue(context.Background(), Job{Path: p, SubmittedAt: time.Now()}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	q.Shutdown(shutdownCtx)

	recs, err := tickets.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("archived tickets = %d, want 3", len(recs))
	}
}

func TestQueueEnqueueAfterShutdown(t *testing.T) {
	q, _ := newTestQueue(t)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(shutdownCtx)

	// Must not panic on the closed channel, just decline.
	if err := q.Enqueue(context.Background(), Job{Path: "late.txt"}); err != nil {
		t.Fatalf("Enqueue after shutdown: %v", err)
	}
}
