package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/devinhayward/concrete-tickets/constants"
	"github.com/devinhayward/concrete-tickets/internal/common"
	"github.com/devinhayward/concrete-tickets/internal/export"
	"github.com/devinhayward/concrete-tickets/internal/ingest"
	"github.com/devinhayward/concrete-tickets/internal/pdftext"
	"github.com/devinhayward/concrete-tickets/internal/repository"
)

type processorFixture struct {
	proc    *Processor
	jobs    repository.ExtractJobRepository
	tickets repository.TicketRepository
	comp    *scriptedCompleter
}

func newTestProcessor(t *testing.T, responses ...string) *processorFixture {
	t.Helper()
	logger := discardLogger()

	db, err := repository.Open(context.Background(), common.DatabaseConfig{Driver: repository.DriverSQLite, SQLitePath: ":memory:"}, logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { repository.Close(db, logger) })
	if err := repository.Migrate(context.Background(), db, logger); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	files := repository.NewSourceFileRepository(db, logger)
	jobs := repository.NewExtractJobRepository(db, logger)
	tickets := repository.NewTicketRepository(db, logger)

	comp := &scriptedCompleter{responses: responses}
	proc := NewProcessor(logger,
		NewPipeline(logger, Config{}, comp),
		pdftext.NewExtractor(logger),
		ingest.NewFSIngestor(files, logger),
		jobs, tickets,
		export.NewService(logger))
	proc.OutputDir = t.TempDir()

	return &processorFixture{proc: proc, jobs: jobs, tickets: tickets, comp: comp}
}

func writePageFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docket_031125.txt")
	if err := os.WriteFile(path, []byte(pageFixture), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestProcessFileTxtEndToEnd(t *testing.T) {
	fx := newTestProcessor(t, happyResponse)
	path := writePageFile(t)

	out, err := fx.proc.ProcessFile(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if out.Skipped {
		t.Fatalf("fresh file reported as skipped")
	}
	if len(out.Pages) != 1 || len(out.PageErrors) != 0 {
		t.Fatalf("pages = %d, page errors = %d, want 1 and 0", len(out.Pages), len(out.PageErrors))
	}
	if out.Pages[0].SourceFile != "docket_031125.txt" {
		t.Errorf("SourceFile = %q", out.Pages[0].SourceFile)
	}

	if len(out.JSONPaths) != 1 {
		t.Fatalf("json paths = %d, want 1", len(out.JSONPaths))
	}
	if _, err := os.Stat(out.JSONPaths[0]); err != nil {
		t.Errorf("exported JSON missing: %v", err)
	}

	job, err := fx.jobs.GetByID(context.Background(), out.JobID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if job.Status != constants.JobStatusLLMOK {
		t.Errorf("job status = %s, want %s", job.Status, constants.JobStatusLLMOK)
	}
	if job.PageCount != 1 || job.TicketCount != 1 {
		t.Errorf("job counts = %d pages / %d tickets, want 1/1", job.PageCount, job.TicketCount)
	}

	rec, err := fx.tickets.GetByTicketNo(context.Background(), "8812345")
	if err != nil {
		t.Fatalf("GetByTicketNo: %v", err)
	}
	if rec.Page != 1 || rec.FileID != out.FileID {
		t.Errorf("archived record page/file = %d/%s, want 1/%s", rec.Page, rec.FileID, out.FileID)
	}
}

func TestProcessFileSkipsDuplicates(t *testing.T) {
	fx := newTestProcessor(t, happyResponse)
	fx.proc.SkipDuplicates = true
	path := writePageFile(t)

	first, err := fx.proc.ProcessFile(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("first ProcessFile: %v", err)
	}
	if first.Skipped {
		t.Fatalf("first run skipped")
	}

	second, err := fx.proc.ProcessFile(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("second ProcessFile: %v", err)
	}
	if !second.Skipped {
		t.Fatalf("duplicate content not skipped")
	}
	if second.FileID != first.FileID {
		t.Errorf("duplicate resolved to a different file id")
	}
	if len(fx.comp.calls) != 1 {
		t.Errorf("model calls = %d, want 1 (skip must not reach the model)", len(fx.comp.calls))
	}
}

func TestProcessFileAllPagesFail(t *testing.T) {
	fx := newTestProcessor(t, "nothing machine readable on this page")
	path := writePageFile(t)

	out, err := fx.proc.ProcessFile(context.Background(), path, nil)
	if err == nil {
		t.Fatalf("ProcessFile succeeded with no decodable page")
	}
	if len(out.PageErrors) != 1 {
		t.Fatalf("page errors = %d, want 1", len(out.PageErrors))
	}

	job, gerr := fx.jobs.GetByID(context.Background(), out.JobID)
	if gerr != nil {
		t.Fatalf("GetByID: %v", gerr)
	}
	if job.Status != constants.JobStatusFailed {
		t.Errorf("job status = %s, want %s", job.Status, constants.JobStatusFailed)
	}
	if job.ErrorMessage == nil || *job.ErrorMessage == "" {
		t.Errorf("job error message empty")
	}
}

func TestProcessFileMaxPages(t *testing.T) {
	fx := newTestProcessor(t, happyResponse)
	fx.proc.MaxPages = 1
	path := writePageFile(t)

	out, err := fx.proc.ProcessFile(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if len(out.Pages) != 1 {
		t.Fatalf("pages = %d, want 1", len(out.Pages))
	}
}

func TestProcessFileRejectsUnknownExtension(t *testing.T) {
	fx := newTestProcessor(t)
	path := filepath.Join(t.TempDir(), "notes.docx")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := fx.proc.ProcessFile(context.Background(), path, nil); !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}
