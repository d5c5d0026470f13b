package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"log/slog"

	"github.com/google/uuid"

	"github.com/devinhayward/concrete-tickets/constants"
	"github.com/devinhayward/concrete-tickets/internal/common"
	"github.com/devinhayward/concrete-tickets/internal/export"
	"github.com/devinhayward/concrete-tickets/internal/ingest"
	"github.com/devinhayward/concrete-tickets/internal/pdftext"
	"github.com/devinhayward/concrete-tickets/internal/repository"
)

// Processor coordinates the per-file flow: ingest (hash + dedupe), job
// bookkeeping, text extraction, then the page pipeline for every page,
// archiving and JSON export along the way. Workbook assembly is left to
// callers so a single workbook can span many files.
type Processor struct {
	Logger  *slog.Logger
	Pipe    *Pipeline
	PDF     *pdftext.Extractor
	Ingest  *ingest.FSIngestor
	Jobs    repository.ExtractJobRepository
	Tickets repository.TicketRepository
	Export  *export.Service

	// OutputDir receives one JSON file per extracted ticket. Empty disables
	// the per-ticket files.
	OutputDir string
	// MaxPages caps how many pages of a file are processed. Zero means all.
	MaxPages int
	// SkipDuplicates short-circuits files whose content hash is already
	// archived. The drop-folder daemon sets this; one-shot runs do not, so
	// a re-run can overwrite earlier results.
	SkipDuplicates bool
}

func NewProcessor(logger *slog.Logger, pipe *Pipeline, pdf *pdftext.Extractor, ing *ingest.FSIngestor, jobs repository.ExtractJobRepository, tickets repository.TicketRepository, exp *export.Service) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		Logger:  logger,
		Pipe:    pipe,
		PDF:     pdf,
		Ingest:  ing,
		Jobs:    jobs,
		Tickets: tickets,
		Export:  exp,
	}
}

// PageError records a page that failed extraction without sinking the file.
type PageError struct {
	Page int
	Err  string
}

// FileOutcome summarizes one ProcessFile run.
type FileOutcome struct {
	FileID     uuid.UUID
	JobID      uuid.UUID
	SourcePath string
	// Skipped is set when SkipDuplicates suppressed a re-run of known content.
	Skipped    bool
	Pages      []export.TicketPage
	PageErrors []PageError
	JSONPaths  []string
}

// ProcessFile ingests path, extracts its text and runs the page pipeline over
// the selected pages (nil means all). Pages fail independently; the job fails
// only when no page yields a ticket.
func (p *Processor) ProcessFile(ctx context.Context, path string, pages []int) (*FileOutcome, error) {
	res, err := p.Ingest.IngestPath(ctx, path)
	if err != nil {
		return nil, err
	}

	out := &FileOutcome{FileID: res.FileID, SourcePath: res.SourcePath}
	if res.Deduplicated && p.SkipDuplicates {
		p.Logger.Info("processor.file.skipped", "path", res.SourcePath, "file_id", res.FileID)
		out.Skipped = true
		return out, nil
	}

	format := constants.MapExtToFormat(res.FileExt)
	if format == "" {
		return out, common.NewAppError("PROCESS_FORMAT", "unsupported file type: "+res.FileExt, common.ErrInvalidInput)
	}

	job, err := p.Jobs.Start(ctx, res.FileID, format)
	if err != nil {
		return out, err
	}
	out.JobID = job.ID

	pageTexts, err := p.extractPages(res.SourcePath, format, pages)
	if err != nil {
		p.finishFailure(ctx, job.ID, err.Error())
		return out, err
	}
	if p.MaxPages > 0 && len(pageTexts) > p.MaxPages {
		pageTexts = pageTexts[:p.MaxPages]
	}
	if err := p.Jobs.MarkTextExtracted(ctx, job.ID, len(pageTexts)); err != nil {
		return out, err
	}

	base := filepath.Base(res.SourcePath)
	for _, pg := range pageTexts {
		if conf := pdftext.Confidence(pg.Text); conf < 0.5 {
			p.Logger.Warn("processor.page.low_text_quality",
				"job_id", job.ID, "page", pg.Number, "confidence", conf)
		}
		pr, err := p.Pipe.ProcessPage(ctx, pg.Text)
		if err != nil {
			p.Logger.Error("processor.page.failed", "job_id", job.ID, "page", pg.Number, "err", err)
			out.PageErrors = append(out.PageErrors, PageError{Page: pg.Number, Err: err.Error()})
			continue
		}

		tp := export.TicketPage{Ticket: pr.Ticket, Page: pg.Number, SourceFile: base}
		out.Pages = append(out.Pages, tp)

		if p.OutputDir != "" {
			jsonPath, err := p.Export.WriteTicketJSON(p.OutputDir, tp)
			if err != nil {
				p.Logger.Error("processor.export.failed", "job_id", job.ID, "page", pg.Number, "err", err)
			} else {
				out.JSONPaths = append(out.JSONPaths, jsonPath)
			}
		}

		rec, err := repository.NewTicketRecord(job.ID, res.FileID, pg.Number, pr.Ticket)
		if err != nil {
			// Ticket without a ticket number: exported but not archived.
			p.Logger.Warn("processor.archive.skipped", "job_id", job.ID, "page", pg.Number, "err", err)
			continue
		}
		if _, _, err := p.Tickets.Save(ctx, rec); err != nil {
			p.Logger.Error("processor.archive.failed", "job_id", job.ID, "page", pg.Number, "err", err)
		}
	}

	if len(out.Pages) == 0 && len(out.PageErrors) > 0 {
		msg := out.PageErrors[0].Err
		p.finishFailure(ctx, job.ID, msg)
		return out, common.NewAppError("PROCESS_EMPTY", "no tickets extracted from "+base+": "+msg, common.ErrInternal)
	}

	if err := p.Jobs.FinishSuccess(ctx, job.ID, len(out.Pages)); err != nil {
		return out, err
	}
	p.Logger.Info("processor.file.ok",
		"file_id", res.FileID,
		"job_id", job.ID,
		"tickets", len(out.Pages),
		"failed_pages", len(out.PageErrors))
	return out, nil
}

// extractPages returns the text of the selected pages. TXT files are a single
// page; the pages argument is ignored for them.
func (p *Processor) extractPages(path, format string, pages []int) ([]pdftext.Page, error) {
	switch format {
	case constants.FormatPDF:
		return p.PDF.Extract(path, pages)
	case constants.FormatTXT:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, common.WrapError(err, "read text file")
		}
		return []pdftext.Page{{Number: 1, Text: string(data)}}, nil
	default:
		return nil, common.NewAppError("PROCESS_FORMAT", "unsupported format: "+format, common.ErrInvalidInput)
	}
}

func (p *Processor) finishFailure(ctx context.Context, jobID uuid.UUID, message string) {
	if err := p.Jobs.FinishFailure(ctx, jobID, message); err != nil {
		p.Logger.Error("processor.job.finish_failure", "job_id", jobID, "err", err)
	}
}
