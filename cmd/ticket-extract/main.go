package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/devinhayward/concrete-tickets/constants"
	"github.com/devinhayward/concrete-tickets/internal/common"
	"github.com/devinhayward/concrete-tickets/internal/export"
	"github.com/devinhayward/concrete-tickets/internal/ingest"
	"github.com/devinhayward/concrete-tickets/internal/llm/openai"
	"github.com/devinhayward/concrete-tickets/internal/pdftext"
	"github.com/devinhayward/concrete-tickets/internal/pipeline"
	repo "github.com/devinhayward/concrete-tickets/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	// Parse CLI flags
	var (
		inmem    = flag.Bool("inmem", false, "use in-memory SQLite archive")
		file     = flag.String("file", "", "delivery-ticket PDF or TXT to process (required)")
		pagesStr = flag.String("pages", "", "page selection like 1,3-5 (PDF only, default all pages)")
		out      = flag.String("out", "", "directory for per-ticket JSON files (defaults to OUTPUT_DIR)")
		xlsx     = flag.String("xlsx", "", "also write an XLSX workbook to this path")
		location = flag.String("location", "", "pour location stamped on exported line items")
		level    = flag.String("level", "", "pour level stamped on exported line items")
	)
	flag.Parse()

	if *file == "" {
		printError("Error: --file is required\n")
		os.Exit(1)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	cfg := common.LoadConfig()
	if *inmem {
		cfg.Database.Driver = repo.DriverSQLite
		cfg.Database.SQLitePath = ":memory:"
	}
	if *out == "" {
		*out = cfg.Extract.OutputDir
	}
	if cfg.LLM.APIKey == "" {
		printError("Error: OPENAI_API_KEY is required\n")
		os.Exit(1)
	}

	// Initialize archive store
	db, err := repo.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open archive store", "error", err)
		os.Exit(1)
	}
	defer repo.Close(db, logger)
	if err := repo.Migrate(ctx, db, logger); err != nil {
		logger.Error("failed to migrate archive store", "error", err)
		os.Exit(1)
	}

	// Wire repositories
	filesRepo := repo.NewSourceFileRepository(db, logger)
	jobsRepo := repo.NewExtractJobRepository(db, logger)
	ticketsRepo := repo.NewTicketRepository(db, logger)

	client := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	logger.Info("OpenAI client initialized", "model", cfg.LLM.Model)

	pipe := pipeline.NewPipeline(logger, pipeline.Config{
		IgnoreFields: cfg.Extract.IgnoreSet(),
		RepairRounds: cfg.Extract.RepairRounds,
	}, client)

	extractor := pdftext.NewExtractor(logger)
	exportSvc := export.NewService(logger)
	proc := pipeline.NewProcessor(logger, pipe, extractor,
		ingest.NewFSIngestor(filesRepo, logger),
		jobsRepo, ticketsRepo, exportSvc)
	proc.OutputDir = *out
	proc.MaxPages = cfg.Extract.MaxPages

	// Resolve the page selection against the real page count
	var pages []int
	if *pagesStr != "" {
		if constants.MapExtToFormat(filepath.Ext(*file)) != constants.FormatPDF {
			logger.Warn("--pages only applies to PDF input, ignoring", "file", *file)
		} else {
			count, err := extractor.PageCount(*file)
			if err != nil {
				logger.Error("failed to read page count", "error", err)
				os.Exit(1)
			}
			if pages, err = pdftext.ParsePageRange(*pagesStr, count); err != nil {
				printError("Error: invalid --pages: %v\n", err)
				os.Exit(1)
			}
		}
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		logger.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}

	outcome, err := proc.ProcessFile(ctx, *file, pages)
	if err != nil {
		logger.Error("extraction failed", "file", *file, "error", err)
		os.Exit(1)
	}

	if *xlsx != "" {
		opts := export.WorkbookOptions{Location: *location, Level: *level}
		if err := exportSvc.WriteWorkbook(*xlsx, outcome.Pages, opts); err != nil {
			logger.Error("failed to write workbook", "error", err)
			os.Exit(1)
		}
	}

	// Log summary
	logger.Info("extraction complete",
		"file", *file,
		"tickets", len(outcome.Pages),
		"failed_pages", len(outcome.PageErrors),
		"json_dir", *out)

	fmt.Printf("Extraction complete!\n")
	fmt.Printf("- Tickets extracted: %d\n", len(outcome.Pages))
	fmt.Printf("- Failed pages: %d\n", len(outcome.PageErrors))
	for _, pe := range outcome.PageErrors {
		printError("  page %d: %s\n", pe.Page, pe.Err)
	}
	fmt.Printf("- JSON output: %s\n", *out)
	if *xlsx != "" {
		fmt.Printf("- Workbook: %s\n", *xlsx)
	}
}
