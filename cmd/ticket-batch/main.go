package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

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
		dir      = flag.String("dir", "", "directory of delivery-ticket files to process (required)")
		out      = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		jsonOut  = flag.String("json-out", "", "directory for per-ticket JSON files (defaults to OUTPUT_DIR)")
		location = flag.String("location", "", "pour location stamped on exported line items")
		level    = flag.String("level", "", "pour level stamped on exported line items")
	)
	flag.Parse()

	// Validate required flags
	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}

	// If output file not specified, use parent directory with default filename
	if *out == "" {
		parentDir := filepath.Dir(*dir)
		*out = filepath.Join(parentDir, "tickets.xlsx")
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
	if *jsonOut == "" {
		*jsonOut = cfg.Extract.OutputDir
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

	exportSvc := export.NewService(logger)
	proc := pipeline.NewProcessor(logger, pipe, pdftext.NewExtractor(logger),
		ingest.NewFSIngestor(filesRepo, logger),
		jobsRepo, ticketsRepo, exportSvc)
	proc.OutputDir = *jsonOut
	proc.MaxPages = cfg.Extract.MaxPages

	if err := os.MkdirAll(*jsonOut, 0o755); err != nil {
		logger.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}

	// Collect candidate files (skip hidden entries, keep pdf/txt)
	var candidates []string
	err = filepath.WalkDir(*dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ingest.IsHidden(path) && path != *dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if ingest.AllowedExt(filepath.Ext(path)) {
			candidates = append(candidates, path)
		}
		return nil
	})
	if err != nil {
		logger.Error("failed to scan directory", "dir", *dir, "error", err)
		os.Exit(1)
	}
	logger.Info("starting batch", "dir", *dir, "files", len(candidates))

	// Process each file
	var (
		allPages    []export.TicketPage
		processed   int
		failures    int
		failedPages int
	)
	for _, path := range candidates {
		logger.Info("processing file", "path", path)
		outcome, err := proc.ProcessFile(ctx, path, nil)
		if err != nil {
			logger.Error("failed to process file", "path", path, "error", err)
			failures++
			continue
		}
		processed++
		failedPages += len(outcome.PageErrors)
		allPages = append(allPages, outcome.Pages...)
	}

	// Export to XLSX
	logger.Info("exporting to XLSX", "output", *out)
	opts := export.WorkbookOptions{Location: *location, Level: *level}
	if err := exportSvc.WriteWorkbook(*out, allPages, opts); err != nil {
		logger.Error("failed to write workbook", "error", err)
		os.Exit(1)
	}

	// Log summary
	logger.Info("batch processing complete",
		"files_found", len(candidates),
		"files_processed", processed,
		"failures", failures,
		"tickets", len(allPages),
		"failed_pages", failedPages,
		"output_file", *out)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files found: %d\n", len(candidates))
	fmt.Printf("- Files processed: %d\n", processed)
	fmt.Printf("- Failures: %d\n", failures)
	fmt.Printf("- Tickets extracted: %d\n", len(allPages))
	fmt.Printf("- Failed pages: %d\n", failedPages)
	fmt.Printf("- Output: %s\n", *out)
}
