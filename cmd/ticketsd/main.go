package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/devinhayward/concrete-tickets/internal/async"
	"github.com/devinhayward/concrete-tickets/internal/common"
	"github.com/devinhayward/concrete-tickets/internal/export"
	"github.com/devinhayward/concrete-tickets/internal/ingest"
	"github.com/devinhayward/concrete-tickets/internal/llm/openai"
	"github.com/devinhayward/concrete-tickets/internal/pdftext"
	"github.com/devinhayward/concrete-tickets/internal/pipeline"
	repo "github.com/devinhayward/concrete-tickets/internal/repository"
)

func main() {
	// Logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Env
	cfg := common.LoadConfig()
	if cfg.Server.InboxDir == "" {
		logger.Error("INBOX_DIR env var is required")
		os.Exit(2)
	}
	if cfg.LLM.APIKey == "" {
		logger.Error("OPENAI_API_KEY env var is required")
		os.Exit(2)
	}

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Archive store
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

	// Healthcheck DB on startup
	if err := repo.HealthCheck(ctx, db, 3*time.Second, logger); err != nil {
		logger.Error("archive health failed", "error", err)
		os.Exit(1)
	}
	logger.Info("archive health OK")

	// Wire repositories and the processor
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

	pipe := pipeline.NewPipeline(logger, pipeline.Config{
		IgnoreFields: cfg.Extract.IgnoreSet(),
		RepairRounds: cfg.Extract.RepairRounds,
	}, client)

	proc := pipeline.NewProcessor(logger, pipe, pdftext.NewExtractor(logger),
		ingest.NewFSIngestor(filesRepo, logger),
		jobsRepo, ticketsRepo, export.NewService(logger))
	proc.OutputDir = cfg.Extract.OutputDir
	proc.MaxPages = cfg.Extract.MaxPages
	// Content already archived is not reprocessed: the watcher and the
	// periodic rescan both sight every file many times.
	proc.SkipDuplicates = true

	if err := os.MkdirAll(cfg.Extract.OutputDir, 0o755); err != nil {
		logger.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}

	// gRPC server
	grpcServer := grpc.NewServer()
	// Health service
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	// Reflection for grpcurl
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("listen failed", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	logger.Info("gRPC serving", "addr", cfg.Server.GRPCAddr)

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc serve failed", "error", err)
			stop()
		}
	}()

	// Inbox watcher
	events, watchErrs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{cfg.Server.InboxDir},
		InitialScan: true,
		Debounce:    2 * time.Second,
	}, logger)
	if err != nil {
		logger.Error("failed to start inbox watcher", "error", err)
		os.Exit(1)
	}

	queue := async.NewProcessorQueue(proc, logger,
		async.WithWorkers(2),
		async.WithProcessTimeout(5*time.Minute))

	enqueue := func(path string) {
		if err := queue.Enqueue(ctx, async.Job{Path: path, SubmittedAt: time.Now()}); err != nil {
			logger.Error("enqueue failed", "path", path, "error", err)
		}
	}

	// The rescan backstops the watcher: files dropped during an event burst
	// or while a rename raced the debounce still get picked up.
	rescan := func() {
		err := filepath.WalkDir(cfg.Server.InboxDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ingest.IsHidden(path) && path != cfg.Server.InboxDir {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if ingest.AllowedExt(filepath.Ext(path)) {
				enqueue(path)
			}
			return nil
		})
		if err != nil {
			logger.Warn("inbox rescan failed", "error", err)
		}
	}

	ticker := time.NewTicker(cfg.Server.PollInterval)
	defer ticker.Stop()
	logger.Info("watching inbox", "dir", cfg.Server.InboxDir, "poll_interval", cfg.Server.PollInterval.String())

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case path, ok := <-events:
			if !ok {
				break loop
			}
			enqueue(path)
		case werr := <-watchErrs:
			logger.Warn("watcher error", "error", werr)
		case <-ticker.C:
			rescan()
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	queue.Shutdown(shutdownCtx)
	cancel()
	grpcServer.GracefulStop()
	fmt.Println("stopped.")
}
