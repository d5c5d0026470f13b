package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/devinhayward/concrete-tickets/internal/report"
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
		input  = flag.String("input", "", "directory of exported ticket workbooks (required)")
		output = flag.String("output", "", "CSV report path (defaults to <input>/mix_report.csv)")
	)
	flag.Parse()

	if *input == "" {
		printError("Error: --input is required\n")
		os.Exit(1)
	}
	if *output == "" {
		*output = filepath.Join(*input, "mix_report.csv")
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if info, err := os.Stat(*input); err != nil || !info.IsDir() {
		printError("Input directory not found: %s\n", *input)
		os.Exit(2)
	}

	summary, err := report.BuildDir(*input, *output, logger)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Processed files: %d\n", summary.ProcessedFiles)
	fmt.Printf("Included rows (Main Mixes): %d\n", summary.IncludedMain)
	fmt.Printf("Included rows (Additional Mixes): %d\n", summary.IncludedAdditional)
	fmt.Printf("Skipped rows (blank Item Description): %d\n", summary.SkippedDescription)
	fmt.Printf("Skipped rows (non-numeric Qty Value): %d\n", summary.SkippedQty)
	fmt.Printf("Report written to: %s\n", *output)
}
