package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chemtutor/config"
	"chemtutor/internal/adapter/embedding"
	"chemtutor/internal/adapter/embedding/hashembed"
	"chemtutor/internal/adapter/fs"
	"chemtutor/internal/adapter/memstore"
	"chemtutor/internal/adapter/store"
	"chemtutor/internal/domain"
	"chemtutor/internal/port"
	"chemtutor/internal/usecase"
)

const maxPrintedErrors = 10

var (
	ingestNoValidate bool
	ingestDryRun     bool
	ingestBatchSize  int
	ingestNoReports  bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Ingest chapter markdown files into the vector index",
	Long: `Validate, chunk and embed chapter markdown files and store them in the index.
A path may be a single file or a directory, which is searched for files matching
the configured include globs. Re-ingesting a chapter replaces its chunks.

Examples:
  tutor ingest .                        # Ingest every chapter under the project
  tutor ingest kafli3.md                # Ingest one chapter
  tutor ingest chapters/ --dry-run      # Run the pipeline without API calls or writes`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().BoolVar(&ingestNoValidate, "no-validate", false, "skip the validation gate")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "use an in-memory store and mock embeddings")
	ingestCmd.Flags().IntVar(&ingestBatchSize, "batch-size", 0, "chunks per embedding batch (default from config)")
	ingestCmd.Flags().BoolVar(&ingestNoReports, "no-reports", false, "do not write JSON reports to .tutor/logs")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	dir := GetRootDir()
	ctx := cmd.Context()

	path := dir
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	var (
		emb port.Embedder
		st  port.VectorStore
		err error
	)
	if ingestDryRun {
		emb = hashembed.New(cfg.Embedding.Dimension)
		st = memstore.NewMemoryStore()
		fmt.Println("Dry run: using in-memory store and mock embeddings")
	} else {
		if err := config.EnsureDataDir(dir); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", config.DirName, err)
		}
		emb, err = newEmbedder(ctx, cfg, embedding.TaskRetrievalDocument)
		if err != nil {
			return fmt.Errorf("failed to create embedder: %w", err)
		}
		st, err = openStore(cfg, dir, emb.Dimension())
		if err != nil {
			return fmt.Errorf("failed to open index store: %w", err)
		}
	}
	defer st.Close()

	if schema, ok := st.(store.SchemaStore); ok {
		result, err := store.Prepare(schema, cfg)
		if err != nil {
			return fmt.Errorf("failed to prepare index: %w", err)
		}
		if result.NeedsRebuild {
			fmt.Printf("Index rebuilt: %s\n", result.Reason)
		}
	}

	var val port.Validator
	if cfg.Validation.Enabled && !ingestNoValidate {
		val = newValidator(cfg)
	}
	batchSize := cfg.Ingest.BatchSize
	if ingestBatchSize > 0 {
		batchSize = ingestBatchSize
	}
	ingestUC := usecase.NewIngestUseCase(val, newChunker(cfg), emb, st, usecase.IngestOptions{
		BatchSize:  batchSize,
		BatchDelay: cfg.Ingest.BatchDelay(),
		Retry:      embeddingRetry(cfg),
	}, logger)

	fmt.Printf("Scanning %s...\n", path)

	var fileBar, batchBar *progressbar.ProgressBar
	progress := &usecase.Progress{
		OnFiles: func(total int) { fileBar = newBar(total, "Processing files") },
		OnFile:  func(string, error) { _ = fileBar.Add(1) },
		OnBatches: func(total int) {
			batchBar = newBar(total, "Storing chunks")
		},
		OnBatch: func(int) { _ = batchBar.Add(1) },
	}

	walker := fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes)
	report, err := ingestUC.IngestDir(ctx, walker, path, progress)
	if err != nil {
		logger.Error("ingestion failed", zap.Error(err))
		printSummary(report)
		return fmt.Errorf("ingestion failed: %w", err)
	}

	printSummary(report)

	if !ingestDryRun && !ingestNoReports {
		if err := writeReports(config.LogDir(dir), report, time.Now()); err != nil {
			logger.Warn("failed to write reports", zap.Error(err))
		}
	}

	if report.FailedFiles > 0 {
		return fmt.Errorf("%d of %d files failed", report.FailedFiles, report.TotalFiles)
	}
	return nil
}

func newBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("[cyan]"+description+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}

func printSummary(r domain.IngestReport) {
	rule := strings.Repeat("=", 60)
	fmt.Println()
	fmt.Println(rule)
	fmt.Println("INGESTION SUMMARY")
	fmt.Println(rule)
	fmt.Printf("Files processed: %d/%d\n", r.ProcessedFiles, r.TotalFiles)
	fmt.Printf("Failed files:    %d\n", r.FailedFiles)
	fmt.Printf("Skipped files:   %d\n", r.SkippedFiles)
	fmt.Printf("Chunks stored:   %d\n", r.ChunksStored)
	fmt.Printf("Total words:     %d\n", r.WordsTotal)
	fmt.Printf("Time taken:      %s\n", formatDuration(r.Elapsed))
	fmt.Println(rule)

	if len(r.Errors) == 0 {
		return
	}
	fmt.Printf("\nErrors: %d\n", len(r.Errors))
	fmt.Println(strings.Repeat("-", 60))
	for _, e := range r.Errors[:min(len(r.Errors), maxPrintedErrors)] {
		fmt.Printf("  %s\n", e.Path)
		fmt.Printf("    %s: %s\n", e.Kind, e.Message)
	}
	if len(r.Errors) > maxPrintedErrors {
		fmt.Printf("  ... and %d more errors\n", len(r.Errors)-maxPrintedErrors)
		fmt.Println("  See error log for full details")
	}
}

type errorReport struct {
	Timestamp   string             `json:"timestamp"`
	TotalErrors int                `json:"total_errors"`
	Errors      []domain.FileError `json:"errors"`
}

type statsReport struct {
	domain.IngestReport
	ElapsedTime string `json:"elapsed_time"`
}

// writeReports saves the run statistics, and the error list when there is
// one, as timestamped JSON files under logDir.
func writeReports(logDir string, r domain.IngestReport, now time.Time) error {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}
	stamp := now.Format("20060102_150405")

	if len(r.Errors) > 0 {
		path := filepath.Join(logDir, "errors_"+stamp+".json")
		if err := writeJSON(path, errorReport{Timestamp: stamp, TotalErrors: len(r.Errors), Errors: r.Errors}); err != nil {
			return err
		}
		logger.Info("error report saved", zap.String("path", path))
	}

	path := filepath.Join(logDir, "stats_"+stamp+".json")
	stats := r
	stats.Errors = nil
	if err := writeJSON(path, statsReport{IngestReport: stats, ElapsedTime: formatDuration(r.Elapsed)}); err != nil {
		return err
	}
	logger.Info("statistics saved", zap.String("path", path))
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// formatDuration formats a duration as "Xm Ys".
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}
