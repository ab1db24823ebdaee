package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"chemtutor/internal/adapter/fs"
	"chemtutor/internal/domain"
	"chemtutor/internal/port"
	"chemtutor/internal/retry"
)

// File error kinds recorded in an IngestReport.
const (
	KindValidation = "ValidationError"
	KindParse      = "ParseError"
	KindRead       = "ReadError"
	KindService    = "ServiceError"
)

// IngestOptions configures batching for IngestUseCase.
type IngestOptions struct {
	BatchSize  int
	BatchDelay time.Duration
	Retry      retry.Policy
}

// Progress receives ingestion callbacks. Nil fields are ignored.
type Progress struct {
	OnFiles   func(total int)
	OnFile    func(path string, err error)
	OnBatches func(total int)
	OnBatch   func(stored int)
}

// IngestUseCase validates, chunks, embeds and stores chapter documents.
type IngestUseCase struct {
	validator port.Validator // nil disables the admission gate
	chunker   port.Chunker
	embedder  port.Embedder
	store     port.VectorStore
	batchSize int
	limiter   *rate.Limiter
	policy    retry.Policy
	logger    *zap.Logger
}

func NewIngestUseCase(
	validator port.Validator,
	chunker port.Chunker,
	embedder port.Embedder,
	store port.VectorStore,
	opts IngestOptions,
	logger *zap.Logger,
) *IngestUseCase {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	limit := rate.Inf
	if opts.BatchDelay > 0 {
		limit = rate.Every(opts.BatchDelay)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestUseCase{
		validator: validator,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		batchSize: opts.BatchSize,
		limiter:   rate.NewLimiter(limit, 1),
		policy:    opts.Retry,
		logger:    logger,
	}
}

// IngestDocument runs one markdown document through the whole pipeline and
// returns the stored chunks. Re-ingesting the same document overwrites its
// chunks in place.
func (u *IngestUseCase) IngestDocument(ctx context.Context, source, content string) ([]domain.Chunk, error) {
	chunks, err := u.Prepare(source, content)
	if err != nil {
		return nil, err
	}
	if err := u.Store(ctx, chunks, nil); err != nil {
		return nil, err
	}
	return chunks, nil
}

// Prepare validates and chunks content without touching any collaborator.
func (u *IngestUseCase) Prepare(source, content string) ([]domain.Chunk, error) {
	if u.validator != nil {
		result := u.validator.ValidateContent(content)
		if err := u.admit(source, result); err != nil {
			return nil, err
		}
	}
	return u.chunker.Chunk(source, content)
}

func (u *IngestUseCase) admit(source string, result domain.ValidationResult) error {
	for _, w := range result.Warnings {
		u.logger.Warn(w, zap.String("stage", "validate"), zap.String("source", source))
	}
	if !result.Valid {
		return &domain.ValidationError{Source: source, Errors: result.Errors}
	}
	return nil
}

// Store embeds and upserts chunks in fixed-size batches, pausing between
// batches. Each batch's embedding call is retried under the configured policy.
func (u *IngestUseCase) Store(ctx context.Context, chunks []domain.Chunk, progress *Progress) error {
	if len(chunks) == 0 {
		return nil
	}

	batches := (len(chunks) + u.batchSize - 1) / u.batchSize
	if progress != nil && progress.OnBatches != nil {
		progress.OnBatches(batches)
	}

	policy := u.policy
	for start := 0; start < len(chunks); start += u.batchSize {
		if err := u.limiter.Wait(ctx); err != nil {
			return err
		}

		batch := chunks[start:min(start+u.batchSize, len(chunks))]
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		policy.OnRetry = func(attempt int, err error) {
			u.logger.Warn("embedding batch failed, retrying",
				zap.String("stage", "embed"), zap.Int("attempt", attempt), zap.Error(err))
		}
		vectors, err := retry.Do(ctx, policy, func(ctx context.Context) ([][]float32, error) {
			return u.embedder.Embed(ctx, texts)
		})
		if err != nil {
			return serviceError("embedding", "embed", err)
		}
		if len(vectors) != len(batch) {
			return &domain.TransientServiceError{
				Service: "embedding",
				Op:      "embed",
				Err:     fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(batch)),
			}
		}

		items := make([]port.VectorItem, len(batch))
		for i, c := range batch {
			items[i] = port.VectorItem{
				ID:       c.ID,
				Text:     c.Text,
				Vector:   vectors[i],
				Metadata: c.Metadata.Map(),
			}
		}
		if err := u.store.Upsert(ctx, items); err != nil {
			return serviceError("store", "upsert", err)
		}

		u.logger.Debug("stored batch", zap.String("stage", "store"), zap.Int("chunks", len(items)))
		if progress != nil && progress.OnBatch != nil {
			progress.OnBatch(len(items))
		}
	}
	return nil
}

// IngestDir chunks every file the walker finds under root, then stores all
// chunks in batches. Per-file failures are recorded in the report and do not
// stop the run; a storage failure does.
func (u *IngestUseCase) IngestDir(ctx context.Context, walker port.FileWalker, root string, progress *Progress) (domain.IngestReport, error) {
	start := time.Now()
	var report domain.IngestReport

	files, err := walker.Walk(root)
	if err != nil {
		return report, fmt.Errorf("failed to walk directory: %w", err)
	}
	report.TotalFiles = len(files)
	if progress != nil && progress.OnFiles != nil {
		progress.OnFiles(len(files))
	}
	if len(files) == 0 {
		u.logger.Warn("no markdown files found", zap.String("source", root))
	}

	var all []domain.Chunk
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			report.Elapsed = time.Since(start)
			return report, err
		}

		if f.Size == 0 {
			report.SkippedFiles++
			u.logger.Info("skipping empty file", zap.String("source", f.Path))
			if progress != nil && progress.OnFile != nil {
				progress.OnFile(f.Path, nil)
			}
			continue
		}

		chunks, err := u.prepareFile(f.Path)
		if progress != nil && progress.OnFile != nil {
			progress.OnFile(f.Path, err)
		}
		if err != nil {
			report.FailedFiles++
			report.Errors = append(report.Errors, fileError(f.Path, err))
			u.logger.Error("failed to process file", zap.String("source", f.Path), zap.Error(err))
			continue
		}

		report.ProcessedFiles++
		for _, c := range chunks {
			report.WordsTotal += c.Metadata.WordCount
		}
		all = append(all, chunks...)
	}

	counting := &Progress{OnBatch: func(n int) {
		report.ChunksStored += n
		if progress != nil && progress.OnBatch != nil {
			progress.OnBatch(n)
		}
	}}
	if progress != nil {
		counting.OnBatches = progress.OnBatches
	}
	err = u.Store(ctx, all, counting)
	report.Elapsed = time.Since(start)
	if err != nil {
		return report, err
	}

	u.logger.Info("ingestion finished",
		zap.Int("files", report.ProcessedFiles),
		zap.Int("failed", report.FailedFiles),
		zap.Int("chunks", report.ChunksStored),
		zap.Duration("elapsed", report.Elapsed))
	return report, nil
}

func (u *IngestUseCase) prepareFile(path string) ([]domain.Chunk, error) {
	if u.validator == nil {
		content, err := fs.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return u.chunker.Chunk(path, content)
	}

	result, content := u.validator.ValidateFile(path)
	if err := u.admit(path, result); err != nil {
		return nil, err
	}
	return u.chunker.Chunk(path, content)
}

func fileError(path string, err error) domain.FileError {
	kind := KindRead
	var verr *domain.ValidationError
	var perr *domain.ParseError
	var serr *domain.TransientServiceError
	switch {
	case errors.As(err, &verr):
		kind = KindValidation
	case errors.As(err, &perr):
		kind = KindParse
	case errors.As(err, &serr):
		kind = KindService
	}
	return domain.FileError{
		Path:      path,
		Kind:      kind,
		Message:   err.Error(),
		Timestamp: time.Now(),
	}
}
