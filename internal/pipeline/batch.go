package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/wordcrawl/internal/config"
	"github.com/nao1215/wordcrawl/internal/model"
)

// PipelineFactory builds the pipeline for one crawl configuration.
type PipelineFactory func(cfg *config.Config) (*Pipeline, error)

// BatchProcessor runs several crawl configurations concurrently.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-run execution
// 2. Every run gets its own pipeline, crawler pool and visited set
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each run.
	pipelineFactory PipelineFactory

	// concurrency is the maximum number of concurrent runs.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent runs.
// Non-positive values keep the default of config.DefaultBatchSize.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory PipelineFactory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     config.DefaultBatchSize,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch runs one pipeline per configuration, at most concurrency at
// a time.
//
// Returns one run per configuration in input order. A run whose pipeline
// could not be built or failed carries the error itself; the returned error
// is non-nil only when ctx was cancelled before every run started.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, configs []*config.Config) ([]*model.Run, error) {
	bp.logger.Info("starting batch processing",
		"total_runs", len(configs),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Each goroutine writes only its own index.
	runs := make([]*model.Run, len(configs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, cfg := range configs {
		run := model.NewRun(cfg.StartPages, cfg.Fingerprint())
		runs[i] = run

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				run.SetError(err)
				return err
			}

			bp.logger.Info("running crawl file",
				"file", cfg.ConfigFilePath,
				"index", i+1,
				"total", len(configs),
			)

			p, err := bp.pipelineFactory(cfg)
			if err != nil {
				bp.logger.Warn("could not build pipeline", "file", cfg.ConfigFilePath, "error", err)
				run.SetError(err)
				return nil
			}

			// The error is recorded on the run.
			if err := p.Execute(gctx, run); err != nil {
				bp.logger.Warn("run failed", "file", cfg.ConfigFilePath, "error", err)
				return nil
			}

			bp.logger.Info("run completed", "file", cfg.ConfigFilePath)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"total_runs", len(configs),
		"elapsed", time.Since(startTime),
	)

	return runs, err
}
