package pipeline

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nao1215/wordcrawl/internal/config"
	"github.com/nao1215/wordcrawl/internal/crawler"
	"github.com/nao1215/wordcrawl/internal/database"
	"github.com/nao1215/wordcrawl/internal/metrics"
	"github.com/nao1215/wordcrawl/internal/parser"
	"github.com/nao1215/wordcrawl/internal/profiler"
	"github.com/nao1215/wordcrawl/internal/report"
)

// defaultDeps holds the collaborators of a default pipeline that do not come
// from config.Config.
type defaultDeps struct {
	source        crawler.PageSource
	db            *database.RunDB
	metrics       *metrics.Collector
	output        io.Writer
	profileOutput io.Writer
	logger        *slog.Logger
	now           func() time.Time
}

// DefaultPipelineOption configures the collaborators of DefaultPipeline.
type DefaultPipelineOption func(*defaultDeps)

// WithPipelineSource replaces the HTTP parser with src.
func WithPipelineSource(src crawler.PageSource) DefaultPipelineOption {
	return func(d *defaultDeps) {
		d.source = src
	}
}

// WithPipelineDB adds a save step writing to db when the configuration
// asks for it.
func WithPipelineDB(db *database.RunDB) DefaultPipelineOption {
	return func(d *defaultDeps) {
		d.db = db
	}
}

// WithPipelineMetrics reports crawler activity to c.
func WithPipelineMetrics(c *metrics.Collector) DefaultPipelineOption {
	return func(d *defaultDeps) {
		d.metrics = c
	}
}

// WithPipelineOutput writes the report to w instead of cfg.ResultPath.
func WithPipelineOutput(w io.Writer) DefaultPipelineOption {
	return func(d *defaultDeps) {
		d.output = w
	}
}

// WithPipelineProfileOutput writes profile data to w when the configuration
// has no profile output path. Without it profiling is off in that case.
func WithPipelineProfileOutput(w io.Writer) DefaultPipelineOption {
	return func(d *defaultDeps) {
		d.profileOutput = w
	}
}

// WithPipelineLogger sets the logger of the pipeline and all its parts.
func WithPipelineLogger(logger *slog.Logger) DefaultPipelineOption {
	return func(d *defaultDeps) {
		d.logger = logger
	}
}

// WithPipelineClock replaces time.Now in the crawler and the crawl step.
func WithPipelineClock(now func() time.Time) DefaultPipelineOption {
	return func(d *defaultDeps) {
		d.now = now
	}
}

// DefaultPipeline creates the standard pipeline for cfg:
// crawl, report, then profile and save when configured.
//
// Design decision: We provide a default pipeline because:
// 1. Both the single-run CLI and the batch processor need the same wiring
// 2. Reduces boilerplate in CLI
// 3. Ensures consistent ordering
func DefaultPipeline(cfg *config.Config, opts ...DefaultPipelineOption) (*Pipeline, error) {
	deps := &defaultDeps{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(deps)
	}

	ignoredURLs, err := cfg.CompiledIgnoredURLs()
	if err != nil {
		return nil, err
	}

	prof := profiler.New()

	source := deps.source
	if source == nil {
		source, err = newParser(cfg, deps.logger)
		if err != nil {
			return nil, err
		}
	}

	c, err := crawler.New(prof.WrapSource("fetch", source),
		crawler.WithMaxDepth(cfg.MaxDepth),
		crawler.WithTimeout(cfg.Timeout),
		crawler.WithPopularWordCount(cfg.PopularWordCount),
		crawler.WithParallelism(cfg.Parallelism),
		crawler.WithIgnorePatterns(ignoredURLs...),
		crawler.WithClock(deps.now),
		crawler.WithLogger(deps.logger),
		crawler.WithMetrics(deps.metrics),
	)
	if err != nil {
		return nil, err
	}

	p := New(WithLogger(deps.logger))
	p.AddStep(NewCrawlStep(c,
		WithCrawlProfiler(prof),
		WithCrawlClock(deps.now),
		WithCrawlLogger(deps.logger),
	))

	var reportOpts []ReportStepOption
	if deps.output != nil {
		reportOpts = append(reportOpts, WithReportOutput(deps.output))
	}
	p.AddStep(NewReportStep(ReportFormat(cfg), cfg.ResultPath, reportOpts...))

	if cfg.ProfileOutputPath != "" || deps.profileOutput != nil {
		p.AddStep(NewProfileStep(prof, cfg.ProfileOutputPath, deps.profileOutput))
	}
	if cfg.SaveToDB && deps.db != nil {
		p.AddStep(NewSaveStep(deps.db, deps.logger))
	}

	return p, nil
}

// ReportFormat picks the report format for cfg. A result file without an
// explicit format gets JSON.
func ReportFormat(cfg *config.Config) report.Format {
	switch {
	case cfg.JSONReport:
		return report.FormatJSON
	case cfg.MarkdownReport:
		return report.FormatMarkdown
	case cfg.ResultPath != "":
		return report.FormatJSON
	default:
		return report.FormatSimple
	}
}

// newParser builds the HTTP page source for cfg.
func newParser(cfg *config.Config, logger *slog.Logger) (*parser.Parser, error) {
	ignoredWords, err := cfg.CompiledIgnoredWords()
	if err != nil {
		return nil, err
	}

	client, err := parser.NewHTTPClient(cfg.ParserTimeout, cfg.ProxyURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	opts := []parser.Option{
		parser.WithHTTPClient(client),
		parser.WithIgnoredWords(ignoredWords...),
		parser.WithHeaders(cfg.Headers),
		parser.WithRateLimit(cfg.RequestsPerSecond),
		parser.WithLogger(logger),
	}
	if cfg.UserAgent != "" {
		opts = append(opts, parser.WithUserAgent(cfg.UserAgent))
	}
	if cfg.MaxBodySize > 0 {
		opts = append(opts, parser.WithMaxBodySize(cfg.MaxBodySize))
	}
	return parser.New(opts...), nil
}
