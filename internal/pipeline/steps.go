package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nao1215/wordcrawl/internal/crawler"
	"github.com/nao1215/wordcrawl/internal/database"
	"github.com/nao1215/wordcrawl/internal/model"
	"github.com/nao1215/wordcrawl/internal/profiler"
	"github.com/nao1215/wordcrawl/internal/report"
)

// CrawlStep runs the crawler over the run's start pages and records the
// result and timing on the run.
type CrawlStep struct {
	// crawler performs the crawl.
	crawler *crawler.Crawler

	// profiler, when set, times the whole crawl as "crawl".
	profiler *profiler.Profiler

	// now is the clock used for StartedAt, Deadline and FinishedAt.
	now func() time.Time

	// logger for structured logging.
	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlProfiler times the crawl with p.
func WithCrawlProfiler(p *profiler.Profiler) CrawlStepOption {
	return func(s *CrawlStep) {
		s.profiler = p
	}
}

// WithCrawlClock replaces time.Now. It should be the clock the crawler uses.
func WithCrawlClock(now func() time.Time) CrawlStepOption {
	return func(s *CrawlStep) {
		s.now = now
	}
}

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a crawl step around c.
func NewCrawlStep(c *crawler.Crawler, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		crawler: c,
		now:     time.Now,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl step.
// The partial result of a failed crawl is still stored on the run.
func (s *CrawlStep) Do(ctx context.Context, run *model.Run) error {
	if s.profiler != nil {
		defer s.profiler.Start(s.Name())()
	}

	run.StartedAt = s.now()
	run.Deadline = run.StartedAt.Add(s.crawler.Timeout())

	result, err := s.crawler.CrawlUntil(ctx, run.Deadline, run.StartPages)

	run.FinishedAt = s.now()
	run.Result = result

	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	if run.HitDeadline() {
		s.logger.Warn("crawl reached its deadline, results are partial",
			"timeout", s.crawler.Timeout(),
			"urls_visited", result.URLsVisited,
		)
	}
	return nil
}

// ReportStep writes the run's report.
// It is a Finalizer: a cancelled crawl is still reported.
type ReportStep struct {
	// format selects the writer.
	format report.Format

	// path is the output file. Empty means stdout.
	path string

	// output, when set, replaces path.
	output io.Writer
}

// ReportStepOption configures a ReportStep.
type ReportStepOption func(*ReportStep)

// WithReportOutput writes the report to w instead of opening a file.
func WithReportOutput(w io.Writer) ReportStepOption {
	return func(s *ReportStep) {
		s.output = w
	}
}

// NewReportStep creates a report step writing format to path.
func NewReportStep(format report.Format, path string, opts ...ReportStepOption) *ReportStep {
	s := &ReportStep{
		format: format,
		path:   path,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *ReportStep) Name() string {
	return "report"
}

// Final reports that the step runs after failures.
func (s *ReportStep) Final() bool { return true }

// Do writes the report.
func (s *ReportStep) Do(_ context.Context, run *model.Run) (err error) {
	out := s.output
	if out == nil {
		var wc io.WriteCloser
		wc, err = report.OpenOutput(s.path)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := wc.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("failed to close report output: %w", cerr)
			}
		}()
		out = wc
	}

	if _, err = report.New(s.format, out).Write(run); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// ProfileStep writes the profiler's timings after a run.
type ProfileStep struct {
	profiler *profiler.Profiler

	// path is appended to. Empty means output.
	path string

	// output receives the timings when path is empty.
	output io.Writer
}

// NewProfileStep creates a profile step. When path is empty the timings are
// written to output.
func NewProfileStep(p *profiler.Profiler, path string, output io.Writer) *ProfileStep {
	return &ProfileStep{
		profiler: p,
		path:     path,
		output:   output,
	}
}

// Name returns the step name.
func (s *ProfileStep) Name() string {
	return "profile"
}

// Final reports that the step runs after failures.
func (s *ProfileStep) Final() bool { return true }

// Do writes the profile data.
func (s *ProfileStep) Do(_ context.Context, _ *model.Run) error {
	if s.path != "" {
		return s.profiler.AppendToFile(s.path)
	}
	if s.output == nil {
		return errors.New("profile step has no output")
	}
	return s.profiler.WriteData(s.output)
}

// SaveStep stores the run in the history database.
type SaveStep struct {
	db     *database.RunDB
	logger *slog.Logger
}

// NewSaveStep creates a save step writing to db.
func NewSaveStep(db *database.RunDB, logger *slog.Logger) *SaveStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &SaveStep{
		db:     db,
		logger: logger,
	}
}

// Name returns the step name.
func (s *SaveStep) Name() string {
	return "save"
}

// Final reports that the step runs after failures.
func (s *SaveStep) Final() bool { return true }

// Do saves the run.
func (s *SaveStep) Do(ctx context.Context, run *model.Run) error {
	if err := s.db.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	s.logger.Debug("run saved", "id", run.ID, "config_hash", run.ConfigHash)
	return nil
}
