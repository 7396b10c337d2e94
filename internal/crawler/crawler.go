package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/nao1215/wordcrawl/internal/metrics"
	"github.com/nao1215/wordcrawl/internal/model"
	"github.com/nao1215/wordcrawl/internal/wordcount"
)

// Default crawl settings.
const (
	DefaultMaxDepth         = 10
	DefaultTimeout          = 60 * time.Second
	DefaultPopularWordCount = 10
)

// Crawler runs word crawls over a PageSource.
// A Crawler is immutable after New and may run several crawls, concurrently
// or one after another; each Crawl call gets its own State and Pool.
type Crawler struct {
	source PageSource

	// maxDepth is the number of link levels followed from a seed.
	// 0 visits only the seeds, 1 also visits the pages they link to.
	maxDepth int

	// timeout is the wall-clock budget of one crawl. No fetch begins once it
	// has passed; fetches already running are not interrupted.
	timeout time.Duration

	// popularWordCount is how many words the result keeps.
	popularWordCount int

	// parallelism is the requested number of workers; see PoolSize.
	parallelism int

	// ignore holds anchored patterns; a URL matching one is never visited.
	ignore []*regexp.Regexp

	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Collector
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithMaxDepth sets how many link levels are followed from each seed.
// 0 = only the seeds, 1 = the seeds plus the pages they link to, etc.
func WithMaxDepth(depth int) Option {
	return func(c *Crawler) {
		c.maxDepth = depth
	}
}

// WithTimeout sets the wall-clock budget of a crawl.
func WithTimeout(d time.Duration) Option {
	return func(c *Crawler) {
		c.timeout = d
	}
}

// WithPopularWordCount sets how many of the most frequent words are reported.
func WithPopularWordCount(n int) Option {
	return func(c *Crawler) {
		c.popularWordCount = n
	}
}

// WithParallelism sets the requested number of workers.
// Values of zero or less use one worker per CPU.
func WithParallelism(n int) Option {
	return func(c *Crawler) {
		c.parallelism = n
	}
}

// WithIgnorePatterns sets the URL exclusion patterns. A URL is skipped only
// when a pattern matches the whole URL, not a substring of it.
func WithIgnorePatterns(patterns ...*regexp.Regexp) Option {
	return func(c *Crawler) {
		c.ignore = patterns
	}
}

// WithClock replaces time.Now as the source of the crawl deadline.
func WithClock(now func() time.Time) Option {
	return func(c *Crawler) {
		c.now = now
	}
}

// WithLogger sets the logger. Per-page events are logged at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// WithMetrics reports crawl progress to collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(c *Crawler) {
		c.metrics = collector
	}
}

// New creates a Crawler that fetches pages from source.
func New(source PageSource, opts ...Option) (*Crawler, error) {
	if source == nil {
		return nil, ErrNilPageSource
	}

	c := &Crawler{
		source:           source,
		maxDepth:         DefaultMaxDepth,
		timeout:          DefaultTimeout,
		popularWordCount: DefaultPopularWordCount,
		now:              time.Now,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	switch {
	case c.maxDepth < 0:
		return nil, ErrInvalidMaxDepth
	case c.timeout < 0:
		return nil, ErrInvalidTimeout
	case c.popularWordCount < 0:
		return nil, ErrInvalidPopularWordCount
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	anchored, err := anchorPatterns(c.ignore)
	if err != nil {
		return nil, err
	}
	c.ignore = anchored

	return c, nil
}

// MaxDepth returns the configured link depth.
func (c *Crawler) MaxDepth() int { return c.maxDepth }

// Timeout returns the configured crawl budget.
func (c *Crawler) Timeout() time.Duration { return c.timeout }

// PopularWordCount returns how many words a result keeps.
func (c *Crawler) PopularWordCount() int { return c.popularWordCount }

// Workers returns the pool size each crawl uses.
func (c *Crawler) Workers() int { return PoolSize(c.parallelism) }

// Crawl visits the pages reachable from startPages and returns the most
// popular words across all successfully fetched pages.
//
// Seeds are crawled one after another on a single pool; the pages under each
// seed are crawled in parallel. Reaching the deadline is not an error. The
// returned error is non-nil only when a worker slot could not be obtained,
// which in practice means ctx was cancelled; the partial result gathered up
// to that point is returned with it.
func (c *Crawler) Crawl(ctx context.Context, startPages []string) (*model.CrawlResult, error) {
	return c.CrawlUntil(ctx, c.now().Add(c.timeout), startPages)
}

// CrawlUntil is Crawl with an absolute deadline instead of the configured
// timeout. Callers that record the deadline use it so the recorded value is
// the one enforced.
func (c *Crawler) CrawlUntil(ctx context.Context, deadline time.Time, startPages []string) (*model.CrawlResult, error) {
	r := &run{
		source:   c.source,
		state:    NewState(),
		pool:     NewPool(c.parallelism, WithPoolMetrics(c.metrics)),
		ignore:   c.ignore,
		deadline: deadline,
		now:      c.now,
		logger:   c.logger,
		metrics:  c.metrics,
	}

	if len(startPages) == 0 {
		return model.NewCrawlResult(nil, 0), nil
	}

	c.logger.Info("crawl started",
		slog.Int("start_pages", len(startPages)),
		slog.Int("max_depth", c.maxDepth),
		slog.Time("deadline", deadline),
		slog.Int("workers", r.pool.Size()),
	)

	var firstErr error
	for _, seed := range startPages {
		root := &unit{
			run:            r,
			url:            seed,
			remainingDepth: c.maxDepth + 1,
		}
		if err := r.pool.Invoke(ctx, root.explore); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil && ctx.Err() != nil {
		firstErr = fmt.Errorf("%w: %w", ErrSchedulerUnavailable, ctx.Err())
	}

	result := Aggregate(r.state, c.popularWordCount)

	stats := r.pool.Stats()
	c.logger.Info("crawl finished",
		slog.Int("urls_visited", result.URLsVisited),
		slog.Int("words", len(result.WordCounts)),
		slog.Int64("tasks_run", stats.TasksRun),
		slog.Int64("peak_workers", stats.PeakConcurrency),
	)

	return result, firstErr
}

// Aggregate builds the crawl result from a finished crawl's state.
// It must only be called after every unit has returned.
func Aggregate(state *State, topN int) *model.CrawlResult {
	return model.NewCrawlResult(
		wordcount.Top(state.Snapshot(), topN),
		state.VisitedCount(),
	)
}

// anchorPatterns rewrites each pattern to match only whole strings.
func anchorPatterns(patterns []*regexp.Regexp) ([]*regexp.Regexp, error) {
	anchored := make([]*regexp.Regexp, 0, len(patterns))
	for _, re := range patterns {
		if re == nil {
			continue
		}
		full, err := regexp.Compile(`^(?:` + re.String() + `)$`)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidIgnorePattern, re.String(), err)
		}
		anchored = append(anchored, full)
	}
	return anchored, nil
}
