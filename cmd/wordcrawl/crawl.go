package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/nao1215/wordcrawl/internal/config"
	"github.com/nao1215/wordcrawl/internal/database"
	wclog "github.com/nao1215/wordcrawl/internal/log"
	"github.com/nao1215/wordcrawl/internal/metrics"
	"github.com/nao1215/wordcrawl/internal/model"
	"github.com/nao1215/wordcrawl/internal/pipeline"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [crawl-file...]",
		Short: "Crawl web pages and report the most popular words",
		Long: `Crawl visits the start pages, follows their links up to the maximum depth
and counts the words of every page it fetches. When the time budget runs out
the crawl stops growing and the words gathered so far are reported.

Each crawl file is one run. Without arguments the .wordcrawl file in the
current or home directory is used, if there is one. Flags override values
read from crawl files.

Examples:
  # Crawl a site two links deep
  wordcrawl crawl --start-page https://example.com/ --depth 2

  # Ignore images and short words, write JSON to a file
  wordcrawl crawl -s https://example.com/ --ignore-url '.*\.png' \
    --ignore-word '.{1,2}' --json -o result.json

  # Run two crawl files, both at the same time
  wordcrawl crawl news.yaml blogs.yaml --batch 2

  # Serve Prometheus metrics while crawling
  wordcrawl crawl -s https://example.com/ --metrics-addr :9090`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl scope flags
	cmd.Flags().StringArrayP("start-page", "s", nil,
		"Start page URL (repeatable)")
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Number of link levels followed from a start page (0 visits only start pages)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Wall-clock budget of the whole crawl")
	cmd.Flags().IntP("parallelism", "p", config.DefaultParallelism,
		"Number of crawl workers, capped at the number of CPUs (0 means one per CPU)")
	cmd.Flags().IntP("popular-words", "n", config.DefaultPopularWordCount,
		"Number of most popular words to report")
	cmd.Flags().StringArray("ignore-url", nil,
		"Regular expression; URLs fully matching it are not visited (repeatable)")
	cmd.Flags().StringArray("ignore-word", nil,
		"Regular expression; words fully matching it are not counted (repeatable)")

	// HTTP flags
	cmd.Flags().Duration("parser-timeout", config.DefaultParserTimeout,
		"Time limit of a single page request")
	cmd.Flags().Float64("rps", 0,
		"Maximum HTTP requests per second across all workers (0 means unlimited)")
	cmd.Flags().String("proxy", "",
		"Proxy URL for HTTP requests (http, https, socks5, socks5h)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().String("profile-output", "",
		"Append profiling data of the run to this file")

	// History and operations flags
	cmd.Flags().Bool("no-save", false,
		"Do not store the run in the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")
	cmd.Flags().String("metrics-addr", "",
		"Serve Prometheus metrics on this address while crawling (e.g., :9090)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of crawl files processed concurrently")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfgs, err := buildConfigs(cmd, args)
	if err != nil {
		return err
	}

	logger := wclog.NewSecureLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), cfgs, logger)
}

// buildConfigs creates one Config per crawl file, with flags applied on top.
// Without crawl files the default crawl file is used if it exists, and the
// flags alone otherwise.
func buildConfigs(cmd *cobra.Command, args []string) ([]*config.Config, error) {
	paths := args
	if len(paths) == 0 {
		if found := config.FindConfigFile(""); found != "" {
			paths = []string{found}
		}
	}

	if len(paths) == 0 {
		cfg := config.NewConfig()
		if err := applyFlags(cmd, cfg); err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("configuration error: %w", err)
		}
		return []*config.Config{cfg}, nil
	}

	cfgs := make([]*config.Config, 0, len(paths))
	for _, path := range paths {
		cf, err := config.LoadCrawlFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load crawl file %s: %w", path, err)
		}

		cfg := config.NewConfig()
		cf.Apply(cfg)
		cfg.ConfigFilePath = path
		if err := applyFlags(cmd, cfg); err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("configuration error in %s: %w", path, err)
		}
		cfgs = append(cfgs, cfg)
	}

	owners := make(map[string]string, len(cfgs))
	for _, cfg := range cfgs {
		if cfg.ResultPath == "" {
			continue
		}
		if owner, ok := owners[cfg.ResultPath]; ok {
			return nil, fmt.Errorf("crawl files %s and %s write to the same result file %s",
				owner, cfg.ConfigFilePath, cfg.ResultPath)
		}
		owners[cfg.ResultPath] = cfg.ConfigFilePath
	}

	return cfgs, nil
}

// applyFlags copies every flag the user set onto cfg. Flags left at their
// defaults do not override crawl file values.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	if flags.Changed("start-page") {
		if cfg.StartPages, err = flags.GetStringArray("start-page"); err != nil {
			return err
		}
	}
	if flags.Changed("depth") {
		if cfg.MaxDepth, err = flags.GetInt("depth"); err != nil {
			return err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return err
		}
	}
	if flags.Changed("parallelism") {
		if cfg.Parallelism, err = flags.GetInt("parallelism"); err != nil {
			return err
		}
	}
	if flags.Changed("popular-words") {
		if cfg.PopularWordCount, err = flags.GetInt("popular-words"); err != nil {
			return err
		}
	}
	if flags.Changed("ignore-url") {
		if cfg.IgnoredURLs, err = flags.GetStringArray("ignore-url"); err != nil {
			return err
		}
	}
	if flags.Changed("ignore-word") {
		if cfg.IgnoredWords, err = flags.GetStringArray("ignore-word"); err != nil {
			return err
		}
	}
	if flags.Changed("parser-timeout") {
		if cfg.ParserTimeout, err = flags.GetDuration("parser-timeout"); err != nil {
			return err
		}
	}
	if flags.Changed("rps") {
		if cfg.RequestsPerSecond, err = flags.GetFloat64("rps"); err != nil {
			return err
		}
	}
	if flags.Changed("proxy") {
		if cfg.ProxyURL, err = flags.GetString("proxy"); err != nil {
			return err
		}
	}
	if flags.Changed("output") {
		if cfg.ResultPath, err = flags.GetString("output"); err != nil {
			return err
		}
	}
	if flags.Changed("profile-output") {
		if cfg.ProfileOutputPath, err = flags.GetString("profile-output"); err != nil {
			return err
		}
	}

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return err
	}
	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return err
	}
	cfg.SaveToDB = !noSave
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return err
	}
	if cfg.MetricsAddr, err = flags.GetString("metrics-addr"); err != nil {
		return err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	return nil
}

// runCrawl executes every configuration and writes reports to out.
func runCrawl(ctx context.Context, out, errOut io.Writer, cfgs []*config.Config, logger *slog.Logger) error {
	if len(cfgs) == 0 {
		return config.ErrNoStartPages
	}
	first := cfgs[0]

	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}
	if first.MetricsAddr != "" {
		srv := metrics.NewServer(first.MetricsAddr, reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "addr", first.MetricsAddr, "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx) //nolint:errcheck // best effort on exit
		}()
		logger.Info("serving metrics", "addr", first.MetricsAddr)
	}

	var db *database.RunDB
	if first.SaveToDB {
		db, err = database.Open(first.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Debug("database opened", "path", db.Path())
	}

	shared := &syncWriter{w: out}
	factory := func(cfg *config.Config) (*pipeline.Pipeline, error) {
		opts := []pipeline.DefaultPipelineOption{
			pipeline.WithPipelineDB(db),
			pipeline.WithPipelineMetrics(collector),
			pipeline.WithPipelineLogger(logger),
		}
		if cfg.ResultPath == "" {
			opts = append(opts, pipeline.WithPipelineOutput(shared))
		}
		if cfg.Verbose {
			opts = append(opts, pipeline.WithPipelineProfileOutput(errOut))
		}
		return pipeline.DefaultPipeline(cfg, opts...)
	}

	if len(cfgs) == 1 {
		p, err := factory(first)
		if err != nil {
			return err
		}
		run := model.NewRun(first.StartPages, first.Fingerprint())
		return p.Execute(ctx, run)
	}

	bp := pipeline.NewBatchProcessor(factory,
		pipeline.WithConcurrency(first.BatchSize),
		pipeline.WithBatchLogger(logger),
	)
	runs, err := bp.ProcessBatch(ctx, cfgs)

	failed := 0
	for i, run := range runs {
		if run.Error != nil {
			failed++
			fmt.Fprintf(errOut, "Run %s failed: %v\n", cfgs[i].ConfigFilePath, run.Error)
		}
	}
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d runs failed", failed, len(runs))
	}
	return nil
}

// syncWriter serializes writes of concurrent batch runs to one writer.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
