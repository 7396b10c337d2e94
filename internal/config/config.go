package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/wordcrawl/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "wordcrawl"

	// DefaultMaxDepth follows links up to ten levels away from a start page.
	DefaultMaxDepth = 10

	// DefaultTimeout is the wall-clock budget of one crawl.
	DefaultTimeout = 60 * time.Second

	// DefaultPopularWordCount is how many words a result lists.
	DefaultPopularWordCount = 10

	// DefaultParallelism of 0 means one worker per CPU.
	DefaultParallelism = 0

	// DefaultParserTimeout bounds a single page request.
	DefaultParserTimeout = 10 * time.Second

	// DefaultMaxBodySize limits the maximum response body size to read.
	// 5MB is sufficient for most HTML pages while preventing memory exhaustion
	// from unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultUserAgent identifies wordcrawl in HTTP requests.
	DefaultUserAgent = "wordcrawl/1.0 (+https://github.com/nao1215/wordcrawl)"

	// DefaultBatchSize runs crawl files one at a time.
	DefaultBatchSize = 1
)

// Config holds all configuration options for a wordcrawl run.
//
// Design decision: We use a single flat struct instead of nested structs
// for simplicity. The number of options is manageable, and nesting would
// add complexity without significant benefit.
type Config struct {
	// StartPages are the URLs the crawl starts from.
	StartPages []string

	// IgnoredURLs are regular expressions; a URL that fully matches one is
	// never visited.
	IgnoredURLs []string

	// IgnoredWords are regular expressions; a word that fully matches one is
	// not counted.
	IgnoredWords []string

	// Parallelism is the requested number of crawl workers. The crawler uses
	// min(Parallelism, NumCPU); zero or less means NumCPU.
	Parallelism int

	// MaxDepth is the number of link levels followed from a start page.
	// 0 visits only the start pages.
	MaxDepth int

	// Timeout is the wall-clock budget of the whole crawl. No page fetch
	// begins after it has passed.
	Timeout time.Duration

	// PopularWordCount is how many of the most frequent words are reported.
	PopularWordCount int

	// ParserTimeout bounds each HTTP request, including reading the body.
	ParserTimeout time.Duration

	// MaxBodySize is the maximum response body size in bytes to read.
	// Set to 0 to use the default (5MB).
	MaxBodySize int64

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// Headers are extra HTTP headers sent with every request, for example
	// a session cookie for pages behind a login.
	Headers map[string]string

	// RequestsPerSecond caps the HTTP request rate across all workers.
	// 0 means unlimited.
	RequestsPerSecond float64

	// ProxyURL routes HTTP requests through a proxy (http, https, socks5).
	ProxyURL string

	// ResultPath is the report output file. Empty means stdout.
	ResultPath string

	// ProfileOutputPath is the file the profiler appends to. Empty means
	// profile data is written to stderr.
	ProfileOutputPath string

	// JSONReport selects the JSON report. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects the Markdown report. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// DBDir is the directory of the run history database.
	// Defaults to XDG data directory (~/.local/share/wordcrawl on Linux).
	DBDir string

	// SaveToDB stores every finished run in the history database.
	SaveToDB bool

	// MetricsAddr, when set, serves Prometheus metrics on this address
	// while the crawl runs.
	MetricsAddr string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// BatchSize is the number of crawl files processed concurrently.
	BatchSize int

	// ConfigFilePath is the crawl file this configuration was loaded from.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, depth).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Parallelism:      DefaultParallelism,
		MaxDepth:         DefaultMaxDepth,
		Timeout:          DefaultTimeout,
		PopularWordCount: DefaultPopularWordCount,
		ParserTimeout:    DefaultParserTimeout,
		MaxBodySize:      DefaultMaxBodySize,
		UserAgent:        DefaultUserAgent,
		BatchSize:        DefaultBatchSize,
		DBDir:            XDGDataDir(),
		SaveToDB:         true,
	}
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	clone := *c
	clone.StartPages = append([]string(nil), c.StartPages...)
	clone.IgnoredURLs = append([]string(nil), c.IgnoredURLs...)
	clone.IgnoredWords = append([]string(nil), c.IgnoredWords...)
	if c.Headers != nil {
		clone.Headers = make(map[string]string, len(c.Headers))
		for k, v := range c.Headers {
			clone.Headers[k] = v
		}
	}
	return &clone
}

// XDGDataDir returns the XDG data directory for wordcrawl.
// On Linux: ~/.local/share/wordcrawl
// On macOS: ~/Library/Application Support/wordcrawl
// On Windows: %LOCALAPPDATA%\wordcrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for wordcrawl.
// On Linux: ~/.config/wordcrawl
// On macOS: ~/Library/Application Support/wordcrawl
// On Windows: %APPDATA%\wordcrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// Malformed patterns in particular are reported here, before any page is
// fetched.
func (c *Config) Validate() error {
	if len(c.StartPages) == 0 {
		return ErrNoStartPages
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.ParserTimeout < 0 {
		return ErrInvalidParserTimeout
	}
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if c.PopularWordCount < 0 {
		return ErrInvalidPopularWordCount
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.RequestsPerSecond < 0 {
		return ErrInvalidRequestRate
	}
	if _, err := c.CompiledIgnoredURLs(); err != nil {
		return err
	}
	if _, err := c.CompiledIgnoredWords(); err != nil {
		return err
	}
	return nil
}

// CompiledIgnoredURLs compiles IgnoredURLs. The crawler applies them as
// whole-URL matches.
func (c *Config) CompiledIgnoredURLs() ([]*regexp.Regexp, error) {
	return compilePatterns(c.IgnoredURLs)
}

// CompiledIgnoredWords compiles IgnoredWords. The parser applies them as
// whole-word matches.
func (c *Config) CompiledIgnoredWords() ([]*regexp.Regexp, error) {
	return compilePatterns(c.IgnoredWords)
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidPattern, p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// Fingerprint identifies what a run crawls: its start pages, depth,
// patterns and word count. Runs with equal fingerprints can be compared.
func (c *Config) Fingerprint() string {
	return model.Fingerprint(
		strings.Join(c.StartPages, "\n"),
		strings.Join(c.IgnoredURLs, "\n"),
		strings.Join(c.IgnoredWords, "\n"),
		strconv.Itoa(c.MaxDepth),
		strconv.Itoa(c.PopularWordCount),
	)
}
