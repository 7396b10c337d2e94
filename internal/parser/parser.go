package parser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"time"

	"golang.org/x/time/rate"

	"github.com/nao1215/wordcrawl/internal/model"
)

// Default parser settings.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB
	DefaultUserAgent   = "wordcrawl/1.0 (+https://github.com/nao1215/wordcrawl)"
)

// Parser fetches pages and extracts their words and links.
// It is safe for concurrent use.
type Parser struct {
	client *http.Client

	// ignoredWords holds anchored patterns; matching words are not counted.
	ignoredWords []*regexp.Regexp

	userAgent   string
	headers     map[string]string
	maxBodySize int64

	// limiter spaces out HTTP requests across all goroutines. nil means
	// no limit.
	limiter *rate.Limiter

	logger *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithHTTPClient sets the client used for http and https pages.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Parser) {
		p.client = client
	}
}

// WithIgnoredWords sets patterns for words that are not counted.
// A word is ignored only when a pattern matches the whole word.
func WithIgnoredWords(patterns ...*regexp.Regexp) Option {
	return func(p *Parser) {
		p.ignoredWords = anchor(patterns)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(p *Parser) {
		p.userAgent = ua
	}
}

// WithHeaders adds headers to every HTTP request.
func WithHeaders(headers map[string]string) Option {
	return func(p *Parser) {
		p.headers = make(map[string]string, len(headers))
		for k, v := range headers {
			p.headers[k] = v
		}
	}
}

// WithMaxBodySize limits how many bytes of a page are read.
func WithMaxBodySize(size int64) Option {
	return func(p *Parser) {
		p.maxBodySize = size
	}
}

// WithRateLimit allows at most rps HTTP requests per second.
// Values of zero or less disable the limit.
func WithRateLimit(rps float64) Option {
	return func(p *Parser) {
		if rps <= 0 {
			p.limiter = nil
			return
		}
		p.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// New creates a Parser.
func New(opts ...Option) *Parser {
	p := &Parser{
		client:      &http.Client{Timeout: DefaultTimeout},
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		p.client = &http.Client{Timeout: DefaultTimeout}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Fetch retrieves the page at rawURL and returns its word counts and links.
func (p *Parser) Fetch(ctx context.Context, rawURL string) (*model.PageResult, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	switch u.Scheme {
	case "http", "https":
		return p.fetchHTTP(ctx, u)
	case "file":
		return p.readFile(u)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

func (p *Parser) fetchHTTP(ctx context.Context, u *url.URL) (*model.PageResult, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	if !isTextual(resp.Header.Get("Content-Type")) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContentType, resp.Header.Get("Content-Type"))
	}

	// Links resolve against the URL that finally answered, after redirects.
	base := u
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL
	}

	page, err := p.Parse(io.LimitReader(resp.Body, p.maxBodySize), base)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("fetched page",
		slog.String("url", u.String()),
		slog.Int("status", resp.StatusCode),
		slog.Int("words", len(page.WordCounts)),
		slog.Int("links", len(page.Links)),
	)
	return page, nil
}

func (p *Parser) readFile(u *url.URL) (*model.PageResult, error) {
	f, err := os.Open(u.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return p.Parse(io.LimitReader(f, p.maxBodySize), u)
}

// isTextual reports whether a Content-Type header names a type the parser
// can read. An empty header is accepted.
func isTextual(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch mediaType {
	case "text/html", "application/xhtml+xml", "text/plain":
		return true
	}
	return false
}

// anchor rewrites each pattern to match only whole strings.
func anchor(patterns []*regexp.Regexp) []*regexp.Regexp {
	anchored := make([]*regexp.Regexp, 0, len(patterns))
	for _, re := range patterns {
		if re == nil {
			continue
		}
		// The source already compiled, so the wrapped form does too.
		anchored = append(anchored, regexp.MustCompile(`^(?:`+re.String()+`)$`))
	}
	return anchored
}
