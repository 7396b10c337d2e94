// Package profiler records how much wall-clock time named operations take.
//
// The crawler wraps its page source with WrapSource so that every fetch is
// timed, and the CLI times whole pipeline steps with Start. WriteData prints
// one line per operation, sorted by name, and the CLI appends that block to
// the profile output file after each run.
package profiler

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/nao1215/wordcrawl/internal/crawler"
	"github.com/nao1215/wordcrawl/internal/model"
)

// Profiler accumulates call counts and total durations per operation name.
// It is safe for concurrent use.
type Profiler struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

type entry struct {
	calls int
	total time.Duration
}

// Option configures a Profiler.
type Option func(*Profiler)

// WithClock replaces time.Now. Tests use it for stable output.
func WithClock(now func() time.Time) Option {
	return func(p *Profiler) {
		p.now = now
	}
}

// New creates an empty Profiler.
func New(opts ...Option) *Profiler {
	p := &Profiler{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins timing one call of name. Calling the returned function
// records it.
//
//	defer prof.Start("crawl")()
func (p *Profiler) Start(name string) func() {
	start := p.now()
	return func() {
		p.Record(name, p.now().Sub(start))
	}
}

// Record adds one call of name that took d.
func (p *Profiler) Record(name string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[name]
	if !ok {
		e = &entry{}
		p.entries[name] = e
	}
	e.calls++
	e.total += d
}

// WrapSource returns a page source that times every Fetch of src under name.
func (p *Profiler) WrapSource(name string, src crawler.PageSource) crawler.PageSource {
	return crawler.PageSourceFunc(func(ctx context.Context, url string) (*model.PageResult, error) {
		defer p.Start(name)()
		return src.Fetch(ctx, url)
	})
}

// WriteData writes the recorded timings to w.
func (p *Profiler) WriteData(w io.Writer) error {
	p.mu.Lock()
	names := make([]string, 0, len(p.entries))
	for name := range p.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	lines := make([]string, 0, len(names))
	for _, name := range names {
		e := p.entries[name]
		lines = append(lines, fmt.Sprintf("%s took %s (%d calls)", name, e.total, e.calls))
	}
	p.mu.Unlock()

	if _, err := fmt.Fprintf(w, "Run at %s\n", p.now().UTC().Format(time.RFC1123)); err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

// AppendToFile appends the recorded timings to the file at path, creating
// it and its parent directories if needed.
func (p *Profiler) AppendToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open profile file: %w", err)
	}

	if err := p.WriteData(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write profile data: %w", err)
	}
	return f.Close()
}
