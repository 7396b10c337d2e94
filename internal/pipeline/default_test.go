package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/nao1215/wordcrawl/internal/config"
	"github.com/nao1215/wordcrawl/internal/database"
	"github.com/nao1215/wordcrawl/internal/model"
	"github.com/nao1215/wordcrawl/internal/report"
)

func testConfig(startPages ...string) *config.Config {
	cfg := config.NewConfig()
	cfg.StartPages = startPages
	cfg.DBDir = ""
	cfg.SaveToDB = false
	cfg.JSONReport = true
	cfg.Timeout = time.Minute
	return cfg
}

func TestDefaultPipeline(t *testing.T) {
	t.Parallel()

	t.Run("builds crawl and report steps", func(t *testing.T) {
		t.Parallel()

		p, err := DefaultPipeline(testConfig("a"), WithPipelineSource(testWeb().source()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := p.StepNames(); !slices.Equal(got, []string{"crawl", "report"}) {
			t.Errorf("StepNames() = %v", got)
		}
	})

	t.Run("adds profile and save steps when configured", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })

		cfg := testConfig("a")
		cfg.SaveToDB = true
		cfg.ProfileOutputPath = t.TempDir() + "/profile.txt"

		p, err := DefaultPipeline(cfg,
			WithPipelineSource(testWeb().source()),
			WithPipelineDB(db),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := p.StepNames(); !slices.Equal(got, []string{"crawl", "report", "profile", "save"}) {
			t.Errorf("StepNames() = %v", got)
		}
	})

	t.Run("rejects invalid ignore pattern", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig("a")
		cfg.IgnoredURLs = []string{"("}
		if _, err := DefaultPipeline(cfg, WithPipelineSource(testWeb().source())); err == nil {
			t.Error("expected error for invalid pattern")
		}
	})

	t.Run("runs end to end with fake source", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		p, err := DefaultPipeline(testConfig("a"),
			WithPipelineSource(testWeb().source()),
			WithPipelineOutput(&out),
			WithPipelineLogger(discardLogger()),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		run := model.NewRun([]string{"a"}, "")
		if err := p.Execute(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var result model.CrawlResult
		if err := json.Unmarshal(out.Bytes(), &result); err != nil {
			t.Fatalf("report is not valid JSON: %v\n%s", err, out.String())
		}
		if result.URLsVisited != 2 {
			t.Errorf("urlsVisited = %d, want 2", result.URLsVisited)
		}
		if result.WordCounts[0] != (model.WordCount{Word: "go", Count: 3}) {
			t.Errorf("unexpected top word %v", result.WordCounts[0])
		}
	})
}

func TestDefaultPipelineHTTP(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><p>Hello gopher, hello!</p><a href="/b">next</a><a href="/skip">skip</a></body></html>`)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><p>Gopher world</p><a href="/">home</a></body></html>`)
	})
	mux.HandleFunc("/skip", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><p>ignored ignored ignored ignored</p></body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := testConfig(srv.URL + "/")
	cfg.IgnoredURLs = []string{`.*/skip`}
	cfg.IgnoredWords = []string{`world`}

	var out bytes.Buffer
	p, err := DefaultPipeline(cfg,
		WithPipelineOutput(&out),
		WithPipelineLogger(discardLogger()),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	run := model.NewRun(cfg.StartPages, cfg.Fingerprint())
	if err := p.Execute(context.Background(), run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result model.CrawlResult
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("report is not valid JSON: %v\n%s", err, out.String())
	}

	want := model.WordCounts{
		{Word: "gopher", Count: 2},
		{Word: "hello", Count: 2},
		{Word: "home", Count: 1},
		{Word: "next", Count: 1},
		{Word: "skip", Count: 1},
	}
	if result.URLsVisited != 2 {
		t.Errorf("urlsVisited = %d, want 2", result.URLsVisited)
	}
	if !slices.Equal(result.WordCounts, want) {
		t.Errorf("wordCounts = %v, want %v", result.WordCounts, want)
	}
}

func TestReportFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*config.Config)
		want   report.Format
	}{
		{"default", func(*config.Config) {}, report.FormatSimple},
		{"json flag", func(c *config.Config) { c.JSONReport = true }, report.FormatJSON},
		{"markdown flag", func(c *config.Config) { c.MarkdownReport = true }, report.FormatMarkdown},
		{"result file", func(c *config.Config) { c.ResultPath = "out.json" }, report.FormatJSON},
		{"markdown file", func(c *config.Config) {
			c.ResultPath = "out.md"
			c.MarkdownReport = true
		}, report.FormatMarkdown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.NewConfig()
			tt.modify(cfg)
			if got := ReportFormat(cfg); got != tt.want {
				t.Errorf("ReportFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}
