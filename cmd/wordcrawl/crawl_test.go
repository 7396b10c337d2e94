package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/wordcrawl/internal/config"
	"github.com/nao1215/wordcrawl/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestSite serves two pages linking to each other.
func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><p>Hello gopher, hello!</p><a href="/b">next</a></body></html>`)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><p>Gopher world</p><a href="/">home</a></body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func siteConfig(startPage, dbDir string) *config.Config {
	cfg := config.NewConfig()
	cfg.StartPages = []string{startPage}
	cfg.MaxDepth = 2
	cfg.Timeout = time.Minute
	cfg.JSONReport = true
	cfg.DBDir = dbDir
	cfg.SaveToDB = dbDir != ""
	return cfg
}

func writeCrawlFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write crawl file: %v", err)
	}
	return path
}

func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()

	flags := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"start-page", "s", "[]"},
		{"depth", "d", "10"},
		{"timeout", "t", "1m0s"},
		{"parallelism", "p", "0"},
		{"popular-words", "n", "10"},
		{"ignore-url", "", "[]"},
		{"ignore-word", "", "[]"},
		{"parser-timeout", "", "10s"},
		{"rps", "", "0"},
		{"proxy", "", ""},
		{"json", "j", "false"},
		{"markdown", "m", "false"},
		{"output", "o", ""},
		{"profile-output", "", ""},
		{"no-save", "", "false"},
		{"metrics-addr", "", ""},
		{"batch", "b", "1"},
	}

	for _, tt := range flags {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("expected default %q, got %q", tt.defValue, flag.DefValue)
			}
		})
	}
}

func TestBuildConfigs(t *testing.T) {
	t.Parallel()

	t.Run("flags only", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{
			"-s", "https://example.com/",
			"-s", "https://example.org/",
			"--depth", "3",
			"--timeout", "5s",
			"--ignore-word", "[0-9]+",
			"--no-save",
			"--json",
		}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfgs, err := buildConfigs(cmd, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cfgs) != 1 {
			t.Fatalf("expected 1 config, got %d", len(cfgs))
		}
		cfg := cfgs[0]
		if !slices.Equal(cfg.StartPages, []string{"https://example.com/", "https://example.org/"}) {
			t.Errorf("StartPages = %v", cfg.StartPages)
		}
		if cfg.MaxDepth != 3 {
			t.Errorf("MaxDepth = %d, want 3", cfg.MaxDepth)
		}
		if cfg.Timeout != 5*time.Second {
			t.Errorf("Timeout = %v, want 5s", cfg.Timeout)
		}
		if !slices.Equal(cfg.IgnoredWords, []string{"[0-9]+"}) {
			t.Errorf("IgnoredWords = %v", cfg.IgnoredWords)
		}
		if cfg.SaveToDB {
			t.Error("expected SaveToDB to be false with --no-save")
		}
		if !cfg.JSONReport {
			t.Error("expected JSONReport")
		}
		if cfg.PopularWordCount != config.DefaultPopularWordCount {
			t.Errorf("PopularWordCount = %d, want default", cfg.PopularWordCount)
		}
	})

	t.Run("flags override crawl file", func(t *testing.T) {
		t.Parallel()

		path := writeCrawlFile(t, t.TempDir(), "news.yaml", `
startPages:
  - https://example.com/
maxDepth: 4
popularWordCount: 3
timeoutSeconds: 30
`)
		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--depth", "1"}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfgs, err := buildConfigs(cmd, []string{path})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		cfg := cfgs[0]
		if cfg.MaxDepth != 1 {
			t.Errorf("MaxDepth = %d, want flag value 1", cfg.MaxDepth)
		}
		if cfg.PopularWordCount != 3 {
			t.Errorf("PopularWordCount = %d, want file value 3", cfg.PopularWordCount)
		}
		if cfg.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
		}
		if cfg.ConfigFilePath != path {
			t.Errorf("ConfigFilePath = %q, want %q", cfg.ConfigFilePath, path)
		}
	})

	t.Run("one config per crawl file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		a := writeCrawlFile(t, dir, "a.yaml", "startPages: [\"https://a.example/\"]\n")
		b := writeCrawlFile(t, dir, "b.json", `{"startPages": ["https://b.example/"], "maxDepth": 0}`)

		cmd := NewCrawlCmd()
		cfgs, err := buildConfigs(cmd, []string{a, b})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cfgs) != 2 {
			t.Fatalf("expected 2 configs, got %d", len(cfgs))
		}
		if cfgs[0].StartPages[0] != "https://a.example/" || cfgs[1].StartPages[0] != "https://b.example/" {
			t.Errorf("unexpected start pages: %v %v", cfgs[0].StartPages, cfgs[1].StartPages)
		}
		if cfgs[1].MaxDepth != 0 {
			t.Errorf("MaxDepth = %d, want explicit 0", cfgs[1].MaxDepth)
		}
	})

	t.Run("rejects shared result file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		content := "startPages: [\"https://a.example/\"]\nresultPath: out.json\n"
		a := writeCrawlFile(t, dir, "a.yaml", content)
		b := writeCrawlFile(t, dir, "b.yaml", content)

		_, err := buildConfigs(NewCrawlCmd(), []string{a, b})
		if err == nil || !strings.Contains(err.Error(), "same result file") {
			t.Errorf("expected shared result file error, got %v", err)
		}
	})

	t.Run("missing crawl file", func(t *testing.T) {
		t.Parallel()

		_, err := buildConfigs(NewCrawlCmd(), []string{filepath.Join(t.TempDir(), "missing.yaml")})
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("validation errors", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name string
			args []string
			want error
		}{
			{"conflicting formats", []string{"-s", "https://example.com/", "--json", "--markdown"}, config.ErrConflictingReportFormats},
			{"negative depth", []string{"-s", "https://example.com/", "--depth", "-1"}, config.ErrInvalidMaxDepth},
			{"zero timeout", []string{"-s", "https://example.com/", "--timeout", "0s"}, config.ErrInvalidTimeout},
			{"bad pattern", []string{"-s", "https://example.com/", "--ignore-url", "("}, config.ErrInvalidPattern},
		}
		for _, tt := range tests {
			cmd := NewCrawlCmd()
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("%s: failed to parse flags: %v", tt.name, err)
			}
			if _, err := buildConfigs(cmd, nil); !errors.Is(err, tt.want) {
				t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
			}
		}
	})
}

func TestRunCrawl(t *testing.T) {
	t.Parallel()

	t.Run("writes JSON report and stores the run", func(t *testing.T) {
		t.Parallel()

		srv := newTestSite(t)
		dbDir := t.TempDir()
		cfg := siteConfig(srv.URL+"/", dbDir)

		var out bytes.Buffer
		if err := runCrawl(context.Background(), &out, io.Discard, []*config.Config{cfg}, discardLogger()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var result model.CrawlResult
		if err := json.Unmarshal(out.Bytes(), &result); err != nil {
			t.Fatalf("report is not valid JSON: %v\n%s", err, out.String())
		}
		if result.URLsVisited != 2 {
			t.Errorf("urlsVisited = %d, want 2", result.URLsVisited)
		}
		if len(result.WordCounts) == 0 || result.WordCounts[0] != (model.WordCount{Word: "gopher", Count: 2}) {
			t.Errorf("unexpected word counts %v", result.WordCounts)
		}

		var list bytes.Buffer
		root := NewRootCmd()
		root.SetOut(&list)
		root.SetArgs([]string{"history", "--db-dir", dbDir, "--json"})
		if err := root.Execute(); err != nil {
			t.Fatalf("history failed: %v", err)
		}
		var runs []model.Run
		if err := json.Unmarshal(list.Bytes(), &runs); err != nil {
			t.Fatalf("history is not valid JSON: %v\n%s", err, list.String())
		}
		if len(runs) != 1 {
			t.Errorf("expected 1 stored run, got %d", len(runs))
		}
	})

	t.Run("writes result file", func(t *testing.T) {
		t.Parallel()

		srv := newTestSite(t)
		cfg := siteConfig(srv.URL+"/", "")
		cfg.ResultPath = filepath.Join(t.TempDir(), "out", "result.json")

		var out bytes.Buffer
		if err := runCrawl(context.Background(), &out, io.Discard, []*config.Config{cfg}, discardLogger()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Len() != 0 {
			t.Errorf("expected nothing on stdout, got %q", out.String())
		}

		data, err := os.ReadFile(cfg.ResultPath)
		if err != nil {
			t.Fatalf("failed to read result file: %v", err)
		}
		var result model.CrawlResult
		if err := json.Unmarshal(data, &result); err != nil {
			t.Fatalf("result file is not valid JSON: %v", err)
		}
		if result.URLsVisited != 2 {
			t.Errorf("urlsVisited = %d, want 2", result.URLsVisited)
		}
	})

	t.Run("batch of crawl files", func(t *testing.T) {
		t.Parallel()

		srv := newTestSite(t)
		first := siteConfig(srv.URL+"/", "")
		first.BatchSize = 2
		first.ConfigFilePath = "first.yaml"
		second := siteConfig(srv.URL+"/b", "")
		second.MaxDepth = 0
		second.ConfigFilePath = "second.yaml"

		var out bytes.Buffer
		if err := runCrawl(context.Background(), &out, io.Discard, []*config.Config{first, second}, discardLogger()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		dec := json.NewDecoder(&out)
		visited := make([]int, 0, 2)
		for dec.More() {
			var result model.CrawlResult
			if err := dec.Decode(&result); err != nil {
				t.Fatalf("invalid JSON in batch output: %v", err)
			}
			visited = append(visited, result.URLsVisited)
		}
		slices.Sort(visited)
		if !slices.Equal(visited, []int{1, 2}) {
			t.Errorf("visited = %v, want [1 2]", visited)
		}
	})

	t.Run("cancelled context reports partial result", func(t *testing.T) {
		t.Parallel()

		srv := newTestSite(t)
		cfg := siteConfig(srv.URL+"/", "")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var out bytes.Buffer
		err := runCrawl(ctx, &out, io.Discard, []*config.Config{cfg}, discardLogger())
		if err == nil {
			t.Fatal("expected error for cancelled context")
		}
		if !json.Valid(out.Bytes()) {
			t.Errorf("expected a JSON report despite the error, got %q", out.String())
		}
	})
}

func TestCrawlCmdExecute(t *testing.T) {
	t.Parallel()

	srv := newTestSite(t)

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs([]string{
		"crawl",
		"-s", srv.URL + "/",
		"--depth", "0",
		"--no-save",
		"--popular-words", "2",
	})
	if err := root.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := out.String()
	for _, want := range []string{"WORDCRAWL REPORT", "URLs Visited", "Most Popular Words", "hello"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, got)
		}
	}
}
