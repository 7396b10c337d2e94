package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/wordcrawl/internal/model"
)

// createTestRun creates a finished run with sample data for testing.
func createTestRun() *model.Run {
	run := model.NewRun([]string{"https://example.com/"}, "hash")
	run.StartedAt = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	run.FinishedAt = run.StartedAt.Add(1500 * time.Millisecond)
	run.Deadline = run.StartedAt.Add(time.Minute)
	run.Result = model.NewCrawlResult(model.WordCounts{
		{Word: "gopher", Count: 7},
		{Word: "go", Count: 3},
		{Word: "crawl", Count: 2},
	}, 4)
	return run
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes report header", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "WORDCRAWL REPORT") {
			t.Error("expected output to contain header")
		}
		if !strings.Contains(output, "https://example.com/") {
			t.Error("expected output to contain start page")
		}
		if !strings.Contains(output, "1.5s") {
			t.Errorf("expected output to contain elapsed time, got:\n%s", output)
		}
		if !strings.Contains(output, "Complete") {
			t.Error("expected complete status")
		}
	})

	t.Run("writes words in rank order", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		gopher := strings.Index(output, "1. gopher")
		gopherGo := strings.Index(output, "2. go ")
		crawl := strings.Index(output, "3. crawl")
		if gopher < 0 || gopherGo < 0 || crawl < 0 {
			t.Fatalf("expected ranked words, got:\n%s", output)
		}
		if gopher >= gopherGo || gopherGo >= crawl {
			t.Error("expected words in rank order")
		}
	})

	t.Run("reports deadline", func(t *testing.T) {
		t.Parallel()

		run := createTestRun()
		run.Deadline = run.StartedAt.Add(time.Second)

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Deadline reached") {
			t.Error("expected deadline status")
		}
	})

	t.Run("reports error", func(t *testing.T) {
		t.Parallel()

		run := createTestRun()
		run.SetError(errors.New("scheduler unavailable"))

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "ERROR - scheduler unavailable") {
			t.Error("expected error status")
		}
	})

	t.Run("handles run without result", func(t *testing.T) {
		t.Parallel()

		run := model.NewRun([]string{"https://example.com/"}, "")

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "(no words found)") {
			t.Error("expected empty words message")
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes result shape", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := `{"wordCounts":{"gopher":7,"go":3,"crawl":2},"urlsVisited":4}` + "\n"
		if got := buf.String(); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("writes empty object for run without result", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(model.NewRun(nil, "")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := `{"wordCounts":{},"urlsVisited":0}` + "\n"
		if got := buf.String(); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("pretty prints", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"urlsVisited\": 4") {
			t.Errorf("expected indented output, got:\n%s", buf.String())
		}

		var result model.CrawlResult
		if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if result.WordCounts[0].Word != "gopher" {
			t.Errorf("expected order to survive, got %v", result.WordCounts)
		}
	})

	t.Run("custom indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithIndent(">", "\t")).Write(createTestRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), ">\t\"urlsVisited\"") {
			t.Errorf("expected custom indentation, got:\n%s", buf.String())
		}
	})

	t.Run("writes metadata", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithMetadata("v1.2.3")).Write(createTestRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got JSONReport
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if got.Version != "v1.2.3" {
			t.Errorf("version = %q", got.Version)
		}
		if got.ElapsedMS != 1500 {
			t.Errorf("elapsedMs = %d, want 1500", got.ElapsedMS)
		}
		if got.HitDeadline {
			t.Error("expected hitDeadline false")
		}
		if got.Result == nil || got.Result.URLsVisited != 4 {
			t.Errorf("unexpected result %+v", got.Result)
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and words", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# wordcrawl Report",
			"https://example.com/",
			"## Most Popular Words",
			"`gopher`",
			"58.3%",
			"[!TIP]",
			"https://github.com/nao1215/wordcrawl",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("includes pie chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "```mermaid") {
			t.Error("expected mermaid code block")
		}
		if !strings.Contains(output, "pie") {
			t.Error("expected pie chart")
		}
		if !strings.Contains(output, "Word Distribution") {
			t.Error("expected chart title")
		}
	})

	t.Run("folds long tails into other", func(t *testing.T) {
		t.Parallel()

		run := createTestRun()
		counts := make(model.WordCounts, 0, maxChartSlices+2)
		for i := range maxChartSlices + 2 {
			counts = append(counts, model.WordCount{Word: strings.Repeat("w", i+1), Count: 20 - i})
		}
		run.Result = model.NewCrawlResult(counts, 1)

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "(other)") {
			t.Error("expected other slice")
		}
	})

	t.Run("warns on deadline", func(t *testing.T) {
		t.Parallel()

		run := createTestRun()
		run.Deadline = run.StartedAt.Add(time.Second)

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "[!WARNING]") {
			t.Error("expected warning alert")
		}
		if !strings.Contains(output, "Deadline reached") {
			t.Error("expected deadline status")
		}
	})

	t.Run("cautions on error", func(t *testing.T) {
		t.Parallel()

		run := createTestRun()
		run.SetError(errors.New("boom"))

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "[!CAUTION]") {
			t.Error("expected caution alert")
		}
	})

	t.Run("notes empty result", func(t *testing.T) {
		t.Parallel()

		run := createTestRun()
		run.Result = model.NewCrawlResult(nil, 2)

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "No words found.") {
			t.Error("expected empty words message")
		}
		if !strings.Contains(output, "[!NOTE]") {
			t.Error("expected note alert")
		}
		if strings.Contains(output, "```mermaid") {
			t.Error("expected no chart without words")
		}
	})
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format Format
		want   string
	}{
		{FormatJSON, `"urlsVisited"`},
		{FormatMarkdown, "# wordcrawl Report"},
		{FormatSimple, "WORDCRAWL REPORT"},
		{Format("unknown"), "WORDCRAWL REPORT"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if _, err := New(tt.format, &buf).Write(createTestRun()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("expected output to contain %q", tt.want)
			}
		})
	}
}

func TestOpenOutput(t *testing.T) {
	t.Parallel()

	t.Run("empty path is stdout", func(t *testing.T) {
		t.Parallel()

		w, err := OpenOutput("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Errorf("closing stdout wrapper: %v", err)
		}
	})

	t.Run("creates file and parents", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "nested", "dir", "result.json")
		w, err := OpenOutput(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := NewJSONWriter(w).Write(createTestRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Errorf("perm = %o, want 600", perm)
		}
	})

	t.Run("truncates existing file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "result.json")
		if err := os.WriteFile(path, bytes.Repeat([]byte("x"), 4096), 0o600); err != nil {
			t.Fatal(err)
		}

		w, err := OpenOutput(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := NewJSONWriter(w).Write(model.NewRun(nil, "")); err != nil {
			t.Fatal(err)
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != `{"wordCounts":{},"urlsVisited":0}`+"\n" {
			t.Errorf("unexpected content %q", data)
		}
	})
}
