package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/wordcrawl/internal/model"
)

// JSONWriter outputs the crawl result in JSON format.
// By default the document has exactly the shape of model.CrawlResult, with
// words ordered from most to least popular, so existing consumers of result
// files keep working.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because:
// 1. model.WordCounts controls its own key order through MarshalJSON
// 2. It's sufficient for our needs
// 3. It provides consistent behavior across Go versions
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// version, when set, wraps the result with run metadata.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithMetadata wraps the result in a JSONReport carrying version and run
// information.
func WithMetadata(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run's result in JSON format.
func (w *JSONWriter) Write(run *model.Run) (int, error) {
	if w.version != "" {
		return w.writeJSON(NewJSONReport(run, w.version))
	}
	return w.writeJSON(resultOf(run))
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')
	return w.output.Write(data)
}

// JSONReport wraps a crawl result with run metadata.
//
// Design decision: We wrap the result rather than adding fields to
// model.CrawlResult so the plain result keeps its established shape.
type JSONReport struct {
	Version     string             `json:"version"`
	StartPages  []string           `json:"startPages"`
	StartedAt   time.Time          `json:"startedAt"`
	ElapsedMS   int64              `json:"elapsedMs"`
	HitDeadline bool               `json:"hitDeadline"`
	Error       string             `json:"error,omitempty"`
	Result      *model.CrawlResult `json:"result"`
}

// NewJSONReport creates a JSONReport for run.
func NewJSONReport(run *model.Run, version string) *JSONReport {
	return &JSONReport{
		Version:     version,
		StartPages:  run.StartPages,
		StartedAt:   run.StartedAt,
		ElapsedMS:   run.Elapsed().Milliseconds(),
		HitDeadline: run.HitDeadline(),
		Error:       run.ErrorMessage,
		Result:      resultOf(run),
	}
}
