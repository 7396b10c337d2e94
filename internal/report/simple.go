package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/wordcrawl/internal/model"
)

// ruleWidth is the width of the horizontal rules in the text report.
const ruleWidth = 70

// SimpleWriter outputs human-readable text reports.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because it works in all terminals and is easy to pipe to
// files or other tools.
type SimpleWriter struct {
	baseWriter
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer) *SimpleWriter {
	return &SimpleWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the run in human-readable format.
func (w *SimpleWriter) Write(run *model.Run) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, run)
	w.writeWords(&sb, resultOf(run))

	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, run *model.Run) {
	result := resultOf(run)

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                          WORDCRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	for i, page := range run.StartPages {
		label := "Start Pages:"
		if i > 0 {
			label = ""
		}
		fmt.Fprintf(sb, "%-16s%s\n", label, page)
	}
	if !run.StartedAt.IsZero() {
		fmt.Fprintf(sb, "%-16s%s\n", "Started:", run.StartedAt.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(sb, "%-16s%s\n", "Elapsed:", run.Elapsed().Round(1e6))
	fmt.Fprintf(sb, "%-16s%d\n", "URLs Visited:", result.URLsVisited)
	fmt.Fprintf(sb, "%-16s%s\n", "Status:", statusText(run))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeWords(sb *strings.Builder, result *model.CrawlResult) {
	sb.WriteString("Most Popular Words\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")

	if len(result.WordCounts) == 0 {
		sb.WriteString("  (no words found)\n\n")
		return
	}

	for i, wc := range result.WordCounts {
		fmt.Fprintf(sb, "%3d. %-50s %10d\n", i+1, wc.Word, wc.Count)
	}
	sb.WriteString("\n")
}

// statusText describes how a run ended.
func statusText(run *model.Run) string {
	switch {
	case run.ErrorMessage != "":
		return "ERROR - " + run.ErrorMessage
	case run.HitDeadline():
		return "Deadline reached (partial results)"
	default:
		return "Complete"
	}
}
