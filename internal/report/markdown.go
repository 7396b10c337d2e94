package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/wordcrawl/internal/model"
)

// maxChartSlices caps the number of words drawn in the pie chart.
// Any further words are folded into a single "other" slice.
const maxChartSlices = 8

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the run in Markdown format.
func (w *MarkdownWriter) Write(run *model.Run) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, run)
	w.writeWords(md, resultOf(run))
	w.writeAlert(md, run)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, run *model.Run) {
	md.H1("wordcrawl Report")
	md.PlainText("")

	pages := make([]string, len(run.StartPages))
	for i, p := range run.StartPages {
		pages[i] = "`" + p + "`"
	}

	rows := [][]string{
		{"Start Pages", strings.Join(pages, "<br>")},
	}
	if !run.StartedAt.IsZero() {
		rows = append(rows, []string{"Started", run.StartedAt.Format("2006-01-02 15:04:05 MST")})
	}
	rows = append(rows,
		[]string{"Elapsed", run.Elapsed().Round(1e6).String()},
		[]string{"URLs Visited", strconv.Itoa(resultOf(run).URLsVisited)},
		[]string{"Status", w.getStatusText(run)},
	)

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// getStatusText returns the status text based on run state.
func (w *MarkdownWriter) getStatusText(run *model.Run) string {
	if run.ErrorMessage != "" {
		return "❌ Error - " + run.ErrorMessage
	}
	if run.HitDeadline() {
		return "⚠️ Deadline reached (partial results)"
	}
	return "✅ Complete"
}

// writeWords writes the popular words table and chart.
func (w *MarkdownWriter) writeWords(md *markdown.Markdown, result *model.CrawlResult) {
	md.H2("Most Popular Words")
	md.PlainText("")

	if len(result.WordCounts) == 0 {
		md.PlainText("No words found.")
		md.PlainText("")
		return
	}

	total := 0
	for _, wc := range result.WordCounts {
		total += wc.Count
	}

	rows := make([][]string, len(result.WordCounts))
	for i, wc := range result.WordCounts {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			"`" + wc.Word + "`",
			strconv.Itoa(wc.Count),
			share(wc.Count, total),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Rank", "Word", "Count", "Share"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, result.WordCounts)
}

// writePieChart writes a mermaid pie chart of the popular words.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, counts model.WordCounts) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Word Distribution"),
		piechart.WithShowData(true),
	)

	other := 0
	for i, wc := range counts {
		if i >= maxChartSlices {
			other += wc.Count
			continue
		}
		chart.LabelAndIntValue(wc.Word, uint64(wc.Count)) //nolint:gosec // counts are positive
	}
	if other > 0 {
		chart.LabelAndIntValue("(other)", uint64(other)) //nolint:gosec // counts are positive
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert describing how the run ended.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, run *model.Run) {
	switch {
	case run.ErrorMessage != "":
		md.Cautionf("The crawl failed: %s", run.ErrorMessage)
	case run.HitDeadline():
		md.Warningf(
			"The crawl reached its deadline after visiting %d URL(s). Counts are partial.",
			resultOf(run).URLsVisited,
		)
	case len(resultOf(run).WordCounts) == 0:
		md.Note("The crawl finished without finding any words.")
	default:
		md.Tip("The crawl finished before its deadline.")
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [wordcrawl](https://github.com/nao1215/wordcrawl)*")
}

// share formats count as a percentage of total.
func share(count, total int) string {
	if total == 0 {
		return "-"
	}
	return strconv.FormatFloat(float64(count)*100/float64(total), 'f', 1, 64) + "%"
}
