package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/wordcrawl/internal/config"
	"github.com/nao1215/wordcrawl/internal/database"
	"github.com/nao1215/wordcrawl/internal/model"
	"github.com/nao1215/wordcrawl/internal/report"
)

// Word movement between two runs.
const (
	movementNew     = "new"
	movementDropped = "dropped"
	movementUp      = "up"
	movementDown    = "down"
	movementSame    = "same"
)

// shortHashLen is how many fingerprint characters the run list shows.
const shortHashLen = 12

// NewHistoryCmd creates the history command.
// This command reads finished runs from the history database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show and compare stored crawl runs",
		Long: `History reads the runs that 'wordcrawl crawl' stored in the database.

Without flags it lists the most recent runs. A run can be shown again with
--id, and --compare shows how the popular words moved between the two latest
runs of the same crawl (same start pages, depth, patterns and word count).

Examples:
  # List the 20 most recent runs
  wordcrawl history

  # Show run 5 as JSON
  wordcrawl history --id 5 --json

  # Compare the two latest runs of the most recent crawl
  wordcrawl history --compare

  # Compare the two latest runs of a specific crawl
  wordcrawl history --compare --hash 3f2a9c

  # Follow one word across runs
  wordcrawl history --word gopher --hash 3f2a9c`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"List stored runs, newest first (default action)")
	cmd.Flags().Int64P("id", "i", 0,
		"Show the stored run with this ID")
	cmd.Flags().BoolP("compare", "c", false,
		"Compare the two latest runs of the same crawl")
	cmd.Flags().StringP("word", "w", "",
		"Show the rank and count of a word across runs")
	cmd.Flags().String("hash", "",
		"Crawl fingerprint (or a prefix of it) for --compare and --word; defaults to the latest run's")
	cmd.Flags().IntP("limit", "n", 20,
		"Maximum number of runs to list (0 lists all)")

	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output in Markdown format")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	return cmd
}

// historyOptions holds the parsed flags of the history command.
type historyOptions struct {
	list     bool
	id       int64
	compare  bool
	word     string
	hash     string
	limit    int
	format   report.Format
	dbDir    string
	jsonOut  bool
	markdown bool
}

func parseHistoryOptions(cmd *cobra.Command) (*historyOptions, error) {
	flags := cmd.Flags()
	opts := &historyOptions{}
	var err error

	if opts.list, err = flags.GetBool("list"); err != nil {
		return nil, err
	}
	if opts.id, err = flags.GetInt64("id"); err != nil {
		return nil, err
	}
	if opts.compare, err = flags.GetBool("compare"); err != nil {
		return nil, err
	}
	if opts.word, err = flags.GetString("word"); err != nil {
		return nil, err
	}
	if opts.hash, err = flags.GetString("hash"); err != nil {
		return nil, err
	}
	if opts.limit, err = flags.GetInt("limit"); err != nil {
		return nil, err
	}
	if opts.jsonOut, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if opts.markdown, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if opts.dbDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}

	if opts.jsonOut && opts.markdown {
		return nil, config.ErrConflictingReportFormats
	}
	switch {
	case opts.jsonOut:
		opts.format = report.FormatJSON
	case opts.markdown:
		opts.format = report.FormatMarkdown
	default:
		opts.format = report.FormatSimple
	}

	actions := 0
	for _, set := range []bool{opts.list, opts.id != 0, opts.compare, opts.word != ""} {
		if set {
			actions++
		}
	}
	if actions > 1 {
		return nil, errors.New("--list, --id, --compare and --word cannot be combined")
	}
	if opts.id < 0 {
		return nil, fmt.Errorf("invalid run ID %d", opts.id)
	}
	return opts, nil
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	// Validate flags before opening the database.
	opts, err := parseHistoryOptions(cmd)
	if err != nil {
		return err
	}

	db, err := database.Open(opts.dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database (run 'wordcrawl crawl' first): %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	switch {
	case opts.id != 0:
		return showRun(ctx, out, db, opts)
	case opts.compare:
		return compareRuns(ctx, out, db, opts)
	case opts.word != "":
		return showWordHistory(ctx, out, db, opts)
	default:
		return listRuns(ctx, out, db, opts)
	}
}

// listRuns prints the stored runs, newest first.
func listRuns(ctx context.Context, out io.Writer, db *database.RunDB, opts *historyOptions) error {
	runs, err := db.ListRuns(ctx, opts.limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if opts.jsonOut {
		return writeJSON(out, runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs found in the database.")
		fmt.Fprintln(out, "\nUse 'wordcrawl crawl' to crawl and store a run.")
		return nil
	}

	header := []string{"ID", "Started", "Elapsed", "Visited", "Status", "Crawl"}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			strconv.FormatInt(run.ID, 10),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Elapsed().Round(1e6).String(),
			strconv.Itoa(visited(run)),
			runStatus(run),
			shortHash(run.ConfigHash),
		})
	}

	if opts.markdown {
		md := markdown.NewMarkdown(out)
		md.H1("wordcrawl History")
		md.PlainText("")
		md.Table(markdown.TableSet{Header: header, Rows: rows})
		return md.Build()
	}

	fmt.Fprintf(out, "Stored runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-6s  %-19s  %-10s  %-7s  %-9s  %s\n",
		header[0], header[1], header[2], header[3], header[4], header[5])
	fmt.Fprintln(out, "  "+strings.Repeat("-", 70))
	for _, row := range rows {
		fmt.Fprintf(out, "  %-6s  %-19s  %-10s  %-7s  %-9s  %s\n",
			row[0], row[1], row[2], row[3], row[4], row[5])
	}
	fmt.Fprintln(out, "\nUse 'wordcrawl history --id <id>' to show a run.")
	fmt.Fprintln(out, "Use 'wordcrawl history --compare' to compare the latest two runs of a crawl.")
	return nil
}

// showRun renders a stored run with the report writer of the chosen format.
func showRun(ctx context.Context, out io.Writer, db *database.RunDB, opts *historyOptions) error {
	run, err := db.GetRun(ctx, opts.id)
	if err != nil {
		return fmt.Errorf("failed to get run %d: %w", opts.id, err)
	}
	if run == nil {
		return fmt.Errorf("run with ID %d not found", opts.id)
	}

	_, err = report.New(opts.format, out).Write(run)
	return err
}

// resolveHash expands a fingerprint prefix, or picks the latest run's
// fingerprint when prefix is empty.
func resolveHash(ctx context.Context, db *database.RunDB, prefix string) (string, error) {
	runs, err := db.ListRuns(ctx, 0)
	if err != nil {
		return "", fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		return "", errors.New("no runs found in the database")
	}
	if prefix == "" {
		return runs[0].ConfigHash, nil
	}

	var match string
	for _, run := range runs {
		if !strings.HasPrefix(run.ConfigHash, prefix) || run.ConfigHash == match {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("crawl fingerprint prefix %q is ambiguous", prefix)
		}
		match = run.ConfigHash
	}
	if match == "" {
		return "", fmt.Errorf("no runs found for crawl fingerprint %q", prefix)
	}
	return match, nil
}

// compareRuns diffs the two latest runs of one crawl.
func compareRuns(ctx context.Context, out io.Writer, db *database.RunDB, opts *historyOptions) error {
	hash, err := resolveHash(ctx, db, opts.hash)
	if err != nil {
		return err
	}

	runs, err := db.LatestRuns(ctx, hash, 2)
	if err != nil {
		return fmt.Errorf("failed to get runs: %w", err)
	}
	if len(runs) < 2 {
		return fmt.Errorf("at least 2 runs of crawl %s are required for comparison (found %d)",
			shortHash(hash), len(runs))
	}

	comparison := compareResults(runs[1], runs[0])
	switch opts.format {
	case report.FormatJSON:
		return writeJSON(out, comparison)
	case report.FormatMarkdown:
		return outputComparisonMarkdown(out, comparison)
	default:
		return outputComparisonText(out, comparison)
	}
}

// ComparisonResult holds the result of comparing two runs of one crawl.
type ComparisonResult struct {
	// ConfigHash is the crawl fingerprint shared by both runs.
	ConfigHash string `json:"config_hash"`

	// StartPages are the seeds of the crawl.
	StartPages []string `json:"start_pages"`

	// Previous is the older run.
	Previous RunSummary `json:"previous_run"`

	// Current is the newer run.
	Current RunSummary `json:"current_run"`

	// Words lists every word of either run: current words in current rank
	// order, then dropped words in previous rank order.
	Words []WordChange `json:"words"`

	// NewCount is the number of words that entered the ranking.
	NewCount int `json:"new_count"`

	// DroppedCount is the number of words that left the ranking.
	DroppedCount int `json:"dropped_count"`

	// UnchangedCount is the number of words that kept rank and count.
	UnchangedCount int `json:"unchanged_count"`
}

// RunSummary contains the run metadata shown in a comparison.
type RunSummary struct {
	ID          int64  `json:"id"`
	StartedAt   string `json:"started_at"`
	Elapsed     string `json:"elapsed"`
	URLsVisited int    `json:"urls_visited"`
	Status      string `json:"status"`
}

// WordChange describes how one word moved between two runs.
// A rank of 0 means the word was not ranked in that run.
type WordChange struct {
	Word          string `json:"word"`
	Movement      string `json:"movement"`
	PreviousRank  int    `json:"previous_rank"`
	CurrentRank   int    `json:"current_rank"`
	PreviousCount int    `json:"previous_count"`
	CurrentCount  int    `json:"current_count"`
}

// RankDelta is positive when the word climbed.
func (c WordChange) RankDelta() int {
	if c.PreviousRank == 0 || c.CurrentRank == 0 {
		return 0
	}
	return c.PreviousRank - c.CurrentRank
}

// CountDelta is the change in the word's count.
func (c WordChange) CountDelta() int {
	return c.CurrentCount - c.PreviousCount
}

// compareResults compares two runs and generates a comparison result.
func compareResults(previous, current *model.Run) *ComparisonResult {
	result := &ComparisonResult{
		ConfigHash: current.ConfigHash,
		StartPages: current.StartPages,
		Previous:   summarize(previous),
		Current:    summarize(current),
		Words:      make([]WordChange, 0),
	}

	prevWords := wordsOf(previous)
	curWords := wordsOf(current)

	prevRank := make(map[string]int, len(prevWords))
	for i, wc := range prevWords {
		prevRank[wc.Word] = i + 1
	}
	curRank := make(map[string]int, len(curWords))
	for i, wc := range curWords {
		curRank[wc.Word] = i + 1
	}

	for i, wc := range curWords {
		change := WordChange{
			Word:         wc.Word,
			CurrentRank:  i + 1,
			CurrentCount: wc.Count,
		}
		if r, ok := prevRank[wc.Word]; ok {
			change.PreviousRank = r
			change.PreviousCount = prevWords[r-1].Count
		}
		change.Movement = movementOf(change)
		switch change.Movement {
		case movementNew:
			result.NewCount++
		case movementSame:
			if change.CountDelta() == 0 {
				result.UnchangedCount++
			}
		}
		result.Words = append(result.Words, change)
	}

	for i, wc := range prevWords {
		if _, ok := curRank[wc.Word]; ok {
			continue
		}
		result.Words = append(result.Words, WordChange{
			Word:          wc.Word,
			Movement:      movementDropped,
			PreviousRank:  i + 1,
			PreviousCount: wc.Count,
		})
		result.DroppedCount++
	}

	return result
}

func movementOf(c WordChange) string {
	switch {
	case c.PreviousRank == 0:
		return movementNew
	case c.CurrentRank == 0:
		return movementDropped
	case c.RankDelta() > 0:
		return movementUp
	case c.RankDelta() < 0:
		return movementDown
	default:
		return movementSame
	}
}

func summarize(run *model.Run) RunSummary {
	return RunSummary{
		ID:          run.ID,
		StartedAt:   run.StartedAt.Local().Format("2006-01-02 15:04:05"),
		Elapsed:     run.Elapsed().Round(1e6).String(),
		URLsVisited: visited(run),
		Status:      runStatus(run),
	}
}

// outputComparisonText outputs the comparison in human-readable text format.
func outputComparisonText(out io.Writer, result *ComparisonResult) error {
	fmt.Fprintf(out, "Run Comparison: %s\n", strings.Join(result.StartPages, ", "))
	fmt.Fprintln(out, strings.Repeat("=", 70))

	fmt.Fprintf(out, "\nPrevious run: #%d %s (%s, %d URLs, %s)\n",
		result.Previous.ID, result.Previous.StartedAt, result.Previous.Elapsed,
		result.Previous.URLsVisited, result.Previous.Status)
	fmt.Fprintf(out, "Current run:  #%d %s (%s, %d URLs, %s)\n",
		result.Current.ID, result.Current.StartedAt, result.Current.Elapsed,
		result.Current.URLsVisited, result.Current.Status)

	fmt.Fprintln(out, "\nWords:")
	fmt.Fprintf(out, "  %-30s  %-8s  %-8s  %-10s  %-10s  %s\n",
		"Word", "Prev", "Curr", "Count", "Change", "Movement")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 85))
	for _, c := range result.Words {
		fmt.Fprintf(out, "  %-30s  %-8s  %-8s  %-10d  %-10s  %s\n",
			c.Word, formatRank(c.PreviousRank), formatRank(c.CurrentRank),
			c.CurrentCount, formatDelta(c.CountDelta()), formatMovement(c))
	}

	fmt.Fprintf(out, "\nNew words: %d, dropped words: %d, unchanged: %d\n",
		result.NewCount, result.DroppedCount, result.UnchangedCount)
	return nil
}

// outputComparisonMarkdown outputs the comparison in Markdown format.
func outputComparisonMarkdown(out io.Writer, result *ComparisonResult) error {
	md := markdown.NewMarkdown(out)
	md.H1("Run Comparison")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Run", "#" + strconv.FormatInt(result.Previous.ID, 10), "#" + strconv.FormatInt(result.Current.ID, 10), "-"},
			{"Started", result.Previous.StartedAt, result.Current.StartedAt, "-"},
			{"Elapsed", result.Previous.Elapsed, result.Current.Elapsed, "-"},
			{"URLs Visited", strconv.Itoa(result.Previous.URLsVisited), strconv.Itoa(result.Current.URLsVisited),
				formatDelta(result.Current.URLsVisited - result.Previous.URLsVisited)},
			{"Status", result.Previous.Status, result.Current.Status, "-"},
		},
	})
	md.PlainText("")

	md.H2("Words")
	md.PlainText("")
	if len(result.Words) == 0 {
		md.PlainText("Neither run found any words.")
		return md.Build()
	}

	rows := make([][]string, 0, len(result.Words))
	for _, c := range result.Words {
		word := "`" + c.Word + "`"
		if c.Movement == movementDropped {
			word = "~~" + word + "~~"
		}
		rows = append(rows, []string{
			word,
			formatRank(c.PreviousRank),
			formatRank(c.CurrentRank),
			strconv.Itoa(c.CurrentCount),
			formatDelta(c.CountDelta()),
			formatMovement(c),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Word", "Previous Rank", "Current Rank", "Count", "Change", "Movement"},
		Rows:   rows,
	})
	md.PlainText("")
	md.PlainTextf("*%d new, %d dropped, %d unchanged*",
		result.NewCount, result.DroppedCount, result.UnchangedCount)

	return md.Build()
}

// showWordHistory prints the rank and count of one word across the runs
// of a crawl, oldest first.
func showWordHistory(ctx context.Context, out io.Writer, db *database.RunDB, opts *historyOptions) error {
	hash, err := resolveHash(ctx, db, opts.hash)
	if err != nil {
		return err
	}

	points, err := db.WordHistory(ctx, hash, opts.word)
	if err != nil {
		return err
	}

	if opts.jsonOut {
		return writeJSON(out, points)
	}
	if len(points) == 0 {
		fmt.Fprintf(out, "%q did not rank in any run of crawl %s\n", opts.word, shortHash(hash))
		return nil
	}

	rows := make([][]string, 0, len(points))
	for _, p := range points {
		rows = append(rows, []string{
			strconv.FormatInt(p.RunID, 10),
			p.StartedAt.Local().Format("2006-01-02 15:04:05"),
			strconv.Itoa(p.Rank),
			strconv.Itoa(p.Count),
		})
	}

	if opts.markdown {
		md := markdown.NewMarkdown(out)
		md.H1("History of `" + opts.word + "`")
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"Run", "Started", "Rank", "Count"},
			Rows:   rows,
		})
		return md.Build()
	}

	fmt.Fprintf(out, "History of %q in crawl %s:\n\n", opts.word, shortHash(hash))
	fmt.Fprintf(out, "  %-6s  %-19s  %-6s  %s\n", "Run", "Started", "Rank", "Count")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 45))
	for _, row := range rows {
		fmt.Fprintf(out, "  %-6s  %-19s  %-6s  %s\n", row[0], row[1], row[2], row[3])
	}
	return nil
}

func writeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func wordsOf(run *model.Run) model.WordCounts {
	if run.Result == nil {
		return nil
	}
	return slices.Clone(run.Result.WordCounts)
}

func visited(run *model.Run) int {
	if run.Result == nil {
		return 0
	}
	return run.Result.URLsVisited
}

func runStatus(run *model.Run) string {
	switch {
	case run.ErrorMessage != "":
		return "error"
	case run.HitDeadline():
		return "partial"
	default:
		return "complete"
	}
}

func shortHash(hash string) string {
	if len(hash) > shortHashLen {
		return hash[:shortHashLen]
	}
	return hash
}

func formatRank(rank int) string {
	if rank == 0 {
		return "-"
	}
	return strconv.Itoa(rank)
}

// formatDelta formats a delta value with sign prefix.
func formatDelta(delta int) string {
	if delta > 0 {
		return fmt.Sprintf("+%d", delta)
	}
	return strconv.Itoa(delta)
}

func formatMovement(c WordChange) string {
	switch c.Movement {
	case movementUp:
		return fmt.Sprintf("up %d", c.RankDelta())
	case movementDown:
		return fmt.Sprintf("down %d", -c.RankDelta())
	default:
		return c.Movement
	}
}
